package account

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/azure/brand-analytics/internal/config"
	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/sentiment"
	"github.com/azure/brand-analytics/internal/storage"
	"github.com/azure/brand-analytics/internal/topics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorage is a mock implementation of the storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestService(s storage.StorageInterface) *Service {
	cfg := &config.Config{NumTopics: 5, TimeZone: "UTC"}
	svc := NewService(cfg, s, topics.NewEngine(nil, time.Second, nil), sentiment.NewClassifier(nil, time.Second))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

const launchCSV = `id_str,full_text,created_at,favorite_count,retweet_count
1,#launch great news,2024-03-01T10:00:00Z,10,2
2,#launch amazing,2024-03-01T11:00:00Z,4,0
3,broken,row,with,too,many
`

func TestProcessUpload_EndToEnd(t *testing.T) {
	ms := &MockStorage{}
	ms.On("Store", mock.Anything, "uploads/launch_tweets-20240302-120000.json", mock.AnythingOfType("[]uint8")).Return(nil)

	svc := newTestService(ms)
	upload, err := svc.ProcessUpload(context.Background(), "launch_tweets.csv", []byte(launchCSV))
	require.NoError(t, err)

	assert.Equal(t, models.Brand{ID: "launch_tweets", Name: "Launch Tweets"}, upload.Brand)
	assert.Equal(t, 2, upload.Parsed)
	assert.Equal(t, 2, upload.Valid)
	assert.Equal(t, "uploads/launch_tweets-20240302-120000.json", upload.ArchiveKey)

	a := upload.Account
	assert.Equal(t, "launch_tweets", a.ID)
	assert.Equal(t, 2, a.TotalTweets)
	assert.False(t, a.FollowersKnown)
	require.NotEmpty(t, a.Hashtags)
	assert.Equal(t, "#launch", a.Hashtags[0].Tag)
	assert.Equal(t, 2, a.Hashtags[0].Count)
	assert.Equal(t, 16, a.Engagement.TotalEngagement)
	assert.Equal(t, a.Engagement.EngagementRate, a.EngagementRate)
	assert.Equal(t, 100.0, a.Sentiment.PositivePct)
	assert.Equal(t, models.SentimentSourceHeuristic, a.Sentiment.Source)
	assert.Equal(t, fixedNow, a.GeneratedAt)

	ms.AssertExpectations(t)
}

func TestProcessUpload_ArchiveFailureDoesNotFailUpload(t *testing.T) {
	ms := &MockStorage{}
	ms.On("Store", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("storage unavailable"))

	svc := newTestService(ms)
	upload, err := svc.ProcessUpload(context.Background(), "launch.csv", []byte(launchCSV))
	require.NoError(t, err)
	assert.Empty(t, upload.ArchiveKey)
	assert.Equal(t, 2, upload.Valid)

	var m Metrics
	require.NoError(t, json.Unmarshal([]byte(svc.GetMetrics()), &m))
	assert.Equal(t, 1, m.ErrorCount)
	assert.Equal(t, 1, m.TotalUploads)
}

func TestProcessUpload_RejectsBinary(t *testing.T) {
	ms := &MockStorage{}
	svc := newTestService(ms)

	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)
	_, err := svc.ProcessUpload(context.Background(), "logo.csv", png)
	assert.ErrorIs(t, err, ErrBinaryUpload)

	ms.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessUpload_EmptyFile(t *testing.T) {
	svc := newTestService(storage.NewMemoryStorage())

	upload, err := svc.ProcessUpload(context.Background(), "empty.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, upload.Account.TotalTweets)
	assert.Equal(t, models.DefaultSentiment(), upload.Account.Sentiment)
}

func TestBuildAccount_EmptyCorpus(t *testing.T) {
	svc := newTestService(storage.NewMemoryStorage())

	a := svc.BuildAccount(context.Background(), models.Brand{ID: "quiet", Name: "Quiet"}, nil)

	assert.Equal(t, "quiet", a.ID)
	assert.Equal(t, "Quiet", a.Username)
	assert.Equal(t, 0, a.TotalTweets)
	assert.Equal(t, 0.0, a.EngagementRate)
	assert.Equal(t, models.DefaultSentiment(), a.Sentiment)

	assert.NotNil(t, a.Posts)
	assert.NotNil(t, a.TopPosts)
	assert.NotNil(t, a.Hashtags)
	assert.NotNil(t, a.Words)
	assert.NotNil(t, a.Trends)
	assert.NotNil(t, a.PostingTimes)
	assert.Empty(t, a.Topics)
	assert.NotNil(t, a.Topics)
}

func TestBuildAccount_DropsInvalidPosts(t *testing.T) {
	svc := newTestService(storage.NewMemoryStorage())

	posts := []models.Post{
		{ID: "1", Text: "I love this show so much", CreatedAt: fixedNow, LikeCount: 3},
		{ID: "2", Text: "   "},
		{ID: "", Text: "no id here"},
		{ID: "3", Text: "love the new season", CreatedAt: fixedNow.Add(time.Hour)},
	}

	a := svc.BuildAccount(context.Background(), models.Brand{ID: "b", Name: "B"}, posts)
	assert.Equal(t, 2, a.TotalTweets)
	require.Len(t, a.Posts, 2)
	assert.Equal(t, sentiment.Heuristic(a.Posts), a.Sentiment)
	assert.Equal(t, 100.0, a.Sentiment.PositivePct)
	assert.Equal(t, 12, a.MostActiveHour)
}

func TestArchiveKeyRoundTrip(t *testing.T) {
	key := ArchiveKey("netflix_tweets", fixedNow)
	assert.Equal(t, "uploads/netflix_tweets-20240302-120000.json", key)

	parsed, ok := ParseArchiveTime(key)
	require.True(t, ok)
	assert.Equal(t, fixedNow, parsed)

	for _, bad := range []string{"uploads/readme.txt", "uploads/x.json", "session"} {
		_, ok := ParseArchiveTime(bad)
		assert.False(t, ok, bad)
	}
}

func TestPruneArchive(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	svc := newTestService(mem)

	old := ArchiveKey("a", fixedNow.Add(-72*time.Hour))
	recent := ArchiveKey("b", fixedNow.Add(-time.Hour))
	for _, key := range []string{old, recent, "uploads/notes.txt", "brandsData"} {
		require.NoError(t, mem.Store(ctx, key, []byte("{}")))
	}

	deleted, err := svc.PruneArchive(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	keys, err := mem.List(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{recent, "uploads/notes.txt", "brandsData"}, keys)

	deleted, err = svc.PruneArchive(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, deleted, "zero retention keeps everything")
}

func TestPruneArchive_ListError(t *testing.T) {
	ms := &MockStorage{}
	ms.On("List", mock.Anything, ArchivePrefix).Return(nil, errors.New("boom"))

	svc := newTestService(ms)
	_, err := svc.PruneArchive(context.Background(), time.Hour)
	assert.Error(t, err)
	ms.AssertExpectations(t)
}

func TestEngines(t *testing.T) {
	dir := t.TempDir()
	labels := filepath.Join(dir, "labels.yaml")
	require.NoError(t, os.WriteFile(labels, []byte("patterns:\n  - name: Dragons\n    keywords: [dragon]\n"), 0644))

	t.Run("Custom labels", func(t *testing.T) {
		cfg := &config.Config{TopicLabelsFile: labels, ClassifierTimeout: time.Second}
		engine, classifier, err := Engines(cfg)
		require.NoError(t, err)
		require.NotNil(t, classifier)

		found := engine.ExtractTopics(context.Background(), []models.Post{
			{ID: "1", Text: "Dragons season finale tonight"},
			{ID: "2", Text: "Dragons season finale recap"},
		}, 5)
		require.NotEmpty(t, found)
		assert.Equal(t, "Dragons", found[0].Label)
	})

	t.Run("Missing labels file", func(t *testing.T) {
		cfg := &config.Config{TopicLabelsFile: filepath.Join(dir, "missing.yaml")}
		_, _, err := Engines(cfg)
		assert.Error(t, err)
	})
}
