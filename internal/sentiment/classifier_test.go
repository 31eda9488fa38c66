package sentiment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/azure/brand-analytics/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSentimentClassifier is a mock implementation of the remote sentiment classifier
type MockSentimentClassifier struct {
	mock.Mock
}

func (m *MockSentimentClassifier) ClassifySentiment(ctx context.Context, texts []string) ([]string, error) {
	args := m.Called(ctx, texts)
	labels, _ := args.Get(0).([]string)
	return labels, args.Error(1)
}

type blockingClassifier struct{}

func (blockingClassifier) ClassifySentiment(ctx context.Context, texts []string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func posts(texts ...string) []models.Post {
	out := make([]models.Post, len(texts))
	for i, text := range texts {
		out[i] = models.Post{ID: fmt.Sprintf("%d", i+1), Text: text}
	}
	return out
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		posts    []models.Post
		positive float64
		neutral  float64
		negative float64
	}{
		{
			name:     "Every post mentions love",
			posts:    posts("I love this", "LOVE it", "we love the finale"),
			positive: 100,
		},
		{
			name:     "Positive wins over negative",
			posts:    posts("great show but a bad ending"),
			positive: 100,
		},
		{
			name:     "Mixed corpus",
			posts:    posts("awesome", "terrible", "okay", "fine"),
			positive: 25,
			neutral:  50,
			negative: 25,
		},
		{
			name:     "Independent rounding",
			posts:    posts("best", "worst", "meh"),
			positive: 33,
			neutral:  33,
			negative: 33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist := Heuristic(tt.posts)
			assert.Equal(t, tt.positive, dist.PositivePct)
			assert.Equal(t, tt.neutral, dist.NeutralPct)
			assert.Equal(t, tt.negative, dist.NegativePct)
			assert.Equal(t, models.SentimentSourceHeuristic, dist.Source)
		})
	}
}

func TestHeuristic_ExamplesCapped(t *testing.T) {
	dist := Heuristic(posts("love 1", "love 2", "love 3", "love 4", "sad"))
	require.Len(t, dist.PositiveExamples, 3)
	assert.Equal(t, "1", dist.PositiveExamples[0].ID)
	assert.Equal(t, "3", dist.PositiveExamples[2].ID)
	assert.Len(t, dist.NegativeExamples, 1)
	assert.Empty(t, dist.NeutralExamples)
	assert.NotNil(t, dist.NeutralExamples)
}

func TestClassify_Empty(t *testing.T) {
	remote := &MockSentimentClassifier{}
	dist := NewClassifier(remote, time.Second).Classify(context.Background(), nil)

	assert.Equal(t, 0.0, dist.PositivePct)
	assert.Equal(t, 100.0, dist.NeutralPct)
	assert.Equal(t, 0.0, dist.NegativePct)
	assert.Empty(t, dist.PositiveExamples)
	assert.Empty(t, dist.NeutralExamples)
	assert.Empty(t, dist.NegativeExamples)
	remote.AssertNotCalled(t, "ClassifySentiment", mock.Anything, mock.Anything)
}

func TestClassify_Remote(t *testing.T) {
	corpus := posts("short", "This finale was something else", "Pricing went up again today", "Not sure how to feel about it")

	t.Run("Labels are used", func(t *testing.T) {
		remote := &MockSentimentClassifier{}
		remote.On("ClassifySentiment", mock.Anything, []string{
			"This finale was something else",
			"Pricing went up again today",
			"Not sure how to feel about it",
		}).Return([]string{"POSITIVE", "negative", "mixed"}, nil)

		dist := NewClassifier(remote, time.Second).Classify(context.Background(), corpus)
		assert.Equal(t, 33.0, dist.PositivePct)
		assert.Equal(t, 33.0, dist.NegativePct)
		assert.Equal(t, 33.0, dist.NeutralPct)
		assert.Equal(t, models.SentimentSourceRemote, dist.Source)
		require.Len(t, dist.PositiveExamples, 1)
		assert.Equal(t, "2", dist.PositiveExamples[0].ID)
		remote.AssertExpectations(t)
	})

	t.Run("Error falls back", func(t *testing.T) {
		remote := &MockSentimentClassifier{}
		remote.On("ClassifySentiment", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		dist := NewClassifier(remote, time.Second).Classify(context.Background(), posts("I love this brand so much"))
		assert.Equal(t, 100.0, dist.PositivePct)
		assert.Equal(t, models.SentimentSourceHeuristic, dist.Source)
	})

	t.Run("Label count mismatch falls back", func(t *testing.T) {
		remote := &MockSentimentClassifier{}
		remote.On("ClassifySentiment", mock.Anything, mock.Anything).Return([]string{}, nil)

		dist := NewClassifier(remote, time.Second).Classify(context.Background(), corpus)
		assert.Equal(t, models.SentimentSourceHeuristic, dist.Source)
		assert.Equal(t, 100.0, dist.NeutralPct)
	})

	t.Run("No long posts skips remote", func(t *testing.T) {
		remote := &MockSentimentClassifier{}
		dist := NewClassifier(remote, time.Second).Classify(context.Background(), posts("love", "sad"))
		assert.Equal(t, 50.0, dist.PositivePct)
		remote.AssertNotCalled(t, "ClassifySentiment", mock.Anything, mock.Anything)
	})

	t.Run("Timeout falls back", func(t *testing.T) {
		c := NewClassifier(blockingClassifier{}, 20*time.Millisecond)
		dist := c.Classify(context.Background(), posts("An awful experience overall"))
		assert.Equal(t, 100.0, dist.NegativePct)
	})
}

func TestClassify_SampleCappedAt100(t *testing.T) {
	var corpus []models.Post
	for i := 0; i < 150; i++ {
		corpus = append(corpus, models.Post{ID: fmt.Sprintf("%d", i), Text: "long enough text body"})
	}

	remote := &MockSentimentClassifier{}
	remote.On("ClassifySentiment", mock.Anything, mock.MatchedBy(func(texts []string) bool {
		return len(texts) == 100
	})).Return(make([]string, 100), nil)

	dist := NewClassifier(remote, time.Second).Classify(context.Background(), corpus)
	assert.Equal(t, 100.0, dist.NeutralPct)
	remote.AssertExpectations(t)
}

func TestHeuristicLabel(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "I LOVE this", want: "positive"},
		{text: "worst update ever", want: "negative"},
		{text: "best and worst", want: "positive"},
		{text: "new episode tonight", want: "neutral"},
		{text: "", want: "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicLabel(tt.text))
		})
	}
}
