// Package account assembles uploaded post corpora into analytics accounts
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/azure/brand-analytics/internal/analytics"
	"github.com/azure/brand-analytics/internal/config"
	"github.com/azure/brand-analytics/internal/ingest"
	"github.com/azure/brand-analytics/internal/metrics"
	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/sentiment"
	"github.com/azure/brand-analytics/internal/storage"
	"github.com/azure/brand-analytics/internal/topics"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/sirupsen/logrus"
)

const (
	// ArchivePrefix is the storage prefix of archived upload results
	ArchivePrefix = "uploads/"

	archiveTimeLayout = "20060102-150405"
	sniffLength       = 262
)

// ErrBinaryUpload is returned when an upload is a known binary format rather than CSV text
var ErrBinaryUpload = errors.New("upload is not a CSV text file")

// Service builds accounts from uploaded corpora
type Service struct {
	config     *config.Config
	storage    storage.StorageInterface
	topics     *topics.Engine
	classifier *sentiment.Classifier
	loc        *time.Location
	now        func() time.Time
	metrics    *Metrics
	mu         sync.RWMutex
}

// Metrics holds upload run statistics
type Metrics struct {
	TotalUploads     int            `json:"total_uploads"`
	TotalPosts       int            `json:"total_posts"`
	DroppedPosts     int            `json:"dropped_posts"`
	LastRun          time.Time      `json:"last_run"`
	LastRunDuration  string         `json:"last_run_duration"`
	BrandPosts       map[string]int `json:"brand_posts"`
	SentimentSources map[string]int `json:"sentiment_sources"`
	ErrorCount       int            `json:"error_count"`
}

// Upload is the result of processing one uploaded file
type Upload struct {
	Brand      models.Brand   `json:"brand"`
	Account    models.Account `json:"account"`
	Parsed     int            `json:"parsed"`
	Valid      int            `json:"valid"`
	ArchiveKey string         `json:"archive_key,omitempty"`
}

// NewService creates a new account service
func NewService(cfg *config.Config, storage storage.StorageInterface, engine *topics.Engine, classifier *sentiment.Classifier) *Service {
	return &Service{
		config:     cfg,
		storage:    storage,
		topics:     engine,
		classifier: classifier,
		loc:        cfg.Location(),
		now:        time.Now,
		metrics: &Metrics{
			BrandPosts:       make(map[string]int),
			SentimentSources: make(map[string]int),
		},
	}
}

// BuildAccount validates the corpus and computes every analytics section of one account.
// Topics, sentiment and aggregates run concurrently over the same read-only posts.
func (s *Service) BuildAccount(ctx context.Context, brand models.Brand, posts []models.Post) models.Account {
	start := time.Now()
	defer func() { metrics.AccountBuildSeconds.Observe(time.Since(start).Seconds()) }()

	valid := ingest.Validate(posts)

	var (
		wg           sync.WaitGroup
		topicList    []models.Topic
		distribution models.SentimentDistribution
		account      = models.Account{ID: brand.ID, Username: brand.Name}
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		topicList = s.topics.ExtractTopics(ctx, valid, s.config.NumTopics)
	}()
	go func() {
		defer wg.Done()
		distribution = s.classifier.Classify(ctx, valid)
	}()
	go func() {
		defer wg.Done()
		s.aggregate(&account, valid)
	}()
	wg.Wait()

	account.Topics = topicList
	account.Sentiment = distribution
	account.TotalTweets = len(valid)
	account.Posts = valid
	account.GeneratedAt = s.now().UTC()

	logrus.Infof("Built account %s: %d posts, %d topics, sentiment %s", brand.ID, len(valid), len(topicList), distribution.Source)
	return account
}

// aggregate fills the deterministic sections of an account
func (s *Service) aggregate(a *models.Account, posts []models.Post) {
	a.Hashtags = analytics.Hashtags(posts)
	a.Words = analytics.WordFrequencies(posts)
	a.PostingTimes = analytics.PostingTimes(posts, s.loc)
	a.Trends = analytics.Trends(posts)
	a.Engagement = analytics.Engagement(posts)
	a.SocialListening = analytics.SocialListening(posts, a.Words, a.Trends)
	a.TopPosts = analytics.TopPosts(posts)
	a.EngagementRate = a.Engagement.EngagementRate
	a.AvgPostLength = analytics.AvgPostLength(posts)
	a.MostActiveHour = analytics.MostActiveHour(a.PostingTimes)
	a.PostingFrequency = analytics.PostingFrequency(a.Trends)
}

// ProcessUpload parses one CSV upload into an account and archives the result
func (s *Service) ProcessUpload(ctx context.Context, filename string, content []byte) (*Upload, error) {
	start := time.Now()

	if err := sniff(content); err != nil {
		s.recordFailure()
		metrics.ObserveUpload(0, 0, err)
		return nil, err
	}

	records := ingest.ParseCSV(string(content))
	posts := ingest.BuildPosts(records)
	brand := ingest.BrandFromFilename(filename)

	account := s.BuildAccount(ctx, brand, posts)
	upload := &Upload{
		Brand:   brand,
		Account: account,
		Parsed:  len(posts),
		Valid:   account.TotalTweets,
	}

	key, err := s.archive(ctx, account)
	if err != nil {
		logrus.Errorf("Failed to archive upload for %s: %v", brand.ID, err)
	} else {
		upload.ArchiveKey = key
	}

	metrics.ObserveUpload(upload.Parsed, upload.Valid, nil)
	s.updateMetrics(upload, time.Since(start), err != nil)

	logrus.Infof("Processed upload %s in %v", filename, time.Since(start))
	return upload, nil
}

// sniff rejects content that matches a known binary signature
func sniff(content []byte) error {
	if len(content) == 0 {
		return nil
	}
	head := content
	if len(head) > sniffLength {
		head = head[:sniffLength]
	}
	kind, err := filetype.Match(head)
	if err != nil {
		return fmt.Errorf("failed to inspect upload: %w", err)
	}
	if kind != types.Unknown {
		return fmt.Errorf("%w: detected %s", ErrBinaryUpload, kind.MIME.Value)
	}
	return nil
}

func (s *Service) archive(ctx context.Context, a models.Account) (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to marshal account: %w", err)
	}

	key := ArchiveKey(a.ID, s.now())
	if err := s.storage.Store(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// ArchiveKey is the storage key of an account archived at t
func ArchiveKey(brandID string, t time.Time) string {
	return fmt.Sprintf("%s%s-%s.json", ArchivePrefix, brandID, t.UTC().Format(archiveTimeLayout))
}

// ParseArchiveTime extracts the archive time from a key built by ArchiveKey
func ParseArchiveTime(key string) (time.Time, bool) {
	name := strings.TrimSuffix(strings.TrimPrefix(key, ArchivePrefix), ".json")
	if len(name) < len(archiveTimeLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(archiveTimeLayout, name[len(name)-len(archiveTimeLayout):])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PruneArchive deletes archived uploads older than retention. A zero retention keeps everything.
func (s *Service) PruneArchive(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}

	keys, err := s.storage.List(ctx, ArchivePrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list archive: %w", err)
	}

	cutoff := s.now().UTC().Add(-retention)
	deleted := 0
	for _, key := range keys {
		archivedAt, ok := ParseArchiveTime(key)
		if !ok {
			logrus.Debugf("Skipping unrecognized archive key %s", key)
			continue
		}
		if !archivedAt.Before(cutoff) {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return deleted, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		deleted++
	}

	if deleted > 0 {
		logrus.Infof("Pruned %d archived uploads older than %v", deleted, retention)
	}
	return deleted, nil
}

func (s *Service) updateMetrics(upload *Upload, duration time.Duration, archiveFailed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalUploads++
	s.metrics.TotalPosts += upload.Valid
	s.metrics.DroppedPosts += upload.Parsed - upload.Valid
	s.metrics.LastRun = s.now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.BrandPosts[upload.Brand.ID] = upload.Valid
	s.metrics.SentimentSources[upload.Account.Sentiment.Source]++
	if archiveFailed {
		s.metrics.ErrorCount++
	}
}

func (s *Service) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.ErrorCount++
}

// GetMetrics returns current upload statistics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.metrics, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "%v"}`, err)
	}

	return string(data)
}
