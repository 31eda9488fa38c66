// Package classifier talks to the remote sentiment and topic classification service.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/azure/brand-analytics/internal/metrics"
	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/sentiment"
	"github.com/azure/brand-analytics/internal/topics"
	"github.com/go-resty/resty/v2"
)

// Client implements the remote classifier contracts over HTTP
type Client struct {
	client  *resty.Client
	baseURL string
}

var (
	_ sentiment.SentimentClassifier = (*Client)(nil)
	_ topics.TopicClassifier        = (*Client)(nil)
)

// SentimentRequest is the body of POST /api/sentiment
type SentimentRequest struct {
	Texts []string `json:"texts"`
}

// SentimentLabel is one classified text
type SentimentLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score,omitempty"`
}

// SentimentResponse is the reply of POST /api/sentiment
type SentimentResponse struct {
	Sentiments []SentimentLabel `json:"sentiments"`
}

// TopicsRequest is the body of POST /api/topics
type TopicsRequest struct {
	Texts     []string `json:"texts"`
	NumTopics int      `json:"numTopics"`
}

// TopicsResponse is the reply of POST /api/topics
type TopicsResponse struct {
	Topics []models.Topic `json:"topics"`
}

// NewClient creates a classifier client for baseURL. Callers bound each call
// with their own context deadline; timeout is the upper limit per request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "Brand-Analytics/1.0").
			SetHeader("Content-Type", "application/json"),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ClassifySentiment returns one label per text
func (c *Client) ClassifySentiment(ctx context.Context, texts []string) (labels []string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveClassifierRequest("sentiment", start, err) }()

	var result SentimentResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(SentimentRequest{Texts: texts}).
		SetResult(&result).
		Post(c.baseURL + "/api/sentiment")
	if err != nil {
		return nil, fmt.Errorf("sentiment request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("sentiment API returned status %d", resp.StatusCode())
	}

	labels = make([]string, len(result.Sentiments))
	for i, s := range result.Sentiments {
		labels[i] = s.Label
	}
	return labels, nil
}

// ExtractTopics asks the remote service for numTopics topics
func (c *Client) ExtractTopics(ctx context.Context, texts []string, numTopics int) (result []models.Topic, err error) {
	start := time.Now()
	defer func() { metrics.ObserveClassifierRequest("topics", start, err) }()

	var body TopicsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(TopicsRequest{Texts: texts, NumTopics: numTopics}).
		SetResult(&body).
		Post(c.baseURL + "/api/topics")
	if err != nil {
		return nil, fmt.Errorf("topics request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("topics API returned status %d", resp.StatusCode())
	}

	return body.Topics, nil
}

// Ping checks that the service answers on its health endpoint
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode())
	}
	return nil
}
