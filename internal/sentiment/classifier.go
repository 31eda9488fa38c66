// Package sentiment classifies a post corpus into positive, neutral and negative shares.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/azure/brand-analytics/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	maxRemoteTexts = 100
	minTextLength  = 10
	maxExamples    = 3
)

var positiveKeywords = []string{
	"amazing", "love", "great", "awesome", "excellent",
	"fantastic", "wonderful", "beautiful", "incredible", "best",
}

var negativeKeywords = []string{
	"hate", "bad", "terrible", "awful", "worst",
	"horrible", "disappointing", "poor", "fail", "sad",
}

// SentimentClassifier labels texts remotely. It returns one label per text.
type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, texts []string) ([]string, error)
}

// Classifier produces sentiment distributions
type Classifier struct {
	remote  SentimentClassifier
	timeout time.Duration
}

// NewClassifier creates a classifier. remote may be nil.
func NewClassifier(remote SentimentClassifier, timeout time.Duration) *Classifier {
	return &Classifier{
		remote:  remote,
		timeout: timeout,
	}
}

type label int

const (
	neutral label = iota
	positive
	negative
)

func (l label) String() string {
	switch l {
	case positive:
		return "positive"
	case negative:
		return "negative"
	default:
		return "neutral"
	}
}

// Classify returns the sentiment distribution of posts. It never fails;
// remote errors fall back to the keyword heuristic.
func (c *Classifier) Classify(ctx context.Context, posts []models.Post) models.SentimentDistribution {
	if len(posts) == 0 {
		return models.DefaultSentiment()
	}

	if c.remote != nil {
		dist, err := c.classifyRemote(ctx, posts)
		if err == nil {
			return dist
		}
		logrus.Warnf("Remote sentiment classification failed, using keyword heuristic: %v", err)
	}

	return Heuristic(posts)
}

func (c *Classifier) classifyRemote(ctx context.Context, posts []models.Post) (models.SentimentDistribution, error) {
	var sample []models.Post
	var texts []string
	for _, post := range posts {
		if len(sample) == maxRemoteTexts {
			break
		}
		text := strings.TrimSpace(post.Text)
		if len(text) > minTextLength {
			sample = append(sample, post)
			texts = append(texts, text)
		}
	}
	if len(sample) == 0 {
		return models.SentimentDistribution{}, fmt.Errorf("no posts long enough to classify")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	labels, err := c.remote.ClassifySentiment(ctx, texts)
	if err != nil {
		return models.SentimentDistribution{}, err
	}
	if len(labels) != len(sample) {
		return models.SentimentDistribution{}, fmt.Errorf("remote classifier returned %d labels for %d texts", len(labels), len(sample))
	}

	classes := make([]label, len(labels))
	for i, l := range labels {
		classes[i] = parseLabel(l)
	}

	dist := distribution(sample, classes)
	dist.Source = models.SentimentSourceRemote
	return dist, nil
}

// parseLabel maps a loose remote label onto a class
func parseLabel(s string) label {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "positive"):
		return positive
	case strings.Contains(s, "negative"):
		return negative
	default:
		return neutral
	}
}

// Heuristic classifies posts with fixed keyword lists. A post holding both
// positive and negative keywords counts as positive.
func Heuristic(posts []models.Post) models.SentimentDistribution {
	if len(posts) == 0 {
		return models.DefaultSentiment()
	}

	classes := make([]label, len(posts))
	for i, post := range posts {
		classes[i] = heuristicClass(post.Text)
	}

	dist := distribution(posts, classes)
	dist.Source = models.SentimentSourceHeuristic
	return dist
}

// HeuristicLabel classifies one text as "positive", "neutral" or "negative"
func HeuristicLabel(text string) string {
	return heuristicClass(text).String()
}

func heuristicClass(text string) label {
	text = strings.ToLower(text)
	switch {
	case containsAny(text, positiveKeywords):
		return positive
	case containsAny(text, negativeKeywords):
		return negative
	default:
		return neutral
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// distribution turns per-post classes into rounded shares and examples.
// Shares are rounded independently and may not add up to exactly 100.
func distribution(posts []models.Post, classes []label) models.SentimentDistribution {
	dist := models.DefaultSentiment()

	pos, neg := 0, 0
	neu := len(posts)
	for i, class := range classes {
		post := posts[i]
		switch class {
		case positive:
			pos++
			neu--
			if len(dist.PositiveExamples) < maxExamples {
				dist.PositiveExamples = append(dist.PositiveExamples, post)
			}
		case negative:
			neg++
			neu--
			if len(dist.NegativeExamples) < maxExamples {
				dist.NegativeExamples = append(dist.NegativeExamples, post)
			}
		default:
			if len(dist.NeutralExamples) < maxExamples {
				dist.NeutralExamples = append(dist.NeutralExamples, post)
			}
		}
	}

	total := float64(len(posts))
	dist.PositivePct = math.Round(float64(pos) / total * 100)
	dist.NeutralPct = math.Round(float64(neu) / total * 100)
	dist.NegativePct = math.Round(float64(neg) / total * 100)
	return dist
}
