// Package topics discovers labeled keyword clusters in a post corpus with TF-IDF,
// optionally delegating to a remote classifier first.
package topics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/azure/brand-analytics/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultNumTopics = 5
	maxRemoteTexts   = 100
	minTextLength    = 10
	keywordsPerTopic = 3
	minCandidates    = 20
)

// TopicClassifier extracts topics remotely
type TopicClassifier interface {
	ExtractTopics(ctx context.Context, texts []string, numTopics int) ([]models.Topic, error)
}

// Engine runs topic extraction
type Engine struct {
	remote   TopicClassifier
	timeout  time.Duration
	patterns []LabelPattern
}

// NewEngine creates an engine. remote may be nil, patterns default to DefaultLabelPatterns.
func NewEngine(remote TopicClassifier, timeout time.Duration, patterns []LabelPattern) *Engine {
	if len(patterns) == 0 {
		patterns = DefaultLabelPatterns
	}
	return &Engine{
		remote:   remote,
		timeout:  timeout,
		patterns: patterns,
	}
}

// Local returns a copy of the engine without the remote classifier
func (e *Engine) Local() *Engine {
	return &Engine{timeout: e.timeout, patterns: e.patterns}
}

// ExtractTopics returns up to numTopics topics ordered by descending weight.
// It never fails; remote errors fall back to the local algorithm.
func (e *Engine) ExtractTopics(ctx context.Context, posts []models.Post, numTopics int) []models.Topic {
	if numTopics <= 0 {
		numTopics = DefaultNumTopics
	}

	var eligible []models.Post
	for _, post := range posts {
		if len(strings.TrimSpace(post.Text)) > minTextLength {
			eligible = append(eligible, post)
		}
	}
	if len(eligible) == 0 {
		return []models.Topic{}
	}

	if e.remote != nil {
		if topics, err := e.extractRemote(ctx, eligible, numTopics); err != nil {
			logrus.Warnf("Remote topic extraction failed, using local TF-IDF: %v", err)
		} else {
			return topics
		}
	}

	return e.extractLocal(eligible, numTopics)
}

func (e *Engine) extractRemote(ctx context.Context, posts []models.Post, numTopics int) ([]models.Topic, error) {
	texts := make([]string, 0, maxRemoteTexts)
	for _, post := range posts {
		if len(texts) == maxRemoteTexts {
			break
		}
		texts = append(texts, strings.TrimSpace(post.Text))
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	topics, err := e.remote.ExtractTopics(ctx, texts, numTopics)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("remote classifier returned no topics")
	}

	for i := range topics {
		if len(topics[i].Keywords) > keywordsPerTopic {
			topics[i].Keywords = topics[i].Keywords[:keywordsPerTopic]
		}
		if topics[i].ID == "" {
			topics[i].ID = fmt.Sprintf("topic_%d", i+1)
		}
		if topics[i].Label == "" {
			topics[i].Label = Label(topics[i].Keywords, e.patterns)
		}
	}

	topics = NormalizeWeights(topics)
	if len(topics) > numTopics {
		topics = topics[:numTopics]
	}
	logrus.Debugf("Remote classifier returned %d topics", len(topics))
	return topics, nil
}

func (e *Engine) extractLocal(posts []models.Post, numTopics int) []models.Topic {
	var docs [][]string
	for _, post := range posts {
		if tokens := Tokenize(post.Text); len(tokens) > 0 {
			docs = append(docs, tokens)
		}
	}
	if len(docs) == 0 {
		return []models.Topic{}
	}

	ranked := rankTerms(scoreTerms(docs), len(docs))

	candidates := numTopics * 4
	if candidates < minCandidates {
		candidates = minCandidates
	}
	if len(ranked) > candidates {
		ranked = ranked[:candidates]
	}

	// Bodies with hashtags stripped, matched case-insensitively
	bodies := make([]string, len(posts))
	for i, post := range posts {
		bodies[i] = strings.ToLower(hashtagPattern.ReplaceAllString(post.Text, ""))
	}

	topics := []models.Topic{}
	for start := 0; start < len(ranked); start += keywordsPerTopic {
		end := start + keywordsPerTopic
		if end > len(ranked) {
			end = len(ranked)
		}

		keywords := make([]string, 0, keywordsPerTopic)
		for _, term := range ranked[start:end] {
			keywords = append(keywords, term.term)
		}

		matches := 0
		for _, body := range bodies {
			for _, kw := range keywords {
				if strings.Contains(body, kw) {
					matches++
					break
				}
			}
		}
		if matches == 0 {
			continue
		}

		topics = append(topics, models.Topic{
			ID:         fmt.Sprintf("topic_%d", len(topics)+1),
			Label:      Label(keywords, e.patterns),
			Keywords:   keywords,
			Weight:     ranked[start].score,
			TweetCount: matches,
		})
	}

	topics = NormalizeWeights(topics)
	if len(topics) > numTopics {
		topics = topics[:numTopics]
	}
	logrus.Debugf("Extracted %d topics from %d documents", len(topics), len(docs))
	return topics
}

// NormalizeWeights scales weights so the heaviest topic has weight 1.0 and
// orders topics by descending weight. Negative or non-finite weights count as 0;
// when every weight is 0 all topics get 1.0.
func NormalizeWeights(topics []models.Topic) []models.Topic {
	if len(topics) == 0 {
		return []models.Topic{}
	}

	out := make([]models.Topic, len(topics))
	copy(out, topics)

	max := 0.0
	for i := range out {
		w := out[i].Weight
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			w = 0
		}
		out[i].Weight = w
		if w > max {
			max = w
		}
	}

	for i := range out {
		if max == 0 {
			out[i].Weight = 1.0
		} else {
			out[i].Weight /= max
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}
