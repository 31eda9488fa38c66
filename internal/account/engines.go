package account

import (
	"fmt"

	"github.com/azure/brand-analytics/internal/classifier"
	"github.com/azure/brand-analytics/internal/config"
	"github.com/azure/brand-analytics/internal/sentiment"
	"github.com/azure/brand-analytics/internal/topics"
	"github.com/sirupsen/logrus"
)

// Engines builds the topic engine and sentiment classifier for cfg. The remote
// classifier is attached only to the engines it is enabled for.
func Engines(cfg *config.Config) (*topics.Engine, *sentiment.Classifier, error) {
	patterns := topics.DefaultLabelPatterns
	if cfg.TopicLabelsFile != "" {
		loaded, err := topics.LoadLabelPatterns(cfg.TopicLabelsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load topic labels: %w", err)
		}
		logrus.Infof("Loaded %d topic label patterns from %s", len(loaded), cfg.TopicLabelsFile)
		patterns = loaded
	}

	var (
		remoteTopics    topics.TopicClassifier
		remoteSentiment sentiment.SentimentClassifier
	)
	if cfg.ClassifierURL != "" {
		client := classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout)
		if cfg.EnableRemoteTopics {
			remoteTopics = client
		}
		if cfg.EnableRemoteSentiment {
			remoteSentiment = client
		}
	}

	return topics.NewEngine(remoteTopics, cfg.ClassifierTimeout, patterns),
		sentiment.NewClassifier(remoteSentiment, cfg.ClassifierTimeout),
		nil
}
