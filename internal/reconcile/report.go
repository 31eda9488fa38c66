package reconcile

import (
	"time"

	"github.com/azure/brand-analytics/internal/models"
)

const reportListLimit = 5

// NewReport summarizes a view for delivery. Comparison lines are included
// only in comparison mode.
func NewReport(v View, period string, now time.Time) *models.Report {
	report := &models.Report{
		GeneratedAt: now,
		Period:      period,
		Mode:        string(v.Mode),
		Brands:      make([]models.BrandSummary, 0, len(v.Accounts)),
	}

	for _, a := range v.Accounts {
		summary := models.BrandSummary{
			ID:             a.ID,
			Name:           DisplayName(a),
			TotalTweets:    a.TotalTweets,
			EngagementRate: a.EngagementRate,
			PositivePct:    a.Sentiment.PositivePct,
			NegativePct:    a.Sentiment.NegativePct,
			TopHashtags:    []string{},
			TopTopics:      []string{},
		}
		for i, h := range a.Hashtags {
			if i == reportListLimit {
				break
			}
			summary.TopHashtags = append(summary.TopHashtags, h.Tag)
		}
		for i, t := range a.Topics {
			if i == reportListLimit {
				break
			}
			summary.TopTopics = append(summary.TopTopics, t.Label)
		}
		report.Brands = append(report.Brands, summary)
	}

	if c, err := v.Comparison(); err == nil {
		report.Comparison = c.Metrics
	}
	return report
}
