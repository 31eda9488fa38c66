// Package metrics holds the Prometheus collectors of the analytics service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_analytics_uploads_total",
		Help: "Processed CSV uploads by outcome",
	}, []string{"status"})

	PostsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_analytics_posts_total",
		Help: "Posts seen during ingestion by stage",
	}, []string{"stage"})

	AccountBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "brand_analytics_account_build_seconds",
		Help:    "Time spent assembling one account",
		Buckets: prometheus.DefBuckets,
	})

	ClassifierRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brand_analytics_classifier_request_duration_seconds",
		Help:    "Duration of remote classifier requests",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30},
	}, []string{"operation", "status"})

	ClassifierRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_analytics_classifier_requests_total",
		Help: "Remote classifier requests",
	}, []string{"operation", "status"})

	ReportsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_analytics_reports_sent_total",
		Help: "Delivered comparison reports by channel and outcome",
	}, []string{"channel", "status"})

	SessionAccounts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "brand_analytics_session_accounts",
		Help: "Accounts currently held in the session",
	})
)

// MustRegister registers every collector
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		UploadsTotal,
		PostsIngested,
		AccountBuildSeconds,
		ClassifierRequestDuration,
		ClassifierRequestTotal,
		ReportsSent,
		SessionAccounts,
	)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveClassifierRequest records the duration and outcome of a remote classifier call
func ObserveClassifierRequest(operation string, start time.Time, err error) {
	if operation == "" {
		operation = "unknown"
	}
	s := status(err)
	ClassifierRequestDuration.WithLabelValues(operation, s).Observe(time.Since(start).Seconds())
	ClassifierRequestTotal.WithLabelValues(operation, s).Inc()
}

// ObserveUpload records an upload outcome and its post counts
func ObserveUpload(parsed, valid int, err error) {
	UploadsTotal.WithLabelValues(status(err)).Inc()
	PostsIngested.WithLabelValues("parsed").Add(float64(parsed))
	PostsIngested.WithLabelValues("valid").Add(float64(valid))
}

// ObserveReport records a report delivery on one channel
func ObserveReport(channel string, err error) {
	ReportsSent.WithLabelValues(channel, status(err)).Inc()
}
