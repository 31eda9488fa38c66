package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azure/brand-analytics/internal/config"
	"github.com/azure/brand-analytics/internal/notifications"
	"github.com/azure/brand-analytics/internal/reconcile"
	"github.com/azure/brand-analytics/internal/session"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	jobTimeout      = 5 * time.Minute
	cleanupSchedule = "0 30 * * * *"
)

// ViewLoader loads the current reconciled session
type ViewLoader interface {
	Load(ctx context.Context) (reconcile.View, error)
}

// ArchivePruner removes archived uploads older than a retention period
type ArchivePruner interface {
	PruneArchive(ctx context.Context, retention time.Duration) (int, error)
}

// Service runs the periodic report and archive cleanup jobs
type Service struct {
	config   *config.Config
	sessions ViewLoader
	archive  ArchivePruner
	notifier notifications.NotificationInterface
	cron     *cron.Cron
	now      func() time.Time
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, sessions ViewLoader, archive ArchivePruner, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:   cfg,
		sessions: sessions,
		archive:  archive,
		notifier: notifier,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location())),
		now:      time.Now,
	}
}

// reportExpression maps a report schedule to a cron expression
func reportExpression(schedule string) (string, bool) {
	switch schedule {
	case config.ScheduleDaily:
		// Daily at 9 AM
		return "0 0 9 * * *", true
	case config.ScheduleWeekly:
		// Mondays at 9 AM
		return "0 0 9 * * MON", true
	default:
		return "", false
	}
}

// Start registers the jobs and starts the cron runner
func (s *Service) Start() error {
	if expr, ok := reportExpression(s.config.ReportSchedule); ok {
		_, err := s.cron.AddFunc(expr, func() {
			logrus.Infof("Starting scheduled %s report", s.config.ReportSchedule)
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := s.RunReport(ctx); err != nil {
				logrus.Errorf("Scheduled report failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule report: %w", err)
		}
	}

	if s.config.ArchiveRetention > 0 {
		_, err := s.cron.AddFunc(cleanupSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := s.RunCleanup(ctx); err != nil {
				logrus.Errorf("Archive cleanup failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule archive cleanup: %w", err)
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %d jobs (report schedule: %s, archive retention: %v)",
		len(s.cron.Entries()), s.config.ReportSchedule, s.config.ArchiveRetention)
	return nil
}

// RunReport sends a report of the current session. An empty session is skipped.
func (s *Service) RunReport(ctx context.Context) error {
	view, err := s.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoData) {
		logrus.Info("No uploaded brands, skipping report")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	report := reconcile.NewReport(view, s.config.ReportSchedule, s.now().UTC())
	return s.notifier.SendReport(ctx, report)
}

// RunCleanup prunes archived uploads past the retention period
func (s *Service) RunCleanup(ctx context.Context) error {
	_, err := s.archive.PruneArchive(ctx, s.config.ArchiveRetention)
	return err
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
