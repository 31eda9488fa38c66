package notifications

import (
	"context"

	"github.com/azure/brand-analytics/internal/models"
)

// NotificationInterface defines the contract for report delivery
type NotificationInterface interface {
	SendReport(ctx context.Context, report *models.Report) error
	Channels() []string
}
