package relay_database

import (
	"context"
)

type Service interface {
	InsertWebhookEvent(ctx context.Context, event WebhookEvent) error
	UpdateNotification(ctx context.Context, eventID string, result NotificationResult) error
	QueryWebhookEvent(ctx context.Context, eventID string) (*WebhookEvent, error)
	GenerateULID(prefix string) string
	// "OK", "DISABLED" or the reason the ledger is unhealthy
	Status(ctx context.Context) string
	Close()
}
