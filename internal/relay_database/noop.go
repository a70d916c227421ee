package relay_database

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// NoopServiceImpl is used when no Postgres host is configured.
type NoopServiceImpl struct{}

func NewNoop() *NoopServiceImpl {
	return &NoopServiceImpl{}
}

func (s *NoopServiceImpl) InsertWebhookEvent(ctx context.Context, event WebhookEvent) error {
	return nil
}

func (s *NoopServiceImpl) UpdateNotification(ctx context.Context, eventID string, result NotificationResult) error {
	return nil
}

func (s *NoopServiceImpl) QueryWebhookEvent(ctx context.Context, eventID string) (*WebhookEvent, error) {
	return nil, fmt.Errorf("%w: ledger disabled", ErrNotFound)
}

func (s *NoopServiceImpl) GenerateULID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, ulid.Make().String())
}

func (s *NoopServiceImpl) Status(ctx context.Context) string {
	return "DISABLED"
}

func (s *NoopServiceImpl) Close() {}
