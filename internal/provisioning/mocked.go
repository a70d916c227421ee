package provisioning

import (
	"context"

	"github.com/rs/zerolog/log"
)

// MockedServiceImpl only logs the notification it would have sent.
type MockedServiceImpl struct{}

func NewMocked() *MockedServiceImpl {
	return &MockedServiceImpl{}
}

func (s *MockedServiceImpl) NotifyRenewal(ctx context.Context, nip string) (*Notification, error) {
	notification := &Notification{
		ID:         GenerateNotificationID(),
		Nip:        nip,
		StatusCode: 200,
	}
	log.Info().Str("nip", nip).Str("notification_id", notification.ID).Msg("mocked provisioning notification")
	return notification, nil
}
