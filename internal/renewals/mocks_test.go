package renewals_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stripe/stripe-go/v82"

	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/provisioning"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/relay_database"
	stripe_payments "bitbucket.org/ConcurrentDragon/nip-renewal/internal/stripe_payments"
)

type paymentsMock struct {
	mu       sync.Mutex
	requests []stripe_payments.CreateCheckoutSessionRequest
	err      error
	parseErr error
	verifies bool
}

func (m *paymentsMock) CreateCheckoutSession(ctx context.Context, r stripe_payments.CreateCheckoutSessionRequest) (*stripe_payments.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r)
	if m.err != nil {
		return nil, m.err
	}
	return &stripe_payments.CheckoutSession{
		ID:  "cs_test_1",
		URL: "https://checkout.stripe.com/c/pay/cs_test_1",
	}, nil
}

func (m *paymentsMock) ParseEvent(payload []byte, signatureHeader string) (*stripe.Event, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (m *paymentsMock) Verifies() bool {
	return m.verifies
}

func (m *paymentsMock) calls() []stripe_payments.CreateCheckoutSessionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stripe_payments.CreateCheckoutSessionRequest(nil), m.requests...)
}

type provisioningMock struct {
	mu   sync.Mutex
	nips []string
	err  error
}

func (m *provisioningMock) NotifyRenewal(ctx context.Context, nip string) (*provisioning.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nips = append(m.nips, nip)
	return &provisioning.Notification{ID: "NOTIF-1", Nip: nip}, m.err
}

func (m *provisioningMock) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.nips...)
}

type ledgerMock struct {
	relay_database.NoopServiceImpl
	mu      sync.Mutex
	events  []relay_database.WebhookEvent
	results map[string]relay_database.NotificationResult
	err     error
}

func (m *ledgerMock) InsertWebhookEvent(ctx context.Context, event relay_database.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *ledgerMock) UpdateNotification(ctx context.Context, eventID string, result relay_database.NotificationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = map[string]relay_database.NotificationResult{}
	}
	m.results[eventID] = result
	return m.err
}
