package renewals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v82"

	prometheus_monitoring "bitbucket.org/ConcurrentDragon/nip-renewal/internal/monitoring"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/products"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/provisioning"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/relay_database"
	stripe_payments "bitbucket.org/ConcurrentDragon/nip-renewal/internal/stripe_payments"
)

const EventTypeCheckoutSessionCompleted stripe.EventType = "checkout.session.completed"

const (
	// query parameter carrying the activation code on the success URL
	NipParam      = "nip"
	eventIDPrefix = "EVT"
)

var ErrMissingParameters = errors.New("missing nip or product")

type Options struct {
	SuccessURL         string
	CancelURL          string
	Currency           string
	PaymentMethodTypes []string
}

type CheckoutRequest struct {
	Nip     string
	Product string
}

type CheckoutResult struct {
	SessionID  string
	URL        string
	Product    string
	UnitAmount int64
}

type EventResult struct {
	EventID      string
	EventType    string
	Nip          string
	Notified     bool
	Notification *provisioning.Notification
	NotifyErr    error
}

type ServiceImpl struct {
	productsService      products.Service
	paymentsService      stripe_payments.Service
	provisioningService  provisioning.Service
	relayDatabaseService relay_database.Service
	options              Options
}

// creates a new ServiceImpl
func New(
	productsService products.Service,
	paymentsService stripe_payments.Service,
	provisioningService provisioning.Service,
	relayDatabaseService relay_database.Service,
	options Options,
) (*ServiceImpl, error) {
	if _, err := SuccessURLWithNip(options.SuccessURL, "probe"); err != nil {
		return nil, err
	}
	if relayDatabaseService == nil {
		relayDatabaseService = relay_database.NewNoop()
	}

	return &ServiceImpl{
		productsService:      productsService,
		paymentsService:      paymentsService,
		provisioningService:  provisioningService,
		relayDatabaseService: relayDatabaseService,
		options:              options,
	}, nil
}

// adds nip to the query of the configured success URL, keeping any existing parameters
func SuccessURLWithNip(successURL string, nip string) (string, error) {
	u, err := url.Parse(successURL)
	if err != nil {
		return "", fmt.Errorf("invalid success URL %q: %w", successURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("success URL %q must be absolute", successURL)
	}

	q := u.Query()
	q.Set(NipParam, nip)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *ServiceImpl) StartCheckout(ctx context.Context, checkoutRequest CheckoutRequest) (*CheckoutResult, error) {
	nip := strings.TrimSpace(checkoutRequest.Nip)
	product := strings.TrimSpace(checkoutRequest.Product)
	if nip == "" || product == "" {
		prometheus_monitoring.TickCheckoutRejected("missing_parameters")
		return nil, ErrMissingParameters
	}

	canonical, err := s.productsService.Resolve(product)
	if err != nil {
		prometheus_monitoring.TickCheckoutRejected("invalid_product")
		return nil, err
	}

	unitAmount, err := s.productsService.UnitAmount(canonical)
	if err != nil {
		return nil, err
	}

	successURL, err := SuccessURLWithNip(s.options.SuccessURL, nip)
	if err != nil {
		return nil, err
	}

	session, err := s.paymentsService.CreateCheckoutSession(ctx, stripe_payments.CreateCheckoutSessionRequest{
		Nip:                nip,
		ProductName:        canonical,
		UnitAmount:         unitAmount,
		Currency:           s.options.Currency,
		PaymentMethodTypes: s.options.PaymentMethodTypes,
		SuccessURL:         successURL,
		CancelURL:          s.options.CancelURL,
	})
	if err != nil {
		prometheus_monitoring.TickCheckoutProcessorFailed()
		log.Error().Err(err).Str("nip", nip).Str("product", canonical).Msg("failed to create checkout session")
		return nil, err
	}

	prometheus_monitoring.TickCheckoutCreated(canonical)
	log.Info().
		Str("nip", nip).
		Str("product", canonical).
		Int64("unit_amount", unitAmount).
		Str("session_id", session.ID).
		Msg("checkout session created")

	return &CheckoutResult{
		SessionID:  session.ID,
		URL:        session.URL,
		Product:    canonical,
		UnitAmount: unitAmount,
	}, nil
}

func (s *ServiceImpl) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (*EventResult, error) {
	event, err := s.paymentsService.ParseEvent(payload, signatureHeader)
	if err != nil {
		prometheus_monitoring.TickWebhookInvalid()
		return nil, err
	}

	result := &EventResult{
		EventID:   event.ID,
		EventType: string(event.Type),
	}
	if result.EventID == "" {
		result.EventID = s.relayDatabaseService.GenerateULID(eventIDPrefix)
	}
	logger := log.With().Str("event_id", result.EventID).Str("type", result.EventType).Logger()

	if !s.paymentsService.Verifies() {
		// anyone who can reach the webhook can trigger a renewal until a signing secret is configured
		prometheus_monitoring.TickWebhookUnverified()
		logger.Warn().Msg("webhook event accepted without signature verification")
	}

	if event.Type != EventTypeCheckoutSessionCompleted {
		prometheus_monitoring.TickWebhookReceived("other")
		logger.Debug().Msg("ignoring webhook event")
		return result, nil
	}
	prometheus_monitoring.TickWebhookReceived(string(EventTypeCheckoutSessionCompleted))

	nip, err := nipFromEvent(event)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read nip from checkout session")
		return result, nil
	}
	result.Nip = nip

	s.recordEvent(ctx, result)

	if nip == "" {
		logger.Info().Msg("checkout session completed without nip")
		return result, nil
	}

	// the renewal outlives a caller that hangs up
	notification, err := s.provisioningService.NotifyRenewal(context.WithoutCancel(ctx), nip)
	result.Notification = notification
	if err != nil {
		result.NotifyErr = err
		prometheus_monitoring.TickProvisioningFailed()
		logger.Error().Err(err).Str("nip", nip).Msg("failed to renew nip")
	} else {
		result.Notified = true
		prometheus_monitoring.TickProvisioningNotified()
		logger.Info().Str("nip", nip).Str("notification_id", notification.ID).Msg("nip renewed")
	}

	s.recordNotification(ctx, result)
	return result, nil
}

func nipFromEvent(event *stripe.Event) (string, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return "", nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return "", fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if session.SuccessURL == "" {
		return "", nil
	}

	successURL, err := url.Parse(session.SuccessURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse success URL: %w", err)
	}
	return strings.TrimSpace(successURL.Query().Get(NipParam)), nil
}

func (s *ServiceImpl) recordEvent(ctx context.Context, result *EventResult) {
	err := s.relayDatabaseService.InsertWebhookEvent(ctx, relay_database.WebhookEvent{
		EventID:   result.EventID,
		EventType: result.EventType,
		Nip:       result.Nip,
	})
	if err != nil {
		prometheus_monitoring.TickLedgerFailed()
		log.Error().Err(err).Str("event_id", result.EventID).Msg("failed to record webhook event")
	}
}

func (s *ServiceImpl) recordNotification(ctx context.Context, result *EventResult) {
	notificationResult := relay_database.NotificationResult{
		Notified: result.Notified,
	}
	if result.Notification != nil {
		notificationResult.NotificationID = result.Notification.ID
	}
	if result.NotifyErr != nil {
		notificationResult.NotifyError = result.NotifyErr.Error()
	}

	err := s.relayDatabaseService.UpdateNotification(context.WithoutCancel(ctx), result.EventID, notificationResult)
	if err != nil {
		prometheus_monitoring.TickLedgerFailed()
		log.Error().Err(err).Str("event_id", result.EventID).Msg("failed to record notification")
	}
}
