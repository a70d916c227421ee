package stripe_payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	requestTimeout = 30 * time.Second
	// header Stripe signs webhook deliveries with
	SignatureHeader = "Stripe-Signature"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

type CreateCheckoutSessionRequest struct {
	Nip                string
	ProductName        string
	UnitAmount         int64
	Currency           string
	PaymentMethodTypes []string
	SuccessURL         string
	CancelURL          string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// ProcessorError carries the human readable message Stripe returned.
type ProcessorError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ProcessorError) Error() string {
	return e.Message
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

type ServiceImpl struct {
	sessions      session.Client
	webhookSecret string
}

// creates a new ServiceImpl; apiBaseURL may be empty to use api.stripe.com
func New(secretKey string, webhookSecret string, apiBaseURL string) (*ServiceImpl, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		// a failed session creation is reported to the customer, never retried
		MaxNetworkRetries: stripe.Int64(0),
	}
	if apiBaseURL != "" {
		backendConfig.URL = stripe.String(apiBaseURL)
	}

	return &ServiceImpl{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
			Key: secretKey,
		},
		webhookSecret: webhookSecret,
	}, nil
}

func (s *ServiceImpl) CreateCheckoutSession(ctx context.Context, createCheckoutSessionRequest CreateCheckoutSessionRequest) (*CheckoutSession, error) {
	params := checkoutSessionParams(createCheckoutSessionRequest)
	params.Context = ctx

	cs, err := s.sessions.New(params)
	if err != nil {
		return nil, processorError(err)
	}

	return &CheckoutSession{
		ID:  cs.ID,
		URL: cs.URL,
	}, nil
}

func checkoutSessionParams(r CreateCheckoutSessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice(r.PaymentMethodTypes),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(r.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(r.ProductName),
					},
					UnitAmount: stripe.Int64(r.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(r.SuccessURL),
		CancelURL:         stripe.String(r.CancelURL),
		ClientReferenceID: stripe.String(r.Nip),
	}
	params.AddMetadata("nip", r.Nip)
	params.AddMetadata("product", r.ProductName)
	return params
}

func processorError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return &ProcessorError{
			Message:    stripeErr.Msg,
			StatusCode: stripeErr.HTTPStatusCode,
			Err:        err,
		}
	}
	return &ProcessorError{
		Message: err.Error(),
		Err:     err,
	}
}

func (s *ServiceImpl) Verifies() bool {
	return s.webhookSecret != ""
}

func (s *ServiceImpl) ParseEvent(payload []byte, signatureHeader string) (*stripe.Event, error) {
	if s.webhookSecret == "" {
		return decodeEvent(payload)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned),
			errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature),
			errors.Is(err, webhook.ErrTooOld):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	return &event, nil
}

func decodeEvent(payload []byte) (*stripe.Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &event, nil
}
