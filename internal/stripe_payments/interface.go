package stripe_payments

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

type Service interface {
	CreateCheckoutSession(ctx context.Context, createCheckoutSessionRequest CreateCheckoutSessionRequest) (*CheckoutSession, error)
	// parses a raw webhook body, checking its signature when a signing secret is configured
	ParseEvent(payload []byte, signatureHeader string) (*stripe.Event, error)
	// reports whether ParseEvent checks signatures
	Verifies() bool
}
