package stripe_payments

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/stripe/stripe-go/v82"
)

const mockedCheckoutBaseURL = "https://checkout.stripe.com/c/pay/"

// MockedServiceImpl hands out fake sessions without calling Stripe.
type MockedServiceImpl struct{}

func NewMocked() *MockedServiceImpl {
	return &MockedServiceImpl{}
}

func (s *MockedServiceImpl) CreateCheckoutSession(ctx context.Context, createCheckoutSessionRequest CreateCheckoutSessionRequest) (*CheckoutSession, error) {
	id := fmt.Sprintf("cs_mocked_%s", ulid.Make().String())
	return &CheckoutSession{
		ID:  id,
		URL: mockedCheckoutBaseURL + id,
	}, nil
}

func (s *MockedServiceImpl) ParseEvent(payload []byte, signatureHeader string) (*stripe.Event, error) {
	return decodeEvent(payload)
}

func (s *MockedServiceImpl) Verifies() bool {
	return false
}
