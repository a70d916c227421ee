package renewals

import (
	"context"
)

type Service interface {
	// opens a hosted checkout session for the product, threading nip through the success URL
	StartCheckout(ctx context.Context, checkoutRequest CheckoutRequest) (*CheckoutResult, error)
	// handles one webhook delivery; errors only when the payload is unreadable or unsigned
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (*EventResult, error)
}
