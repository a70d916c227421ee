package api

import (
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/products"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/provisioning"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/relay_database"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/renewals"
	stripe_payments "bitbucket.org/ConcurrentDragon/nip-renewal/internal/stripe_payments"
)

// NewMockedApiService serves the real handlers on top of fake Stripe and provisioning services
func NewMockedApiService(
	productsService products.Service,
	options renewals.Options,
	paymentPagePath string,
) (ApiServicer, error) {
	ledger := relay_database.NewNoop()

	renewalsService, err := renewals.New(
		productsService,
		stripe_payments.NewMocked(),
		provisioning.NewMocked(),
		ledger,
		options,
	)
	if err != nil {
		return nil, err
	}

	return NewApiService(renewalsService, ledger, paymentPagePath), nil
}
