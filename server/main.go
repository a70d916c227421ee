package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/api"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/config"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/logging"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/products"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/provisioning"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/relay_database"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/renewals"
	stripe_payments "bitbucket.org/ConcurrentDragon/nip-renewal/internal/stripe_payments"
)

func main() {
	configFlag := flag.String("config", "", "path to a YAML config file (overrides CONFIG_PATH)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("NIP Renewal Server - Version %s\n", version)

	configPath := *configFlag
	if configPath == "" {
		var err error
		configPath, err = config.GetConfigPath()
		if err != nil {
			fmt.Printf("Failed to get config path: %v\n", err)
			os.Exit(configPathErr)
		}
	}

	err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(configLoadErr)
	}
	config, err := config.GetConfig()
	if err != nil {
		fmt.Printf("Failed to get config from env: %v\n", err)
		os.Exit(configGetErr)
	}

	err = logging.Setup(config.Logging.Level, config.Logging.Pretty)
	if err != nil {
		fmt.Printf("Failed to set up logging: %v\n", err)
		os.Exit(loggingErr)
	}

	log.Info().Str("config_path", configPath).Msgf("starting server with configuration: %s", config)

	productsService, err := newCatalog(config.Catalog)
	if err != nil {
		log.Error().Err(err).Msg("failed to build product catalog")
		os.Exit(catalogErr)
	}

	options := renewals.Options{
		SuccessURL:         config.Checkout.SuccessURL,
		CancelURL:          config.Checkout.CancelURL,
		Currency:           config.Checkout.Currency,
		PaymentMethodTypes: config.Checkout.PaymentMethodTypes,
	}

	var apiService api.ApiServicer
	if config.Mocked {
		log.Warn().Msg("running mocked: no checkout sessions are created and no nip is renewed")
		apiService, err = api.NewMockedApiService(productsService, options, config.Static.PagePath)
		if err != nil {
			log.Error().Err(err).Msg("failed to create mocked api service")
			os.Exit(renewalsErr)
		}
	} else {
		paymentsService, err := stripe_payments.New(
			config.Stripe.SecretKey,
			config.Stripe.WebhookSecret,
			config.Stripe.APIBaseURL,
		)
		if err != nil {
			log.Error().Err(err).Msg("failed to create Stripe service")
			os.Exit(stripeErr)
		}
		if !paymentsService.Verifies() {
			log.Warn().Msg("STRIPE_WEBHOOK_SECRET is not set: webhook events are accepted without signature verification")
		}

		var provisioningService provisioning.Service
		provisioningService, err = provisioning.New(config.Provisioning.URL, config.Provisioning.Timeout)
		if err != nil {
			log.Error().Err(err).Msg("failed to create provisioning service")
			os.Exit(provisioningErr)
		}
		if config.Provisioning.Breaker.Enabled {
			provisioningService = provisioning.NewBreakerService(
				provisioningService,
				config.Provisioning.Breaker.ConsecutiveFailures,
				config.Provisioning.Breaker.OpenTimeout,
			)
		}

		var relayDatabaseService relay_database.Service = relay_database.NewNoop()
		if config.Postgres.Enabled() {
			service, err := relay_database.New(
				ctx,
				config.Postgres.Username,
				config.Postgres.Password,
				config.Postgres.Host,
				config.Postgres.Database,
				config.Postgres.SSLMode,
			)
			if err != nil {
				log.Error().Err(err).Msg("failed to create relay database service")
				os.Exit(relayDatabaseErr)
			}
			relayDatabaseService = service
		}
		defer relayDatabaseService.Close()

		renewalsService, err := renewals.New(
			productsService,
			paymentsService,
			provisioningService,
			relayDatabaseService,
			options,
		)
		if err != nil {
			log.Error().Err(err).Msg("failed to create renewals service")
			os.Exit(renewalsErr)
		}

		apiService = api.NewApiService(renewalsService, relayDatabaseService, config.Static.PagePath)
	}

	server := &http.Server{
		Addr:    net.JoinHostPort(config.Server.Host, config.Server.Port),
		Handler: api.NewHandler(apiService, config.Server.CORSOrigins),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err = <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("error starting server")
			os.Exit(serverErr)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}

	log.Info().Msg("server stopped")
}

// builds the catalog from config, falling back to the built-in prices and aliases
func newCatalog(catalog config.Catalog) (*products.ServiceImpl, error) {
	prices := products.DefaultPrices()
	if len(catalog.Prices) > 0 {
		prices = catalog.Prices
	}
	aliases := products.DefaultAliases()
	if catalog.Aliases != nil {
		aliases = catalog.Aliases
	}
	return products.New(prices, aliases)
}
