package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/products"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/relay_database"
	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/renewals"
	stripe_payments "bitbucket.org/ConcurrentDragon/nip-renewal/internal/stripe_payments"
)

const (
	webhookBodyLimit = 64 * 1024

	msgMissingParameters = "Faltan parámetros (nip o cuenta)"
	msgInvalidProduct    = "Cuenta no válida"
)

type ApiServicer interface {
	Checkout(w http.ResponseWriter, r *http.Request)
	Webhook(w http.ResponseWriter, r *http.Request)
	PaymentPage(w http.ResponseWriter, r *http.Request)
	GetStatus(w http.ResponseWriter, r *http.Request)
}

type ApiService struct {
	renewalsService      renewals.Service
	relayDatabaseService relay_database.Service
	paymentPagePath      string
}

// NewApiService creates an api service
func NewApiService(
	renewalsService renewals.Service,
	relayDatabaseService relay_database.Service,
	paymentPagePath string,
) ApiServicer {
	if relayDatabaseService == nil {
		relayDatabaseService = relay_database.NewNoop()
	}
	return &ApiService{
		renewalsService:      renewalsService,
		relayDatabaseService: relayDatabaseService,
		paymentPagePath:      paymentPagePath,
	}
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type Status struct {
	Status string `json:"status"`
	Ledger string `json:"ledger"`
}

// GET /checkout?nip=<code>&cuenta=<product>
func (s *ApiService) Checkout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := s.renewalsService.StartCheckout(r.Context(), renewals.CheckoutRequest{
		Nip:     q.Get("nip"),
		Product: q.Get("cuenta"),
	})
	if err != nil {
		switch {
		case errors.Is(err, renewals.ErrMissingParameters):
			respondError(w, http.StatusBadRequest, "missing_parameters", msgMissingParameters)
		case errors.Is(err, products.ErrUnknownProduct):
			respondError(w, http.StatusBadRequest, "invalid_product", msgInvalidProduct)
		default:
			respondError(w, http.StatusInternalServerError, "processor_error", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponse{
		CheckoutURL: result.URL,
	})
}

// receives Stripe webhook deliveries
func (s *ApiService) Webhook(w http.ResponseWriter, r *http.Request) {
	// return 200 once the event is parsed, whatever happens downstream

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Webhook error: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.renewalsService.HandleEvent(r.Context(), payload, r.Header.Get(stripe_payments.SignatureHeader))
	if err != nil {
		log.Warn().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("rejected webhook")
		http.Error(w, fmt.Sprintf("Webhook error: %v", err), http.StatusBadRequest)
		return
	}

	log.Debug().
		Str("event_id", result.EventID).
		Bool("notified", result.Notified).
		Msg("webhook handled")
	respondJSON(w, http.StatusOK, WebhookResponse{Received: true})
}

// GET /pago
func (s *ApiService) PaymentPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.paymentPagePath)
}

// Health check for microservice
func (s *ApiService) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Status{
		Status: "UP",
		Ledger: s.relayDatabaseService.Status(r.Context()),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
