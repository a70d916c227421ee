package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	prometheus_monitoring "bitbucket.org/ConcurrentDragon/nip-renewal/internal/monitoring"
)

func NewRouter(apiService ApiServicer) *mux.Router {
	router := mux.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		prometheus_monitoring.AccessLog,
		prometheus_monitoring.RequestMetrics,
		middleware.Recoverer,
	)

	router.HandleFunc("/checkout", apiService.Checkout).
		Methods(http.MethodGet).
		Name("Checkout")
	router.HandleFunc("/webhook", apiService.Webhook).
		Methods(http.MethodPost).
		Name("Webhook")
	router.HandleFunc("/pago", apiService.PaymentPage).
		Methods(http.MethodGet).
		Name("PaymentPage")
	router.HandleFunc("/status", apiService.GetStatus).
		Methods(http.MethodGet).
		Name("GetStatus")
	router.Handle("/metrics", promhttp.Handler()).
		Methods(http.MethodGet).
		Name("Metrics")

	return router
}

// wraps the router with CORS and tracing; preflight requests never reach mux
func NewHandler(apiService ApiServicer, corsOrigins []string) http.Handler {
	router := NewRouter(apiService)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Stripe-Signature"},
		MaxAge:         300,
	})

	return otelhttp.NewHandler(corsHandler(router), "nip-renewal")
}
