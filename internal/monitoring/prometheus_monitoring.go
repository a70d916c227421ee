package prometheus_monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// https://prometheus.io/docs/guides/go-application/

const (
	namespace = "nip_renewal"
)

var (
	checkoutCreatedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_created",
		Help:      "The total number of checkout sessions created, by canonical product",
	}, []string{"product"})
	checkoutRejectedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_rejected",
		Help:      "The total number of checkout requests rejected before reaching the processor",
	}, []string{"reason"})
	checkoutProcessorFailedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_processor_failed",
		Help:      "The total number of times the processor failed to create a checkout session",
	})
	webhookReceivedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_received",
		Help:      "The total number of parsed webhook events, by event type",
	}, []string{"type"})
	webhookInvalidMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_invalid",
		Help:      "The total number of webhook calls rejected for a bad payload or signature",
	})
	webhookUnverifiedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_unverified",
		Help:      "The total number of webhook events accepted without a signature check",
	})
	provisioningNotifiedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provisioning_notified",
		Help:      "The total number of successful provisioning notifications",
	})
	provisioningFailedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provisioning_failed",
		Help:      "The total number of failed provisioning notifications",
	})
	ledgerFailedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_failed",
		Help:      "The total number of failed writes to the webhook ledger",
	})
	httpRequestsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	httpLatencyMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
)

func TickCheckoutCreated(product string) {
	checkoutCreatedMetric.WithLabelValues(product).Inc()
}

func TickCheckoutRejected(reason string) {
	checkoutRejectedMetric.WithLabelValues(reason).Inc()
}

func TickCheckoutProcessorFailed() {
	checkoutProcessorFailedMetric.Inc()
}

func TickWebhookReceived(eventType string) {
	webhookReceivedMetric.WithLabelValues(eventType).Inc()
}

func TickWebhookInvalid() {
	webhookInvalidMetric.Inc()
}

func TickWebhookUnverified() {
	webhookUnverifiedMetric.Inc()
}

func TickProvisioningNotified() {
	provisioningNotifiedMetric.Inc()
}

func TickProvisioningFailed() {
	provisioningFailedMetric.Inc()
}

func TickLedgerFailed() {
	ledgerFailedMetric.Inc()
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return "unmatched"
}

// records request count and latency per named mux route
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		handler := routeName(r)
		httpRequestsMetric.WithLabelValues(handler, strconv.Itoa(status)).Inc()
		httpLatencyMetric.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// writes one structured log line per request
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", routeName(r)).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
