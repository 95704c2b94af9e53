// Package telemetry exposes Prometheus metrics for the config server.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configship_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "configship_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Evaluations counts template evaluations served, labelled by outcome
	// ("ok", "no_template" or "invalid_request").
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configship_evaluations_total",
			Help: "Total template evaluations served",
		},
		[]string{"outcome"},
	)

	// SSEClients tracks currently connected template stream clients.
	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "configship_sse_clients",
		Help: "Number of currently connected SSE clients",
	})

	// ActiveVersion reports the active template version number.
	ActiveVersion = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "configship_active_template_version",
		Help: "Version number of the active template",
	})

	// TemplateParameters reports the parameter count of the active template.
	TemplateParameters = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "configship_template_parameters",
		Help: "Number of parameters in the active template",
	})

	// WebhookDeliveries counts webhook delivery attempts by result
	// ("delivered", "failed", "filtered").
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configship_webhook_deliveries_total",
			Help: "Total webhook delivery attempts",
		},
		[]string{"result"},
	)
)

// Init registers all collectors with the default registry. Call once at
// startup.
func Init() {
	prometheus.MustRegister(httpReqs, httpDur, Evaluations, SSEClients, ActiveVersion, TemplateParameters, WebhookDeliveries)
}

// Middleware records request counts and latencies per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE keeps working behind the
// middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
