// Package metrics exposes Prometheus instrumentation for the storefront
// engine. Each Set carries its own registry so independent instances never
// collide on metric registration.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync outcome labels.
const (
	OutcomeFulfilled    = "fulfilled"
	OutcomeRolledBack   = "rolled_back"
	OutcomeAuthRejected = "auth_rejected"
	OutcomeLocalOnly    = "local_only"
)

// Set bundles the engine's collectors.
type Set struct {
	registry *prometheus.Registry

	syncAttempts    *prometheus.CounterVec
	rollbacks       prometheus.Counter
	reconcileFetch  prometheus.Counter
	debounceFlushes *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New builds a Set backed by a fresh registry.
func New() *Set {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Set{
		registry: registry,
		syncAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_sync_attempts_total",
			Help: "Cart sync attempts by operation and outcome.",
		}, []string{"operation", "outcome"}),
		rollbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_rollbacks_total",
			Help: "Optimistic cart mutations reversed after a remote rejection.",
		}),
		reconcileFetch: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_reconcile_fetches_total",
			Help: "Full cart re-fetches issued to resynchronize after a failure.",
		}),
		debounceFlushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_debounce_flushes_total",
			Help: "Debounced cart uploads by trigger (timer or forced).",
		}, []string{"trigger"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// SyncAttempt records one orchestrated cart operation.
func (s *Set) SyncAttempt(operation, outcome string) {
	s.syncAttempts.WithLabelValues(operation, outcome).Inc()
}

// Rollback records one reversed optimistic mutation.
func (s *Set) Rollback() { s.rollbacks.Inc() }

// ReconcileFetch records one reconciling full re-fetch.
func (s *Set) ReconcileFetch() { s.reconcileFetch.Inc() }

// DebounceFlush records one batch upload; trigger is "timer" or "forced".
func (s *Set) DebounceFlush(trigger string) {
	s.debounceFlushes.WithLabelValues(trigger).Inc()
}

// Handler serves the scrape endpoint for this Set's registry.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Middleware instruments handlers with request counts and latency, labelled
// by the chi route pattern rather than the raw path.
func (s *Set) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		s.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
		s.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
