package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuition_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tuition_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	paymentsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuition_payments_submitted_total",
		Help: "Payments admitted into the ledger as pending",
	}, []string{"tranche"})

	paymentDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuition_payment_decisions_total",
		Help: "Admin decisions applied to pending payments",
	}, []string{"decision"})

	paymentConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuition_payment_conflicts_total",
		Help: "Submissions or decisions refused because of ledger state",
	}, []string{"reason"})
)

// endpoint is the route template, so ids do not explode label cardinality.
func endpoint(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func countRequest(r *http.Request, code int) {
	httpRequestsTotal.WithLabelValues(r.Method, endpoint(r), strconv.Itoa(code)).Inc()
}

// instrument times every matched route.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, endpoint(r)))
		defer timer.ObserveDuration()
		next.ServeHTTP(w, r)
	})
}
