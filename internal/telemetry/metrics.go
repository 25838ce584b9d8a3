package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_requests_total",
			Help: "Total request attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	LatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_latency_ms",
			Help:    "Latency of successful completions in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 1.5, 12),
		},
		[]string{"provider"},
	)

	CostUSDTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_cost_usd_total",
			Help: "Accumulated provider cost in USD",
		},
		[]string{"provider"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_errors_total",
			Help: "Total errors by provider and reason",
		},
		[]string{"provider", "reason"},
	)

	CBState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "router_cb_state",
			Help: "Circuit breaker state per provider (0=open,1=half_open,2=closed)",
		},
		[]string{"provider"},
	)

	BudgetRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "router_budget_rejected_total",
			Help: "Requests refused by the per-user budget gate",
		},
	)
)

func MustRegisterMetrics() {
	prometheus.MustRegister(RequestsTotal, LatencyMs, CostUSDTotal, ErrorsTotal, CBState, BudgetRejectedTotal)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }
