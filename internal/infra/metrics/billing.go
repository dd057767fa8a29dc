package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		chargesTotal,
		chargeLatencyMs,
		fundsMovedTotal,
		refundsTotal,
	)
}

var (
	chargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_charges_total",
			Help: "Charge attempts by outcome (settled/past_due/failed).",
		},
		[]string{"outcome"},
	)

	chargeLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_charge_latency_ms",
			Help:    "Charge processing latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
	)

	fundsMovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_funds_moved_total",
			Help: "Base units moved through settlement, labeled by destination leg.",
		},
		[]string{"leg"}, // 'payout', 'tax'
	)

	refundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_refunds_total",
			Help: "Base units refunded to subscribers on close.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncCharge(outcome string) {
	chargesTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveChargeLatency(ms int64) {
	chargeLatencyMs.Observe(float64(ms))
}

func AddFundsMoved(leg string, amount int64) {
	fundsMovedTotal.WithLabelValues(norm(leg)).Add(float64(amount))
}

func AddRefund(amount int64) {
	refundsTotal.Add(float64(amount))
}
