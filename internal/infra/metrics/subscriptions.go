package metrics

import (
	"subscription-billing/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(subscriptionsTotal)
}

var subscriptionsTotal = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "subscriptions_total",
		Help: "Current number of subscriptions by state.",
	},
	[]string{"state"}, // 'active', 'pending_cancellation', 'past_due'
)

func SetSubscriptionsTotal(counts map[model.SubscriptionState]int) {
	states := []model.SubscriptionState{
		model.SubscriptionStateActive,
		model.SubscriptionStatePendingCancellation,
		model.SubscriptionStatePastDue,
	}
	for _, state := range states {
		if count, ok := counts[state]; ok {
			subscriptionsTotal.WithLabelValues(string(state)).Set(float64(count))
		}
	}
}
