package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(subscriptionsTotal)
}

var subscriptionsTotal = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "subscriptions_total",
		Help: "Current number of subscriptions by state.",
	},
	[]string{"state"}, // 'active', 'lapsed'
)

func SetSubscriptionsTotal(active, lapsed int) {
	subscriptionsTotal.WithLabelValues("active").Set(float64(active))
	subscriptionsTotal.WithLabelValues("lapsed").Set(float64(lapsed))
}
