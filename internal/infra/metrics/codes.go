package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		codesGeneratedTotal,
		generationAttemptsTotal,
		generationCollisionsTotal,
		redemptionsTotal,
		redemptionLatencyMs,
	)
}

var (
	codesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_codes_generated_total",
			Help: "Total number of activation codes committed by batch generation.",
		},
	)

	generationAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_code_generation_attempts_total",
			Help: "Total candidate draws, including strength rejections and collisions.",
		},
	)

	generationCollisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_code_generation_collisions_total",
			Help: "Total uniqueness-constraint collisions observed during generation.",
		},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_code_redemptions_total",
			Help: "Redemption attempts by outcome.",
		},
		[]string{"outcome"}, // 'ok', 'malformed', 'not_found', 'already_used', 'batch_expired', 'error'
	)

	redemptionLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activation_code_redemption_latency_ms",
			Help:    "Redemption latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"outcome"},
	)
)

func AddCodesGenerated(n int) {
	codesGeneratedTotal.Add(float64(n))
}

func ObserveGeneration(attempts, collisions int) {
	generationAttemptsTotal.Add(float64(attempts))
	generationCollisionsTotal.Add(float64(collisions))
}

func IncRedemption(outcome string) {
	redemptionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveRedemptionLatency(outcome string, latencyMs int64) {
	redemptionLatencyMs.WithLabelValues(outcome).Observe(float64(latencyMs))
}
