package stateroot

import "github.com/prometheus/client_golang/prometheus"

// stateHeight prometheus metric.
var stateHeight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Help:      "Current local state height",
		Name:      "current_state_height",
		Namespace: "neompt",
	},
)

func init() {
	prometheus.MustRegister(stateHeight)
}

func updateStateHeightMetric(sHeight uint32) {
	stateHeight.Set(float64(sHeight))
}
