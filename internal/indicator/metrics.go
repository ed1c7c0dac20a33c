package indicator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	barsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_bars_processed_total",
			Help: "Total number of bars consumed by the indicator engine",
		},
		[]string{"status"}, // "success", "stale", "invalid", "error"
	)

	updateLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indicator_update_latency_seconds",
			Help:    "Time to update every calculator of a symbol with one bar",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	symbolsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indicator_symbols_tracked",
			Help: "Number of symbols with indicator state",
		},
	)

	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_publish_total",
			Help: "Total number of indicator updates published",
		},
		[]string{"status"},
	)

	checkpointTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_checkpoint_total",
			Help: "Total number of engine checkpoints",
		},
		[]string{"operation", "status"}, // save/restore, success/error/empty
	)

	checkpointLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indicator_checkpoint_latency_seconds",
			Help:    "Time to capture and store an engine checkpoint",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)
)
