package executive

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rony4d/go-opera-runtime/inter"
)

var (
	registerOnce sync.Once

	blocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opera_runtime",
			Subsystem: "executive",
			Name:      "blocks_total",
			Help:      "Blocks finished by the executive.",
		},
		[]string{"result"},
	)
	blockDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opera_runtime",
			Subsystem: "executive",
			Name:      "block_duration_seconds",
			Help:      "Time from block initialization to commit.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	blockWeight = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opera_runtime",
			Subsystem: "executive",
			Name:      "block_weight",
			Help:      "Weight consumed by committed blocks.",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 12),
		},
		[]string{"class"},
	)
	extrinsicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opera_runtime",
			Subsystem: "executive",
			Name:      "extrinsics_total",
			Help:      "Extrinsics by outcome.",
		},
		[]string{"outcome"},
	)
)

// RegisterMetrics registers the executive collectors with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(blocksTotal, blockDuration, blockWeight, extrinsicsTotal)
	})
}

func recordBlock(result string, started time.Time, weights inter.ClassWeights) {
	blocksTotal.WithLabelValues(result).Inc()
	if result != "committed" {
		return
	}
	blockDuration.Observe(time.Since(started).Seconds())
	for _, class := range []inter.DispatchClass{inter.Normal, inter.Operational, inter.Mandatory} {
		blockWeight.WithLabelValues(class.String()).Observe(float64(weights.Get(class)))
	}
}

func recordExtrinsic(outcome string) {
	extrinsicsTotal.WithLabelValues(outcome).Inc()
}
