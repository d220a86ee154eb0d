package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admissionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealhub",
		Subsystem: "seckill",
		Name:      "admission_total",
		Help:      "Admission attempts by outcome",
	}, []string{"outcome"})

	admissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dealhub",
		Subsystem: "seckill",
		Name:      "admission_duration_seconds",
		Help:      "Admission latency",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	consumerProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealhub",
		Subsystem: "consumer",
		Name:      "orders_processed_total",
		Help:      "Orders handled by the background consumer",
	}, []string{"result"})

	pendingReplays = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dealhub",
		Subsystem: "consumer",
		Name:      "pending_replays_total",
		Help:      "Entries replayed from the pending list",
	})

	cacheRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealhub",
		Subsystem: "cache",
		Name:      "rebuilds_total",
		Help:      "Logical-expiry cache rebuilds",
	}, []string{"result"})
)

// ObserveAdmission records one admission attempt
func ObserveAdmission(outcome string, start time.Time) {
	admissionTotal.WithLabelValues(outcome).Inc()
	admissionDuration.Observe(time.Since(start).Seconds())
}

// ObserveConsumer records one consumer pass
func ObserveConsumer(result string) {
	consumerProcessed.WithLabelValues(result).Inc()
}

// ObservePendingReplay records one pending-list replay
func ObservePendingReplay() {
	pendingReplays.Inc()
}

// ObserveCacheRebuild records one cache rebuild attempt
func ObserveCacheRebuild(result string) {
	cacheRebuilds.WithLabelValues(result).Inc()
}
