package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ReceiptsProcessedTotal counts receipt submissions by outcome.
	ReceiptsProcessedTotal *prometheus.CounterVec
	// ReceiptPoints records the points awarded to stored receipts.
	ReceiptPoints prometheus.Histogram
	// ReceiptsStored reports how many receipts the store currently holds.
	ReceiptsStored prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ReceiptsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_processed_total",
			Help:      "Count of receipt submissions by outcome.",
		}, []string{"result"})
		ReceiptPoints = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "receipt_points",
			Help:      "Distribution of points awarded to stored receipts.",
			Buckets:   []float64{10, 25, 50, 75, 100, 150, 250, 500},
		})
		ReceiptsStored = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "receipts_stored",
			Help:      "Number of receipts held in memory.",
		})

		mustRegisterCollector(reg, ReceiptsProcessedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptsProcessedTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptPoints, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				ReceiptPoints = v
			}
		})
		mustRegisterCollector(reg, ReceiptsStored, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				ReceiptsStored = v
			}
		})
	})
}

// ObserveReceipt records a submission outcome. stored is the store size
// after the attempt.
func ObserveReceipt(result string, points, stored int) {
	if ReceiptsProcessedTotal != nil {
		ReceiptsProcessedTotal.WithLabelValues(result).Inc()
	}
	if result == "stored" && ReceiptPoints != nil {
		ReceiptPoints.Observe(float64(points))
	}
	if ReceiptsStored != nil {
		ReceiptsStored.Set(float64(stored))
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
