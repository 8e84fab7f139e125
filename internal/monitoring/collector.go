// Package monitoring exposes prometheus metrics and a small status snapshot
// for the tracker service.
package monitoring

import (
	"net/http"
	"time"

	"foodsaver/internal/freshness"
	"foodsaver/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector handles metrics collection and reporting
type Collector struct {
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
	monitor  *Monitor
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	// Inventory
	itemsAdded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodsaver_items_added_total",
		Help: "Items added to the inventory",
	})

	inventoryGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "foodsaver_inventory_items",
			Help: "Active items per freshness status",
		},
		[]string{"status"},
	)

	// Outcomes
	wasteRecords := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodsaver_waste_records_total",
			Help: "Waste records logged",
		},
		[]string{"category", "reason"},
	)

	wastedCost := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodsaver_wasted_cost_total",
			Help: "Estimated money value of wasted food",
		},
		[]string{"category"},
	)

	consumedRecords := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodsaver_consumed_records_total",
			Help: "Items marked as consumed",
		},
		[]string{"category"},
	)

	savedCost := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodsaver_saved_cost_total",
			Help: "Estimated money value of consumed food",
		},
		[]string{"category"},
	)

	// Persistence
	persistDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "foodsaver_persist_duration_seconds",
		Help:    "Time taken to save the state document",
		Buckets: prometheus.DefBuckets,
	})

	persistFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodsaver_persist_failures_total",
		Help: "Failed state saves",
	})

	// Receipt extraction
	extractions := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodsaver_receipt_extraction_seconds",
			Help:    "Receipt extraction latency by outcome",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"outcome"},
	)

	metrics := map[string]prometheus.Collector{
		"items_added":      itemsAdded,
		"inventory":        inventoryGauge,
		"waste_records":    wasteRecords,
		"wasted_cost":      wastedCost,
		"consumed_records": consumedRecords,
		"saved_cost":       savedCost,
		"persist_duration": persistDuration,
		"persist_failures": persistFailures,
		"extractions":      extractions,
	}

	for _, metric := range metrics {
		registry.MustRegister(metric)
	}

	return &Collector{
		registry: registry,
		metrics:  metrics,
		monitor:  NewMonitor(),
	}
}

// Handler serves the collector's registry
func (mc *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying prometheus registry
func (mc *Collector) Registry() *prometheus.Registry {
	return mc.registry
}

// Monitor returns the status monitor fed by this collector
func (mc *Collector) Monitor() *Monitor {
	return mc.monitor
}

// RecordItemsAdded counts newly added items
func (mc *Collector) RecordItemsAdded(n int) {
	if counter, ok := mc.metrics["items_added"].(prometheus.Counter); ok {
		counter.Add(float64(n))
	}
}

// RecordInventory sets the per-status gauges
func (mc *Collector) RecordInventory(counts freshness.StatusCounts) {
	if gauge, ok := mc.metrics["inventory"].(*prometheus.GaugeVec); ok {
		gauge.WithLabelValues(string(freshness.StatusExpired)).Set(float64(counts.Expired))
		gauge.WithLabelValues(string(freshness.StatusUrgent)).Set(float64(counts.Urgent))
		gauge.WithLabelValues(string(freshness.StatusWarning)).Set(float64(counts.Warning))
		gauge.WithLabelValues(string(freshness.StatusFresh)).Set(float64(counts.Fresh))
	}
}

// RecordWaste records a new waste record
func (mc *Collector) RecordWaste(r models.WasteRecord) {
	if counter, ok := mc.metrics["waste_records"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(string(r.Category), string(r.Reason)).Inc()
	}
	if counter, ok := mc.metrics["wasted_cost"].(*prometheus.CounterVec); ok && r.EstimatedCost > 0 {
		counter.WithLabelValues(string(r.Category)).Add(r.EstimatedCost)
	}
}

// RecordConsumed records a new consumed record
func (mc *Collector) RecordConsumed(r models.ConsumedRecord) {
	if counter, ok := mc.metrics["consumed_records"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(string(r.Category)).Inc()
	}
	if counter, ok := mc.metrics["saved_cost"].(*prometheus.CounterVec); ok && r.SavedCost > 0 {
		counter.WithLabelValues(string(r.Category)).Add(r.SavedCost)
	}
}

// RecordPersist records the outcome of one state save
func (mc *Collector) RecordPersist(err error, took time.Duration) {
	if histogram, ok := mc.metrics["persist_duration"].(prometheus.Histogram); ok {
		histogram.Observe(took.Seconds())
	}

	if err != nil {
		if counter, ok := mc.metrics["persist_failures"].(prometheus.Counter); ok {
			counter.Inc()
		}
	}
	mc.monitor.RecordPersist(err, took)
}

// RecordExtraction records one receipt extraction
func (mc *Collector) RecordExtraction(outcome string, took time.Duration, items int) {
	if histogram, ok := mc.metrics["extractions"].(*prometheus.HistogramVec); ok {
		histogram.WithLabelValues(outcome).Observe(took.Seconds())
	}
	mc.monitor.RecordScan(outcome, took, items)
}
