// Package monitoring provides performance monitoring and metrics collection
// for CSV reads and aggregations. Counters and histograms are registered on a
// private Prometheus registry per collector, so several collectors can live
// in one process (and in one test binary) without clashing.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "colcsv"

// OperationMetrics represents performance metrics for a single operation.
type OperationMetrics struct {
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	Operation     string        `json:"operation"`
	Parallel      bool          `json:"parallel"`
	Failed        bool          `json:"failed"`
}

// MetricsCollector collects and stores performance metrics for read and
// aggregation operations.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []OperationMetrics
	enabled bool

	registry      *prometheus.Registry
	rowsParsed    prometheus.Counter
	rowsDropped   prometheus.Counter
	bytesScanned  prometheus.Counter
	chunksParsed  prometheus.Counter
	batchesBuilt  prometheus.Counter
	operationTime *prometheus.HistogramVec
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	mc := &MetricsCollector{
		metrics:  make([]OperationMetrics, 0),
		enabled:  enabled,
		registry: prometheus.NewRegistry(),
		rowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Rows successfully parsed into batches.",
		}),
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Malformed rows dropped under ignore_parser_errors.",
		}),
		bytesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_scanned_total",
			Help:      "Source bytes handed to chunk parsers.",
		}),
		chunksParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_parsed_total",
			Help:      "Chunks parsed to completion.",
		}),
		batchesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_built_total",
			Help:      "Record batches produced by chunk parsers.",
		}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of read and aggregate operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation", "status"}),
	}

	mc.registry.MustRegister(
		mc.rowsParsed,
		mc.rowsDropped,
		mc.bytesScanned,
		mc.chunksParsed,
		mc.batchesBuilt,
		mc.operationTime,
	)
	return mc
}

// IsEnabled returns whether metrics collection is enabled. A nil collector
// is disabled.
func (mc *MetricsCollector) IsEnabled() bool {
	if mc == nil {
		return false
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// Registry exposes the collector's Prometheus registry.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// RecordOperation executes fn and records its duration and outcome. fn
// reports how many rows it processed.
func (mc *MetricsCollector) RecordOperation(operation string, parallel bool, fn func() (int64, error)) error {
	if !mc.IsEnabled() {
		_, err := fn()
		return err
	}

	start := time.Now()
	rows, err := fn()
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	mc.operationTime.WithLabelValues(operation, status).Observe(duration.Seconds())

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, OperationMetrics{
		Duration:      duration,
		RowsProcessed: rows,
		Operation:     operation,
		Parallel:      parallel,
		Failed:        err != nil,
	})
	mc.mu.Unlock()

	return err
}

// ChunkParsed records the outcome of one chunk parser.
func (mc *MetricsCollector) ChunkParsed(bytes, rows, dropped, batches int64) {
	if !mc.IsEnabled() {
		return
	}
	mc.chunksParsed.Inc()
	mc.bytesScanned.Add(float64(bytes))
	mc.rowsParsed.Add(float64(rows))
	mc.rowsDropped.Add(float64(dropped))
	mc.batchesBuilt.Add(float64(batches))
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]OperationMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected operation records. Prometheus counters are
// monotonic and are not reset.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var totalDuration time.Duration
	var totalRows int64
	var failures int
	operationCounts := make(map[string]int)

	for _, metric := range mc.metrics {
		totalDuration += metric.Duration
		totalRows += metric.RowsProcessed
		operationCounts[metric.Operation]++
		if metric.Failed {
			failures++
		}
	}

	return MetricsSummary{
		TotalOperations: len(mc.metrics),
		TotalDuration:   totalDuration,
		TotalRows:       totalRows,
		Failures:        failures,
		OperationCounts: operationCounts,
		AverageDuration: totalDuration / time.Duration(len(mc.metrics)),
	}
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalOperations int            `json:"total_operations"`
	TotalDuration   time.Duration  `json:"total_duration"`
	TotalRows       int64          `json:"total_rows"`
	Failures        int            `json:"failures"`
	OperationCounts map[string]int `json:"operation_counts"`
	AverageDuration time.Duration  `json:"average_duration"`
}
