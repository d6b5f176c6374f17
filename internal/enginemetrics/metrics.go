// Package enginemetrics declares the prometheus metrics emitted by the
// sync engine, grounded on the teacher's pkg/engine/metrics.go package
// var + promauto.New*Vec convention.
package enginemetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncengine_batches_run_total",
		Help: "The total number of batches run, by job and phase outcome",
	}, []string{"job_id", "outcome"})

	RowsUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncengine_rows_upserted_total",
		Help: "The total number of rows upserted into the sink",
	}, []string{"job_id"})

	RowsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncengine_rows_deleted_total",
		Help: "The total number of rows deleted from the sink during delete detection",
	}, []string{"job_id"})

	DeleteCircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncengine_delete_circuit_breaker_trips_total",
		Help: "The total number of times a delete-detection safety gate aborted or failed a run",
	}, []string{"job_id", "gate"})

	// ActiveRuns is registered but nothing in the engine sets it, and
	// Recorder has no method for it, so it always reads 0.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "syncengine_active_runs",
		Help: "The number of runs currently in flight across all jobs",
	})

	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "syncengine_batch_duration_seconds",
		Help:    "Time taken to execute one batch",
		Buckets: prometheus.DefBuckets,
	}, []string{"job_id", "phase"})

	SchemaReconcileDDLCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncengine_schema_reconcile_ddl_total",
		Help: "The total number of DDL statements issued by schema reconciliation",
	}, []string{"job_id", "operation"})

	RunFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncengine_run_failures_total",
		Help: "The total number of runs that ended in failure, by error kind",
	}, []string{"job_id", "kind"})
)

// Recorder is the narrow metrics surface internal/syncengine depends on,
// so tests can swap in a no-op implementation without touching the global
// prometheus registry.
type Recorder interface {
	BatchRun(jobID, outcome string)
	RowsUpserted(jobID string, n int)
	RowsDeleted(jobID string, n int)
	CircuitBreakerTrip(jobID, gate string)
	RunFailed(jobID, kind string)
	ObserveBatchDuration(jobID, phase string, seconds float64)
	ObserveDDL(jobID, operation string, n int)
}

// PrometheusRecorder implements Recorder against the package-level metrics.
type PrometheusRecorder struct{}

func (PrometheusRecorder) BatchRun(jobID, outcome string) {
	BatchesRun.WithLabelValues(jobID, outcome).Inc()
}

func (PrometheusRecorder) RowsUpserted(jobID string, n int) {
	RowsUpserted.WithLabelValues(jobID).Add(float64(n))
}

func (PrometheusRecorder) RowsDeleted(jobID string, n int) {
	RowsDeleted.WithLabelValues(jobID).Add(float64(n))
}

func (PrometheusRecorder) CircuitBreakerTrip(jobID, gate string) {
	DeleteCircuitBreakerTrips.WithLabelValues(jobID, gate).Inc()
}

func (PrometheusRecorder) RunFailed(jobID, kind string) {
	RunFailures.WithLabelValues(jobID, kind).Inc()
}

func (PrometheusRecorder) ObserveBatchDuration(jobID, phase string, seconds float64) {
	BatchDuration.WithLabelValues(jobID, phase).Observe(seconds)
}

func (PrometheusRecorder) ObserveDDL(jobID, operation string, n int) {
	SchemaReconcileDDLCount.WithLabelValues(jobID, operation).Add(float64(n))
}

// Nop discards every metric; useful in tests.
type Nop struct{}

func (Nop) BatchRun(string, string)                      {}
func (Nop) RowsUpserted(string, int)                     {}
func (Nop) RowsDeleted(string, int)                      {}
func (Nop) CircuitBreakerTrip(string, string)            {}
func (Nop) RunFailed(string, string)                     {}
func (Nop) ObserveBatchDuration(string, string, float64) {}
func (Nop) ObserveDDL(string, string, int)               {}
