// Package metrics exposes prometheus counters for allocation and resolution.
// Every method is safe on a nil *Metrics so components can run without metrics.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the numbering coordinator.
type Metrics struct {
	registry *prometheus.Registry

	// Allocations by domain and path ("global", "local", "default")
	Allocations *prometheus.CounterVec

	// Provisional allocations by domain
	Provisional *prometheus.CounterVec

	// Insert retries after a constraint violation, by domain
	IssueRetries *prometheus.CounterVec

	// Domains found unreachable during scans
	StoreUnavailable *prometheus.CounterVec

	// Conflicts detected by the last scans
	ConflictsDetected prometheus.Counter

	// Reassignments by domain and outcome ("applied", "planned", "failed")
	Reassignments *prometheus.CounterVec

	// Resolution passes by mode
	Passes *prometheus.CounterVec

	// Scan duration
	ScanLatency prometheus.Histogram
}

// New registers every metric on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Allocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docnum_allocations_total",
			Help: "Numbers handed out by the allocation facade",
		}, []string{"domain", "path"}),

		Provisional: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docnum_provisional_allocations_total",
			Help: "Numbers handed out without a view of every domain",
		}, []string{"domain"}),

		IssueRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docnum_issue_retries_total",
			Help: "Allocations retried after the domain rejected a duplicate number",
		}, []string{"domain"}),

		StoreUnavailable: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docnum_store_unavailable_total",
			Help: "Domain stores that could not be read during a scan",
		}, []string{"domain"}),

		ConflictsDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "docnum_conflicts_detected_total",
			Help: "Numbers found in more than one record",
		}),

		Reassignments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docnum_reassignments_total",
			Help: "Loser records renumbered by resolution passes",
		}, []string{"domain", "outcome"}),

		Passes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docnum_resolution_passes_total",
			Help: "Resolution passes run by mode",
		}, []string{"mode"}),

		ScanLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docnum_scan_duration_seconds",
			Help:    "Duration of a full registry scan",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// Registry returns the private registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncAllocation records one allocation.
func (m *Metrics) IncAllocation(domain, path string, provisional bool) {
	if m == nil {
		return
	}
	m.Allocations.WithLabelValues(domain, path).Inc()
	if provisional {
		m.Provisional.WithLabelValues(domain).Inc()
	}
}

// IncIssueRetry records an insert retried after a constraint violation.
func (m *Metrics) IncIssueRetry(domain string) {
	if m != nil {
		m.IssueRetries.WithLabelValues(domain).Inc()
	}
}

// IncStoreUnavailable records an unreachable domain.
func (m *Metrics) IncStoreUnavailable(domain string) {
	if m != nil {
		m.StoreUnavailable.WithLabelValues(domain).Inc()
	}
}

// AddConflicts records detected conflicts.
func (m *Metrics) AddConflicts(n int) {
	if m != nil && n > 0 {
		m.ConflictsDetected.Add(float64(n))
	}
}

// IncReassignment records one loser handled by a pass.
func (m *Metrics) IncReassignment(domain, outcome string) {
	if m != nil {
		m.Reassignments.WithLabelValues(domain, outcome).Inc()
	}
}

// IncPass records one resolution pass.
func (m *Metrics) IncPass(mode string) {
	if m != nil {
		m.Passes.WithLabelValues(mode).Inc()
	}
}

// ObserveScan records the duration of a scan.
func (m *Metrics) ObserveScan(d time.Duration) {
	if m != nil {
		m.ScanLatency.Observe(d.Seconds())
	}
}

// WriteTextfile writes the current values in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
