package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncAllocation("heritage", "global", true)
	m.IncIssueRetry("heritage")
	m.IncStoreUnavailable("heritage")
	m.AddConflicts(3)
	m.IncReassignment("multi", "applied")
	m.IncPass("automatic")
	m.ObserveScan(time.Millisecond)
	require.Nil(t, m.Registry())
	require.NoError(t, m.WriteTextfile("/nonexistent/metrics.prom"))
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncAllocation("heritage", "global", false)
	m.IncAllocation("heritage", "local", true)
	m.IncReassignment("multi", "applied")
	m.IncReassignment("multi", "applied")
	m.AddConflicts(2)
	m.AddConflicts(0)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Allocations.WithLabelValues("heritage", "global")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Provisional.WithLabelValues("heritage")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Reassignments.WithLabelValues("multi", "applied")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ConflictsDetected))
}

func TestMetrics_InstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.IncPass("dry-run")
	require.Equal(t, 1.0, testutil.ToFloat64(a.Passes.WithLabelValues("dry-run")))
	require.Equal(t, 0.0, testutil.ToFloat64(b.Passes.WithLabelValues("dry-run")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.IncPass("automatic")

	path := filepath.Join(t.TempDir(), "textfile", "docnum.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `docnum_resolution_passes_total{mode="automatic"} 1`)
}
