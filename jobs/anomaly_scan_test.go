package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyFlagsSpike(t *testing.T) {
	entry := &timeSeries{
		TenantID:       "t1",
		InstallationID: "i1",
		Periods:        []string{"2026-01", "2026-02", "2026-03", "2026-04"},
		Values:         []float64{100, 102, 98, 400},
	}
	anomaly, ok := classify(entry, 1.4)
	require.True(t, ok)
	require.Equal(t, "HIGH", anomaly.Severity)
	require.Equal(t, "2026-04", anomaly.Period)
	require.Greater(t, anomaly.Delta, 0.0)
}

func TestClassifySkipsStableSeries(t *testing.T) {
	entry := &timeSeries{
		Periods: []string{"2026-01", "2026-02", "2026-03"},
		Values:  []float64{100, 101, 99},
	}
	_, ok := classify(entry, 2.5)
	require.False(t, ok)
}

func TestClassifyNeedsHistory(t *testing.T) {
	entry := &timeSeries{
		Periods: []string{"2026-01", "2026-02"},
		Values:  []float64{100, 500},
	}
	_, ok := classify(entry, 2.5)
	require.False(t, ok)

	// A flat series has zero deviation and carries no signal either.
	flat := &timeSeries{
		Periods: []string{"2026-01", "2026-02", "2026-03"},
		Values:  []float64{100, 100, 100},
	}
	_, ok = classify(flat, 2.5)
	require.False(t, ok)
}
