package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2-mcs/internal/model"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(Run{
		Mode: "simulate", Draws: 800, Skipped: 1, DegenerateSamples: 3, RejectionExhausted: 2,
		Duration: 150 * time.Millisecond,
		Totals:   []model.Summary{{Scenario: "A", Median: 5600, P5: 4900, P95: 6400}},
	})
	m.Observe(Run{Mode: "simulate", Draws: 200})

	assert.Equal(t, 1000.0, testutil.ToFloat64(m.drawsTotal.WithLabelValues("simulate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedTotal.WithLabelValues("simulate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.degenerateTotal.WithLabelValues("simulate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rejectionExhausted.WithLabelValues("simulate")))
	assert.Equal(t, 5600.0, testutil.ToFloat64(m.scenarioTotal.WithLabelValues("simulate", "A", "0.5")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe(Run{Mode: "phased", Draws: 10})

	path := filepath.Join(t.TempDir(), "co2mcs.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `co2mcs_draws_total{mode="phased"} 10`)
}
