package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2-mcs/internal/config"
	"co2-mcs/internal/store"
)

const testBundle = `
parameters:
  - {scenario: A, class: truck, param: n_trucks, value: 20}
  - {scenario: A, class: truck, param: km_day_min, value: 20}
  - {scenario: A, class: truck, param: km_day_max, value: 60}
  - {scenario: A, class: truck, param: fuel_eff_l_per_km, value: 0.38, low: 0.25, high: 0.6}
  - {scenario: A, class: truck, param: fuel_type, value: diesel}
  - {scenario: A, class: global, param: duration_days, value: 10}
emission_factors:
  - {fuel_type: diesel, co2_per_unit: 2.63}
phases:
  - {scenario: A, phase: 1, share_nominal: 0.3}
  - {scenario: A, phase: 2, share_nominal: 0.7, multipliers: {truck: 1.4}}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	runs, err := store.OpenRunLog(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	cfg := &config.AppConfig{
		Simulation: config.Defaults(),
		DataPath:   dir,
		OutputDir:  filepath.Join(dir, "out"),
	}
	cfg.Simulation.NDraws = 40
	return NewServer(cfg, runs, "test")
}

func TestHandleRunSimulation_InlineBundle(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleRunSimulation(context.Background(), nil, RunArgs{Bundle: testBundle, Seed: 42, DaySummary: true})
	require.NoError(t, err)

	assert.Equal(t, "simulate", out.Mode)
	assert.Equal(t, uint64(42), out.Seed)
	assert.Equal(t, 40, out.NDraws)
	assert.Equal(t, []string{"A"}, out.Scenarios)
	require.Len(t, out.Totals, 1)
	assert.LessOrEqual(t, out.Totals[0].P5, out.Totals[0].Median)
	assert.LessOrEqual(t, out.Totals[0].Median, out.Totals[0].P95)
	assert.Len(t, out.ByDay, 10)
	assert.NotEmpty(t, out.Outputs)
}

func TestHandleRunSimulation_BundlePathRelativeToDataPath(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.DataPath, "demo.yaml"), []byte(testBundle), 0o644))

	_, out, err := s.handleRunSimulation(context.Background(), nil, RunArgs{BundlePath: "demo.yaml"})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSeed, out.Seed)
	assert.Empty(t, out.ByDay)
}

func TestHandleRunSimulation_Errors(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleRunSimulation(context.Background(), nil, RunArgs{})
	assert.Error(t, err)

	_, _, err = s.handleRunSimulation(context.Background(), nil, RunArgs{Bundle: "parameters: [oops"})
	assert.Error(t, err)
}

func TestHandleRunPhasedSimulation(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleRunPhasedSimulation(context.Background(), nil, RunArgs{Bundle: testBundle})
	require.NoError(t, err)

	assert.Equal(t, "phased", out.Mode)
	require.Len(t, out.PhaseLengths, 2)
	assert.Equal(t, 1, out.PhaseLengths[0].Phase)
	for _, p := range out.PhaseLengths {
		assert.GreaterOrEqual(t, p.P5, 2.0)
		assert.LessOrEqual(t, p.P95, 8.0)
	}
}

func TestHandleAllocatePhaseLengths(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleAllocatePhaseLengths(context.Background(), nil, AllocateArgs{
		NominalDays: []float64{10, 20, 30},
		TotalDays:   60,
		Draws:       25,
	})
	require.NoError(t, err)
	require.Len(t, out.Allocations, 25)
	for _, a := range out.Allocations {
		sum := 0
		for _, d := range a {
			assert.GreaterOrEqual(t, d, 2)
			sum += d
		}
		assert.Equal(t, 60, sum)
	}

	zero := 0
	_, again, err := s.handleAllocatePhaseLengths(context.Background(), nil, AllocateArgs{
		NominalDays: []float64{10, 20, 30},
		TotalDays:   60,
		Draws:       25,
		MinDays:     &zero,
	})
	require.NoError(t, err)
	assert.Len(t, again.Allocations, 25)

	_, _, err = s.handleAllocatePhaseLengths(context.Background(), nil, AllocateArgs{NominalDays: []float64{1, 1, 1}, TotalDays: 5})
	assert.Error(t, err, "3 phases × 2 days exceed 5")

	_, _, err = s.handleAllocatePhaseLengths(context.Background(), nil, AllocateArgs{NominalDays: []float64{1}, TotalDays: 5, Draws: MaxAllocationDraws + 1})
	assert.Error(t, err)
}

func TestHandleListRuns(t *testing.T) {
	s := newTestServer(t)
	_, empty, err := s.handleListRuns(context.Background(), nil, ListRunsArgs{})
	require.NoError(t, err)
	assert.Empty(t, empty.Runs)
	assert.Zero(t, empty.Total)

	_, first, err := s.handleRunSimulation(context.Background(), nil, RunArgs{Bundle: testBundle})
	require.NoError(t, err)
	_, _, err = s.handleRunPhasedSimulation(context.Background(), nil, RunArgs{Bundle: testBundle})
	require.NoError(t, err)

	_, listed, err := s.handleListRuns(context.Background(), nil, ListRunsArgs{Limit: 5})
	require.NoError(t, err)
	require.Len(t, listed.Runs, 2)
	assert.Equal(t, 2, listed.Total)

	_, limited, err := s.handleListRuns(context.Background(), nil, ListRunsArgs{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited.Runs, 1)
	assert.Equal(t, 2, limited.Total)

	ids := []string{listed.Runs[0].RunID, listed.Runs[1].RunID}
	assert.Contains(t, ids, first.RunID)
}
