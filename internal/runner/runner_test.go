package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2-mcs/internal/config"
	"co2-mcs/internal/metrics"
	"co2-mcs/internal/model"
	"co2-mcs/internal/store"
	"co2-mcs/internal/tables"
)

const bundleYAML = `
name: runner-test
parameters:
  - {scenario: A, class: truck, param: fleet_size, value: 20}
  - {scenario: A, class: truck, param: duty_cycle, value: 1}
  - {scenario: A, class: truck, param: km_day_min, value: 20}
  - {scenario: A, class: truck, param: km_day_max, value: 60}
  - {scenario: A, class: truck, param: fuel_eff_l_per_km, value: 0.38, low: 0.25, high: 0.60}
  - {scenario: A, class: truck, param: fuel_type, value: diesel}
  - {scenario: A, class: global, param: duration_days, value: 7}
emission_factors:
  - {fuel_type: diesel, co2_per_unit: 2.63}
phases:
  - {scenario: A, phase: 1, share_nominal: 0.4, multipliers: {truck: 1.5}}
  - {scenario: A, phase: 2, share_nominal: 0.6, multipliers: {truck: 0.8}}
`

func writeBundle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bundleYAML), 0o644))
	return path
}

func testOptions(t *testing.T) Options {
	t.Helper()
	cfg := config.Defaults()
	cfg.NDraws = 50
	cfg.Seed = 42
	return Options{Simulation: cfg}
}

func TestLoad_BundleAndCSVOverride(t *testing.T) {
	bundle := writeBundle(t)
	factors := filepath.Join(t.TempDir(), "ef.csv")
	require.NoError(t, os.WriteFile(factors, []byte("fuel_type,co2_per_unit\ndiesel,2.7\n"), 0o644))

	in, err := Load(Sources{Bundle: bundle, Factors: factors})
	require.NoError(t, err)
	assert.Len(t, in.Parameters, 7)
	assert.Len(t, in.Phases, 2)
	assert.Equal(t, []model.EmissionFactor{{FuelType: "diesel", CO2PerUnit: 2.7}}, in.EmissionFactors)

	_, err = Load(Sources{})
	assert.Error(t, err)
}

func TestSources_Resolve(t *testing.T) {
	s := Sources{Bundle: "b.yaml", Params: "/abs/p.csv"}.Resolve("/data")
	assert.Equal(t, filepath.Join("/data", "b.yaml"), s.Bundle)
	assert.Equal(t, "/abs/p.csv", s.Params)
	assert.Empty(t, s.Phases)
}

func TestDeterministic(t *testing.T) {
	in, err := Load(Sources{Bundle: writeBundle(t)})
	require.NoError(t, err)

	rep, err := New(testOptions(t)).Deterministic(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, rep.Deterministic, 7)
	assert.InDelta(t, 20*40*0.38*2.63*7, rep.Summaries.Totals[0].Median, 1e-6)
	assert.Equal(t, []string{"A"}, rep.Manifest.Scenarios)
}

func TestSimulate_AllSinks(t *testing.T) {
	dir := t.TempDir()
	runs, err := store.OpenRunLog(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	opts := testOptions(t)
	opts.OutputDir = filepath.Join(dir, "out")
	opts.SQLitePath = filepath.Join(dir, "runs.db")
	opts.MetricsFile = filepath.Join(dir, "co2mcs.prom")
	opts.RunLog = runs
	opts.Metrics = metrics.New()

	in, err := Load(Sources{Bundle: writeBundle(t)})
	require.NoError(t, err)

	r := New(opts)
	first, err := r.Simulate(context.Background(), in)
	require.NoError(t, err)
	second, err := r.Simulate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, runs.Count())
	assert.Len(t, first.Records, 50*7)
	assert.Equal(t, 50, first.Manifest.NDraws)
	assert.Contains(t, first.Manifest.Outputs, opts.SQLitePath)
	assert.FileExists(t, opts.MetricsFile)

	for _, name := range []string{tables.FileDrawDaily, tables.FileDaySummary, tables.FileTotalSummary, tables.FileDrawTotals} {
		a, err := os.ReadFile(filepath.Join(opts.OutputDir, first.Manifest.RunID, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(opts.OutputDir, second.Manifest.RunID, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, "%s must be byte-identical for the same seed", name)
	}

	sink, err := store.OpenSQLite(opts.SQLitePath)
	require.NoError(t, err)
	defer sink.Close()
	totals, err := sink.DrawTotals(context.Background(), first.Manifest.RunID, "A")
	require.NoError(t, err)
	assert.Equal(t, first.Summaries.DrawTotals, totals)
}

func TestPhased(t *testing.T) {
	in, err := Load(Sources{Bundle: writeBundle(t)})
	require.NoError(t, err)

	rep, err := New(testOptions(t)).Phased(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, rep.PhaseLengths, 50*2)

	sums := make(map[int]int)
	for _, l := range rep.PhaseLengths {
		sums[l.Draw] += l.Days
	}
	for _, s := range sums {
		assert.Equal(t, 7, s)
	}

	in.Phases = nil
	_, err = New(testOptions(t)).Phased(context.Background(), in)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestRuns_ReportScenarioWithoutClasses(t *testing.T) {
	in, err := Load(Sources{Bundle: writeBundle(t)})
	require.NoError(t, err)
	in.Parameters = append(in.Parameters, model.ScenarioParameter{Scenario: "B", Class: model.Global, Param: "duration_days", Value: "5"})
	want := []model.ScenarioSkipped{{Scenario: "B", Reason: model.ReasonEmptyMatrix}}

	sim, err := New(testOptions(t)).Simulate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, sim.Manifest.Scenarios)
	assert.Equal(t, want, sim.Manifest.Skipped)

	det, err := New(testOptions(t)).Deterministic(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, det.Manifest.Scenarios)
	assert.Equal(t, want, det.Manifest.Skipped)

	phased, err := New(testOptions(t)).Phased(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, phased.Manifest.Scenarios)
	assert.Equal(t, want, phased.Manifest.Skipped)
}

func TestSimulate_ConfigurationErrorAborts(t *testing.T) {
	in, err := Load(Sources{Bundle: writeBundle(t)})
	require.NoError(t, err)
	in.EmissionFactors = []model.EmissionFactor{{FuelType: "jp-8", CO2PerUnit: 2.5}}

	_, err = New(testOptions(t)).Simulate(context.Background(), in)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
