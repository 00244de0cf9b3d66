package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2-mcs/internal/config"
	"co2-mcs/internal/model"
	"co2-mcs/internal/stats"
)

func val(v float64) model.Param { return model.Param{Value: v, HasValue: true} }

func bounded(v, lo, hi float64) model.Param {
	return model.Param{Value: v, Low: lo, High: hi, HasValue: true, HasLow: true, HasHigh: true}
}

// exampleMatrix is scenario A from the reference example plus a mixed scenario B.
func exampleMatrix() []model.ParameterMatrixRow {
	return []model.ParameterMatrixRow{
		{
			Scenario: "A", Class: model.Truck,
			FleetSize: val(20), DutyCycle: val(1),
			KmDayMin: val(20), KmDayMax: val(60),
			FuelEffLPerKm: bounded(0.38, 0.25, 0.60),
			FuelType:      "diesel", EmissionFactor: 2.63, DurationDays: 7,
		},
		{
			Scenario: "B", Class: model.Aircraft,
			FleetSize: val(6), DutyCycle: val(0.7),
			HrDayMin: val(2), HrDayMax: val(5),
			FuelEffLPerHr: bounded(2600, 2000, 3200),
			FuelType:      "jp-8", EmissionFactor: 2.52, DurationDays: 10,
		},
		{
			Scenario: "B", Class: model.Tank,
			FleetSize: val(30), DutyCycle: val(0.6),
			KmDayMin: val(10), KmDayMax: val(40),
			FuelEffLPerKm: bounded(4.5, 3, 6), IdleLPerHr: val(10),
			FuelType:      "diesel", EmissionFactor: 2.63, DurationDays: 10,
		},
	}
}

func runEngine(t *testing.T, cfg config.SimulationConfig, pmat []model.ParameterMatrixRow, draws int, seed uint64) *Result {
	t.Helper()
	res, err := NewEngine(cfg).Run(context.Background(), pmat, draws, seed)
	require.NoError(t, err)
	return res
}

func TestEngine_ExampleScenario(t *testing.T) {
	res := runEngine(t, config.Defaults(), exampleMatrix()[:1], 400, 42)
	require.Len(t, res.Records, 400*7)

	s := stats.Summarize(res.Records)
	require.Len(t, s.Totals, 1)
	total := s.Totals[0]

	// Nominal 20 × 40 km × 0.38 L/km × 2.63 kg/L × 7 days ≈ 5,597 kg. Broadened
	// triangular ranges skew the mean upward and disruption pulls it down ~5%.
	assert.Greater(t, total.Median, 4000.0)
	assert.Less(t, total.Median, 9000.0)
	assert.Less(t, total.P5, total.Median)
	assert.Less(t, total.Median, total.P95)
	assert.Equal(t, 400, res.Diagnostics.Draws)
	assert.Zero(t, res.Diagnostics.DegenerateSamples)
}

func TestEngine_Determinism(t *testing.T) {
	cfg := config.Defaults()
	cfg.Workers = 1
	serial := runEngine(t, cfg, exampleMatrix(), 50, 7)

	cfg.Workers = 8
	parallel := runEngine(t, cfg, exampleMatrix(), 50, 7)
	again := runEngine(t, cfg, exampleMatrix(), 50, 7)

	assert.Equal(t, serial.Records, parallel.Records, "worker count must not change output")
	assert.Equal(t, parallel.Records, again.Records)

	other := runEngine(t, cfg, exampleMatrix(), 50, 8)
	assert.NotEqual(t, serial.Records, other.Records, "a different seed should change the draws")
}

func TestEngine_CanonicalOrder(t *testing.T) {
	res := runEngine(t, config.Defaults(), exampleMatrix(), 3, 1)
	assert.Equal(t, []string{"A", "B"}, res.Scenarios)

	prev := res.Records[0]
	for _, r := range res.Records[1:] {
		if r.Scenario == prev.Scenario && r.Draw == prev.Draw && r.Class == prev.Class {
			assert.Equal(t, prev.Day+1, r.Day)
		}
		if r.Scenario == prev.Scenario && r.Draw == prev.Draw && r.Class != prev.Class {
			assert.Less(t, prev.Class.Rank(), r.Class.Rank())
		}
		prev = r
	}
}

func TestEngine_ScenarioIndependence(t *testing.T) {
	cfg := config.Defaults()
	full := runEngine(t, cfg, exampleMatrix(), 40, 99)
	onlyB := runEngine(t, cfg, exampleMatrix()[1:], 40, 99)

	var bFromFull []model.DailyEmissionRecord
	for _, r := range full.Records {
		if r.Scenario == "B" {
			bFromFull = append(bFromFull, r)
		}
	}
	assert.Equal(t, onlyB.Records, bFromFull)
}

func TestEngine_TotalDecomposition(t *testing.T) {
	res := runEngine(t, config.Defaults(), exampleMatrix(), 25, 3)
	s := stats.Summarize(res.Records)

	manual := make(map[[2]any]float64)
	for _, r := range res.Records {
		manual[[2]any{r.Scenario, r.Draw}] += r.EmissionsKgCO2
	}
	require.Len(t, s.DrawTotals, len(manual))
	for _, dt := range s.DrawTotals {
		assert.Equal(t, manual[[2]any{dt.Scenario, dt.Draw}], dt.TotalKgCO2)
	}
}

func TestEngine_NonNegativeAndSharedDisruption(t *testing.T) {
	res := runEngine(t, config.Defaults(), exampleMatrix(), 30, 5)

	// Within one draw of scenario B, aircraft and tank share the same disrupted days.
	type key struct {
		draw  int
		class model.Class
	}
	series := make(map[key][]float64)
	for _, r := range res.Records {
		require.GreaterOrEqual(t, r.EmissionsKgCO2, 0.0)
		if r.Scenario == "B" {
			k := key{r.Draw, r.Class}
			series[k] = append(series[k], r.EmissionsKgCO2)
		}
	}
	for draw := 1; draw <= 30; draw++ {
		air := series[key{draw, model.Aircraft}]
		tank := series[key{draw, model.Tank}]
		require.Len(t, air, 10)
		require.Len(t, tank, 10)
		airMax, tankMax := maxOf(air), maxOf(tank)
		for d := range air {
			assert.Equal(t, air[d] < airMax, tank[d] < tankMax, "draw %d day %d", draw, d+1)
		}
	}
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

func TestEngine_SkipsMalformedScenario(t *testing.T) {
	pmat := exampleMatrix()
	pmat = append(pmat, model.ParameterMatrixRow{Scenario: "C", Class: model.Truck, DurationDays: 0})

	res := runEngine(t, config.Defaults(), pmat, 5, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "C", res.Skipped[0].Scenario)
	assert.Equal(t, []string{"A", "B"}, res.Scenarios)
	for _, r := range res.Records {
		assert.NotEqual(t, "C", r.Scenario)
	}

	clean := runEngine(t, config.Defaults(), exampleMatrix(), 5, 1)
	assert.Equal(t, clean.Records, res.Records, "a skipped scenario must not disturb the others")
}

func TestEngine_InconsistentDurationSkipped(t *testing.T) {
	pmat := exampleMatrix()
	pmat[2].DurationDays = 12
	res := runEngine(t, config.Defaults(), pmat, 5, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "B", res.Skipped[0].Scenario)
}

func TestEngine_RejectsNonPositiveDraws(t *testing.T) {
	_, err := NewEngine(config.Defaults()).Run(context.Background(), exampleMatrix(), 0, 1)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(config.Defaults()).Run(ctx, exampleMatrix(), 100, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_SkipsEmptyScenario(t *testing.T) {
	pmat := exampleMatrix()[:1]
	pmat = append(pmat, model.ParameterMatrixRow{Scenario: "B", Class: model.Global, DurationDays: 5})

	res := runEngine(t, config.Defaults(), pmat, 5, 1)
	assert.Equal(t, []string{"A"}, res.Scenarios)
	assert.Equal(t, []model.ScenarioSkipped{{Scenario: "B", Reason: model.ReasonEmptyMatrix}}, res.Skipped)
	assert.Len(t, res.Records, 5*7)
}
