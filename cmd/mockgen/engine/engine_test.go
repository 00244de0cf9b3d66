package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2-mcs/internal/config"
	"co2-mcs/internal/params"
	"co2-mcs/internal/phasing"
	"co2-mcs/internal/simulation"
	"co2-mcs/internal/tables"
)

func TestGenerate_PresetsAreRunnable(t *testing.T) {
	for _, preset := range Presets {
		t.Run(preset, func(t *testing.T) {
			b, err := Generate(GeneratorConfig{Preset: preset, Scenarios: 2, Seed: 7})
			require.NoError(t, err)

			path, err := Save(t.TempDir(), preset, b)
			require.NoError(t, err)
			loaded, err := tables.LoadBundle(path)
			require.NoError(t, err)

			pmat, err := params.Build(loaded.ScenarioParameters(), loaded.EmissionFactors)
			require.NoError(t, err)
			require.NoError(t, phasing.Validate(loaded.Phases, params.Durations(pmat), config.Defaults().MinPhaseDays))

			res, err := simulation.NewEngine(config.Defaults()).Run(context.Background(), pmat, 5, 1)
			require.NoError(t, err)
			assert.Len(t, res.Scenarios, 2)
			assert.Empty(t, res.Skipped)
			assert.Zero(t, res.Diagnostics.DegenerateSamples)
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(GeneratorConfig{Preset: "siege", Scenarios: 3, Seed: 11})
	require.NoError(t, err)
	b, err := Generate(GeneratorConfig{Preset: "siege", Scenarios: 3, Seed: 11})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_UnknownPreset(t *testing.T) {
	_, err := Generate(GeneratorConfig{Preset: "naval"})
	assert.Error(t, err)
}
