package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	"co2-mcs/internal/model"
)

func TestGodotenvOverrides(t *testing.T) {
	content := "MCS_N_DRAWS=250\nMCS_DISRUPT_PROB='0.2'\n"
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("Error reading env: %v", err)
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := FromEnv(Defaults())
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.NDraws != 250 {
		t.Errorf("Expected NDraws 250, got %d", cfg.NDraws)
	}
	if cfg.DisruptProb != 0.2 {
		t.Errorf("Expected DisruptProb 0.2, got %g", cfg.DisruptProb)
	}
	if cfg.BroadenPct != 0.20 {
		t.Errorf("Expected untouched BroadenPct 0.20, got %g", cfg.BroadenPct)
	}
}

func TestFromEnv_IgnoresGarbage(t *testing.T) {
	t.Setenv("MCS_SEED", "not-a-number")
	cfg, err := FromEnv(Defaults())
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Seed != DefaultSeed {
		t.Errorf("Expected default seed, got %d", cfg.Seed)
	}
}

func TestLoadRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	content := "n_draws: 50\nseed: 42\nmin_phase_days: 3\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRunFile(path, Defaults())
	if err != nil {
		t.Fatalf("LoadRunFile() error = %v", err)
	}
	if cfg.NDraws != 50 || cfg.Seed != 42 || cfg.MinPhaseDays != 3 {
		t.Errorf("Unexpected overlay result: %+v", cfg)
	}
	if cfg.SDLogMult != 0.12 {
		t.Errorf("Expected SDLogMult to keep default, got %g", cfg.SDLogMult)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SimulationConfig)
		ok     bool
	}{
		{"Defaults", func(*SimulationConfig) {}, true},
		{"ZeroDraws", func(c *SimulationConfig) { c.NDraws = 0 }, false},
		{"BroadenTooLarge", func(c *SimulationConfig) { c.BroadenPct = 1 }, false},
		{"ProbabilityAboveOne", func(c *SimulationConfig) { c.DisruptProb = 1.5 }, false},
		{"NegativeMinPhase", func(c *SimulationConfig) { c.MinPhaseDays = -1 }, false},
		{"NegativeWorkers", func(c *SimulationConfig) { c.Workers = -2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, model.ErrConfiguration) {
				t.Errorf("Validate() = %v, want configuration error", err)
			}
		})
	}
}
