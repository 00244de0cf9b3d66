package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"co2-mcs/internal/model"
)

// DefaultSeed is the fixed seed used when none is configured.
const DefaultSeed uint64 = 20240611

// SimulationConfig holds every tunable of a simulation run.
// It is passed by value; nothing in the engine mutates it.
type SimulationConfig struct {
	NDraws        int     `yaml:"n_draws" json:"n_draws"`
	Seed          uint64  `yaml:"seed" json:"seed"`
	BroadenPct    float64 `yaml:"broaden_pct" json:"broaden_pct"`
	FleetVarPct   float64 `yaml:"fleet_var_pct" json:"fleet_var_pct"`
	EFSDFrac      float64 `yaml:"ef_sd_frac" json:"ef_sd_frac"`
	EFTruncFrac   float64 `yaml:"ef_trunc_frac" json:"ef_trunc_frac"`
	DisruptProb   float64 `yaml:"disrupt_prob" json:"disrupt_prob"`
	DisruptFactor float64 `yaml:"disrupt_factor" json:"disrupt_factor"`
	MinPhaseDays  int     `yaml:"min_phase_days" json:"min_phase_days"`
	SDLogMult     float64 `yaml:"sdlog_mult" json:"sdlog_mult"`
	PhaseSDFrac   float64 `yaml:"phase_sd_frac" json:"phase_sd_frac"`
	Workers       int     `yaml:"workers" json:"workers"` // 0 means GOMAXPROCS
}

// Defaults returns the reference configuration.
func Defaults() SimulationConfig {
	return SimulationConfig{
		NDraws:        400,
		Seed:          DefaultSeed,
		BroadenPct:    0.20,
		FleetVarPct:   0.10,
		EFSDFrac:      0.03,
		EFTruncFrac:   0.10,
		DisruptProb:   0.10,
		DisruptFactor: 0.50,
		MinPhaseDays:  2,
		SDLogMult:     0.12,
		PhaseSDFrac:   0.25,
	}
}

// FromEnv overlays MCS_* environment variables on base.
func FromEnv(base SimulationConfig) (SimulationConfig, error) {
	c := base
	c.NDraws = getEnvInt("MCS_N_DRAWS", c.NDraws)
	c.Seed = getEnvUint("MCS_SEED", c.Seed)
	c.BroadenPct = getEnvFloat("MCS_BROADEN_PCT", c.BroadenPct)
	c.FleetVarPct = getEnvFloat("MCS_FLEET_VAR_PCT", c.FleetVarPct)
	c.EFSDFrac = getEnvFloat("MCS_EF_SD_FRAC", c.EFSDFrac)
	c.EFTruncFrac = getEnvFloat("MCS_EF_TRUNC_FRAC", c.EFTruncFrac)
	c.DisruptProb = getEnvFloat("MCS_DISRUPT_PROB", c.DisruptProb)
	c.DisruptFactor = getEnvFloat("MCS_DISRUPT_FACTOR", c.DisruptFactor)
	c.MinPhaseDays = getEnvInt("MCS_MIN_PHASE_DAYS", c.MinPhaseDays)
	c.SDLogMult = getEnvFloat("MCS_SDLOG_MULT", c.SDLogMult)
	c.PhaseSDFrac = getEnvFloat("MCS_PHASE_SD_FRAC", c.PhaseSDFrac)
	c.Workers = getEnvInt("MCS_WORKERS", c.Workers)
	return c, c.Validate()
}

// LoadRunFile overlays the options present in a YAML run file on base.
// Keys absent from the file keep their base value.
func LoadRunFile(path string, base SimulationConfig) (SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading run file: %w", err)
	}

	c := base
	if err := yaml.Unmarshal(data, &c); err != nil {
		return base, fmt.Errorf("parsing run file YAML: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects options that would make the engine meaningless.
func (c SimulationConfig) Validate() error {
	switch {
	case c.NDraws <= 0:
		return model.Configf("", "", "n_draws must be positive, got %d", c.NDraws)
	case c.BroadenPct < 0 || c.BroadenPct >= 1:
		return model.Configf("", "", "broaden_pct must be in [0,1), got %g", c.BroadenPct)
	case c.FleetVarPct < 0 || c.FleetVarPct >= 1:
		return model.Configf("", "", "fleet_var_pct must be in [0,1), got %g", c.FleetVarPct)
	case c.EFSDFrac < 0:
		return model.Configf("", "", "ef_sd_frac must be non-negative, got %g", c.EFSDFrac)
	case c.EFTruncFrac < 0 || c.EFTruncFrac >= 1:
		return model.Configf("", "", "ef_trunc_frac must be in [0,1), got %g", c.EFTruncFrac)
	case c.DisruptProb < 0 || c.DisruptProb > 1:
		return model.Configf("", "", "disrupt_prob must be in [0,1], got %g", c.DisruptProb)
	case c.DisruptFactor < 0:
		return model.Configf("", "", "disrupt_factor must be non-negative, got %g", c.DisruptFactor)
	case c.MinPhaseDays < 0:
		return model.Configf("", "", "min_phase_days must be non-negative, got %d", c.MinPhaseDays)
	case c.SDLogMult < 0:
		return model.Configf("", "", "sdlog_mult must be non-negative, got %g", c.SDLogMult)
	case c.PhaseSDFrac < 0:
		return model.Configf("", "", "phase_sd_frac must be non-negative, got %g", c.PhaseSDFrac)
	case c.Workers < 0:
		return model.Configf("", "", "workers must be non-negative, got %d", c.Workers)
	}
	return nil
}
