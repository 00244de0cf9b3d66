// Package runner ties input loading, the engines and the output sinks together
// for the CLI and the MCP server.
package runner

import (
	"errors"
	"fmt"
	"path/filepath"

	"co2-mcs/internal/model"
	"co2-mcs/internal/tables"
)

// Sources names where inputs come from. A bundle supplies every table; CSV
// paths override the corresponding bundle table when both are set.
type Sources struct {
	Bundle  string `json:"bundle_path,omitempty"`
	Params  string `json:"params_path,omitempty"`
	Factors string `json:"factors_path,omitempty"`
	Phases  string `json:"phases_path,omitempty"`
}

// Inputs are the raw tables of one run.
type Inputs struct {
	Parameters      []model.ScenarioParameter
	EmissionFactors []model.EmissionFactor
	Phases          []model.Phase
	Source          string
}

// Resolve makes relative paths relative to base.
func (s Sources) Resolve(base string) Sources {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) || base == "" {
			return p
		}
		return filepath.Join(base, p)
	}
	return Sources{Bundle: abs(s.Bundle), Params: abs(s.Params), Factors: abs(s.Factors), Phases: abs(s.Phases)}
}

// Load reads every table named by src.
func Load(src Sources) (*Inputs, error) {
	in := &Inputs{}
	if src.Bundle != "" {
		b, err := tables.LoadBundle(src.Bundle)
		if err != nil {
			return nil, err
		}
		in.Parameters = b.ScenarioParameters()
		in.EmissionFactors = b.EmissionFactors
		in.Phases = b.Phases
		in.Source = src.Bundle
	}

	var err error
	if src.Params != "" {
		if in.Parameters, err = tables.ReadFile(src.Params, tables.ReadParameters); err != nil {
			return nil, err
		}
		in.Source = src.Params
	}
	if src.Factors != "" {
		if in.EmissionFactors, err = tables.ReadFile(src.Factors, tables.ReadEmissionFactors); err != nil {
			return nil, err
		}
	}
	if src.Phases != "" {
		if in.Phases, err = tables.ReadFile(src.Phases, tables.ReadPhases); err != nil {
			return nil, err
		}
	}

	if len(in.Parameters) == 0 {
		return nil, errors.New("no scenario parameters: pass a bundle or a parameter table")
	}
	if len(in.EmissionFactors) == 0 {
		return nil, fmt.Errorf("no emission factors in %s: pass a bundle or an emission-factor table", in.Source)
	}
	return in, nil
}

// FromBundle wraps an in-memory bundle.
func FromBundle(b *tables.Bundle, source string) *Inputs {
	return &Inputs{
		Parameters:      b.ScenarioParameters(),
		EmissionFactors: b.EmissionFactors,
		Phases:          b.Phases,
		Source:          source,
	}
}

