// Package phasing re-samples campaign tempo on top of baseline daily emissions:
// every draw splits the campaign into phases of random length and scales each
// day by a lognormal intensity multiplier for its phase and class.
package phasing

import (
	"errors"
	"math"
	"sort"

	"co2-mcs/internal/config"
	"co2-mcs/internal/model"
)

// ShareTolerance bounds |Σshare − 1| for share-based scenarios.
const ShareTolerance = 1e-6

// DefaultMultiplier applies to a class with no multiplier on a phase.
const DefaultMultiplier = 1.0

// Plan is the validated phase layout of one scenario.
type Plan struct {
	Scenario string
	Total    int
	Phases   []model.Phase
	Nominal  []float64
	SD       []float64
}

type specKind int

const (
	kindUnset specKind = iota
	kindShare
	kindMean
)

// Validate checks every phase definition against the scenario durations and
// reports all problems at once as joined ConfigurationErrors.
func Validate(phases []model.Phase, durations map[string]int, minDays int) error {
	var errs []error
	for scenario, ps := range groupPhases(phases) {
		errs = append(errs, validateScenario(scenario, ps, durations, minDays)...)
	}
	return errors.Join(errs...)
}

func validateScenario(scenario string, ps []model.Phase, durations map[string]int, minDays int) []error {
	var errs []error
	total, ok := durations[scenario]
	switch {
	case !ok:
		errs = append(errs, model.Configf(scenario, "", "phases defined but no duration_days"))
	case total <= 0:
		errs = append(errs, model.Configf(scenario, "", "duration_days must be positive, got %d", total))
	case minDays*len(ps) > total:
		errs = append(errs, model.Configf(scenario, "", "%d phases × min_phase_days %d exceed duration_days %d", len(ps), minDays, total))
	}

	kind := kindUnset
	shareSum := 0.0
	seen := make(map[int]bool, len(ps))
	for _, p := range ps {
		if seen[p.Index] {
			errs = append(errs, model.Configf(scenario, "", "duplicate phase %d", p.Index))
		}
		seen[p.Index] = true

		var k specKind
		switch {
		case p.Share > 0 && p.MeanDays > 0:
			errs = append(errs, model.Configf(scenario, "", "phase %d sets both share_nominal and mean_duration_days", p.Index))
			continue
		case p.Share > 0:
			k = kindShare
			shareSum += p.Share
		case p.MeanDays > 0:
			k = kindMean
		default:
			errs = append(errs, model.Configf(scenario, "", "phase %d needs a positive share_nominal or mean_duration_days", p.Index))
			continue
		}
		if kind == kindUnset {
			kind = k
		} else if kind != k {
			errs = append(errs, model.Configf(scenario, "", "phase %d mixes share-based and duration-based phases", p.Index))
		}

		if p.SDDays < 0 || math.IsNaN(p.SDDays) {
			errs = append(errs, model.Configf(scenario, "", "phase %d sd_duration_days must be non-negative", p.Index))
		}
		for _, c := range sortedClasses(p.Multipliers) {
			if m := p.Multipliers[c]; !(m > 0) {
				errs = append(errs, model.Configf(scenario, c, "phase %d multiplier must be positive, got %g", p.Index, m))
			}
		}
	}

	if kind == kindShare && math.Abs(shareSum-1) > ShareTolerance {
		errs = append(errs, model.Configf(scenario, "", "phase shares sum to %g, want 1", shareSum))
	}
	return errs
}

// BuildPlans validates phases and resolves nominal lengths and standard deviations.
// Nominal days are share × duration or the mean duration. A missing sd defaults
// to PhaseSDFrac × nominal.
func BuildPlans(phases []model.Phase, durations map[string]int, cfg config.SimulationConfig) ([]Plan, error) {
	if err := Validate(phases, durations, cfg.MinPhaseDays); err != nil {
		return nil, err
	}

	groups := groupPhases(phases)
	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)

	plans := make([]Plan, 0, len(names))
	for _, n := range names {
		ps := groups[n]
		total := durations[n]
		plan := Plan{Scenario: n, Total: total, Phases: ps}
		for _, p := range ps {
			nominal := p.MeanDays
			if p.Share > 0 {
				nominal = p.Share * float64(total)
			}
			sd := p.SDDays
			if sd == 0 {
				sd = cfg.PhaseSDFrac * nominal
			}
			plan.Nominal = append(plan.Nominal, nominal)
			plan.SD = append(plan.SD, sd)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// Multiplier returns the phase's intensity multiplier for class.
func Multiplier(p model.Phase, c model.Class) float64 {
	if m, ok := p.Multipliers[c]; ok {
		return m
	}
	return DefaultMultiplier
}

func groupPhases(phases []model.Phase) map[string][]model.Phase {
	out := make(map[string][]model.Phase)
	for _, p := range phases {
		out[p.Scenario] = append(out[p.Scenario], p)
	}
	for _, ps := range out {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Index < ps[j].Index })
	}
	return out
}

func sortedClasses(m map[model.Class]float64) []model.Class {
	out := make([]model.Class, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}
