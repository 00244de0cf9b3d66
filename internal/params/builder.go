// Package params pivots long-format scenario parameter tables into the wide
// per-(scenario, class) matrix consumed by the emissions engine.
package params

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"co2-mcs/internal/model"
)

type rowKey struct {
	scenario string
	class    model.Class
}

// Build validates the parameter and emission-factor tables and returns one
// ParameterMatrixRow per (scenario, class), ordered by scenario then class.
//
// A scenario that declares duration_days but no class rows is returned as a
// single Global row (see ParameterMatrixRow.Empty) so the engines can report it
// as skipped. Its duration is not validated.
//
// Every configuration problem found is reported in a single joined error and
// no rows are returned: a missing emission factor must never zero a class silently.
func Build(params []model.ScenarioParameter, efs []model.EmissionFactor) ([]model.ParameterMatrixRow, error) {
	var errs []error

	factors, err := factorTable(efs)
	if err != nil {
		errs = append(errs, err)
	}

	durations := make(map[string]string)
	fuels := make(map[rowKey]string)
	rows := make(map[rowKey]*model.ParameterMatrixRow)
	seen := make(map[string]bool)

	for _, p := range params {
		scenario := strings.TrimSpace(p.Scenario)
		class, ok := canonicalClass(p.Class)
		if !ok {
			errs = append(errs, model.Configf(scenario, p.Class, "unknown class"))
			continue
		}
		key, ok := CanonicalKey(p.Param)
		if !ok {
			errs = append(errs, model.Configf(scenario, class, "unrecognized parameter %q", p.Param))
			continue
		}

		identity := scenario + "|" + string(class) + "|" + key
		if seen[identity] {
			errs = append(errs, model.Configf(scenario, class, "duplicate parameter %q", key))
			continue
		}
		seen[identity] = true

		switch {
		case key == KeyDurationDays:
			if class != model.Global {
				errs = append(errs, model.Configf(scenario, class, "duration_days must be set on class %q", model.Global))
				continue
			}
			durations[scenario] = p.Value
		case class == model.Global:
			errs = append(errs, model.Configf(scenario, class, "parameter %q is not valid on the global class", key))
		case key == KeyFuelType:
			fuels[rowKey{scenario, class}] = p.Value
			ensureRow(rows, scenario, class)
		default:
			row := ensureRow(rows, scenario, class)
			*numericField(row, key) = parseParam(p)
		}
	}

	keys := make([]rowKey, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].scenario != keys[j].scenario {
			return keys[i].scenario < keys[j].scenario
		}
		return keys[i].class.Rank() < keys[j].class.Rank()
	})

	checked := make(map[string]int)
	out := make([]model.ParameterMatrixRow, 0, len(keys))
	for _, k := range keys {
		row := rows[k]

		days, ok := checked[k.scenario]
		if !ok {
			var err error
			days, err = parseDuration(k.scenario, durations)
			if err != nil {
				errs = append(errs, err)
				days = -1
			}
			checked[k.scenario] = days
		}
		row.DurationDays = days

		fuel, ok := fuels[k]
		if !ok || strings.TrimSpace(fuel) == "" {
			errs = append(errs, model.Configf(k.scenario, k.class, "missing fuel_type"))
		} else {
			row.FuelType = NormalizeFuel(fuel)
			ef, ok := factors[row.FuelType]
			if !ok {
				errs = append(errs, model.Configf(k.scenario, k.class, "missing EF for fuel_type %q", row.FuelType))
			}
			row.EmissionFactor = ef
		}
		out = append(out, *row)
	}

	for scenario := range durations {
		if _, ok := checked[scenario]; ok {
			continue
		}
		days, _ := parseDuration(scenario, durations)
		out = append(out, model.ParameterMatrixRow{Scenario: scenario, Class: model.Global, DurationDays: days})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Scenario < out[j].Scenario })

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// EmptyScenarios returns the scenarios of rows that have no class rows, sorted.
func EmptyScenarios(rows []model.ParameterMatrixRow) []string {
	var out []string
	for _, r := range rows {
		if r.Empty() {
			out = append(out, r.Scenario)
		}
	}
	return out
}

// Durations returns the validated duration_days per scenario referenced by rows.
func Durations(rows []model.ParameterMatrixRow) map[string]int {
	out := make(map[string]int)
	for _, r := range rows {
		out[r.Scenario] = r.DurationDays
	}
	return out
}

func ensureRow(rows map[rowKey]*model.ParameterMatrixRow, scenario string, class model.Class) *model.ParameterMatrixRow {
	k := rowKey{scenario, class}
	if r, ok := rows[k]; ok {
		return r
	}
	r := &model.ParameterMatrixRow{Scenario: scenario, Class: class}
	rows[k] = r
	return r
}

func factorTable(efs []model.EmissionFactor) (map[string]float64, error) {
	out := make(map[string]float64, len(efs))
	var errs []error
	for _, ef := range efs {
		fuel := NormalizeFuel(ef.FuelType)
		if !(ef.CO2PerUnit > 0) {
			errs = append(errs, model.Configf("", "", "emission factor for %q must be positive, got %g", fuel, ef.CO2PerUnit))
			continue
		}
		if _, dup := out[fuel]; dup {
			errs = append(errs, model.Configf("", "", "duplicate emission factor for %q", fuel))
			continue
		}
		out[fuel] = ef.CO2PerUnit
	}
	return out, errors.Join(errs...)
}

func parseDuration(scenario string, durations map[string]string) (int, error) {
	raw, ok := durations[scenario]
	if !ok {
		return 0, model.Configf(scenario, model.Global, "missing duration_days")
	}
	f, ok := parseNumber(raw)
	if !ok || f != math.Trunc(f) {
		return 0, model.Configf(scenario, model.Global, "duration_days %q is not an integer", raw)
	}
	if f <= 0 {
		return 0, model.Configf(scenario, model.Global, "duration_days must be positive, got %q", raw)
	}
	return int(f), nil
}

func parseParam(p model.ScenarioParameter) model.Param {
	var out model.Param
	out.Value, out.HasValue = parseNumber(p.Value)
	out.Low, out.HasLow = parseNumber(p.Low)
	out.High, out.HasHigh = parseNumber(p.High)
	return out
}

// parseNumber coerces a table cell. Blank, NA-style and non-finite cells are missing.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
