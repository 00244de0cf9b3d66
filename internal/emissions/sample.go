package emissions

import (
	"math"
	"math/rand/v2"

	"co2-mcs/internal/config"
	"co2-mcs/internal/model"
	"co2-mcs/internal/sampling"
)

// Sample draws one realization of the uncertain inputs of row, in a fixed order:
// fleet, emission factor, then the class's activity and efficiency.
func Sample(src rand.Source, row model.ParameterMatrixRow, cfg config.SimulationConfig) SampledValues {
	var sv SampledValues

	sv.FleetSize = sampling.BoundedUniform(src, row.FleetSize.Or(DefaultFleetSize), cfg.FleetVarPct)

	ef := row.EmissionFactor
	sv.EmissionFactor, sv.RejectionExhausted = sampling.TruncatedNormal(src,
		ef, ef*cfg.EFSDFrac, ef*(1-cfg.EFTruncFrac), ef*(1+cfg.EFTruncFrac))

	if row.Class.IsDurationBased() {
		sv.HoursPerDay = sampleRange(src, row.HrDayMin, row.HrDayMax, cfg.BroadenPct, &sv.Degenerate)
		sv.FuelRateLPerHr = sampleEfficiency(src, row.FuelEffLPerHr, cfg.BroadenPct, &sv.Degenerate)
	} else {
		sv.KmPerDay = sampleRange(src, row.KmDayMin, row.KmDayMax, cfg.BroadenPct, &sv.Degenerate)
		sv.FuelEffLPerKm = sampleEfficiency(src, row.FuelEffLPerKm, cfg.BroadenPct, &sv.Degenerate)
	}
	return sv
}

// Nominal returns the central values used by the deterministic engine:
// range midpoints, nominal efficiencies and the unperturbed emission factor.
func Nominal(row model.ParameterMatrixRow) SampledValues {
	sv := SampledValues{
		FleetSize:      row.FleetSize.Or(DefaultFleetSize),
		EmissionFactor: row.EmissionFactor,
	}
	if row.Class.IsDurationBased() {
		sv.HoursPerDay = midpoint(row.HrDayMin, row.HrDayMax)
		sv.FuelRateLPerHr = nominalEfficiency(row.FuelEffLPerHr)
	} else {
		sv.KmPerDay = midpoint(row.KmDayMin, row.KmDayMax)
		sv.FuelEffLPerKm = nominalEfficiency(row.FuelEffLPerKm)
	}
	return sv
}

// Deterministic computes the nominal daily emissions of every row (Draw = 0).
// Empty rows produce nothing.
func Deterministic(rows []model.ParameterMatrixRow) []model.DailyEmissionRecord {
	var out []model.DailyEmissionRecord
	for _, row := range rows {
		if row.Empty() {
			continue
		}
		out = append(out, ComputeDaily(row, Nominal(row), nil, 0)...)
	}
	return out
}

// sampleRange draws an activity level (km or hours per day) from a triangular
// distribution over the broadened [min, max]. The mode is the midpoint of the
// range as supplied, before broadening.
// A range with neither end supplied is absent, not degenerate.
func sampleRange(src rand.Source, lo, hi model.Param, broaden float64, degenerate *int) float64 {
	if !lo.HasValue && !hi.HasValue {
		return 0
	}
	a, b := undefined(lo), undefined(hi)
	mode := (a + b) / 2
	a, b = sampling.Broaden(a, b, broaden)
	v, ok := sampling.Triangular(src, a, b, mode)
	if !ok {
		*degenerate++
	}
	return v
}

// sampleEfficiency draws a fuel-efficiency coefficient from a triangular distribution
// over its broadened literature bounds, using the nominal value as mode.
// Without bounds the nominal value is used as-is.
func sampleEfficiency(src rand.Source, p model.Param, broaden float64, degenerate *int) float64 {
	if !p.Bounded() {
		return p.Or(0)
	}
	a, b := sampling.Broaden(p.Low, p.High, broaden)
	mode := math.NaN()
	if p.HasValue {
		mode = p.Value
	}
	v, ok := sampling.Triangular(src, a, b, mode)
	if !ok {
		*degenerate++
	}
	return v
}

func midpoint(lo, hi model.Param) float64 {
	if !lo.HasValue || !hi.HasValue || hi.Value < lo.Value {
		return 0
	}
	return (lo.Value + hi.Value) / 2
}

func nominalEfficiency(p model.Param) float64 {
	switch {
	case p.HasValue:
		return p.Value
	case p.Bounded() && p.High >= p.Low:
		return (p.Low + p.High) / 2
	}
	return 0
}

func undefined(p model.Param) float64 {
	if p.HasValue {
		return p.Value
	}
	return math.NaN()
}
