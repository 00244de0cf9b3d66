// Package emissions converts one parameter-matrix row and one set of sampled
// values into daily fuel use and CO2 emissions.
package emissions

import (
	"math"

	"co2-mcs/internal/model"
)

// Semantic defaults applied when a numeric field is missing from the parameter table.
// Missing values never reach the output as NaN.
const (
	DefaultFleetSize  = 0.0
	DefaultDutyCycle  = 1.0
	DefaultIdleLPerHr = 0.0
)

// SampledValues is one realization of the uncertain inputs for a (scenario, class, draw).
// Every field is held constant across the scenario's days.
type SampledValues struct {
	FleetSize      float64 `json:"fleet_size"`
	EmissionFactor float64 `json:"emission_factor"`
	KmPerDay       float64 `json:"km_per_day"`
	FuelEffLPerKm  float64 `json:"fuel_eff_l_per_km"`
	HoursPerDay    float64 `json:"hours_per_day"`
	FuelRateLPerHr float64 `json:"fuel_rate_l_per_hr"`

	Degenerate         int  `json:"degenerate,omitempty"`
	RejectionExhausted bool `json:"rejection_exhausted,omitempty"`
}

// DailyFuelLitres applies the activity model selected by the row's class.
//
// Duration-based (aircraft):
//
//	fuel = fleet × duty × hours × l_per_hr
//
// Distance-based (truck, tank):
//
//	fuel = fleet × (duty × km × l_per_km + idle_hours × idle_l_per_hr)
//
// idle_hours is 1 when an idle rate is defined and positive, otherwise 0.
func DailyFuelLitres(row model.ParameterMatrixRow, sv SampledValues) float64 {
	duty := row.DutyCycle.Or(DefaultDutyCycle)

	var fuel float64
	if row.Class.IsDurationBased() {
		fuel = sv.FleetSize * duty * sv.HoursPerDay * sv.FuelRateLPerHr
	} else {
		idle := row.IdleLPerHr.Or(DefaultIdleLPerHr)
		idleHours := 0.0
		if idle > 0 {
			idleHours = 1
		}
		fuel = sv.FleetSize * (duty*sv.KmPerDay*sv.FuelEffLPerKm + idleHours*idle)
	}
	return nonNegative(fuel)
}

// ComputeDaily returns one record per day of the scenario for a single class.
// disruption holds per-day tempo multipliers; nil or short series default to 1.
func ComputeDaily(row model.ParameterMatrixRow, sv SampledValues, disruption []float64, draw int) []model.DailyEmissionRecord {
	if row.DurationDays <= 0 {
		return nil
	}

	base := DailyFuelLitres(row, sv) * nonNegative(sv.EmissionFactor)
	out := make([]model.DailyEmissionRecord, row.DurationDays)
	for d := range out {
		mult := 1.0
		if d < len(disruption) {
			mult = nonNegative(disruption[d])
		}
		out[d] = model.DailyEmissionRecord{
			Scenario:       row.Scenario,
			Class:          row.Class,
			Day:            d + 1,
			Draw:           draw,
			EmissionsKgCO2: base * mult,
		}
	}
	return out
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
