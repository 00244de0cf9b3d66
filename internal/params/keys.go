package params

import (
	"strings"

	"co2-mcs/internal/model"
)

// Recognized parameter keys.
const (
	KeyDurationDays  = "duration_days"
	KeyFuelType      = "fuel_type"
	KeyFleetSize     = "fleet_size"
	KeyDutyCycle     = "duty_cycle"
	KeyKmDayMin      = "km_day_min"
	KeyKmDayMax      = "km_day_max"
	KeyHrDayMin      = "hr_day_min"
	KeyHrDayMax      = "hr_day_max"
	KeyFuelEffLPerKm = "fuel_eff_l_per_km"
	KeyFuelEffLPerHr = "fuel_eff_l_per_hr"
	KeyIdleLPerHr    = "idle_l_per_hr"
)

// fleetAliases are the legacy spellings of fleet_size found in published parameter tables.
var fleetAliases = map[string]string{
	"fleet_count": KeyFleetSize,
	"n_vehicles":  KeyFleetSize,
	"n_aircraft":  KeyFleetSize,
	"n_tanks":     KeyFleetSize,
	"n_trucks":    KeyFleetSize,
}

// numericField returns the Param slot of row addressed by a numeric key.
func numericField(row *model.ParameterMatrixRow, key string) *model.Param {
	switch key {
	case KeyFleetSize:
		return &row.FleetSize
	case KeyDutyCycle:
		return &row.DutyCycle
	case KeyKmDayMin:
		return &row.KmDayMin
	case KeyKmDayMax:
		return &row.KmDayMax
	case KeyHrDayMin:
		return &row.HrDayMin
	case KeyHrDayMax:
		return &row.HrDayMax
	case KeyFuelEffLPerKm:
		return &row.FuelEffLPerKm
	case KeyFuelEffLPerHr:
		return &row.FuelEffLPerHr
	case KeyIdleLPerHr:
		return &row.IdleLPerHr
	}
	return nil
}

// CanonicalKey normalizes a parameter name and resolves aliases.
// The boolean is false when the key is not part of the recognized schema.
func CanonicalKey(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := fleetAliases[key]; ok {
		return alias, true
	}
	switch key {
	case KeyDurationDays, KeyFuelType:
		return key, true
	}
	if numericField(&model.ParameterMatrixRow{}, key) != nil {
		return key, true
	}
	return key, false
}

// canonicalClass normalizes a class label.
func canonicalClass(c model.Class) (model.Class, bool) {
	k := model.Class(strings.ToLower(strings.TrimSpace(string(c))))
	if k == model.Global || k.Rank() < len(model.Classes) {
		return k, true
	}
	return k, false
}

// NormalizeFuel canonicalizes a fuel-type label for emission-factor lookup.
func NormalizeFuel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
