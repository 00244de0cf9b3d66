package model

// Class is a vehicle or logistics category with its own activity and fuel model.
type Class string

const (
	// Truck is a distance-based wheeled vehicle class.
	Truck Class = "truck"
	// Tank is a distance-based tracked vehicle class.
	Tank Class = "tank"
	// Aircraft is a duration-based class (fuel burned per flight hour).
	Aircraft Class = "aircraft"
	// Global carries scenario-wide parameters such as duration_days.
	Global Class = "global"
)

// Classes lists the vehicle classes in canonical output order.
var Classes = []Class{Truck, Tank, Aircraft}

// Rank returns the canonical sort position of a class, or len(Classes) if unknown.
func (c Class) Rank() int {
	for i, k := range Classes {
		if k == c {
			return i
		}
	}
	return len(Classes)
}

// IsDurationBased reports whether fuel for the class is driven by operating hours rather than distance.
func (c Class) IsDurationBased() bool {
	return c == Aircraft
}

// ScenarioParameter is one long-format input row.
// Value, Low and High are kept as strings; numeric coercion happens in the builder.
type ScenarioParameter struct {
	Scenario string `json:"scenario" yaml:"scenario"`
	Class    Class  `json:"class" yaml:"class"`
	Param    string `json:"param" yaml:"param"`
	Value    string `json:"value" yaml:"value"`
	Low      string `json:"low,omitempty" yaml:"low,omitempty"`
	High     string `json:"high,omitempty" yaml:"high,omitempty"`
}

// EmissionFactor maps a fuel type to its CO2 coefficient (kg CO2 per litre or per kg).
type EmissionFactor struct {
	FuelType   string  `json:"fuel_type" yaml:"fuel_type"`
	CO2PerUnit float64 `json:"co2_per_unit" yaml:"co2_per_unit"`
}

// Param is a numeric parameter with optional literature bounds.
// A field that failed numeric coercion or was never supplied stays unset;
// consumers decide the semantic default.
type Param struct {
	Value    float64 `json:"value"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	HasValue bool    `json:"has_value"`
	HasLow   bool    `json:"has_low"`
	HasHigh  bool    `json:"has_high"`
}

// Or returns the value when present, otherwise def.
func (p Param) Or(def float64) float64 {
	if p.HasValue {
		return p.Value
	}
	return def
}

// Bounded reports whether both bounds are present.
func (p Param) Bounded() bool {
	return p.HasLow && p.HasHigh
}

// ParameterMatrixRow is the wide per-(scenario, class) record consumed by the emissions engine.
type ParameterMatrixRow struct {
	Scenario       string  `json:"scenario"`
	Class          Class   `json:"class"`
	DutyCycle      Param   `json:"duty_cycle"`
	FleetSize      Param   `json:"fleet_size"`
	KmDayMin       Param   `json:"km_day_min"`
	KmDayMax       Param   `json:"km_day_max"`
	HrDayMin       Param   `json:"hr_day_min"`
	HrDayMax       Param   `json:"hr_day_max"`
	FuelEffLPerKm  Param   `json:"fuel_eff_l_per_km"`
	FuelEffLPerHr  Param   `json:"fuel_eff_l_per_hr"`
	IdleLPerHr     Param   `json:"idle_l_per_hr"`
	FuelType       string  `json:"fuel_type"`
	EmissionFactor float64 `json:"emission_factor"`
	DurationDays   int     `json:"duration_days"`
}

// Empty reports whether the row stands in for a scenario that declared
// duration_days but no vehicle classes. Such a row carries no activity.
func (r ParameterMatrixRow) Empty() bool {
	return r.Class == Global
}

// DailyEmissionRecord is the fundamental output unit. Draw is 0 for deterministic output.
type DailyEmissionRecord struct {
	Scenario       string  `json:"scenario"`
	Class          Class   `json:"class"`
	Day            int     `json:"day"`
	Draw           int     `json:"draw,omitempty"`
	EmissionsKgCO2 float64 `json:"emissions_kgco2"`
}

// Phase is one contiguous sub-interval of a campaign with its own tempo multipliers.
// Exactly one of Share or MeanDays is used per scenario.
type Phase struct {
	Scenario    string            `json:"scenario" yaml:"scenario"`
	Index       int               `json:"phase" yaml:"phase"`
	Share       float64           `json:"share_nominal,omitempty" yaml:"share_nominal,omitempty"`
	MeanDays    float64           `json:"mean_duration_days,omitempty" yaml:"mean_duration_days,omitempty"`
	SDDays      float64           `json:"sd_duration_days,omitempty" yaml:"sd_duration_days,omitempty"`
	Multipliers map[Class]float64 `json:"multipliers,omitempty" yaml:"multipliers,omitempty"`
}

// PhaseLengthDraw is the sampled length of one phase in one draw.
type PhaseLengthDraw struct {
	Scenario string `json:"scenario"`
	Draw     int    `json:"draw"`
	Phase    int    `json:"phase"`
	Days     int    `json:"days"`
}

// Summary holds percentile statistics across draws. Day is 0 at the scenario-total grain.
type Summary struct {
	Scenario string  `json:"scenario"`
	Day      int     `json:"day,omitempty"`
	Median   float64 `json:"med"`
	P5       float64 `json:"p5"`
	P95      float64 `json:"p95"`
}

// DrawTotal is the scenario total of a single draw, summed over days and classes.
type DrawTotal struct {
	Scenario   string  `json:"scenario"`
	Draw       int     `json:"draw"`
	TotalKgCO2 float64 `json:"total"`
}
