// Package engine generates synthetic scenario bundles for demos and tests.
package engine

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"co2-mcs/internal/model"
	"co2-mcs/internal/tables"
)

// Presets lists the supported scenario families.
var Presets = []string{"skirmish", "siege", "air"}

type GeneratorConfig struct {
	Preset    string
	Scenarios int
	Seed      uint64
}

// classProfile holds the nominal activity of one vehicle class.
type classProfile struct {
	class    model.Class
	fleet    [2]int
	duty     float64
	activity [2]float64 // km/day or hr/day
	eff      float64    // l/km or l/hr
	idle     float64
	fuel     string
}

type preset struct {
	days    [2]int
	classes []classProfile
	phases  []phaseProfile
}

type phaseProfile struct {
	share float64
	mult  map[model.Class]float64
}

var presets = map[string]preset{
	"skirmish": {
		days: [2]int{7, 14},
		classes: []classProfile{
			{class: model.Truck, fleet: [2]int{10, 40}, duty: 0.9, activity: [2]float64{20, 80}, eff: 0.38, idle: 2, fuel: "diesel"},
			{class: model.Tank, fleet: [2]int{4, 14}, duty: 0.6, activity: [2]float64{10, 40}, eff: 4.5, idle: 12, fuel: "diesel"},
		},
		phases: []phaseProfile{
			{share: 0.4, mult: map[model.Class]float64{model.Truck: 1.2, model.Tank: 1.5}},
			{share: 0.6, mult: map[model.Class]float64{model.Truck: 0.9, model.Tank: 0.7}},
		},
	},
	"siege": {
		days: [2]int{60, 120},
		classes: []classProfile{
			{class: model.Truck, fleet: [2]int{80, 250}, duty: 0.8, activity: [2]float64{40, 150}, eff: 0.42, idle: 2, fuel: "diesel"},
			{class: model.Tank, fleet: [2]int{20, 60}, duty: 0.3, activity: [2]float64{5, 25}, eff: 4.8, idle: 15, fuel: "diesel"},
		},
		phases: []phaseProfile{
			{share: 0.2, mult: map[model.Class]float64{model.Truck: 1.4, model.Tank: 1.6}},
			{share: 0.6, mult: map[model.Class]float64{model.Truck: 1.0, model.Tank: 0.6}},
			{share: 0.2, mult: map[model.Class]float64{model.Truck: 1.2, model.Tank: 1.3}},
		},
	},
	"air": {
		days: [2]int{20, 45},
		classes: []classProfile{
			{class: model.Aircraft, fleet: [2]int{6, 24}, duty: 0.7, activity: [2]float64{2, 6}, eff: 2600, fuel: "jp-8"},
			{class: model.Truck, fleet: [2]int{20, 60}, duty: 0.9, activity: [2]float64{30, 90}, eff: 0.4, idle: 2, fuel: "diesel"},
		},
		phases: []phaseProfile{
			{share: 0.25, mult: map[model.Class]float64{model.Aircraft: 1.8, model.Truck: 1.1}},
			{share: 0.5, mult: map[model.Class]float64{model.Aircraft: 1.0, model.Truck: 1.0}},
			{share: 0.25, mult: map[model.Class]float64{model.Aircraft: 0.5, model.Truck: 0.8}},
		},
	},
}

var emissionFactors = []model.EmissionFactor{
	{FuelType: "diesel", CO2PerUnit: 2.63},
	{FuelType: "jp-8", CO2PerUnit: 2.52},
}

// Generate builds a bundle of cfg.Scenarios scenarios drawn from the preset.
func Generate(cfg GeneratorConfig) (*tables.Bundle, error) {
	p, ok := presets[cfg.Preset]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (want one of %v)", cfg.Preset, Presets)
	}
	if cfg.Scenarios <= 0 {
		cfg.Scenarios = 1
	}
	r := rand.New(rand.NewPCG(cfg.Seed, 0x6d6f636b67656e))

	b := &tables.Bundle{
		Name:            cfg.Preset,
		Description:     fmt.Sprintf("synthetic %s scenarios (seed %d)", cfg.Preset, cfg.Seed),
		EmissionFactors: emissionFactors,
	}
	for i := 1; i <= cfg.Scenarios; i++ {
		name := fmt.Sprintf("%s-%02d", cfg.Preset, i)
		days := p.days[0] + r.IntN(p.days[1]-p.days[0]+1)
		b.Parameters = append(b.Parameters, param(name, model.Global, "duration_days", days, nil, nil))

		for _, c := range p.classes {
			b.Parameters = append(b.Parameters, classParameters(r, name, c)...)
		}
		for j, ph := range p.phases {
			b.Phases = append(b.Phases, model.Phase{
				Scenario:    name,
				Index:       j + 1,
				Share:       ph.share,
				Multipliers: ph.mult,
			})
		}
	}
	return b, nil
}

func classParameters(r *rand.Rand, scenario string, c classProfile) []tables.BundleParameter {
	fleet := c.fleet[0] + r.IntN(c.fleet[1]-c.fleet[0]+1)
	// Jitter the activity band so scenarios in one bundle differ.
	lo := round2(c.activity[0] * (0.8 + 0.4*r.Float64()))
	hi := round2(max(c.activity[1]*(0.8+0.4*r.Float64()), lo+1))
	eff := round2(c.eff * (0.9 + 0.2*r.Float64()))

	out := []tables.BundleParameter{
		param(scenario, c.class, "fleet_size", fleet, nil, nil),
		param(scenario, c.class, "duty_cycle", c.duty, nil, nil),
		param(scenario, c.class, "fuel_type", c.fuel, nil, nil),
	}
	if c.class.IsDurationBased() {
		out = append(out,
			param(scenario, c.class, "hr_day_min", lo, nil, nil),
			param(scenario, c.class, "hr_day_max", hi, nil, nil),
			param(scenario, c.class, "fuel_eff_l_per_hr", eff, round2(eff*0.75), round2(eff*1.25)),
		)
	} else {
		out = append(out,
			param(scenario, c.class, "km_day_min", lo, nil, nil),
			param(scenario, c.class, "km_day_max", hi, nil, nil),
			param(scenario, c.class, "fuel_eff_l_per_km", eff, round2(eff*0.7), round2(eff*1.5)),
		)
	}
	if c.idle > 0 {
		out = append(out, param(scenario, c.class, "idle_l_per_hr", c.idle, nil, nil))
	}
	return out
}

func param(scenario string, class model.Class, name string, value, low, high any) tables.BundleParameter {
	return tables.BundleParameter{
		Scenario: scenario,
		Class:    string(class),
		Param:    name,
		Value:    value,
		Low:      low,
		High:     high,
	}
}

func round2(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return f
}

// Save writes the bundle as <outDir>/<name>.yaml and returns the path.
func Save(outDir, name string, b *tables.Bundle) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	data, err := b.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding bundle: %w", err)
	}
	path := filepath.Join(outDir, name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
