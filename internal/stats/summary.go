package stats

import (
	"sort"

	"co2-mcs/internal/model"
)

// Summaries is the reduced view of a draw ensemble.
type Summaries struct {
	ByDay      []model.Summary   `json:"by_day"`
	Totals     []model.Summary   `json:"totals"`
	DrawTotals []model.DrawTotal `json:"draw_totals"`
}

type dayKey struct {
	scenario string
	day      int
	draw     int
}

type drawKey struct {
	scenario string
	draw     int
}

// Summarize reduces per-draw daily records to percentile summaries.
//
// ByDay groups by (scenario, day): classes are summed within each draw, then the
// median, p5 and p95 are taken across draws. Totals sums each draw over days and
// classes (exposed as DrawTotals) before taking the same percentiles per scenario.
// Sums accumulate in input order, so a caller iterating the same records in the
// same order reproduces DrawTotals exactly.
func Summarize(records []model.DailyEmissionRecord) Summaries {
	daily := make(map[dayKey]float64)
	totals := make(map[drawKey]float64)
	for _, r := range records {
		daily[dayKey{r.Scenario, r.Day, r.Draw}] += r.EmissionsKgCO2
		totals[drawKey{r.Scenario, r.Draw}] += r.EmissionsKgCO2
	}

	type scenarioDay struct {
		scenario string
		day      int
	}
	perDay := make(map[scenarioDay][]float64)
	for k, v := range daily {
		sd := scenarioDay{k.scenario, k.day}
		perDay[sd] = append(perDay[sd], v)
	}

	var out Summaries
	for k, vals := range perDay {
		p := Describe(vals)
		out.ByDay = append(out.ByDay, model.Summary{Scenario: k.scenario, Day: k.day, Median: p.Median, P5: p.P5, P95: p.P95})
	}
	sort.Slice(out.ByDay, func(i, j int) bool {
		if out.ByDay[i].Scenario != out.ByDay[j].Scenario {
			return out.ByDay[i].Scenario < out.ByDay[j].Scenario
		}
		return out.ByDay[i].Day < out.ByDay[j].Day
	})

	perScenario := make(map[string][]float64)
	for k, v := range totals {
		out.DrawTotals = append(out.DrawTotals, model.DrawTotal{Scenario: k.scenario, Draw: k.draw, TotalKgCO2: v})
		perScenario[k.scenario] = append(perScenario[k.scenario], v)
	}
	sort.Slice(out.DrawTotals, func(i, j int) bool {
		if out.DrawTotals[i].Scenario != out.DrawTotals[j].Scenario {
			return out.DrawTotals[i].Scenario < out.DrawTotals[j].Scenario
		}
		return out.DrawTotals[i].Draw < out.DrawTotals[j].Draw
	})

	for scenario, vals := range perScenario {
		p := Describe(vals)
		out.Totals = append(out.Totals, model.Summary{Scenario: scenario, Median: p.Median, P5: p.P5, P95: p.P95})
	}
	sort.Slice(out.Totals, func(i, j int) bool {
		return out.Totals[i].Scenario < out.Totals[j].Scenario
	})

	return out
}
