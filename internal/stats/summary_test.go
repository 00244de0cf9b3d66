package stats

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2-mcs/internal/model"
)

func TestSummarize_SmallEnsemble(t *testing.T) {
	records := []model.DailyEmissionRecord{
		{Scenario: "A", Class: model.Truck, Day: 1, Draw: 1, EmissionsKgCO2: 10},
		{Scenario: "A", Class: model.Tank, Day: 1, Draw: 1, EmissionsKgCO2: 5},
		{Scenario: "A", Class: model.Truck, Day: 2, Draw: 1, EmissionsKgCO2: 10},
		{Scenario: "A", Class: model.Truck, Day: 1, Draw: 2, EmissionsKgCO2: 20},
		{Scenario: "A", Class: model.Tank, Day: 1, Draw: 2, EmissionsKgCO2: 5},
		{Scenario: "A", Class: model.Truck, Day: 2, Draw: 2, EmissionsKgCO2: 0},
		{Scenario: "B", Class: model.Aircraft, Day: 1, Draw: 1, EmissionsKgCO2: 7},
	}

	s := Summarize(records)

	require.Len(t, s.ByDay, 3)
	assert.Equal(t, model.Summary{Scenario: "A", Day: 1, Median: 20, P5: 15.5, P95: 24.5}, s.ByDay[0])
	assert.Equal(t, "A", s.ByDay[1].Scenario)
	assert.Equal(t, 2, s.ByDay[1].Day)
	assert.Equal(t, "B", s.ByDay[2].Scenario)

	require.Len(t, s.DrawTotals, 3)
	assert.Equal(t, model.DrawTotal{Scenario: "A", Draw: 1, TotalKgCO2: 25}, s.DrawTotals[0])
	assert.Equal(t, model.DrawTotal{Scenario: "A", Draw: 2, TotalKgCO2: 25}, s.DrawTotals[1])
	assert.Equal(t, model.DrawTotal{Scenario: "B", Draw: 1, TotalKgCO2: 7}, s.DrawTotals[2])

	require.Len(t, s.Totals, 2)
	assert.Equal(t, model.Summary{Scenario: "A", Median: 25, P5: 25, P95: 25}, s.Totals[0])
}

func TestSummarize_PercentileOrdering(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	var records []model.DailyEmissionRecord
	for draw := 1; draw <= 400; draw++ {
		for day := 1; day <= 5; day++ {
			for _, c := range model.Classes {
				records = append(records, model.DailyEmissionRecord{
					Scenario: "S", Class: c, Day: day, Draw: draw, EmissionsKgCO2: r.ExpFloat64() * 1000,
				})
			}
		}
	}

	s := Summarize(records)
	for _, sm := range append(s.ByDay, s.Totals...) {
		assert.LessOrEqual(t, sm.P5, sm.Median)
		assert.LessOrEqual(t, sm.Median, sm.P95)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Empty(t, s.ByDay)
	assert.Empty(t, s.Totals)
	assert.Empty(t, s.DrawTotals)
}
