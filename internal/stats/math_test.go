package stats

import (
	"math"
	"testing"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		p        float64
		expected float64
	}{
		{"SingleItem", []float64{5.5}, 0.95, 5.5},
		{"Median odd", []float64{1, 3, 2, 4, 5}, 0.5, 3},
		{"Median even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"P5 interpolates", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.05, 1.45},
		{"P95 interpolates", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.95, 9.55},
		{"Min", []float64{10, 2, 8}, 0, 2},
		{"Max", []float64{10, 2, 8}, 1, 10},
		{"Clamped above one", []float64{10, 2, 8}, 1.5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quantile(tt.values, tt.p); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Quantile(%v) = %v, want %v", tt.p, got, tt.expected)
			}
		})
	}
}

func TestQuantile_DoesNotMutate(t *testing.T) {
	values := []float64{3, 1, 2}
	Quantile(values, 0.5)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("Quantile mutated its input: %v", values)
	}
}

func TestQuantile_Empty(t *testing.T) {
	if got := Quantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("Expected NaN for empty input, got %v", got)
	}
}

func TestDescribe(t *testing.T) {
	values := make([]float64, 400)
	for i := range values {
		values[i] = float64(i + 1)
	}
	p := Describe(values)
	// h = 399·0.05 = 19.95 → 20 + 0.95·1
	if math.Abs(p.P5-20.95) > 1e-9 {
		t.Errorf("P5 = %v, want 20.95", p.P5)
	}
	if math.Abs(p.Median-200.5) > 1e-9 {
		t.Errorf("Median = %v, want 200.5", p.Median)
	}
	if math.Abs(p.P95-380.05) > 1e-9 {
		t.Errorf("P95 = %v, want 380.05", p.P95)
	}
}
