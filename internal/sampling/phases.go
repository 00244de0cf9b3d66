package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInfeasiblePhases is returned when minDays × phases exceeds the campaign length.
var ErrInfeasiblePhases = errors.New("phase floor exceeds campaign length")

// AllocatePhaseLengths samples integer phase lengths that sum exactly to total.
//
// The algorithm:
//  1. raw[i] ~ Normal(nominal[i], sd[i])
//  2. raw[i] = max(raw[i], minDays)
//  3. rescale so Σraw == total
//  4. re-clamp to minDays and rescale again
//  5. floor each length and hand the remaining days to the largest fractional
//     parts, ties broken by lower phase index
//  6. lift any phase still below minDays by taking days from the phase with the
//     largest surplus, so every phase ends at or above the floor
func AllocatePhaseLengths(src rand.Source, nominal, sd []float64, total, minDays int) ([]int, error) {
	n := len(nominal)
	switch {
	case n == 0:
		return nil, errors.New("no phases to allocate")
	case len(sd) != n:
		return nil, fmt.Errorf("phase sd count %d does not match nominal count %d", len(sd), n)
	case total <= 0:
		return nil, fmt.Errorf("total days must be positive, got %d", total)
	case minDays < 0:
		return nil, fmt.Errorf("min days must be non-negative, got %d", minDays)
	case minDays*n > total:
		return nil, fmt.Errorf("%w: %d phases × %d days > %d", ErrInfeasiblePhases, n, minDays, total)
	}

	floor := float64(minDays)
	raw := make([]float64, n)
	for i := range nominal {
		v := nominal[i]
		if sd[i] > 0 {
			d := distuv.Normal{Mu: nominal[i], Sigma: sd[i], Src: src}
			v = d.Rand()
		}
		raw[i] = atLeast(v, floor)
	}

	scaled := rescale(raw, float64(total))
	for i := range scaled {
		scaled[i] = atLeast(scaled[i], floor)
	}
	scaled = rescale(scaled, float64(total))

	counts := largestRemainder(scaled, total)
	liftToFloor(counts, minDays)
	return counts, nil
}

// DayPhases expands phase lengths into a day→phase lookup (0-based day index).
func DayPhases(counts []int) []int {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]int, 0, total)
	for phase, c := range counts {
		for range c {
			out = append(out, phase)
		}
	}
	return out
}

func atLeast(v, floor float64) float64 {
	if !(v >= floor) { // also catches NaN
		return floor
	}
	return v
}

func rescale(v []float64, total float64) []float64 {
	out := make([]float64, len(v))
	sum := floats.Sum(v)
	if !(sum > 0) {
		for i := range out {
			out[i] = total / float64(len(v))
		}
		return out
	}
	floats.ScaleTo(out, total/sum, v)
	return out
}

func largestRemainder(scaled []float64, total int) []int {
	n := len(scaled)
	counts := make([]int, n)
	frac := make([]float64, n)
	assigned := 0
	for i, s := range scaled {
		f := math.Floor(s)
		counts[i] = int(f)
		frac[i] = s - f
		assigned += counts[i]
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return frac[order[a]] > frac[order[b]]
	})

	remainder := total - assigned
	for remainder > 0 {
		for _, i := range order {
			if remainder == 0 {
				break
			}
			counts[i]++
			remainder--
		}
	}
	// Floating-point drift can only overshoot by a day or two; take them back
	// from the smallest fractional parts first.
	for remainder < 0 {
		for k := n - 1; k >= 0 && remainder < 0; k-- {
			if i := order[k]; counts[i] > 0 {
				counts[i]--
				remainder++
			}
		}
	}
	return counts
}

func liftToFloor(counts []int, minDays int) {
	for i := range counts {
		for counts[i] < minDays {
			donor := -1
			for j := range counts {
				if j == i || counts[j] <= minDays {
					continue
				}
				if donor == -1 || counts[j]-minDays > counts[donor]-minDays {
					donor = j
				}
			}
			if donor == -1 {
				return // infeasible; rejected before allocation
			}
			counts[donor]--
			counts[i]++
		}
	}
}
