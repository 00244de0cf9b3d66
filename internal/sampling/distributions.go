// Package sampling provides the random draws used by the Monte Carlo engine.
// Every sampler takes an explicit rand.Source; none touches global random state.
package sampling

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultBroadenPct inflates literature ranges before triangular sampling.
	DefaultBroadenPct = 0.20

	// MaxRejectionAttempts bounds TruncatedNormal's rejection loop.
	MaxRejectionAttempts = 1000
)

// Triangular draws from a triangular distribution on [a, b] with mode m by
// inverse CDF. Degenerate input (b <= a or an undefined bound) yields (0, false),
// which callers treat as a zero contribution. An undefined mode falls back to the
// midpoint and a mode outside [a, b] is clamped to the nearest bound.
func Triangular(src rand.Source, a, b, m float64) (float64, bool) {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) || b <= a {
		return 0, false
	}
	if math.IsNaN(m) {
		m = (a + b) / 2
	}
	m = math.Min(math.Max(m, a), b)
	t := distuv.NewTriangle(a, b, m, src)
	return t.Rand(), true
}

// Broaden widens [lo, hi] to [lo·(1−p), hi·(1+p)].
func Broaden(lo, hi, p float64) (float64, float64) {
	return lo * (1 - p), hi * (1 + p)
}

// TruncatedNormal rejection-samples Normal(mean, sd) until the draw lies in
// [lower, upper]. After MaxRejectionAttempts the last draw is clamped to the
// nearest bound and exhausted is true.
func TruncatedNormal(src rand.Source, mean, sd, lower, upper float64) (v float64, exhausted bool) {
	if lower > upper {
		lower, upper = upper, lower
	}
	if !(sd > 0) {
		return clamp(mean, lower, upper), false
	}

	n := distuv.Normal{Mu: mean, Sigma: sd, Src: src}
	for range MaxRejectionAttempts {
		v = n.Rand()
		if v >= lower && v <= upper {
			return v, false
		}
	}
	return clamp(v, lower, upper), true
}

// BoundedUniform returns mean·U(1−pct, 1+pct).
func BoundedUniform(src rand.Source, mean, pct float64) float64 {
	if !(pct > 0) {
		return mean
	}
	u := distuv.Uniform{Min: 1 - pct, Max: 1 + pct, Src: src}
	return mean * u.Rand()
}

// LogNormalMultiplier returns exp(Normal(log(nominal), sdlog)). The result is
// strictly positive for any positive nominal; a non-positive nominal yields 0.
func LogNormalMultiplier(src rand.Source, nominal, sdlog float64) float64 {
	if !(nominal > 0) {
		return 0
	}
	if !(sdlog > 0) {
		return nominal
	}
	d := distuv.LogNormal{Mu: math.Log(nominal), Sigma: sdlog, Src: src}
	return d.Rand()
}

// DisruptionSeries returns one multiplier per day: factor with probability prob, 1 otherwise.
func DisruptionSeries(src rand.Source, nDays int, prob, factor float64) []float64 {
	if nDays <= 0 {
		return nil
	}
	out := make([]float64, nDays)
	b := distuv.Bernoulli{P: math.Min(math.Max(prob, 0), 1), Src: src}
	for i := range out {
		out[i] = 1
		if b.Rand() == 1 {
			out[i] = factor
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
