package welch

import (
	"math"
	"slices"
)

// Floor is the smallest positive normal float64. Power values below it are
// raised to it so that log-scaled axes and exports never see zero.
const Floor = 0x1p-1022

// View is a spectrum prepared for a logarithmic display, with robust
// y-axis bounds.
type View struct {
	Spectrum
	Lower float64
	Upper float64
}

// Condition prepares a raw estimate for display and export.
//
// Bins with a non-finite frequency or power, and the zero-frequency bin, are
// dropped; remaining power values are clamped to Floor. The lower bound is
// max(P5, median/100, Floor) and the upper bound is the peak power, widened
// to ten times the lower bound when it is not above it. ok is false when no
// bin survives.
func Condition(s Spectrum) (v View, ok bool) {
	n := min(len(s.Frequencies), len(s.Power))
	freqs := make([]float64, 0, n)
	power := make([]float64, 0, n)
	for i := range n {
		f, p := s.Frequencies[i], s.Power[i]
		if !finite(f) || !finite(p) || f == 0 {
			continue
		}
		freqs = append(freqs, f)
		power = append(power, max(p, Floor))
	}
	if len(freqs) == 0 {
		return View{}, false
	}

	lower, upper := Bounds(power)
	return View{
		Spectrum: Spectrum{Frequencies: freqs, Power: power},
		Lower:    lower,
		Upper:    upper,
	}, true
}

// Bounds computes the robust display range for already clamped power values.
func Bounds(power []float64) (lower, upper float64) {
	if len(power) == 0 {
		return Floor, Floor * 10
	}

	sorted := slices.Clone(power)
	slices.Sort(sorted)

	lower = max(Percentile(sorted, 5), Median(sorted)*1e-2, Floor)
	upper = sorted[len(sorted)-1]
	if !finite(upper) || !finite(lower) || upper <= lower {
		upper = lower * 10
	}
	return lower, upper
}

// Percentile returns the p-th percentile (0..100) of sorted values using
// linear interpolation between the closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n == 1:
		return sorted[0]
	}

	idx := p / 100 * float64(n-1)
	lo := int(math.Floor(idx))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}

	a, b := sorted[lo], sorted[lo+1]
	t := idx - float64(lo)
	d := b - a
	// Interpolate from the nearer end to keep the result monotone in t.
	if t >= 0.5 {
		return b - d*(1-t)
	}
	return a + d*t
}

// Median returns the median of sorted values.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
