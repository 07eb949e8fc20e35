package scope

import (
	"math"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/dustin/go-humanize"
)

// axis maps data values onto [0,1] of a plot side, linearly or by decade.
type axis struct {
	lo, hi float64
	log    bool
	unit   string
}

// newAxis returns an axis spanning lo..hi. Degenerate ranges are widened so
// that fraction never divides by zero; log axes need positive bounds.
func newAxis(lo, hi float64, log bool, unit string) axis {
	if !(hi > lo) || math.IsInf(hi-lo, 0) {
		switch {
		case log && lo > 0:
			hi = lo * 10
		case log:
			lo, hi = 1, 10
		default:
			hi = lo + 1
		}
	}
	if log && lo <= 0 {
		lo = hi / 1e3
	}
	return axis{lo: lo, hi: hi, log: log, unit: unit}
}

// fraction returns where v falls between lo (0) and hi (1). Values outside
// the range are clamped; non-finite and, on log axes, non-positive values
// give NaN so the caller can skip them.
func (a axis) fraction(v float64) float32 {
	var t float64
	if a.log {
		if v <= 0 {
			return math32.NaN()
		}
		t = (math.Log10(v) - math.Log10(a.lo)) / (math.Log10(a.hi) - math.Log10(a.lo))
	} else {
		t = (v - a.lo) / (a.hi - a.lo)
	}
	f := float32(t)
	if math32.IsNaN(f) || math32.IsInf(f, 0) {
		return math32.NaN()
	}
	return math32.Max(0, math32.Min(1, f))
}

// ticks returns at most n+1 tick values inside the range: evenly spaced on
// linear axes, whole decades on log axes.
func (a axis) ticks(n int) []float64 {
	if n < 1 {
		n = 1
	}
	if !a.log {
		out := make([]float64, n+1)
		for i := range out {
			out[i] = a.lo + float64(i)*(a.hi-a.lo)/float64(n)
		}
		return out
	}

	first := math.Ceil(decade(a.lo))
	last := math.Floor(decade(a.hi))
	if last < first {
		return []float64{a.lo, a.hi}
	}
	step := math.Max(1, math.Ceil((last-first)/float64(n)))

	var out []float64
	for e := first; e <= last; e += step {
		out = append(out, math.Pow(10, e))
	}
	return out
}

// decade returns log10(v), snapped to the nearest integer when within
// rounding error of it.
func decade(v float64) float64 {
	e := math.Log10(v)
	if r := math.Round(e); math.Abs(e-r) < 1e-9 {
		return r
	}
	return e
}

// label formats a tick value with an SI prefix where one exists.
func (a axis) label(v float64) string {
	if v == 0 {
		return "0" + a.suffix()
	}
	if exp := math.Abs(math.Log10(math.Abs(v))); exp > 24 || math.IsNaN(exp) {
		return strconv.FormatFloat(v, 'e', 0, 64) + a.suffix()
	}
	value, prefix := humanize.ComputeSI(v)
	s := humanize.FtoaWithDigits(value, 2)
	if prefix != "" || a.unit != "" {
		s += " " + prefix + a.unit
	}
	return s
}

func (a axis) suffix() string {
	if a.unit == "" {
		return ""
	}
	return " " + a.unit
}
