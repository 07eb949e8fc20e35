package term

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/itohio/gohall/pkg/monitor"
)

// labelWidth is the number of columns reserved for y-axis labels.
const labelWidth = 11

// panel is the part of a frame one plot is drawn into. Rows top..bottom
// hold the plot body; the header goes on top-1.
type panel struct {
	left, right int
	top, bottom int
}

func (p panel) columns() int { return p.right - p.left }
func (p panel) rows() int    { return p.bottom - p.top + 1 }

// render lays out both panels: the time series on the upper half, the
// spectrum below.
func render(w, h int, series *monitor.Series, spectrum *monitor.SpectrumView) *frame {
	f := newFrame(w, h)
	if w <= labelWidth+2 || h < 8 {
		f.putString(0, 0, "terminal too small")
		return f
	}

	half := h / 2
	upper := panel{left: labelWidth, right: w, top: 1, bottom: half - 2}
	lower := panel{left: labelWidth, right: w, top: half + 1, bottom: h - 3}

	drawSeries(f, upper, series)
	drawSpectrum(f, lower, spectrum)
	f.putString(0, h-1, "q/Esc quit")
	return f
}

func drawAxes(f *frame, p panel) {
	for x := p.left; x < p.right; x++ {
		f.set(x, p.bottom+1, '-')
	}
	for y := p.top; y <= p.bottom; y++ {
		f.set(p.left-1, y, '|')
	}
	f.set(p.left-1, p.bottom+1, '+')
}

// level maps a fraction in [0,1] to a row, 1 being the top row.
func (p panel) level(frac float64) int {
	frac = math.Max(0, math.Min(1, frac))
	return p.bottom - int(math.Round(frac*float64(p.rows()-1)))
}

func drawSeries(f *frame, p panel, s *monitor.Series) {
	drawAxes(f, p)
	if s == nil || len(s.Y) == 0 {
		f.putString(0, p.top-1, "Hall sensor: waiting for samples")
		return
	}

	f.putString(0, p.top-1, fmt.Sprintf("Hall sensor  %s samples  last %s mV",
		humanize.Comma(int64(s.Total)), humanize.FtoaWithDigits(s.Y[len(s.Y)-1], 3)))
	f.putString(0, p.top, humanize.FtoaWithDigits(s.Upper, 3))
	f.putString(0, p.bottom, humanize.FtoaWithDigits(s.Lower, 3))

	cols := p.columns()
	span := s.Upper - s.Lower
	for c := range cols {
		i := c * len(s.Y) / cols
		if i >= len(s.Y) || (c > 0 && i == (c-1)*len(s.Y)/cols) {
			continue
		}
		frac := 0.5
		if span > 0 {
			frac = (s.Y[i] - s.Lower) / span
		}
		f.set(p.left+c, p.level(frac), '*')
	}
}

func drawSpectrum(f *frame, p panel, v *monitor.SpectrumView) {
	drawAxes(f, p)
	if v == nil || v.Empty() {
		f.putString(0, p.top-1, "PSD: waiting for data")
		return
	}

	peak := 0
	for i := range v.Power {
		if v.Power[i] > v.Power[peak] {
			peak = i
		}
	}
	f.putString(0, p.top-1, fmt.Sprintf("PSD (%s/Hz)  peak %s Hz  %.3g",
		v.Units, humanize.FtoaWithDigits(v.Frequencies[peak], 2), v.Power[peak]))
	f.putString(0, p.top, fmt.Sprintf("%.2e", v.Upper))
	f.putString(0, p.bottom, fmt.Sprintf("%.2e", v.Lower))

	lo, hi := math.Log10(v.Lower), math.Log10(v.Upper)
	fLo, fHi := math.Log10(v.Frequencies[0]), math.Log10(v.Frequencies[len(v.Frequencies)-1])
	cols := p.columns()

	// Strongest bin per column on a log frequency axis
	best := make([]float64, cols)
	for i := range best {
		best[i] = math.NaN()
	}
	for i, freq := range v.Frequencies {
		c := cols - 1
		if fHi > fLo {
			c = int(math.Round((math.Log10(freq) - fLo) / (fHi - fLo) * float64(cols-1)))
		}
		if c < 0 || c >= cols {
			continue
		}
		if math.IsNaN(best[c]) || v.Power[i] > best[c] {
			best[c] = v.Power[i]
		}
	}

	for c, pw := range best {
		if math.IsNaN(pw) {
			continue
		}
		frac := 0.0
		if hi > lo {
			frac = (math.Log10(pw) - lo) / (hi - lo)
		}
		top := p.level(frac)
		f.set(p.left+c, top, '#')
		for y := top + 1; y <= p.bottom; y++ {
			f.set(p.left+c, y, '.')
		}
	}

	f.putString(p.left, p.bottom+2, humanize.FtoaWithDigits(v.Frequencies[0], 2)+" Hz")
	last := humanize.FtoaWithDigits(v.Frequencies[len(v.Frequencies)-1], 1) + " Hz"
	f.putString(p.right-len(last), p.bottom+2, last)
}
