package term

import (
	"strings"
	"testing"

	"github.com/itohio/gohall/pkg/monitor"
	"github.com/itohio/gohall/pkg/welch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	f := newFrame(5, 2)
	f.putString(3, 0, "abc")
	f.set(-1, 0, 'x')
	f.set(0, 5, 'x')

	assert.Equal(t, "   ab", f.row(0))
	assert.Equal(t, "", f.row(1))
	assert.Equal(t, rune(0), f.at(9, 9))
}

func TestRender_TooSmall(t *testing.T) {
	f := render(10, 4, nil, nil)
	assert.Equal(t, "terminal t", f.row(0))
}

func TestRender_Waiting(t *testing.T) {
	f := render(60, 20, nil, nil)
	assert.Contains(t, f.row(0), "waiting for samples")

	var found bool
	for y := range f.h {
		if strings.Contains(f.row(y), "PSD: waiting") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRender_Series(t *testing.T) {
	s := &monitor.Series{
		X:     []float64{0, 1, 2, 3},
		Y:     []float64{0, 10, 0, 10},
		Lower: 0,
		Upper: 10,
		Total: 12345,
	}
	f := render(40, 20, s, nil)
	p := panel{left: labelWidth, right: 40, top: 1, bottom: 8}

	assert.Contains(t, f.row(0), "12,345 samples")
	// First point at the bottom; the second starts at column ceil(29/4)
	assert.Equal(t, '*', f.at(p.left, p.bottom))
	assert.Equal(t, '*', f.at(p.left+8, p.top))
	assert.Equal(t, ' ', f.at(p.left+7, p.top))
}

func TestRender_Spectrum(t *testing.T) {
	v := &monitor.SpectrumView{
		View: welch.View{
			Spectrum: welch.Spectrum{
				Frequencies: []float64{1, 10, 100},
				Power:       []float64{1e-6, 1e-3, 1e-6},
			},
			Lower: 1e-6,
			Upper: 1e-3,
		},
		Units:    "T^2",
		LogScale: true,
	}
	f := render(40, 20, nil, v)
	p := panel{left: labelWidth, right: 40, top: 11, bottom: 17}

	assert.Contains(t, f.row(p.top-1), "PSD (T^2/Hz)")
	assert.Contains(t, f.row(p.top-1), "peak 10 Hz")

	// 10 Hz sits in the middle column of a log axis and reaches the top
	mid := p.left + (p.columns()-1)/2
	assert.Equal(t, '#', f.at(mid, p.top))
	assert.Equal(t, '#', f.at(p.left, p.bottom))
	assert.Equal(t, '#', f.at(p.right-1, p.bottom))
}

func TestTerminal_Redraw(t *testing.T) {
	var frames []*frame
	term := &Terminal{
		size:  func() (int, int) { return 40, 20 },
		flush: func(f *frame) error { frames = append(frames, f); return nil },
	}

	term.UpdateSeries(monitor.Series{Y: []float64{1}, Lower: 0, Upper: 2, Total: 1})
	term.UpdateSpectrum(monitor.SpectrumView{})

	require.Len(t, frames, 2)
	assert.Contains(t, frames[1].row(0), "1 samples")
}
