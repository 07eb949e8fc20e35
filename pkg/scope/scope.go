// Package scope renders the live time series and spectrum panels as Fyne widgets.
package scope

import (
	"image/color"
	"slices"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gohall/pkg/monitor"
)

var _ monitor.Display = (*Scope)(nil)

var (
	seriesColor   = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	spectrumColor = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
)

// PlotWidget is an oscilloscope-style line plot with linear or logarithmic axes.
type PlotWidget struct {
	widget.BaseWidget

	title string
	color color.Color

	// Data (protected by mu)
	mu    sync.RWMutex
	x, y  []float64
	xAxis axis
	yAxis axis
}

// NewPlot creates an empty plot.
func NewPlot(title string, c color.Color, xUnit, yUnit string) *PlotWidget {
	p := &PlotWidget{
		title: title,
		color: c,
		xAxis: newAxis(0, 1, false, xUnit),
		yAxis: newAxis(0, 1, false, yUnit),
	}
	p.ExtendBaseWidget(p)
	p.Refresh()
	return p
}

// SetData replaces the plotted points and axis ranges. The slices are kept;
// callers must not modify them afterwards. Call from the Fyne goroutine.
func (p *PlotWidget) SetData(x, y []float64, xLo, xHi, yLo, yHi float64, logX, logY bool) {
	p.mu.Lock()
	p.x, p.y = x, y
	p.xAxis = newAxis(xLo, xHi, logX, p.xAxis.unit)
	p.yAxis = newAxis(yLo, yHi, logY, p.yAxis.unit)
	p.mu.Unlock()

	// Refresh outside the lock; the renderer takes a read lock
	p.Refresh()
}

// SetUnits changes the axis units used in tick labels.
func (p *PlotWidget) SetUnits(xUnit, yUnit string) {
	p.mu.Lock()
	p.xAxis.unit = xUnit
	p.yAxis.unit = yUnit
	p.mu.Unlock()
}

// CreateRenderer creates the widget renderer.
func (p *PlotWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &plotRenderer{
		plot:    p,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}

// Scope stacks the time series above the spectrum and receives monitor updates.
type Scope struct {
	Series   *PlotWidget
	Spectrum *PlotWidget

	content fyne.CanvasObject
}

// New creates the two panels. units names the spectrum power unit.
func New(units string) *Scope {
	s := &Scope{
		Series:   NewPlot("Hall sensor output", seriesColor, "", "mV"),
		Spectrum: NewPlot("Power spectral density", spectrumColor, "Hz", units+"/Hz"),
	}
	split := container.NewVSplit(s.Series, s.Spectrum)
	split.SetOffset(0.5)
	s.content = split
	return s
}

// Content returns the canvas object to place in a window.
func (s *Scope) Content() fyne.CanvasObject {
	return s.content
}

// UpdateSeries implements monitor.Display. It may be called from any goroutine.
func (s *Scope) UpdateSeries(series monitor.Series) {
	x := slices.Clone(series.X)
	y := slices.Clone(series.Y)
	xLo, xHi := seriesRange(series)
	fyne.Do(func() {
		s.Series.SetData(x, y, xLo, xHi, series.Lower, series.Upper, false, false)
	})
}

// seriesRange spans the whole history so the trace does not rescale while
// the buffer fills.
func seriesRange(series monitor.Series) (lo, hi float64) {
	if series.Capacity > 0 {
		return 0, float64(series.Capacity)
	}
	if len(series.X) > 0 {
		return series.X[0], series.X[len(series.X)-1]
	}
	return 0, 0
}

// UpdateSpectrum implements monitor.Display. It may be called from any goroutine.
func (s *Scope) UpdateSpectrum(v monitor.SpectrumView) {
	if v.Empty() {
		return
	}
	x := slices.Clone(v.Frequencies)
	y := slices.Clone(v.Power)
	units := v.Units + "/Hz"
	fyne.Do(func() {
		s.Spectrum.SetUnits("Hz", units)
		s.Spectrum.SetData(x, y, x[0], x[len(x)-1], v.Lower, v.Upper, v.LogScale, v.LogScale)
	})
}
