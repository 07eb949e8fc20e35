package scope

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"
)

const (
	marginLeft   = float32(70)
	marginRight  = float32(20)
	marginTop    = float32(24)
	marginBottom = float32(30)
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// plotRenderer renders a PlotWidget.
type plotRenderer struct {
	plot *PlotWidget

	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *plotRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 200)
}

// Layout arranges the widget components.
func (r *plotRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.plot.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the plot from the current data.
func (r *plotRenderer) Refresh() {
	r.plot.mu.RLock()
	x, y := r.plot.x, r.plot.y
	xAxis, yAxis := r.plot.xAxis, r.plot.yAxis
	r.plot.mu.RUnlock()

	size := r.plot.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.bg}

	area := plotArea{
		x: marginLeft,
		y: marginTop,
		w: math32.Max(1, size.Width-marginLeft-marginRight),
		h: math32.Max(1, size.Height-marginTop-marginBottom),
	}

	title := canvas.NewText(r.plot.title, labelColor)
	title.TextSize = 12
	title.Move(fyne.NewPos(area.x, 4))
	r.objects = append(r.objects, title)

	r.drawGrid(area, xAxis, yAxis)
	r.drawTrace(area, x, y, xAxis, yAxis)
}

// plotArea is the inner rectangle the data is drawn in.
type plotArea struct {
	x, y, w, h float32
}

// point maps fractions along each axis to a canvas position; y grows upwards.
func (a plotArea) point(fx, fy float32) fyne.Position {
	return fyne.NewPos(a.x+fx*a.w, a.y+a.h-fy*a.h)
}

func (r *plotRenderer) drawGrid(area plotArea, xAxis, yAxis axis) {
	for _, v := range yAxis.ticks(6) {
		f := yAxis.fraction(v)
		if math32.IsNaN(f) {
			continue
		}
		p := area.point(0, f)
		r.line(gridColor, 1, p, fyne.NewPos(area.x+area.w, p.Y))

		text := canvas.NewText(yAxis.label(v), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(area.x-5, p.Y-6))
		r.objects = append(r.objects, text)
	}

	for _, v := range xAxis.ticks(8) {
		f := xAxis.fraction(v)
		if math32.IsNaN(f) {
			continue
		}
		p := area.point(f, 0)
		r.line(gridColor, 1, fyne.NewPos(p.X, area.y), p)

		text := canvas.NewText(xAxis.label(v), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(p.X-20, area.y+area.h+5))
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws connected segments, breaking the trace at points that
// cannot be placed on the axes.
func (r *plotRenderer) drawTrace(area plotArea, x, y []float64, xAxis, yAxis axis) {
	n := min(len(x), len(y))
	var prev fyne.Position
	havePrev := false
	for i := range n {
		fx, fy := xAxis.fraction(x[i]), yAxis.fraction(y[i])
		if math32.IsNaN(fx) || math32.IsNaN(fy) {
			havePrev = false
			continue
		}
		p := area.point(fx, fy)
		if havePrev {
			r.line(r.plot.color, 1.5, prev, p)
		}
		prev, havePrev = p, true
	}
}

func (r *plotRenderer) line(c color.Color, width float32, from, to fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1 = from
	l.Position2 = to
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

// Objects returns all canvas objects for rendering.
func (r *plotRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *plotRenderer) Destroy() {}
