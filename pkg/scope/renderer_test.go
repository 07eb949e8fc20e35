package scope

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func traceSegments(objects []fyne.CanvasObject) int {
	n := 0
	for _, o := range objects {
		if l, ok := o.(*canvas.Line); ok && l.StrokeColor == seriesColor {
			n++
		}
	}
	return n
}

func TestPlotRenderer_Trace(t *testing.T) {
	test.NewTempApp(t)

	p := NewPlot("test", seriesColor, "Hz", "")
	p.Resize(fyne.NewSize(400, 200))
	r := test.WidgetRenderer(p)

	p.SetData([]float64{1, 2, 3, 4}, []float64{1, 10, 100, 1000}, 1, 4, 1, 1000, false, true)
	r.Refresh()
	assert.Equal(t, 3, traceSegments(r.Objects()))

	// A zero power cannot be placed on a log axis and breaks the trace
	p.SetData([]float64{1, 2, 3, 4}, []float64{1, 0, 100, 1000}, 1, 4, 1, 1000, false, true)
	r.Refresh()
	assert.Equal(t, 1, traceSegments(r.Objects()))
}

func TestPlotRenderer_Empty(t *testing.T) {
	test.NewTempApp(t)

	p := NewPlot("test", seriesColor, "", "mV")
	p.Resize(fyne.NewSize(400, 200))
	r := test.WidgetRenderer(p)
	r.Refresh()

	assert.Zero(t, traceSegments(r.Objects()))
	assert.NotEmpty(t, r.Objects())
}
