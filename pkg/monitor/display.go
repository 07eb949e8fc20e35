package monitor

import (
	"context"
	"time"

	"github.com/itohio/gohall/pkg/sample"
	"github.com/itohio/gohall/pkg/welch"
)

// Series is the time-series panel content: the newest samples of the
// rolling history, decimated for display.
type Series struct {
	X          []float64 // Sample index within the window
	Timestamps []float64 // Sample timestamps (seconds)
	Y          []float64 // Raw values, smoothed when display smoothing is on
	Lower      float64   // Y axis bounds
	Upper      float64
	Total      uint64 // Samples accepted since start
	Capacity   int    // History length; the X axis spans [0, Capacity]
}

// SpectrumView is the spectrum panel content.
type SpectrumView struct {
	welch.View
	Units    string // Power units, e.g. "T^2"; the axis reads Units/Hz
	LogScale bool   // Both axes are logarithmic once the first valid estimate arrived
}

// Display receives panel updates. Implementations that render on another
// goroutine must copy what they keep; the monitor does not reuse the slices
// it hands out but does not guard them either.
type Display interface {
	UpdateSeries(Series)
	UpdateSpectrum(SpectrumView)
}

// SampleSink receives every accepted sample.
type SampleSink interface {
	Append(sample.Sample) error
}

// SnapshotSink receives every successful estimate and replaces the previous one.
type SnapshotSink interface {
	Write(welch.View) error
}

// HistorySink records every successful estimate.
type HistorySink interface {
	Record(ctx context.Context, ts time.Time, v welch.View) error
}
