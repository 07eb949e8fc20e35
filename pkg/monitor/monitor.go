// Package monitor runs the acquisition loop: it drains sensor lines, keeps
// the rolling history and refreshes the displays and spectral exports.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/dustin/go-humanize"

	"github.com/itohio/gohall/pkg/config"
	"github.com/itohio/gohall/pkg/hall"
	"github.com/itohio/gohall/pkg/sample"
	"github.com/itohio/gohall/pkg/welch"
)

// flatSpan is the smallest y-axis span; flatter traces are padded by it.
const flatSpan = 1e-12

// TickResult summarizes one Tick.
type TickResult struct {
	Accepted int  // Lines parsed into samples
	Rejected int  // Lines discarded by the parser
	Spectrum bool // A conditioned estimate was produced and exported
	Segment  int  // Welch segment length used, 0 when no estimate was attempted
	Bins     int  // Bins in the conditioned estimate
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSampleLog appends every accepted sample to sink.
func WithSampleLog(sink SampleSink) Option {
	return func(m *Monitor) { m.samples = sink }
}

// WithSnapshot writes every successful estimate to sink.
func WithSnapshot(sink SnapshotSink) Option {
	return func(m *Monitor) { m.snapshot = sink }
}

// WithHistory records every successful estimate to sink.
func WithHistory(sink HistorySink) Option {
	return func(m *Monitor) { m.history = sink }
}

// WithDisplay adds a display. Several displays may be registered.
func WithDisplay(d Display) Option {
	return func(m *Monitor) {
		if d != nil {
			m.displays = append(m.displays, d)
		}
	}
}

// WithClock replaces the wall clock used to stamp labeled and bare lines
// and history records.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Monitor owns the rolling history and all per-tick state. It is driven by
// Tick or Run and is not safe for concurrent use.
type Monitor struct {
	acq       config.AcquisitionConfig
	maxPoints int
	smoothing int

	transport hall.Transport
	parser    *sample.Parser
	buf       *sample.Buffer
	est       welch.Estimator

	samples  SampleSink
	snapshot SnapshotSink
	history  HistorySink
	displays []Display

	now    func() time.Time
	logger *slog.Logger

	logScale bool
	last     TickResult
}

// New creates a monitor reading from t. cfg is read once.
func New(cfg *config.Config, t hall.Transport, opts ...Option) *Monitor {
	m := &Monitor{
		acq:       cfg.Acquisition,
		maxPoints: cfg.Display.MaxPoints,
		smoothing: cfg.Display.Smoothing,
		transport: t,
		buf:       sample.NewBuffer(cfg.Acquisition.Capacity),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.parser = sample.NewParser(m.now)

	return m
}

// Samples returns a copy of the rolling history, oldest first.
func (m *Monitor) Samples() []sample.Sample {
	return m.buf.Window(m.buf.Len())
}

// Total returns the number of samples accepted since start.
func (m *Monitor) Total() uint64 {
	return m.buf.Total()
}

// LastTick returns the result of the most recent Tick.
func (m *Monitor) LastTick() TickResult {
	return m.last
}

// LogScale reports whether a valid estimate has been produced yet.
func (m *Monitor) LogScale() bool {
	return m.logScale
}

// Tick runs one acquisition cycle. See TickContext.
func (m *Monitor) Tick() error {
	return m.TickContext(context.Background())
}

// TickContext drains the complete lines available on entry, refreshes the time series and,
// once a quarter of the history has been filled, estimates, displays and
// exports the spectrum. Insufficient data is not an error; transport and
// persistence failures are.
func (m *Monitor) TickContext(ctx context.Context) error {
	m.last = TickResult{}

	if err := m.drain(); err != nil {
		return err
	}

	window := m.buf.Window(m.acq.Capacity)
	if len(window) > 0 {
		series := m.series(window)
		for _, d := range m.displays {
			d.UpdateSeries(series)
		}
	}

	// a quarter of the capacity, not rounded down
	if 4*m.buf.Total() < uint64(m.buf.Cap()) {
		return nil
	}

	return m.spectrum(ctx, window)
}

// drain reads the lines available on entry. Lines arriving meanwhile are
// left for the next tick so a fast producer cannot stall it.
func (m *Monitor) drain() error {
	n, err := m.transport.Available()
	if err != nil {
		return fmt.Errorf("reading sensor: %w", err)
	}

	for range n {
		line, err := m.transport.ReadLine()
		if errors.Is(err, hall.ErrEmpty) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading sensor: %w", err)
		}

		s, format := m.parser.Parse(line)
		if format == sample.FormatNone {
			m.last.Rejected++
			m.logger.Debug("line discarded", slog.String("line", string(line)))
			continue
		}

		m.buf.Push(s)
		m.last.Accepted++

		if m.samples != nil {
			if err := m.samples.Append(s); err != nil {
				return fmt.Errorf("logging sample: %w", err)
			}
		}
	}
	return nil
}

func (m *Monitor) series(window []sample.Sample) Series {
	x := make([]float64, len(window))
	ts := make([]float64, len(window))
	values := make([]float64, len(window))
	lower, upper := window[0].Value, window[0].Value
	for i, s := range window {
		x[i] = float64(i)
		ts[i] = s.Timestamp
		values[i] = s.Value
		lower = min(lower, s.Value)
		upper = max(upper, s.Value)
	}
	if upper-lower < flatSpan {
		lower -= flatSpan
		upper += flatSpan
	}

	values = sample.Smooth(nil, values, m.smoothing)

	return Series{
		X:          sample.Downsample(nil, x, m.maxPoints),
		Timestamps: sample.Downsample(nil, ts, m.maxPoints),
		Y:          sample.Downsample(nil, values, m.maxPoints),
		Lower:      lower,
		Upper:      upper,
		Total:      m.buf.Total(),
		Capacity:   m.acq.Capacity,
	}
}

func (m *Monitor) spectrum(ctx context.Context, window []sample.Sample) error {
	// mV -> T for a sensitivity in mV/mT
	values := make([]float64, len(window))
	for i, s := range window {
		values[i] = s.Value
	}
	vecmath.ScaleBlock(values, values, 1/(m.acq.Sensitivity*1000))

	segment := welch.SegmentLength(len(values), m.acq.MaxSegment)
	if segment < m.acq.MinSegment {
		return nil
	}
	m.last.Segment = segment

	view, ok := welch.Condition(m.est.Estimate(values, m.acq.SampleRate, segment, m.acq.Overlap))
	if !ok {
		return nil
	}
	m.logScale = true
	m.last.Spectrum = true
	m.last.Bins = view.Len()

	sv := SpectrumView{View: view, Units: m.acq.Units, LogScale: m.logScale}
	for _, d := range m.displays {
		d.UpdateSpectrum(sv)
	}

	if m.snapshot != nil {
		if err := m.snapshot.Write(view); err != nil {
			return fmt.Errorf("writing spectrum snapshot: %w", err)
		}
	}
	if m.history != nil {
		if err := m.history.Record(ctx, m.now(), view); err != nil {
			return fmt.Errorf("recording spectrum history: %w", err)
		}
	}
	return nil
}

// Run calls Tick every interval until ctx is done or a tick fails.
// It returns nil on cancellation and the tick error otherwise.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	started := m.now()
	var ticks, rejected uint64
	defer func() {
		m.logger.Info("acquisition stopped",
			slog.String("samples", humanize.Comma(int64(m.buf.Total()))),
			slog.String("ticks", humanize.Comma(int64(ticks))),
			slog.String("discarded", humanize.Comma(int64(rejected))),
			slog.String("elapsed", m.now().Sub(started).Round(time.Millisecond).String()))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := m.TickContext(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		ticks++
		rejected += uint64(m.last.Rejected)

		res := m.last
		m.logger.Debug("tick",
			slog.Int("accepted", res.Accepted),
			slog.Int("rejected", res.Rejected),
			slog.Int("segment", res.Segment),
			slog.Bool("spectrum", res.Spectrum))
	}
}
