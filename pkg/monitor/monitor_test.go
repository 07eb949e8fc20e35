package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itohio/gohall/pkg/config"
	"github.com/itohio/gohall/pkg/hall"
	"github.com/itohio/gohall/pkg/sample"
	"github.com/itohio/gohall/pkg/store"
	"github.com/itohio/gohall/pkg/welch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport hands out queued lines and reports err once they are gone.
type fakeTransport struct {
	lines [][]byte
	err   error
}

func (f *fakeTransport) Connect() error    { return nil }
func (f *fakeTransport) Close() error      { return nil }
func (f *fakeTransport) IsConnected() bool { return true }

func (f *fakeTransport) Available() (int, error) {
	if len(f.lines) > 0 {
		return len(f.lines), nil
	}
	return 0, f.err
}

func (f *fakeTransport) ReadLine() ([]byte, error) {
	if len(f.lines) == 0 {
		return nil, hall.ErrEmpty
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *fakeTransport) add(format string, args ...any) {
	f.lines = append(f.lines, fmt.Appendf(nil, format, args...))
}

// addTone queues n CSV lines of a tone sampled at fs.
func (f *fakeTransport) addTone(n int, fs, freq, amp float64) {
	for i := range n {
		t := float64(i) / fs
		f.add("%d,%.6f", int64(t*1e6), 1650+amp*math.Sin(2*math.Pi*freq*t))
	}
}

// streamingTransport always has more lines, like a producer that outpaces
// the tick.
type streamingTransport struct {
	reads int
}

func (s *streamingTransport) Connect() error          { return nil }
func (s *streamingTransport) Close() error            { return nil }
func (s *streamingTransport) IsConnected() bool       { return true }
func (s *streamingTransport) Available() (int, error) { return 5, nil }

func (s *streamingTransport) ReadLine() ([]byte, error) {
	s.reads++
	return fmt.Appendf(nil, "%d,1.0", s.reads*1000), nil
}

type recorder struct {
	series   []Series
	spectra  []SpectrumView
	samples  []sample.Sample
	records  []time.Time
	failWith error
}

func (r *recorder) UpdateSeries(s Series)         { r.series = append(r.series, s) }
func (r *recorder) UpdateSpectrum(s SpectrumView) { r.spectra = append(r.spectra, s) }

func (r *recorder) Append(s sample.Sample) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.samples = append(r.samples, s)
	return nil
}

func (r *recorder) Record(_ context.Context, ts time.Time, _ welch.View) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.records = append(r.records, ts)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Acquisition.Capacity = 512
	cfg.Acquisition.SampleRate = 750
	cfg.Display.MaxPoints = 0
	return cfg
}

func TestTick_NoSpectrumBelowQuarterCapacity(t *testing.T) {
	psd := filepath.Join(t.TempDir(), "hall_psd.csv")
	tr := &fakeTransport{}
	rec := &recorder{}
	m := New(testConfig(), tr,
		WithSnapshot(store.NewSnapshot(psd, "T^2")),
		WithDisplay(rec))

	tr.addTone(127, 750, 75, 100)
	require.NoError(t, m.Tick())

	res := m.LastTick()
	assert.Equal(t, 127, res.Accepted)
	assert.False(t, res.Spectrum)
	assert.False(t, m.LogScale())
	_, err := os.Stat(psd)
	assert.True(t, os.IsNotExist(err), "no snapshot below capacity/4")

	// The time series is refreshed regardless
	require.Len(t, rec.series, 1)
	assert.Len(t, rec.series[0].Y, 127)
	assert.Equal(t, 512, rec.series[0].Capacity)
	assert.Empty(t, rec.spectra)

	tr.addTone(1, 750, 75, 100)
	require.NoError(t, m.Tick())

	res = m.LastTick()
	assert.True(t, res.Spectrum)
	assert.Equal(t, 128, res.Segment)
	assert.Equal(t, 64, res.Bins)
	assert.True(t, m.LogScale())

	data, err := os.ReadFile(psd)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Frequency (Hz),PSD (T^2/Hz)\n")
	require.Len(t, rec.spectra, 1)
	assert.True(t, rec.spectra[0].LogScale)
	assert.Equal(t, "T^2", rec.spectra[0].Units)
}

func TestTick_QuarterCapacityNotRoundedDown(t *testing.T) {
	cfg := testConfig()
	cfg.Acquisition.Capacity = 66
	psd := filepath.Join(t.TempDir(), "hall_psd.csv")
	tr := &fakeTransport{}
	m := New(cfg, tr, WithSnapshot(store.NewSnapshot(psd, "T^2")))

	// 16 < 66/4 = 16.5
	tr.addTone(16, 750, 75, 100)
	require.NoError(t, m.Tick())
	assert.False(t, m.LastTick().Spectrum)
	_, err := os.Stat(psd)
	assert.True(t, os.IsNotExist(err))

	tr.addTone(1, 750, 75, 100)
	require.NoError(t, m.Tick())
	res := m.LastTick()
	assert.True(t, res.Spectrum)
	assert.Equal(t, 16, res.Segment)
	assert.FileExists(t, psd)
}

func TestTick_DrainsOnlyLinesAvailableOnEntry(t *testing.T) {
	tr := &streamingTransport{}
	m := New(testConfig(), tr)

	require.NoError(t, m.Tick())
	assert.Equal(t, 5, m.LastTick().Accepted)
	assert.Equal(t, 5, tr.reads)

	require.NoError(t, m.Tick())
	assert.Equal(t, uint64(10), m.Total())
}

func TestTick_SinusoidPeak(t *testing.T) {
	tr := &fakeTransport{}
	rec := &recorder{}
	m := New(testConfig(), tr, WithDisplay(rec))

	tr.addTone(512, 750, 75, 100)
	require.NoError(t, m.Tick())
	require.Len(t, rec.spectra, 1)

	v := rec.spectra[0]
	peak := 0
	for i := range v.Power {
		if v.Power[i] > v.Power[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 75.0, v.Frequencies[peak], 750.0/256)
	assert.Equal(t, 128, len(v.Frequencies))
	assert.GreaterOrEqual(t, v.Upper, v.Lower)
}

func TestTick_ScalesToTesla(t *testing.T) {
	cfg := testConfig()
	cfg.Acquisition.Sensitivity = 30
	tr := &fakeTransport{}
	rec := &recorder{}
	m := New(cfg, tr, WithDisplay(rec))

	tr.addTone(512, 750, 75, 100)
	require.NoError(t, m.Tick())
	require.Len(t, rec.spectra, 1)

	raw := m.buf.Values(512)
	scaled := make([]float64, len(raw))
	for i, v := range raw {
		scaled[i] = v * (1 / (30.0 * 1000))
	}
	want, ok := welch.Condition(welch.Estimate(scaled, 750, 256, 0.5))
	require.True(t, ok)

	got := rec.spectra[0]
	assert.Equal(t, want.Frequencies, got.Frequencies)
	require.Len(t, got.Power, len(want.Power))
	for i := range want.Power {
		assert.InEpsilon(t, want.Power[i], got.Power[i], 1e-9, "bin %d", i)
	}
}

func TestTick_DiscardsGarbage(t *testing.T) {
	tr := &fakeTransport{}
	rec := &recorder{}
	m := New(testConfig(), tr, WithSampleLog(rec))

	tr.add("hall sensor ready")
	tr.add("1000,1.5")
	tr.add("")
	tr.add("Raw: 0x7d0, Voltage: 1611")
	tr.add("ERR overflow")
	tr.add("12.5")

	require.NoError(t, m.Tick())
	res := m.LastTick()
	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 3, res.Rejected)
	assert.Equal(t, uint64(3), m.Total())

	require.Len(t, rec.samples, 3)
	assert.Equal(t, []float64{1.5, 1611, 12.5}, []float64{rec.samples[0].Value, rec.samples[1].Value, rec.samples[2].Value})
}

func TestTick_WallClockStamps(t *testing.T) {
	clock := time.Unix(1700000000, 500_000_000)
	tr := &fakeTransport{}
	m := New(testConfig(), tr, WithClock(func() time.Time { return clock }))

	tr.add("Voltage: 12")
	tr.add("2000000,3")
	require.NoError(t, m.Tick())

	got := m.Samples()
	require.Len(t, got, 2)
	assert.Equal(t, 1700000000.5, got[0].Timestamp)
	assert.InDelta(t, 2.0, got[1].Timestamp, 1e-9)
}

func TestTick_FlatSeriesPadded(t *testing.T) {
	tr := &fakeTransport{}
	rec := &recorder{}
	m := New(testConfig(), tr, WithDisplay(rec))

	for i := range 10 {
		tr.add("%d,5", i*1000)
	}
	require.NoError(t, m.Tick())

	require.Len(t, rec.series, 1)
	s := rec.series[0]
	pad := 1e-12
	assert.Equal(t, 5-pad, s.Lower)
	assert.Equal(t, 5+pad, s.Upper)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, s.X)
	assert.Equal(t, uint64(10), s.Total)
}

func TestTick_SeriesDecimatedAndSmoothed(t *testing.T) {
	cfg := testConfig()
	cfg.Display.MaxPoints = 4
	cfg.Display.Smoothing = 2
	tr := &fakeTransport{}
	rec := &recorder{}
	m := New(cfg, tr, WithDisplay(rec))

	for i := range 8 {
		tr.add("%d,%d", i*1000, i*2)
	}
	require.NoError(t, m.Tick())

	require.Len(t, rec.series, 1)
	s := rec.series[0]
	assert.Equal(t, []float64{0, 2, 4, 6}, s.X)
	assert.Equal(t, []float64{0, 3, 7, 11}, s.Y)
	assert.Equal(t, 0.0, s.Lower)
	assert.Equal(t, 14.0, s.Upper)
}

func TestTick_EmptyTransport(t *testing.T) {
	rec := &recorder{}
	m := New(testConfig(), &fakeTransport{}, WithDisplay(rec))

	require.NoError(t, m.Tick())
	assert.Equal(t, TickResult{}, m.LastTick())
	assert.Empty(t, rec.series)
}

func TestTick_Errors(t *testing.T) {
	unplugged := errors.New("unplugged")
	diskFull := errors.New("disk full")

	t.Run("transport", func(t *testing.T) {
		tr := &fakeTransport{err: fmt.Errorf("%w: %w", hall.ErrClosed, unplugged)}
		tr.add("1,1")
		m := New(testConfig(), tr)

		// queued lines are delivered before the failure surfaces
		require.NoError(t, m.Tick())
		assert.Equal(t, uint64(1), m.Total())

		err := m.Tick()
		assert.ErrorIs(t, err, hall.ErrClosed)
		assert.ErrorIs(t, err, unplugged)
	})

	t.Run("sample log", func(t *testing.T) {
		tr := &fakeTransport{}
		tr.add("1,1")
		m := New(testConfig(), tr, WithSampleLog(&recorder{failWith: diskFull}))

		err := m.Tick()
		assert.ErrorIs(t, err, diskFull)
		assert.Contains(t, err.Error(), "logging sample")
	})

	t.Run("history", func(t *testing.T) {
		tr := &fakeTransport{}
		tr.addTone(512, 750, 75, 100)
		m := New(testConfig(), tr, WithHistory(&recorder{failWith: diskFull}))

		err := m.Tick()
		assert.ErrorIs(t, err, diskFull)
	})

	t.Run("snapshot", func(t *testing.T) {
		tr := &fakeTransport{}
		tr.addTone(512, 750, 75, 100)
		psd := filepath.Join(t.TempDir(), "missing", "hall_psd.csv")
		m := New(testConfig(), tr, WithSnapshot(store.NewSnapshot(psd, "T^2")))

		err := m.Tick()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "writing spectrum snapshot")
	})
}

func TestTick_HistoryUsesClock(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	tr := &fakeTransport{}
	rec := &recorder{}
	m := New(testConfig(), tr, WithHistory(rec), WithClock(func() time.Time { return clock }))

	tr.addTone(512, 750, 75, 100)
	require.NoError(t, m.Tick())
	assert.Equal(t, []time.Time{clock}, rec.records)
}

func TestTick_ZeroSignal(t *testing.T) {
	cfg := testConfig()
	cfg.Acquisition.Capacity = 4096
	tr := &fakeTransport{}
	rec := &recorder{}
	m := New(cfg, tr, WithDisplay(rec))

	for i := range 4096 {
		tr.add("%d,0", i*1333)
	}
	require.NoError(t, m.Tick())

	require.Len(t, rec.spectra, 1)
	v := rec.spectra[0]
	assert.Len(t, v.Power, 128)
	for _, p := range v.Power {
		assert.Equal(t, welch.Floor, p)
	}
	assert.Equal(t, welch.Floor, v.Lower)
	assert.Equal(t, welch.Floor*10, v.Upper)
}

func TestRun(t *testing.T) {
	t.Run("cancel", func(t *testing.T) {
		tr := &fakeTransport{}
		tr.addTone(64, 750, 75, 100)
		m := New(testConfig(), tr)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() { done <- m.Run(ctx, time.Millisecond) }()

		time.Sleep(50 * time.Millisecond)
		select {
		case err := <-done:
			t.Fatalf("Run returned before cancel: %v", err)
		default:
		}

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
		assert.Equal(t, uint64(64), m.Total())
	})

	t.Run("fatal", func(t *testing.T) {
		tr := &fakeTransport{err: hall.ErrClosed}
		m := New(testConfig(), tr)

		err := m.Run(context.Background(), time.Millisecond)
		assert.ErrorIs(t, err, hall.ErrClosed)
	})
}
