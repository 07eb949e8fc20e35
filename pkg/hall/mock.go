package hall

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/itohio/gohall/pkg/config"
)

// mockBanner is emitted on connect, the way the firmware prints a greeting
// that the parser has to discard.
const mockBanner = "hall sensor mock ready"

// Mock simulates a Hall sensor board for testing and development: a tone
// with DC offset and uniform noise, written in one of the three line formats.
type Mock struct {
	cfg    *config.MockConfig
	logger *slog.Logger

	mu        sync.RWMutex
	queue     *lineQueue
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool

	// Simulation state, owned by the generator goroutine
	start time.Time
	rng   *rand.Rand
}

// NewMock creates a new mocked transport. cfg is copied.
func NewMock(cfg *config.MockConfig, opts ...Option) *Mock {
	c := config.Default().Mock
	if cfg != nil {
		c = *cfg
	}
	o := newOptions(opts)

	return &Mock{
		cfg:    &c,
		logger: o.logger,
	}
}

// Connect starts generating lines.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.queue = newLineQueue(DefaultBufferSize)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.start = time.Now()
	m.rng = rand.New(rand.NewSource(m.start.UnixNano()))
	m.connected = true

	m.queue.push(ctx, []byte(mockBanner))
	go m.generate(ctx, m.queue, m.done)

	m.logger.Info("mock transport connected", slog.String("format", m.cfg.Format))
	return nil
}

// Close stops the generator.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	<-m.done
	m.queue = nil
	m.connected = false

	return nil
}

// Available returns the number of generated lines not yet read.
func (m *Mock) Available() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.queue == nil {
		return 0, ErrNotConnected
	}
	return m.queue.available()
}

// ReadLine returns the next generated line without blocking.
func (m *Mock) ReadLine() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.queue == nil {
		return nil, ErrNotConnected
	}
	return m.queue.read()
}

// IsConnected returns whether the mock is generating.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generate(ctx context.Context, q *lineQueue, done chan struct{}) {
	defer close(done)
	defer close(q.ch)

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			q.fail(ErrClosed)
			return
		case <-ticker.C:
			if !q.push(ctx, m.line(n)) {
				q.fail(ErrClosed)
				return
			}
			n++
		}
	}
}

// line renders the n-th simulated reading. Time advances by exactly one
// sample interval per line so the tone stays clean regardless of ticker jitter.
func (m *Mock) line(n uint64) []byte {
	elapsed := time.Duration(n) * m.cfg.SampleRate
	t := elapsed.Seconds()

	value := m.cfg.Offset + m.cfg.Amplitude*math.Sin(2*math.Pi*m.cfg.Frequency*t)
	if m.cfg.NoiseLevel > 0 && m.rng != nil {
		value += m.cfg.NoiseLevel * (2*m.rng.Float64() - 1)
	}

	switch m.cfg.Format {
	case "labeled":
		// Same shape as the RP2040 demo firmware: 12-bit code and millivolts
		mv := int(math.Round(value))
		code := max(0, min(4095, mv*4096/3300))
		return fmt.Appendf(nil, "Raw: 0x%03x, Voltage: %d", code, mv)
	case "bare":
		return fmt.Appendf(nil, "%.3f", value)
	default:
		ts := m.start.Add(elapsed).UnixMicro()
		return fmt.Appendf(nil, "%d,%.3f", ts, value)
	}
}
