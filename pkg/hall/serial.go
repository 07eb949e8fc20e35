package hall

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate is the firmware's UART rate.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the number of complete lines queued between ticks.
	// At 750 lines/s and a 100 ms tick this leaves ample headroom.
	DefaultBufferSize = 4096
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Option configures a transport.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for connection events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Serial reads sensor lines from a serial port.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	logger   *slog.Logger

	mu        sync.RWMutex
	conn      io.ReadCloser
	queue     *lineQueue
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// New creates a new serial transport with the specified port, baud rate, and line buffer size.
func New(port string, baudRate int, bufSize int, opts ...Option) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	o := newOptions(opts)

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		logger:   o.logger,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		result := make([]Port, 0, len(details))
		for _, d := range details {
			desc := d.Name
			if d.IsUSB {
				desc = fmt.Sprintf("%s %s:%s", d.Product, d.VID, d.PID)
			}
			result = append(result, Port{Name: d.Name, Description: desc})
		}
		return result, nil
	}

	// Fall back to bare names
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.start(port)
	d.logger.Info("serial port opened", slog.String("port", d.port), slog.Int("baud", d.baudRate))

	return nil
}

// start begins reading lines from conn. Callers hold d.mu.
func (d *Serial) start(conn io.ReadCloser) {
	ctx, cancel := context.WithCancel(context.Background())

	d.conn = conn
	d.queue = newLineQueue(d.bufSize)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.connected = true

	go d.readLines(ctx, d.queue, conn, d.done)
}

// Close closes the port and waits for the reader to stop.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port %s: %w", d.port, err)
		}
		d.conn = nil
	}

	<-d.done
	d.queue = nil
	d.connected = false
	d.logger.Info("serial port closed", slog.String("port", d.port))

	return err
}

// Available returns the number of complete lines ready to read.
func (d *Serial) Available() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.queue == nil {
		return 0, ErrNotConnected
	}
	return d.queue.available()
}

// ReadLine returns the next buffered line without blocking.
func (d *Serial) ReadLine() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.queue == nil {
		return nil, ErrNotConnected
	}
	return d.queue.read()
}

// IsConnected returns whether the port is currently open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) readLines(ctx context.Context, q *lineQueue, r io.Reader, done chan struct{}) {
	defer close(done)
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic in serial reader", slog.Any("panic", rec))
			q.fail(fmt.Errorf("%w: reader panic: %v", ErrClosed, rec))
		}
	}()

	q.fill(ctx, r)

	if err := q.failure(); err != nil && ctx.Err() == nil {
		d.logger.Error("serial port read failed", slog.String("port", d.port), slog.Any("error", err))
	}
}
