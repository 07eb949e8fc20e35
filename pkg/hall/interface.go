package hall

import "errors"

var (
	// ErrNotConnected is returned when a transport is used before Connect.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned once the line source has ended.
	ErrClosed = errors.New("transport closed")
	// ErrEmpty is returned by ReadLine when no complete line is buffered.
	ErrEmpty = errors.New("no line available")
)

// Transport yields raw text lines from the sensor without blocking the caller.
//
// Available reports how many complete lines can be read right now. Once the
// underlying link has failed and every buffered line has been read, it
// returns the failure.
type Transport interface {
	Connect() error
	Close() error
	Available() (int, error)
	ReadLine() ([]byte, error)
	IsConnected() bool
}

// Ensure Serial implements Transport.
var _ Transport = (*Serial)(nil)

// Ensure Mock implements Transport.
var _ Transport = (*Mock)(nil)
