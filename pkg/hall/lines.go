package hall

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MaxLineLength bounds a single line. Longer runs without a newline are
// line noise and are dropped up to the next newline.
const MaxLineLength = 4096

// lineSplitter is a bufio.SplitFunc like bufio.ScanLines that discards
// oversized lines instead of failing with bufio.ErrTooLong.
type lineSplitter struct {
	max      int
	skipping bool
}

func (s *lineSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		if s.skipping {
			s.skipping = false
			return i + 1, []byte{}, nil
		}
		return i + 1, bytes.TrimSuffix(data[:i], []byte{'\r'}), nil
	}
	if len(data) >= s.max {
		s.skipping = true
		return len(data), nil, nil
	}
	if atEOF && len(data) > 0 {
		if s.skipping {
			return len(data), nil, nil
		}
		return len(data), bytes.TrimSuffix(data, []byte{'\r'}), nil
	}
	return 0, nil, nil
}

// lineQueue buffers complete lines between a reader goroutine and the
// non-blocking Available/ReadLine pair.
type lineQueue struct {
	ch chan []byte

	mu  sync.Mutex
	err error
}

func newLineQueue(size int) *lineQueue {
	return &lineQueue{ch: make(chan []byte, size)}
}

// fail records the first terminal error.
func (q *lineQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
	}
}

func (q *lineQueue) failure() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *lineQueue) available() (int, error) {
	if n := len(q.ch); n > 0 {
		return n, nil
	}
	return 0, q.failure()
}

func (q *lineQueue) read() ([]byte, error) {
	select {
	case line, ok := <-q.ch:
		if !ok {
			if err := q.failure(); err != nil {
				return nil, err
			}
			return nil, ErrClosed
		}
		return line, nil
	default:
		return nil, ErrEmpty
	}
}

// push blocks until the line is queued or ctx is done.
func (q *lineQueue) push(ctx context.Context, line []byte) bool {
	select {
	case q.ch <- line:
		return true
	case <-ctx.Done():
		return false
	}
}

// fill splits r into lines until it fails or ctx is cancelled, then closes
// the queue. Blank and oversized lines are skipped. A read error that is not caused by
// cancellation is kept and surfaces through available once the queue drains.
func (q *lineQueue) fill(ctx context.Context, r io.Reader) {
	defer close(q.ch)

	scanner := bufio.NewScanner(r)
	scanner.Split((&lineSplitter{max: MaxLineLength}).split)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if !q.push(ctx, bytes.Clone(raw)) {
			q.fail(ErrClosed)
			return
		}
	}

	if ctx.Err() != nil {
		q.fail(ErrClosed)
		return
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	q.fail(fmt.Errorf("%w: %w", ErrClosed, err))
}
