// Package term draws the live panels on a text terminal for hosts without a
// display server.
package term

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	termbox "github.com/nsf/termbox-go"

	"github.com/itohio/gohall/pkg/monitor"
)

var _ monitor.Display = (*Terminal)(nil)

// Terminal is a monitor.Display that redraws the whole screen on every update.
type Terminal struct {
	logger *slog.Logger

	mu       sync.Mutex
	series   *monitor.Series
	spectrum *monitor.SpectrumView

	size  func() (int, int)
	flush func(*frame) error
}

// Open initializes the terminal. Close must be called to restore it.
func Open(logger *slog.Logger) (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("initializing terminal: %w", err)
	}
	termbox.HideCursor()
	if logger == nil {
		logger = slog.Default()
	}

	return &Terminal{
		logger: logger,
		size:   termbox.Size,
		flush:  flushTermbox,
	}, nil
}

// Close restores the terminal.
func (t *Terminal) Close() {
	termbox.Interrupt()
	termbox.Close()
}

// Watch polls keyboard events until ctx is done and calls quit on Esc, q or Ctrl-C.
func (t *Terminal) Watch(ctx context.Context, quit func()) {
	go func() {
		for ctx.Err() == nil {
			switch ev := termbox.PollEvent(); ev.Type {
			case termbox.EventKey:
				if ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q' {
					quit()
					return
				}
			case termbox.EventResize:
				t.redraw()
			case termbox.EventInterrupt:
				return
			case termbox.EventError:
				t.logger.Error("terminal event", slog.Any("error", ev.Err))
				return
			}
		}
	}()
}

// UpdateSeries implements monitor.Display.
func (t *Terminal) UpdateSeries(s monitor.Series) {
	t.mu.Lock()
	t.series = &s
	t.mu.Unlock()
	t.redraw()
}

// UpdateSpectrum implements monitor.Display.
func (t *Terminal) UpdateSpectrum(v monitor.SpectrumView) {
	t.mu.Lock()
	t.spectrum = &v
	t.mu.Unlock()
	t.redraw()
}

func (t *Terminal) redraw() {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, h := t.size()
	if err := t.flush(render(w, h, t.series, t.spectrum)); err != nil {
		t.logger.Error("terminal redraw", slog.Any("error", err))
	}
}

func flushTermbox(f *frame) error {
	if err := termbox.Clear(termbox.ColorWhite, termbox.ColorBlack); err != nil {
		return err
	}
	for y := range f.h {
		for x := range f.w {
			if r := f.at(x, y); r != ' ' {
				termbox.SetCell(x, y, r, termbox.ColorWhite, termbox.ColorBlack)
			}
		}
	}
	return termbox.Flush()
}
