package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/itohio/gohall/pkg/config"
	"github.com/itohio/gohall/pkg/hall"
	"github.com/itohio/gohall/pkg/monitor"
	"github.com/itohio/gohall/pkg/store"
)

// session is one connected acquisition run: a transport, the monitor
// driving it and the sinks it writes to.
type session struct {
	transport hall.Transport
	monitor   *monitor.Monitor
	history   *store.History
	logger    *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	err    error

	stopOnce sync.Once
	stopErr  error
}

// newTransport returns the configured line source.
func newTransport(cfg *config.Config, useMock bool, logger *slog.Logger) hall.Transport {
	if useMock {
		return hall.NewMock(&cfg.Mock, hall.WithLogger(logger))
	}
	return hall.New(cfg.Serial.Port, cfg.Serial.BaudRate, hall.DefaultBufferSize, hall.WithLogger(logger))
}

// startSession connects and starts the acquisition loop in the background.
func startSession(ctx context.Context, cfg *config.Config, useMock bool, logger *slog.Logger, displays ...monitor.Display) (*session, error) {
	t := newTransport(cfg, useMock, logger)
	if err := t.Connect(); err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}

	s := &session{transport: t, logger: logger, done: make(chan struct{})}

	opts := []monitor.Option{monitor.WithLogger(logger)}
	if path := cfg.Output.SamplesFile; path != "" {
		opts = append(opts, monitor.WithSampleLog(store.NewSampleLog(path)))
	}
	if path := cfg.Output.PSDFile; path != "" {
		opts = append(opts, monitor.WithSnapshot(store.NewSnapshot(path, cfg.Acquisition.Units)))
	}
	if path := cfg.Output.HistoryDB; path != "" {
		source := cfg.Serial.Port
		if useMock {
			source = "mock"
		}
		s.history = store.NewHistory(path, source, cfg.Acquisition.Units)
		opts = append(opts, monitor.WithHistory(s.history))
	}
	for _, d := range displays {
		opts = append(opts, monitor.WithDisplay(d))
	}

	s.monitor = monitor.New(cfg, t, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		s.err = s.monitor.Run(runCtx, cfg.Acquisition.TickInterval)
	}()

	logger.Info("acquisition started",
		slog.Bool("mock", useMock),
		slog.Int("capacity", cfg.Acquisition.Capacity),
		slog.Float64("sample_rate", cfg.Acquisition.SampleRate),
		slog.Duration("tick", cfg.Acquisition.TickInterval))

	return s, nil
}

// Done is closed when the acquisition loop has stopped.
func (s *session) Done() <-chan struct{} {
	return s.done
}

// Err returns the loop error once Done is closed.
func (s *session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Stop cancels the loop, waits for it and releases the transport and sinks.
// It returns the loop error, if any, joined with release failures.
func (s *session) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done

		errs := []error{s.err, s.transport.Close()}
		if s.history != nil {
			errs = append(errs, s.history.Close())
		}
		s.stopErr = errors.Join(errs...)
	})
	return s.stopErr
}
