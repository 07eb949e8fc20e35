package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/gohall/pkg/config"
	"github.com/itohio/gohall/pkg/term"
)

func main() {
	var (
		portFlag     = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag     = flag.Bool("mock", false, "Use mocked sensor instead of serial port")
		headlessFlag = flag.Bool("headless", false, "Run without a display; only write the output files")
		tuiFlag      = flag.Bool("tui", false, "Draw the panels on the terminal instead of a window")
		logFileFlag  = flag.String("log", "", "Log file (defaults to stdout, or hallmon.log with -tui)")
	)
	flag.Parse()

	var logLevel slog.LevelVar
	logOut, closeLog, err := openLog(*logFileFlag, *tuiFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: &logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("path", *configFlag), slog.Any("error", err))
		os.Exit(1)
	}
	logLevel.Set(cfg.LogLevel())

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	if !*headlessFlag && !*tuiFlag {
		runGUI(cfg, *configFlag, *mockFlag, logger)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *tuiFlag {
		err = runTerminal(ctx, cfg, *mockFlag, logger)
	} else {
		err = runHeadless(ctx, cfg, *mockFlag, logger)
	}
	if err != nil {
		logger.Error(err.Error())

		cancel()
		closeLog()
		os.Exit(1)
	}
}

func openLog(path string, tui bool) (io.Writer, func(), error) {
	if path == "" && tui {
		path = "hallmon.log"
	}
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// runHeadless acquires until ctx is done or the loop fails.
func runHeadless(ctx context.Context, cfg *config.Config, useMock bool, logger *slog.Logger) error {
	s, err := startSession(ctx, cfg, useMock, logger)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-s.Done():
	}
	return s.Stop()
}

// runTerminal is runHeadless with the panels drawn on the terminal.
func runTerminal(ctx context.Context, cfg *config.Config, useMock bool, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t, err := term.Open(logger)
	if err != nil {
		return err
	}
	defer t.Close()
	t.Watch(ctx, cancel)

	s, err := startSession(ctx, cfg, useMock, logger, t)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-s.Done():
	}
	return s.Stop()
}
