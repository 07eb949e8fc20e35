package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itohio/gohall/pkg/config"
	"github.com/itohio/gohall/pkg/hall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Acquisition.Capacity = 64
	cfg.Acquisition.TickInterval = 5 * time.Millisecond
	cfg.Output.SamplesFile = filepath.Join(dir, "hall_data.csv")
	cfg.Output.PSDFile = filepath.Join(dir, "hall_psd.csv")
	cfg.Output.HistoryDB = filepath.Join(dir, "history.db")
	cfg.Mock.SampleRate = time.Millisecond
	return cfg
}

func TestNewTransport(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &hall.Mock{}, newTransport(cfg, true, slog.Default()))
	assert.IsType(t, &hall.Serial{}, newTransport(cfg, false, slog.Default()))
}

func TestSession_Mock(t *testing.T) {
	cfg := testConfig(t)

	s, err := startSession(context.Background(), cfg, true, slog.Default())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.Output.PSDFile)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		count, err := s.history.Count(context.Background())
		return err == nil && count > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.NoError(t, s.Stop(), "Stop is idempotent")
	assert.NoError(t, s.Err())

	psd, err := os.ReadFile(cfg.Output.PSDFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(psd), "Frequency (Hz),PSD (T^2/Hz)\n"))

	samples, err := os.ReadFile(cfg.Output.SamplesFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(samples)), "\n")
	assert.GreaterOrEqual(t, len(lines), 16)
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ","), 2, "line %q", line)
	}
}

func TestSession_ConnectFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Serial.Port = "/dev/does-not-exist-gohall"

	_, err := startSession(context.Background(), cfg, false, slog.Default())
	assert.Error(t, err)
}

func TestSession_ParentCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output = config.OutputConfig{}

	ctx, cancel := context.WithCancel(context.Background())
	s, err := startSession(ctx, cfg, true, slog.Default())
	require.NoError(t, err)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
	assert.NoError(t, s.Stop())
}

func TestRunHeadless(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, runHeadless(ctx, cfg, true, slog.Default()))
	_, err := os.Stat(cfg.Output.SamplesFile)
	assert.NoError(t, err)
}

func TestOpenLog(t *testing.T) {
	w, closeLog, err := openLog("", false)
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
	closeLog()

	path := filepath.Join(t.TempDir(), "hallmon.log")
	w, closeLog, err = openLog(path, true)
	require.NoError(t, err)
	assert.NotEqual(t, os.Stdout, w)
	closeLog()
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
