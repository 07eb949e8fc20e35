package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/itohio/gohall/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hall_data.csv")
	log := NewSampleLog(path)
	assert.Equal(t, path, log.Path())

	require.NoError(t, log.Append(sample.Sample{Timestamp: 1.0, Value: 1.5}))
	require.NoError(t, log.Append(sample.Sample{Timestamp: 1700000000.123456, Value: -12}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.000000,1.5\n1700000000.123456,-12\n", string(data))
}

func TestSampleLog_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hall_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("0.000000,1\n"), 0o644))

	require.NoError(t, NewSampleLog(path).Append(sample.Sample{Timestamp: 2, Value: 3}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.000000,1\n2.000000,3\n", string(data))
}

func TestSampleLog_Unwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "hall_data.csv")
	err := NewSampleLog(path).Append(sample.Sample{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "opening sample log")
}
