package store

import (
	"fmt"
	"os"
	"strconv"

	"github.com/itohio/gohall/pkg/sample"
)

// SampleLog appends accepted samples to a CSV file, one "timestamp,value"
// record per line. The file is opened, written, synced and closed for every
// record so nothing is buffered across ticks.
type SampleLog struct {
	path string
}

// NewSampleLog returns a log writing to path. The file is created on first append.
func NewSampleLog(path string) *SampleLog {
	return &SampleLog{path: path}
}

// Path returns the file the log appends to.
func (l *SampleLog) Path() string {
	return l.path
}

// Append writes one sample.
func (l *SampleLog) Append(s sample.Sample) (err error) {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("opening sample log: %w", err)
	}
	defer closeWithError(f, &err)

	line := make([]byte, 0, 40)
	line = strconv.AppendFloat(line, s.Timestamp, 'f', 6, 64)
	line = append(line, ',')
	line = strconv.AppendFloat(line, s.Value, 'g', -1, 64)
	line = append(line, '\n')

	if _, err = f.Write(line); err != nil {
		return fmt.Errorf("writing sample log: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("syncing sample log: %w", err)
	}
	return nil
}
