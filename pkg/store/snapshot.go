package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/itohio/gohall/pkg/welch"
)

// Snapshot holds the most recent spectral estimate as a two-column CSV.
// Every Write replaces the whole file; readers never see a partial table.
type Snapshot struct {
	path  string
	units string
}

// NewSnapshot returns a snapshot writer. units names the power unit in the
// header, e.g. "T^2" gives "PSD (T^2/Hz)".
func NewSnapshot(path, units string) *Snapshot {
	return &Snapshot{path: path, units: units}
}

// Path returns the snapshot file.
func (s *Snapshot) Path() string {
	return s.path
}

// Header returns the CSV header line without the trailing newline.
func (s *Snapshot) Header() string {
	return fmt.Sprintf("Frequency (Hz),PSD (%s/Hz)", s.units)
}

// Write replaces the snapshot with v.
func (s *Snapshot) Write(v welch.View) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	// CreateTemp uses 0600, which Rename would carry over
	if err = tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err = s.encode(tmp, v); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

func (s *Snapshot) encode(f *os.File, v welch.View) error {
	w := bufio.NewWriter(f)
	w.WriteString(s.Header())
	w.WriteByte('\n')

	var row []byte
	for i := range v.Frequencies {
		row = strconv.AppendFloat(row[:0], v.Frequencies[i], 'g', -1, 64)
		row = append(row, ',')
		row = strconv.AppendFloat(row, v.Power[i], 'g', -1, 64)
		row = append(row, '\n')
		w.Write(row)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
