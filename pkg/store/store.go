// Package store persists accepted samples and spectral estimates.
package store

import (
	"database/sql"
	"errors"
)

// fileMode is the permission of the CSV outputs.
const fileMode = 0o644

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// rollbackWithError rolls tx back unless it was already committed.
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}
