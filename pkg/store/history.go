package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/itohio/gohall/pkg/welch"
)

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    source     TEXT NOT NULL,
    units      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS estimates (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions(id),
    taken_at   DATETIME NOT NULL,
    bins       INTEGER NOT NULL,
    lower      REAL NOT NULL,
    upper      REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS bins (
    estimate_id INTEGER NOT NULL REFERENCES estimates(id),
    frequency   REAL NOT NULL,
    power       REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bins_estimate ON bins(estimate_id);
`

const insertBinsSQL = `INSERT INTO bins (estimate_id, frequency, power) VALUES `

// SQLite caps host parameters per statement; three per row.
const binsPerInsert = 300

// History records every successful spectral estimate into an SQLite database.
type History struct {
	dbPath string
	source string
	units  string

	db      *sql.DB
	session int64
	once    sync.Once
	openErr error

	closeOnce sync.Once
	closeErr  error
}

// NewHistory returns a history store for dbPath. The database and a new
// session row are created lazily on the first Record.
func NewHistory(dbPath, source, units string) *History {
	return &History{dbPath: dbPath, source: source, units: units}
}

func (h *History) open(ctx context.Context) (*sql.DB, error) {
	h.once.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", h.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			h.openErr = fmt.Errorf("opening history: %w", err)
			return
		}
		db.SetMaxOpenConns(1)

		if _, err = db.ExecContext(ctx, initSchemaSQL); err != nil {
			_ = db.Close()
			h.openErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		res, err := db.ExecContext(ctx,
			`INSERT INTO sessions (started_at, source, units) VALUES (?, ?, ?)`,
			time.Now().UTC(), h.source, h.units)
		if err != nil {
			_ = db.Close()
			h.openErr = fmt.Errorf("inserting session: %w", err)
			return
		}
		if h.session, err = res.LastInsertId(); err != nil {
			_ = db.Close()
			h.openErr = fmt.Errorf("reading session id: %w", err)
			return
		}

		h.db = db
	})

	return h.db, h.openErr
}

// Session returns the id of the session this store writes to, or 0 before
// the first Record.
func (h *History) Session() int64 {
	return h.session
}

// Record stores one conditioned estimate taken at ts.
func (h *History) Record(ctx context.Context, ts time.Time, v welch.View) (err error) {
	db, err := h.open(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO estimates (session_id, taken_at, bins, lower, upper) VALUES (?, ?, ?, ?, ?)`,
		h.session, ts.UTC(), v.Len(), v.Lower, v.Upper)
	if err != nil {
		return fmt.Errorf("inserting estimate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading estimate id: %w", err)
	}

	for start := 0; start < v.Len(); start += binsPerInsert {
		end := min(start+binsPerInsert, v.Len())

		var sb strings.Builder
		sb.WriteString(insertBinsSQL)
		values := make([]any, 0, (end-start)*3)
		for i := start; i < end; i++ {
			if i > start {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
			values = append(values, id, v.Frequencies[i], v.Power[i])
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting bins: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Latest returns the most recent estimate of the current session.
// ok is false when nothing has been recorded yet.
func (h *History) Latest(ctx context.Context) (v welch.View, ts time.Time, ok bool, err error) {
	db, err := h.open(ctx)
	if err != nil {
		return v, ts, false, err
	}

	var id int64
	row := db.QueryRowContext(ctx,
		`SELECT id, taken_at, lower, upper FROM estimates WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		h.session)
	if err = row.Scan(&id, &ts, &v.Lower, &v.Upper); err != nil {
		if err == sql.ErrNoRows {
			return v, ts, false, nil
		}
		return v, ts, false, fmt.Errorf("querying latest estimate: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT frequency, power FROM bins WHERE estimate_id = ? ORDER BY rowid`, id)
	if err != nil {
		return v, ts, false, fmt.Errorf("querying bins: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var f, p float64
		if err = rows.Scan(&f, &p); err != nil {
			return v, ts, false, fmt.Errorf("scanning bin: %w", err)
		}
		v.Frequencies = append(v.Frequencies, f)
		v.Power = append(v.Power, p)
	}
	if err = rows.Err(); err != nil {
		return v, ts, false, fmt.Errorf("iterating bins: %w", err)
	}

	return v, ts, true, nil
}

// Count returns the number of estimates in the current session.
func (h *History) Count(ctx context.Context) (n int, err error) {
	db, err := h.open(ctx)
	if err != nil {
		return 0, err
	}
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM estimates WHERE session_id = ?`, h.session).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting estimates: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (h *History) Close() error {
	h.closeOnce.Do(func() {
		if h.db != nil {
			h.closeErr = h.db.Close()
			h.db = nil
		}
	})
	return h.closeErr
}
