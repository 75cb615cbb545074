package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/logger"
	"codeberg.org/mutker/eveenergy/internal/telemetry"
	_ "github.com/mattn/go-sqlite3"
)

// repository persists snapshots in sqlite. It does no buffering; the
// Recorder batches writes.
type repository struct {
	db  *sql.DB
	log logger.Logger
}

func openRepository(ctx context.Context, path string, log logger.Logger) (*repository, error) {
	errFactory := errors.New()

	if path == "" {
		return nil, errFactory.New(ErrInvalidPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  path,
			Error: err.Error(),
		})
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000")
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := migrate(ctx, db, filepath.Join(filepath.Dir(path), backupDirName), log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &repository{db: db, log: log}, nil
}

// insert writes entries in one transaction and then drops all but the
// newest keep rows.
func (r *repository) insert(ctx context.Context, entries []telemetry.Snapshot, keep int) error {
	errFactory := errors.New()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	rollback := func() {
		if err := tx.Rollback(); err != nil {
			r.log.Error().Err(err).Msg("Failed to roll back transaction")
		}
	}

	stmt, err := tx.PrepareContext(ctx, insertEntrySQL)
	if err != nil {
		rollback()
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, s := range entries {
		if _, err := stmt.ExecContext(ctx,
			s.Time.Unix(), int64(s.Status), s.Voltage, s.Current, s.Power, s.Consumption,
		); err != nil {
			rollback()
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if keep > 0 {
		if _, err := tx.ExecContext(ctx, pruneSQL, keep); err != nil {
			rollback()
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	return nil
}

// latest returns the newest n rows, oldest first.
func (r *repository) latest(ctx context.Context, n int) ([]telemetry.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, latestSQL, n)
	if err != nil {
		return nil, errors.New().Wrap(ErrQuery, err)
	}
	return scanSnapshots(rows)
}

// between returns the rows with from <= timestamp <= to, oldest first.
func (r *repository) between(ctx context.Context, from, to time.Time) ([]telemetry.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, betweenSQL, from.Unix(), to.Unix())
	if err != nil {
		return nil, errors.New().Wrap(ErrQuery, err)
	}
	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]telemetry.Snapshot, error) {
	defer rows.Close()

	var out []telemetry.Snapshot
	for rows.Next() {
		var (
			ts     int64
			status int64
			s      telemetry.Snapshot
		)
		if err := rows.Scan(&ts, &status, &s.Voltage, &s.Current, &s.Power, &s.Consumption); err != nil {
			return nil, errors.New().Wrap(ErrQuery, err)
		}
		s.Time = time.Unix(ts, 0)
		s.Status = uint8(status)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New().Wrap(ErrQuery, err)
	}
	return out, nil
}

func (r *repository) close() error {
	errFactory := errors.New()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.db.Close()
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}
	return nil
}
