package history

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS history (
	       id          INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp   INTEGER NOT NULL,
	       status      INTEGER NOT NULL CHECK (status IN (0, 1)),
	       voltage     REAL NOT NULL,
	       current     REAL NOT NULL,
	       power       REAL NOT NULL,
	       consumption REAL NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS history_timestamp ON history (timestamp);`

	insertEntrySQL = `
    INSERT INTO history (timestamp, status, voltage, current, power, consumption)
    VALUES (?, ?, ?, ?, ?, ?)`

	pruneSQL = `
    DELETE FROM history
    WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`

	latestSQL = `
    SELECT timestamp, status, voltage, current, power, consumption
    FROM (SELECT * FROM history ORDER BY id DESC LIMIT ?)
    ORDER BY id ASC`

	betweenSQL = `
    SELECT timestamp, status, voltage, current, power, consumption
    FROM history
    WHERE timestamp >= ? AND timestamp <= ?
    ORDER BY id ASC`
)

// initSchema creates a new database schema with the current version.
func initSchema(ctx context.Context, db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "create_tables",
		})
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().Int("version", SchemaVersion).Msg("History schema initialized")

	return nil
}

// schemaVersion returns the recorded schema version, 0 for an empty database.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := tableExists(ctx, db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRowContext(ctx, `
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, table).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: table,
			Error: err.Error(),
		})
	}
	return exists, nil
}
