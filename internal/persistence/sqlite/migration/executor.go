package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const versionTableDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL,
		checksum TEXT,
		execution_time_ms INTEGER
	)`

// SQLiteExecutor applies migrations to a SQLite database and tracks them in
// schema_migrations.
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db, now: time.Now}
}

func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, versionTableDDL); err != nil {
		return NewDatabaseError("", "create schema_migrations", err)
	}
	return nil
}

// ApplyMigration runs the statements of migration and inserts its
// schema_migrations row in the same transaction, so a crash never leaves a
// schema change without its version record.
func (e *SQLiteExecutor) ApplyMigration(ctx context.Context, migration Migration) (elapsed time.Duration, err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return 0, NewMigrationError(migration.Version, migration.Name, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	started := e.now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewDatabaseError(migration.Version, "begin", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return 0, NewDatabaseError(migration.Version, fmt.Sprintf("statement %d", i+1), err)
		}
	}

	elapsed = e.now().Sub(started)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		migration.Version, e.now().UTC().Format(time.RFC3339), migration.Checksum, elapsed.Milliseconds(),
	); err != nil {
		return 0, NewDatabaseError(migration.Version, "record", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, NewDatabaseError(migration.Version, "commit", err)
	}
	return elapsed, nil
}

// GetAppliedVersions lists schema_migrations in numeric version order.
func (e *SQLiteExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
		FROM schema_migrations
		ORDER BY CAST(version AS INTEGER)`)
	if err != nil {
		return nil, NewDatabaseError("", "list applied", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			a         AppliedMigration
			appliedAt string
			millis    int64
		)
		if err := rows.Scan(&a.Version, &appliedAt, &millis, &a.Checksum); err != nil {
			return nil, NewDatabaseError("", "scan applied", err)
		}
		if a.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, NewDatabaseError(a.Version, "parse applied_at", err)
		}
		a.ExecutionTime = time.Duration(millis) * time.Millisecond
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", "list applied", err)
	}
	return applied, nil
}
