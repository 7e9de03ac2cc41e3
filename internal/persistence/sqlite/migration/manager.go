package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"time"
)

// Manager orchestrates scanning, sequence validation and execution.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager builds a manager that applies the migrations found at the root
// of fsys to db.
func NewManager(db *sql.DB, fsys fs.FS, logger *slog.Logger) *Manager {
	return NewManagerWith(NewFSScanner(fsys, "."), NewSQLiteExecutor(db), logger)
}

// NewManagerWith builds a manager from explicit collaborators.
func NewManagerWith(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// Run applies all pending migrations in version order.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "database schema inspected",
		"current_version", status.CurrentVersion,
		"pending_count", len(status.Pending),
	)
	if len(status.Pending) == 0 {
		return nil
	}

	for i, migration := range status.Pending {
		logger := m.logger.With("version", migration.Version, "name", migration.Name)
		logger.InfoContext(ctx, "applying migration",
			"description", migration.Description,
			"position", i+1,
			"total", len(status.Pending),
		)

		elapsed, err := m.executor.ApplyMigration(ctx, migration)
		if err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.Name, "apply",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
	}

	m.logger.InfoContext(ctx, "all migrations applied",
		"count", len(status.Pending),
		"duration", time.Since(started),
	)
	return nil
}

// Status compares the available migrations with the applied ones.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to initialize version table: %w", err)
	}
	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, fmt.Errorf("failed to scan migrations: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	if err := validateSequence(available, applied); err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	maxApplied := -1
	for _, a := range applied {
		number, _ := strconv.Atoi(a.Version)
		appliedByVersion[number] = a
		if number > maxApplied {
			maxApplied = number
			status.CurrentVersion = a.Version
		}
	}
	for _, migration := range available {
		number, _ := strconv.Atoi(migration.Version)
		if _, ok := appliedByVersion[number]; !ok {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

// validateSequence rejects gaps in the available versions, applied versions
// without a file and applied files whose checksum changed.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for i, migration := range available {
		number, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.Name, "validate sequence",
				fmt.Errorf("%w: version %q is not numeric", ErrInvalidVersion, migration.Version))
		}
		if i > 0 {
			previous, _ := strconv.Atoi(available[i-1].Version)
			if number != previous+1 {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, previous+1)
			}
		}
		byVersion[number] = migration
	}

	for _, a := range applied {
		number, err := strconv.Atoi(a.Version)
		if err != nil {
			return fmt.Errorf("%w: applied version %q is not numeric", ErrInvalidVersion, a.Version)
		}
		migration, ok := byVersion[number]
		if !ok {
			return fmt.Errorf("%w: applied migration %03d not found in available migrations", ErrVersionConflict, number)
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return NewMigrationError(migration.Version, migration.Name, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
