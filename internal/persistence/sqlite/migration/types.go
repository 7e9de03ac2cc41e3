package migration

import (
	"context"
	"time"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version     string
	Description string
	Name        string
	SQL         string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the migration state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Scanner discovers migrations.
type Scanner interface {
	Scan() ([]Migration, error)
}

// Executor applies migrations and tracks them. ApplyMigration must record
// the version atomically with the schema change.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	ApplyMigration(ctx context.Context, migration Migration) (time.Duration, error)
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
