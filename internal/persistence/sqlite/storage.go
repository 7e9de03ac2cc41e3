package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/coaching-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite-backed repositories over one connection pool.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	LessonTypes  *LessonTypeRepository
	Athletes     *AthleteRepository
	Availability *AvailabilityRepository
	Bookings     *BookingRepository
}

// Open connects to the database described by config. Call Migrate before
// using the repositories against a fresh file.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:         pool,
		logger:       logger,
		LessonTypes:  NewLessonTypeRepository(pool),
		Athletes:     NewAthleteRepository(pool),
		Availability: NewAvailabilityRepository(pool),
		Bookings:     NewBookingRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: open embedded migrations: %w", err)
	}
	return migration.NewManager(s.pool.DB(), sub, s.logger).Run(ctx)
}

// Ping reports whether the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// DB exposes the underlying handle for diagnostics and tests.
func (s *Storage) DB() *sql.DB {
	return s.pool.DB()
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
