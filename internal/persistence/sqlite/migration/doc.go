// Package migration applies versioned SQL schema changes to the booking
// database.
//
// Migrations are read from an fs.FS (normally the files embedded into the
// sqlite package) and must be named {version}_{description}.sql, for example
// "001_initial_schema.sql". Each migration runs in its own transaction and is
// recorded in the schema_migrations table together with its checksum, so a
// file edited after it was applied is reported instead of silently skipped.
//
// Example usage:
//
//	manager := migration.NewManager(db, migrationFS, logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
