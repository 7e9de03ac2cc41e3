package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	// ErrVersionConflict reports a gap in the file sequence, or an applied
	// version whose file is gone.
	ErrVersionConflict = errors.New("migration version conflict")
	// ErrChecksumMismatch reports an applied file edited after the fact.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// MigrationError records which migration file and step failed.
type MigrationError struct {
	Version   string
	Name      string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	subject := e.Name
	if e.Version != "" {
		subject = e.Version + " (" + e.Name + ")"
	}
	return fmt.Sprintf("migration %s: %s: %v", subject, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func NewMigrationError(version, name, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, Name: name, Operation: operation, Err: err}
}

// DatabaseError is a failure reported by SQLite while migrating.
type DatabaseError struct {
	Version   string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("migration database %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("migration %s database %s: %v", e.Version, e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func NewDatabaseError(version, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Operation: operation, Err: err}
}
