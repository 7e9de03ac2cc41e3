package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/coaching-booking/internal/persistence"
)

// ErrorMapper translates driver errors into persistence sentinels. The driver
// message stays in the chain for logs.
type ErrorMapper struct{}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

func (em *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if mapped(err) {
		return err
	}
	if sentinel := constraintSentinel(err); sentinel != nil {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return err
}

func mapped(err error) bool {
	return errors.Is(err, persistence.ErrNotFound) ||
		errors.Is(err, persistence.ErrDuplicate) ||
		errors.Is(err, persistence.ErrForeignKeyViolation) ||
		errors.Is(err, persistence.ErrConstraintViolation)
}

// constraintSentinel classifies constraint failures by extended result code,
// falling back to the message for errors that lost their code on the way.
func constraintSentinel(err error) error {
	var driverErr *moderncsqlite.Error
	if errors.As(err, &driverErr) {
		switch driverErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return persistence.ErrDuplicate
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_TRIGGER:
			return persistence.ErrForeignKeyViolation
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return persistence.ErrConstraintViolation
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return persistence.ErrDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return persistence.ErrForeignKeyViolation
	case strings.Contains(msg, "CHECK constraint failed"), strings.Contains(msg, "NOT NULL constraint failed"):
		return persistence.ErrConstraintViolation
	}
	return nil
}

// busy reports whether err means another connection holds the write lock.
func busy(err error) bool {
	if err == nil {
		return false
	}
	var driverErr *moderncsqlite.Error
	if errors.As(err, &driverErr) {
		switch driverErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// RetryConfig bounds the backoff applied to busy reservations.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig retries three times starting at 50ms. The busy_timeout
// pragma already waits inside the driver, so these retries only cover a
// timeout that expired under sustained contention.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	}
}

// RetryHelper reruns a whole transaction while SQLite reports the database busy.
type RetryHelper struct {
	config RetryConfig
	mapper *ErrorMapper
}

func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config, mapper: NewErrorMapper()}
}

// RetryableFunc is one attempt; it must be safe to run again from scratch.
type RetryableFunc func() error

// WithRetry runs fn until it succeeds, fails with a non-busy error or the
// retries run out. Errors returned by a reservation check are passed through
// untouched.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn RetryableFunc) error {
	delay := rh.config.InitialDelay
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil || !busy(err) {
			return rh.mapper.MapError(err)
		}
		if attempt >= rh.config.MaxRetries {
			return fmt.Errorf("sqlite: still busy after %d retries: %w", rh.config.MaxRetries, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * rh.config.BackoffFactor)
		if delay > rh.config.MaxDelay {
			delay = rh.config.MaxDelay
		}
	}
}
