package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/coaching-booking/internal/persistence"
)

func TestErrorMapperClassifiesDriverMessages(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: persistence.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), want: persistence.ErrNotFound},
		{name: "unique", err: errors.New("constraint failed: UNIQUE constraint failed: bookings.lesson_date, bookings.start_minute (2067)"), want: persistence.ErrDuplicate},
		{name: "foreign key", err: errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), want: persistence.ErrForeignKeyViolation},
		{name: "check", err: errors.New("constraint failed: CHECK constraint failed: end_minute > start_minute (275)"), want: persistence.ErrConstraintViolation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := mapper.MapError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	other := errors.New("disk I/O error")
	if got := mapper.MapError(other); got != other {
		t.Fatalf("expected unrelated errors to pass through, got %v", got)
	}
}

func TestRetryHelperRetriesOnlyBusyErrors(t *testing.T) {
	t.Parallel()

	helper := NewRetryHelper(RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2})

	attempts := 0
	err := helper.WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil || attempts != 3 {
		t.Fatalf("expected success on third attempt, got err=%v attempts=%d", err, attempts)
	}

	checkErr := errors.New("slot taken")
	attempts = 0
	err = helper.WithRetry(context.Background(), func() error {
		attempts++
		return checkErr
	})
	if !errors.Is(err, checkErr) || attempts != 1 {
		t.Fatalf("expected check error after one attempt, got err=%v attempts=%d", err, attempts)
	}

	attempts = 0
	err = helper.WithRetry(context.Background(), func() error {
		attempts++
		return errors.New("database is locked")
	})
	if err == nil || attempts != 4 {
		t.Fatalf("expected failure after 4 attempts, got err=%v attempts=%d", err, attempts)
	}
}

func TestRetryHelperStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	helper := NewRetryHelper(RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := helper.WithRetry(ctx, func() error { return errors.New("database is locked") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
