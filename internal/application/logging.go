package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/coaching-booking/internal/availability"
	"github.com/example/coaching-booking/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.OrDefault(logger)
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, operation, attrs...)
}

// logFailure records a failed operation. Client-caused failures (validation,
// conflicts, missing records) are logged at DEBUG because the transport layer
// already reports them; only unexpected errors reach ERROR.
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error) {
	kind := ErrorKind(err)
	level := slog.LevelDebug
	if kind == "unexpected" {
		level = slog.LevelError
	}
	logger.Log(ctx, level, msg, "error", err, "error_kind", kind)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrConflict):
		switch {
		case errors.Is(err, availability.ErrDayBlocked):
			return "conflict_day_blocked"
		case errors.Is(err, availability.ErrOutsideAvailability):
			return "conflict_outside_availability"
		case errors.Is(err, availability.ErrSlotTaken):
			return "conflict_slot_taken"
		}
		return "conflict"
	case errors.Is(err, ErrInUse):
		return "in_use"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
