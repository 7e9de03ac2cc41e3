package application

import (
	"net/mail"
	"strings"
	"time"

	"github.com/example/coaching-booking/internal/availability"
)

func parseDateField(vErr *ValidationError, field, value string, required bool) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			vErr.add(field, field+" is required")
		}
		return time.Time{}, false
	}
	date, err := availability.ParseDate(value)
	if err != nil {
		vErr.add(field, field+" must be a date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return date, true
}

func parseClockField(vErr *ValidationError, field, value string, required bool) (availability.ClockTime, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			vErr.add(field, field+" is required")
		}
		return 0, false
	}
	clock, err := availability.ParseClock(value)
	if err != nil {
		vErr.add(field, field+" must be a time in HH:MM format")
		return 0, false
	}
	return clock, true
}

func validateEmail(vErr *ValidationError, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		vErr.add(field, field+" is required")
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		vErr.add(field, field+" must be a valid email address")
	}
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
