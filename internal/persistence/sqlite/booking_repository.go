package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/coaching-booking/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
//
// Reservations run inside a single write transaction. The pool is opened with
// _txlock=immediate, so the occupancy read and the insert happen under the
// database write lock and concurrent reservations for the same date serialize.
// The partial unique index on (lesson_date, start_minute) backs this up.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const bookingColumns = `id, lesson_type_id, lesson_date, start_minute, duration_minutes, status, payment_status, contact_name, contact_email, notes, created_at, updated_at`

// Statuses that hold a place on the calendar.
const activeStatusList = `'pending', 'confirmed'`

// ReserveBooking inserts booking once check accepts the active bookings on its date.
func (r *BookingRepository) ReserveBooking(ctx context.Context, booking persistence.Booking, check persistence.ReservationCheck) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&booking.CreatedAt, &booking.UpdatedAt)

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			occupied, err := r.occupiedTx(ctx, tx, booking.LessonDate, "")
			if err != nil {
				return err
			}
			if check != nil {
				if err := check(occupied); err != nil {
					return err
				}
			}

			if _, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO bookings (`+bookingColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				booking.ID,
				booking.LessonTypeID,
				formatDate(booking.LessonDate),
				booking.StartMinute,
				booking.DurationMinutes,
				booking.Status,
				booking.PaymentStatus,
				booking.ContactName,
				normalizeEmail(booking.ContactEmail),
				nullableString(booking.Notes),
				formatTimestamp(booking.CreatedAt),
				formatTimestamp(booking.UpdatedAt),
			); err != nil {
				return r.mapper.MapError(err)
			}

			for _, athleteID := range booking.AthleteIDs {
				if _, err := r.helper.ExecTx(ctx, tx,
					`INSERT INTO booking_athletes (booking_id, athlete_id) VALUES (?, ?)`,
					booking.ID, athleteID,
				); err != nil {
					return r.mapper.MapError(err)
				}
			}
			return nil
		})
	})
}

// RescheduleBooking moves an existing booking to booking's date, start and
// duration once check accepts the other active bookings on the new date.
func (r *BookingRepository) RescheduleBooking(ctx context.Context, booking persistence.Booking, check persistence.ReservationCheck) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = time.Now().UTC()
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var exists int
			if err := r.helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, booking.ID).Scan(&exists); err != nil {
				return r.mapper.MapError(err)
			}
			if exists == 0 {
				return persistence.ErrNotFound
			}

			occupied, err := r.occupiedTx(ctx, tx, booking.LessonDate, booking.ID)
			if err != nil {
				return err
			}
			if check != nil {
				if err := check(occupied); err != nil {
					return err
				}
			}

			result, err := r.helper.ExecTx(ctx, tx, `
				UPDATE bookings
				SET lesson_date = ?, start_minute = ?, duration_minutes = ?, updated_at = ?
				WHERE id = ?
			`,
				formatDate(booking.LessonDate),
				booking.StartMinute,
				booking.DurationMinutes,
				formatTimestamp(booking.UpdatedAt),
				booking.ID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			return affectedOne(result, persistence.ErrNotFound)
		})
	})
}

// UpdateBooking stores status, payment and contact changes. Schedule fields
// and athletes are left untouched; use RescheduleBooking to move a booking.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = time.Now().UTC()
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, `
			UPDATE bookings
			SET status = ?, payment_status = ?, contact_name = ?, contact_email = ?, notes = ?, updated_at = ?
			WHERE id = ?
		`,
			booking.Status,
			booking.PaymentStatus,
			booking.ContactName,
			normalizeEmail(booking.ContactEmail),
			nullableString(booking.Notes),
			formatTimestamp(booking.UpdatedAt),
			booking.ID,
		)
		if err != nil {
			return err
		}
		return affectedOne(result, persistence.ErrNotFound)
	})
}

// GetBooking retrieves a booking and its athletes by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}

	athletes, err := r.athletesFor(ctx, []string{booking.ID})
	if err != nil {
		return persistence.Booking{}, err
	}
	booking.AthleteIDs = athletes[booking.ID]
	return booking, nil
}

// ListBookings returns bookings matching filter ordered by date, start then ID.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	where, args := dateRangeClause("lesson_date", filter.Dates)
	if len(filter.Statuses) > 0 {
		clause := "status IN (" + strings.TrimSuffix(strings.Repeat("?,", len(filter.Statuses)), ",") + ")"
		if where == "" {
			where = "\n\t\tWHERE " + clause
		} else {
			where += " AND " + clause
		}
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}

	rows, err := r.helper.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings`+where+`
		ORDER BY lesson_date ASC, start_minute ASC, id ASC
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	if len(bookings) == 0 {
		return nil, nil
	}

	ids := make([]string, len(bookings))
	for i, booking := range bookings {
		ids[i] = booking.ID
	}
	athletes, err := r.athletesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].AthleteIDs = athletes[bookings[i].ID]
	}
	return bookings, nil
}

// occupiedTx lists the active bookings on date inside tx, skipping excludeID.
// Athlete IDs are not loaded; callers only need the occupied time.
func (r *BookingRepository) occupiedTx(ctx context.Context, tx *sql.Tx, date time.Time, excludeID string) ([]persistence.Booking, error) {
	rows, err := r.helper.QueryTx(ctx, tx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE lesson_date = ? AND status IN (`+activeStatusList+`) AND id <> ?
		ORDER BY start_minute ASC, id ASC
	`, formatDate(date), excludeID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

// athletesFor maps booking IDs to their athlete IDs in insertion order.
func (r *BookingRepository) athletesFor(ctx context.Context, bookingIDs []string) (map[string][]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bookingIDs)), ",")
	args := make([]any, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}

	rows, err := r.helper.Query(ctx, `
		SELECT booking_id, athlete_id
		FROM booking_athletes
		WHERE booking_id IN (`+placeholders+`)
		ORDER BY rowid ASC
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	athletes := make(map[string][]string, len(bookingIDs))
	for rows.Next() {
		var bookingID, athleteID string
		if err := rows.Scan(&bookingID, &athleteID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		athletes[bookingID] = append(athletes[bookingID], athleteID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return athletes, nil
}

// collectBookings drains and closes rows so the single pooled connection is
// free for the next statement.
func collectBookings(rows *sql.Rows) ([]persistence.Booking, error) {
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking              persistence.Booking
		date                 string
		notes                sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&booking.ID,
		&booking.LessonTypeID,
		&date,
		&booking.StartMinute,
		&booking.DurationMinutes,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.ContactName,
		&booking.ContactEmail,
		&notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Booking{}, err
	}
	booking.Notes = stringPtr(notes)

	var err error
	if booking.LessonDate, err = parseDate("lesson_date", date); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("booking %s: %w", booking.ID, err)
	}
	if booking.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("booking %s: %w", booking.ID, err)
	}
	return booking, nil
}
