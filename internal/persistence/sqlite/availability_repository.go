package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/coaching-booking/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository using SQLite.
type AvailabilityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAvailabilityRepository creates a new SQLite availability repository.
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const (
	windowColumns    = `id, weekday, start_minute, end_minute, recurring, available, window_date, note, created_at, updated_at`
	exceptionColumns = `id, exception_date, start_minute, end_minute, available, reason, created_at, updated_at`
)

// CreateWindow inserts a new availability window.
func (r *AvailabilityRepository) CreateWindow(ctx context.Context, window persistence.AvailabilityWindow) error {
	if window.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&window.CreatedAt, &window.UpdatedAt)

	_, err := r.helper.Exec(ctx, `
		INSERT INTO availability_windows (`+windowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		window.ID,
		int(window.Weekday),
		window.StartMinute,
		window.EndMinute,
		window.Recurring,
		window.Available,
		nullableDate(window.Date),
		nullableString(window.Note),
		formatTimestamp(window.CreatedAt),
		formatTimestamp(window.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateWindow replaces the mutable fields of an existing window.
func (r *AvailabilityRepository) UpdateWindow(ctx context.Context, window persistence.AvailabilityWindow) error {
	if window.ID == "" {
		return persistence.ErrNotFound
	}
	if window.UpdatedAt.IsZero() {
		window.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE availability_windows
		SET weekday = ?, start_minute = ?, end_minute = ?, recurring = ?, available = ?,
			window_date = ?, note = ?, updated_at = ?
		WHERE id = ?
	`,
		int(window.Weekday),
		window.StartMinute,
		window.EndMinute,
		window.Recurring,
		window.Available,
		nullableDate(window.Date),
		nullableString(window.Note),
		formatTimestamp(window.UpdatedAt),
		window.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return affectedOne(result, persistence.ErrNotFound)
}

// GetWindow retrieves a window by ID.
func (r *AvailabilityRepository) GetWindow(ctx context.Context, id string) (persistence.AvailabilityWindow, error) {
	if id == "" {
		return persistence.AvailabilityWindow{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+windowColumns+` FROM availability_windows WHERE id = ?`, id)
	window, err := scanWindow(row)
	if err != nil {
		return persistence.AvailabilityWindow{}, r.mapper.MapError(err)
	}
	return window, nil
}

// ListWindows returns every window ordered by weekday, start then ID.
func (r *AvailabilityRepository) ListWindows(ctx context.Context) ([]persistence.AvailabilityWindow, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		ORDER BY weekday ASC, start_minute ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var windows []persistence.AvailabilityWindow
	for rows.Next() {
		window, err := scanWindow(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return windows, nil
}

// DeleteWindow removes a window by ID.
func (r *AvailabilityRepository) DeleteWindow(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM availability_windows WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return affectedOne(result, persistence.ErrNotFound)
}

// CreateException inserts a new date exception.
func (r *AvailabilityRepository) CreateException(ctx context.Context, exception persistence.AvailabilityException) error {
	if exception.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&exception.CreatedAt, &exception.UpdatedAt)

	_, err := r.helper.Exec(ctx, `
		INSERT INTO availability_exceptions (`+exceptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		exception.ID,
		formatDate(exception.Date),
		nullableInt(exception.StartMinute),
		nullableInt(exception.EndMinute),
		exception.Available,
		nullableString(exception.Reason),
		formatTimestamp(exception.CreatedAt),
		formatTimestamp(exception.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetException retrieves an exception by ID.
func (r *AvailabilityRepository) GetException(ctx context.Context, id string) (persistence.AvailabilityException, error) {
	if id == "" {
		return persistence.AvailabilityException{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+exceptionColumns+` FROM availability_exceptions WHERE id = ?`, id)
	exception, err := scanException(row)
	if err != nil {
		return persistence.AvailabilityException{}, r.mapper.MapError(err)
	}
	return exception, nil
}

// ListExceptions returns exceptions inside dates ordered by date, start then ID.
func (r *AvailabilityRepository) ListExceptions(ctx context.Context, dates persistence.DateRange) ([]persistence.AvailabilityException, error) {
	where, args := dateRangeClause("exception_date", dates)
	rows, err := r.helper.Query(ctx, `
		SELECT `+exceptionColumns+`
		FROM availability_exceptions`+where+`
		ORDER BY exception_date ASC, start_minute ASC, id ASC
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var exceptions []persistence.AvailabilityException
	for rows.Next() {
		exception, err := scanException(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		exceptions = append(exceptions, exception)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return exceptions, nil
}

// DeleteException removes an exception by ID.
func (r *AvailabilityRepository) DeleteException(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM availability_exceptions WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return affectedOne(result, persistence.ErrNotFound)
}

func scanWindow(row rowScanner) (persistence.AvailabilityWindow, error) {
	var (
		window               persistence.AvailabilityWindow
		weekday              int
		date, note           sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&window.ID,
		&weekday,
		&window.StartMinute,
		&window.EndMinute,
		&window.Recurring,
		&window.Available,
		&date,
		&note,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.AvailabilityWindow{}, err
	}
	window.Weekday = time.Weekday(weekday)
	window.Note = stringPtr(note)

	var err error
	if window.Date, err = datePtr("window_date", date); err != nil {
		return persistence.AvailabilityWindow{}, err
	}
	if window.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.AvailabilityWindow{}, err
	}
	if window.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.AvailabilityWindow{}, err
	}
	return window, nil
}

func scanException(row rowScanner) (persistence.AvailabilityException, error) {
	var (
		exception            persistence.AvailabilityException
		date                 string
		start, end           sql.NullInt64
		reason               sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&exception.ID,
		&date,
		&start,
		&end,
		&exception.Available,
		&reason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.AvailabilityException{}, err
	}
	exception.StartMinute = intPtr(start)
	exception.EndMinute = intPtr(end)
	exception.Reason = stringPtr(reason)

	var err error
	if exception.Date, err = parseDate("exception_date", date); err != nil {
		return persistence.AvailabilityException{}, err
	}
	if exception.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.AvailabilityException{}, err
	}
	if exception.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.AvailabilityException{}, err
	}
	return exception, nil
}

// dateRangeClause renders an inclusive WHERE clause over an ISO date column.
func dateRangeClause(column string, dates persistence.DateRange) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if dates.From != nil {
		conditions = append(conditions, column+" >= ?")
		args = append(args, formatDate(*dates.From))
	}
	if dates.To != nil {
		conditions = append(conditions, column+" <= ?")
		args = append(args, formatDate(*dates.To))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conditions, " AND "), args
}
