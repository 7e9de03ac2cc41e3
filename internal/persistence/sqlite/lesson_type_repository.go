package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/coaching-booking/internal/persistence"
)

// LessonTypeRepository implements persistence.LessonTypeRepository using SQLite.
type LessonTypeRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewLessonTypeRepository creates a new SQLite lesson type repository.
func NewLessonTypeRepository(pool *ConnectionPool) *LessonTypeRepository {
	return &LessonTypeRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const lessonTypeColumns = `id, name, description, duration_minutes, min_athletes, max_athletes, price_cents, active, created_at, updated_at`

// CreateLessonType inserts a new lesson type.
func (r *LessonTypeRepository) CreateLessonType(ctx context.Context, lessonType persistence.LessonType) error {
	if lessonType.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&lessonType.CreatedAt, &lessonType.UpdatedAt)

	_, err := r.helper.Exec(ctx, `
		INSERT INTO lesson_types (`+lessonTypeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lessonType.ID,
		lessonType.Name,
		nullableString(lessonType.Description),
		lessonType.DurationMinutes,
		lessonType.MinAthletes,
		lessonType.MaxAthletes,
		lessonType.PriceCents,
		lessonType.Active,
		formatTimestamp(lessonType.CreatedAt),
		formatTimestamp(lessonType.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateLessonType replaces the mutable fields of an existing lesson type.
func (r *LessonTypeRepository) UpdateLessonType(ctx context.Context, lessonType persistence.LessonType) error {
	if lessonType.ID == "" {
		return persistence.ErrNotFound
	}
	if lessonType.UpdatedAt.IsZero() {
		lessonType.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE lesson_types
		SET name = ?, description = ?, duration_minutes = ?, min_athletes = ?, max_athletes = ?,
			price_cents = ?, active = ?, updated_at = ?
		WHERE id = ?
	`,
		lessonType.Name,
		nullableString(lessonType.Description),
		lessonType.DurationMinutes,
		lessonType.MinAthletes,
		lessonType.MaxAthletes,
		lessonType.PriceCents,
		lessonType.Active,
		formatTimestamp(lessonType.UpdatedAt),
		lessonType.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return affectedOne(result, persistence.ErrNotFound)
}

// GetLessonType retrieves a lesson type by ID.
func (r *LessonTypeRepository) GetLessonType(ctx context.Context, id string) (persistence.LessonType, error) {
	if id == "" {
		return persistence.LessonType{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+lessonTypeColumns+` FROM lesson_types WHERE id = ?`, id)
	lessonType, err := scanLessonType(row)
	if err != nil {
		return persistence.LessonType{}, r.mapper.MapError(err)
	}
	return lessonType, nil
}

// ListLessonTypes returns every lesson type ordered by name then ID.
func (r *LessonTypeRepository) ListLessonTypes(ctx context.Context) ([]persistence.LessonType, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+lessonTypeColumns+` FROM lesson_types ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var lessonTypes []persistence.LessonType
	for rows.Next() {
		lessonType, err := scanLessonType(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		lessonTypes = append(lessonTypes, lessonType)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return lessonTypes, nil
}

// DeleteLessonType removes a lesson type. Lesson types referenced by bookings
// are rejected with persistence.ErrForeignKeyViolation.
func (r *LessonTypeRepository) DeleteLessonType(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM lesson_types WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return affectedOne(result, persistence.ErrNotFound)
}

func scanLessonType(row rowScanner) (persistence.LessonType, error) {
	var (
		lessonType           persistence.LessonType
		description          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&lessonType.ID,
		&lessonType.Name,
		&description,
		&lessonType.DurationMinutes,
		&lessonType.MinAthletes,
		&lessonType.MaxAthletes,
		&lessonType.PriceCents,
		&lessonType.Active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.LessonType{}, err
	}
	lessonType.Description = stringPtr(description)

	var err error
	if lessonType.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.LessonType{}, err
	}
	if lessonType.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.LessonType{}, err
	}
	return lessonType, nil
}
