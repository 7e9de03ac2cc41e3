package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/coaching-booking/internal/persistence"
)

// AthleteRepository implements persistence.AthleteRepository using SQLite.
type AthleteRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAthleteRepository creates a new SQLite athlete repository.
func NewAthleteRepository(pool *ConnectionPool) *AthleteRepository {
	return &AthleteRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const athleteColumns = `id, first_name, last_name, birth_date, skill_level, parent_name, parent_email, parent_phone, notes, created_at, updated_at`

// CreateAthlete inserts a new athlete.
func (r *AthleteRepository) CreateAthlete(ctx context.Context, athlete persistence.Athlete) error {
	if athlete.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&athlete.CreatedAt, &athlete.UpdatedAt)

	_, err := r.helper.Exec(ctx, `
		INSERT INTO athletes (`+athleteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		athlete.ID,
		athlete.FirstName,
		athlete.LastName,
		nullableDate(athlete.BirthDate),
		nullableString(athlete.SkillLevel),
		athlete.ParentName,
		normalizeEmail(athlete.ParentEmail),
		nullableString(athlete.ParentPhone),
		nullableString(athlete.Notes),
		formatTimestamp(athlete.CreatedAt),
		formatTimestamp(athlete.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateAthlete replaces the mutable fields of an existing athlete.
func (r *AthleteRepository) UpdateAthlete(ctx context.Context, athlete persistence.Athlete) error {
	if athlete.ID == "" {
		return persistence.ErrNotFound
	}
	if athlete.UpdatedAt.IsZero() {
		athlete.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE athletes
		SET first_name = ?, last_name = ?, birth_date = ?, skill_level = ?, parent_name = ?,
			parent_email = ?, parent_phone = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		athlete.FirstName,
		athlete.LastName,
		nullableDate(athlete.BirthDate),
		nullableString(athlete.SkillLevel),
		athlete.ParentName,
		normalizeEmail(athlete.ParentEmail),
		nullableString(athlete.ParentPhone),
		nullableString(athlete.Notes),
		formatTimestamp(athlete.UpdatedAt),
		athlete.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return affectedOne(result, persistence.ErrNotFound)
}

// GetAthlete retrieves an athlete by ID.
func (r *AthleteRepository) GetAthlete(ctx context.Context, id string) (persistence.Athlete, error) {
	if id == "" {
		return persistence.Athlete{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+athleteColumns+` FROM athletes WHERE id = ?`, id)
	athlete, err := scanAthlete(row)
	if err != nil {
		return persistence.Athlete{}, r.mapper.MapError(err)
	}
	return athlete, nil
}

// ListAthletes returns every athlete ordered by last name, first name then ID.
func (r *AthleteRepository) ListAthletes(ctx context.Context) ([]persistence.Athlete, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+athleteColumns+`
		FROM athletes
		ORDER BY last_name COLLATE NOCASE ASC, first_name COLLATE NOCASE ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var athletes []persistence.Athlete
	for rows.Next() {
		athlete, err := scanAthlete(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		athletes = append(athletes, athlete)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return athletes, nil
}

// DeleteAthlete removes an athlete. Athletes attached to bookings are
// rejected with persistence.ErrForeignKeyViolation.
func (r *AthleteRepository) DeleteAthlete(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM athletes WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return affectedOne(result, persistence.ErrNotFound)
}

// MissingAthleteIDs returns the ids, in input order, that have no athlete row.
func (r *AthleteRepository) MissingAthleteIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.helper.Query(ctx, `SELECT id FROM athletes WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func scanAthlete(row rowScanner) (persistence.Athlete, error) {
	var (
		athlete               persistence.Athlete
		birthDate, skillLevel sql.NullString
		parentPhone, notes    sql.NullString
		createdAt, updatedAt  string
	)
	if err := row.Scan(
		&athlete.ID,
		&athlete.FirstName,
		&athlete.LastName,
		&birthDate,
		&skillLevel,
		&athlete.ParentName,
		&athlete.ParentEmail,
		&parentPhone,
		&notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Athlete{}, err
	}

	var err error
	if athlete.BirthDate, err = datePtr("birth_date", birthDate); err != nil {
		return persistence.Athlete{}, err
	}
	athlete.SkillLevel = stringPtr(skillLevel)
	athlete.ParentPhone = stringPtr(parentPhone)
	athlete.Notes = stringPtr(notes)
	if athlete.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Athlete{}, err
	}
	if athlete.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Athlete{}, err
	}
	return athlete, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
