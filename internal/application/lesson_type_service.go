package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/coaching-booking/internal/persistence"
)

const maxLessonMinutes = 8 * 60

// LessonTypeRepository captures the persistence operations needed by the service.
type LessonTypeRepository interface {
	CreateLessonType(ctx context.Context, lessonType LessonType) (LessonType, error)
	GetLessonType(ctx context.Context, id string) (LessonType, error)
	UpdateLessonType(ctx context.Context, lessonType LessonType) (LessonType, error)
	DeleteLessonType(ctx context.Context, id string) error
	ListLessonTypes(ctx context.Context) ([]LessonType, error)
}

// LessonTypeService orchestrates validation, authorization, and persistence for lesson types.
type LessonTypeService struct {
	lessonTypes LessonTypeRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewLessonTypeService constructs a lesson type service with the provided dependencies.
func NewLessonTypeService(lessonTypes LessonTypeRepository, idGenerator func() string, now func() time.Time) *LessonTypeService {
	return NewLessonTypeServiceWithLogger(lessonTypes, idGenerator, now, nil)
}

// NewLessonTypeServiceWithLogger constructs a lesson type service with a specified logger.
func NewLessonTypeServiceWithLogger(lessonTypes LessonTypeRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *LessonTypeService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &LessonTypeService{lessonTypes: lessonTypes, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *LessonTypeService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LessonTypeService", operation, attrs...)
}

// CreateLessonType validates input and persists a new lesson type for administrators.
func (s *LessonTypeService) CreateLessonType(ctx context.Context, params CreateLessonTypeParams) (lessonType LessonType, err error) {
	if s == nil {
		err = fmt.Errorf("LessonTypeService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateLessonType",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create lesson type", err)
			return
		}
		logger.With("lesson_type_id", lessonType.ID).InfoContext(ctx, "lesson type created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateLessonTypeInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	active := true
	if params.Input.Active != nil {
		active = *params.Input.Active
	}
	lessonType = LessonType{
		ID:              s.idGenerator(),
		Name:            strings.TrimSpace(params.Input.Name),
		Description:     normalizeOptionalString(params.Input.Description),
		DurationMinutes: params.Input.DurationMinutes,
		MinAthletes:     params.Input.MinAthletes,
		MaxAthletes:     params.Input.MaxAthletes,
		PriceCents:      params.Input.PriceCents,
		Active:          active,
		CreatedAt:       s.now(),
	}
	lessonType.UpdatedAt = lessonType.CreatedAt

	if s.lessonTypes == nil {
		return
	}

	var persisted LessonType
	persisted, err = s.lessonTypes.CreateLessonType(ctx, lessonType)
	if err != nil {
		err = mapLessonTypeRepoError(err)
		return
	}

	lessonType = persisted
	return
}

// UpdateLessonType validates input and updates an existing lesson type for administrators.
// Changing the duration does not move existing bookings; they keep their snapshot.
func (s *LessonTypeService) UpdateLessonType(ctx context.Context, params UpdateLessonTypeParams) (lessonType LessonType, err error) {
	if s == nil {
		err = fmt.Errorf("LessonTypeService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.lessonTypes == nil {
		err = fmt.Errorf("lesson type repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateLessonType",
		"principal_id", params.Principal.UserID,
		"lesson_type_id", params.LessonTypeID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update lesson type", err)
			return
		}
		logger.InfoContext(ctx, "lesson type updated")
	}()

	var existing LessonType
	existing, err = s.lessonTypes.GetLessonType(ctx, params.LessonTypeID)
	if err != nil {
		err = mapLessonTypeRepoError(err)
		return
	}

	vErr := validateLessonTypeInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.Description = normalizeOptionalString(params.Input.Description)
	updated.DurationMinutes = params.Input.DurationMinutes
	updated.MinAthletes = params.Input.MinAthletes
	updated.MaxAthletes = params.Input.MaxAthletes
	updated.PriceCents = params.Input.PriceCents
	if params.Input.Active != nil {
		updated.Active = *params.Input.Active
	}
	updated.UpdatedAt = s.now()

	lessonType, err = s.lessonTypes.UpdateLessonType(ctx, updated)
	if err != nil {
		err = mapLessonTypeRepoError(err)
		return
	}
	return
}

// DeleteLessonType removes a lesson type that no booking references.
func (s *LessonTypeService) DeleteLessonType(ctx context.Context, principal Principal, lessonTypeID string) error {
	if s == nil {
		return fmt.Errorf("LessonTypeService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.lessonTypes == nil {
		return fmt.Errorf("lesson type repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteLessonType",
		"principal_id", principal.UserID,
		"lesson_type_id", lessonTypeID,
	)

	if err := s.lessonTypes.DeleteLessonType(ctx, lessonTypeID); err != nil {
		err = mapLessonTypeRepoError(err)
		logFailure(ctx, logger, "failed to delete lesson type", err)
		return err
	}

	logger.InfoContext(ctx, "lesson type deleted")
	return nil
}

// GetLessonType returns a lesson type. Inactive lesson types are hidden from
// non-admin callers.
func (s *LessonTypeService) GetLessonType(ctx context.Context, principal Principal, lessonTypeID string) (lessonType LessonType, err error) {
	if s == nil {
		err = fmt.Errorf("LessonTypeService is nil")
		return
	}
	if s.lessonTypes == nil {
		err = ErrNotFound
		return
	}

	lessonType, err = s.lessonTypes.GetLessonType(ctx, lessonTypeID)
	if err != nil {
		err = mapLessonTypeRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			logFailure(ctx, s.loggerWith(ctx, "GetLessonType", "lesson_type_id", lessonTypeID), "failed to load lesson type", err)
		}
		return LessonType{}, err
	}
	if !lessonType.Active && !principal.IsAdmin {
		return LessonType{}, ErrNotFound
	}
	return lessonType, nil
}

// ListLessonTypes returns lesson types sorted by name. Non-admin callers only
// see active lesson types.
func (s *LessonTypeService) ListLessonTypes(ctx context.Context, principal Principal) (lessonTypes []LessonType, err error) {
	if s == nil {
		err = fmt.Errorf("LessonTypeService is nil")
		return
	}
	if s.lessonTypes == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListLessonTypes",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list lesson types", err)
			return
		}
		logger.With("result_count", len(lessonTypes)).DebugContext(ctx, "lesson types listed")
	}()

	var raw []LessonType
	raw, err = s.lessonTypes.ListLessonTypes(ctx)
	if err != nil {
		return
	}

	lessonTypes = make([]LessonType, 0, len(raw))
	for _, lt := range raw {
		if lt.Active || principal.IsAdmin {
			lessonTypes = append(lessonTypes, lt)
		}
	}

	sort.Slice(lessonTypes, func(i, j int) bool {
		if strings.EqualFold(lessonTypes[i].Name, lessonTypes[j].Name) {
			return lessonTypes[i].ID < lessonTypes[j].ID
		}
		return strings.ToLower(lessonTypes[i].Name) < strings.ToLower(lessonTypes[j].Name)
	})
	return
}

func validateLessonTypeInput(input LessonTypeInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	switch {
	case input.DurationMinutes <= 0:
		vErr.add("duration_minutes", "duration_minutes must be positive")
	case input.DurationMinutes > maxLessonMinutes:
		vErr.add("duration_minutes", fmt.Sprintf("duration_minutes must be at most %d", maxLessonMinutes))
	case input.DurationMinutes%5 != 0:
		vErr.add("duration_minutes", "duration_minutes must be a multiple of 5")
	}
	if input.MinAthletes < 1 {
		vErr.add("min_athletes", "min_athletes must be at least 1")
	}
	if input.MaxAthletes < input.MinAthletes {
		vErr.add("max_athletes", "max_athletes must not be less than min_athletes")
	}
	if input.PriceCents < 0 {
		vErr.add("price_cents", "price_cents must not be negative")
	}

	return vErr
}

func mapLessonTypeRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrInUse
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("lesson_type", "lesson type violates a storage constraint")
	}
	return err
}
