package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/coaching-booking/internal/persistence"
)

// AthleteRepository captures the persistence operations needed by the service.
type AthleteRepository interface {
	CreateAthlete(ctx context.Context, athlete Athlete) (Athlete, error)
	GetAthlete(ctx context.Context, id string) (Athlete, error)
	UpdateAthlete(ctx context.Context, athlete Athlete) (Athlete, error)
	DeleteAthlete(ctx context.Context, id string) error
	ListAthletes(ctx context.Context) ([]Athlete, error)
	MissingAthleteIDs(ctx context.Context, ids []string) ([]string, error)
}

// AthleteService manages athlete and parent records.
type AthleteService struct {
	athletes    AthleteRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAthleteService constructs an athlete service with the provided dependencies.
func NewAthleteService(athletes AthleteRepository, idGenerator func() string, now func() time.Time) *AthleteService {
	return NewAthleteServiceWithLogger(athletes, idGenerator, now, nil)
}

// NewAthleteServiceWithLogger constructs an athlete service with a specified logger.
func NewAthleteServiceWithLogger(athletes AthleteRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AthleteService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AthleteService{athletes: athletes, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *AthleteService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AthleteService", operation, attrs...)
}

// RegisterAthlete validates and stores a new athlete. Parents register their
// own athletes, so no admin principal is required.
func (s *AthleteService) RegisterAthlete(ctx context.Context, params RegisterAthleteParams) (athlete Athlete, err error) {
	if s == nil {
		err = fmt.Errorf("AthleteService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RegisterAthlete")
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to register athlete", err)
			return
		}
		logger.With("athlete_id", athlete.ID).InfoContext(ctx, "athlete registered")
	}()

	var birthDate *time.Time
	birthDate, err = s.validateAthleteInput(params.Input)
	if err != nil {
		return
	}

	athlete = applyAthleteInput(Athlete{ID: s.idGenerator(), CreatedAt: s.now()}, params.Input, birthDate)
	athlete.UpdatedAt = athlete.CreatedAt

	if s.athletes == nil {
		return
	}

	var persisted Athlete
	persisted, err = s.athletes.CreateAthlete(ctx, athlete)
	if err != nil {
		err = mapAthleteRepoError(err)
		return
	}
	athlete = persisted
	return
}

// GetAthlete returns an athlete for administrators.
func (s *AthleteService) GetAthlete(ctx context.Context, principal Principal, athleteID string) (Athlete, error) {
	if s == nil {
		return Athlete{}, fmt.Errorf("AthleteService is nil")
	}
	if !principal.IsAdmin {
		return Athlete{}, ErrUnauthorized
	}
	if s.athletes == nil {
		return Athlete{}, ErrNotFound
	}

	athlete, err := s.athletes.GetAthlete(ctx, athleteID)
	if err != nil {
		err = mapAthleteRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			logFailure(ctx, s.loggerWith(ctx, "GetAthlete", "athlete_id", athleteID), "failed to load athlete", err)
		}
		return Athlete{}, err
	}
	return athlete, nil
}

// UpdateAthlete replaces the editable fields of an athlete for administrators.
func (s *AthleteService) UpdateAthlete(ctx context.Context, params UpdateAthleteParams) (athlete Athlete, err error) {
	if s == nil {
		err = fmt.Errorf("AthleteService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.athletes == nil {
		err = fmt.Errorf("athlete repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateAthlete",
		"principal_id", params.Principal.UserID,
		"athlete_id", params.AthleteID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update athlete", err)
			return
		}
		logger.InfoContext(ctx, "athlete updated")
	}()

	var existing Athlete
	existing, err = s.athletes.GetAthlete(ctx, params.AthleteID)
	if err != nil {
		err = mapAthleteRepoError(err)
		return
	}

	var birthDate *time.Time
	birthDate, err = s.validateAthleteInput(params.Input)
	if err != nil {
		return
	}

	updated := applyAthleteInput(existing, params.Input, birthDate)
	updated.UpdatedAt = s.now()

	athlete, err = s.athletes.UpdateAthlete(ctx, updated)
	if err != nil {
		err = mapAthleteRepoError(err)
	}
	return
}

// DeleteAthlete removes an athlete that no booking references.
func (s *AthleteService) DeleteAthlete(ctx context.Context, principal Principal, athleteID string) error {
	if s == nil {
		return fmt.Errorf("AthleteService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.athletes == nil {
		return fmt.Errorf("athlete repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteAthlete",
		"principal_id", principal.UserID,
		"athlete_id", athleteID,
	)

	if err := s.athletes.DeleteAthlete(ctx, athleteID); err != nil {
		err = mapAthleteRepoError(err)
		logFailure(ctx, logger, "failed to delete athlete", err)
		return err
	}

	logger.InfoContext(ctx, "athlete deleted")
	return nil
}

// ListAthletes returns every athlete for administrators.
func (s *AthleteService) ListAthletes(ctx context.Context, principal Principal) (athletes []Athlete, err error) {
	if s == nil {
		err = fmt.Errorf("AthleteService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.athletes == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListAthletes", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list athletes", err)
			return
		}
		logger.With("result_count", len(athletes)).DebugContext(ctx, "athletes listed")
	}()

	athletes, err = s.athletes.ListAthletes(ctx)
	return
}

// MissingAthleteIDs returns the ids that do not refer to a registered athlete.
func (s *AthleteService) MissingAthleteIDs(ctx context.Context, ids []string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("AthleteService is nil")
	}
	if s.athletes == nil || len(ids) == 0 {
		return nil, nil
	}
	missing, err := s.athletes.MissingAthleteIDs(ctx, ids)
	if err != nil {
		return nil, mapAthleteRepoError(err)
	}
	return missing, nil
}

func (s *AthleteService) validateAthleteInput(input AthleteInput) (*time.Time, error) {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.FirstName) == "" {
		vErr.add("first_name", "first_name is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		vErr.add("last_name", "last_name is required")
	}
	if strings.TrimSpace(input.ParentName) == "" {
		vErr.add("parent_name", "parent_name is required")
	}
	validateEmail(vErr, "parent_email", input.ParentEmail)

	var birthDate *time.Time
	if parsed, ok := parseDateField(vErr, "birth_date", input.BirthDate, false); ok {
		if parsed.After(s.now()) {
			vErr.add("birth_date", "birth_date must not be in the future")
		} else {
			birthDate = &parsed
		}
	}

	if vErr.HasErrors() {
		return nil, vErr
	}
	return birthDate, nil
}

func applyAthleteInput(athlete Athlete, input AthleteInput, birthDate *time.Time) Athlete {
	athlete.FirstName = strings.TrimSpace(input.FirstName)
	athlete.LastName = strings.TrimSpace(input.LastName)
	athlete.BirthDate = birthDate
	athlete.SkillLevel = normalizeOptionalString(input.SkillLevel)
	athlete.ParentName = strings.TrimSpace(input.ParentName)
	athlete.ParentEmail = normalizeEmail(input.ParentEmail)
	athlete.ParentPhone = normalizeOptionalString(input.ParentPhone)
	athlete.Notes = normalizeOptionalString(input.Notes)
	return athlete
}

func mapAthleteRepoError(err error) error {
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
		return fieldError("athlete", "athlete violates a storage constraint")
	}
	return err
}
