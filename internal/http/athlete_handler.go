package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/availability"
)

type athleteService interface {
	RegisterAthlete(ctx context.Context, params application.RegisterAthleteParams) (application.Athlete, error)
	UpdateAthlete(ctx context.Context, params application.UpdateAthleteParams) (application.Athlete, error)
	DeleteAthlete(ctx context.Context, principal application.Principal, athleteID string) error
	GetAthlete(ctx context.Context, principal application.Principal, athleteID string) (application.Athlete, error)
	ListAthletes(ctx context.Context, principal application.Principal) ([]application.Athlete, error)
}

// AthleteHandler serves athlete registration and administration.
type AthleteHandler struct {
	service   athleteService
	responder responder
	logger    *slog.Logger
}

func NewAthleteHandler(service athleteService, logger *slog.Logger) *AthleteHandler {
	base := defaultLogger(logger)
	return &AthleteHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AthleteHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AthleteHandler", operation, attrs...)
}

// Register is public so parents can sign up their gymnasts.
func (h *AthleteHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req athleteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode athlete request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Register")
	athlete, err := h.service.RegisterAthlete(r.Context(), application.RegisterAthleteParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "athlete registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("athlete_id", athlete.ID).InfoContext(r.Context(), "athlete registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAthleteDTO(athlete))
}

func (h *AthleteHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	athleteID := pathParam(r, "id")
	if athleteID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req athleteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "athlete_id", athleteID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode athlete update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "athlete_id", athleteID)
	athlete, err := h.service.UpdateAthlete(r.Context(), application.UpdateAthleteParams{
		Principal: principal,
		AthleteID: athleteID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "athlete update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "athlete updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAthleteDTO(athlete))
}

func (h *AthleteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	athleteID := pathParam(r, "id")
	if athleteID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "athlete_id", athleteID)
	if err := h.service.DeleteAthlete(r.Context(), principal, athleteID); err != nil {
		logger.WarnContext(r.Context(), "athlete delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "athlete deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AthleteHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	athleteID := pathParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	athlete, err := h.service.GetAthlete(r.Context(), principal, athleteID)
	if err != nil {
		h.log(r.Context(), "Get", "athlete_id", athleteID).WarnContext(r.Context(), "athlete lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAthleteDTO(athlete))
}

func (h *AthleteHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	athletes, err := h.service.ListAthletes(r.Context(), principal)
	if err != nil {
		logger.WarnContext(r.Context(), "athlete list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]athleteDTO, 0, len(athletes))
	for _, athlete := range athletes {
		dtos = append(dtos, toAthleteDTO(athlete))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

type athleteRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	BirthDate   string  `json:"birth_date"`
	SkillLevel  *string `json:"skill_level"`
	ParentName  string  `json:"parent_name"`
	ParentEmail string  `json:"parent_email"`
	ParentPhone *string `json:"parent_phone"`
	Notes       *string `json:"notes"`
}

func (r athleteRequest) toInput() application.AthleteInput {
	return application.AthleteInput{
		FirstName:   strings.TrimSpace(r.FirstName),
		LastName:    strings.TrimSpace(r.LastName),
		BirthDate:   strings.TrimSpace(r.BirthDate),
		SkillLevel:  r.SkillLevel,
		ParentName:  strings.TrimSpace(r.ParentName),
		ParentEmail: strings.TrimSpace(r.ParentEmail),
		ParentPhone: r.ParentPhone,
		Notes:       r.Notes,
	}
}

type athleteDTO struct {
	ID          string  `json:"id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	BirthDate   *string `json:"birth_date,omitempty"`
	SkillLevel  *string `json:"skill_level,omitempty"`
	ParentName  string  `json:"parent_name"`
	ParentEmail string  `json:"parent_email"`
	ParentPhone *string `json:"parent_phone,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toAthleteDTO(athlete application.Athlete) athleteDTO {
	var birthDate *string
	if athlete.BirthDate != nil {
		formatted := availability.FormatDate(*athlete.BirthDate)
		birthDate = &formatted
	}
	return athleteDTO{
		ID:          athlete.ID,
		FirstName:   athlete.FirstName,
		LastName:    athlete.LastName,
		BirthDate:   birthDate,
		SkillLevel:  athlete.SkillLevel,
		ParentName:  athlete.ParentName,
		ParentEmail: athlete.ParentEmail,
		ParentPhone: athlete.ParentPhone,
		Notes:       athlete.Notes,
		CreatedAt:   formatTimestamp(athlete.CreatedAt),
		UpdatedAt:   formatTimestamp(athlete.UpdatedAt),
	}
}
