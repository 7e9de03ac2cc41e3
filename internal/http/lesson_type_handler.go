package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/coaching-booking/internal/application"
)

type lessonTypeService interface {
	CreateLessonType(ctx context.Context, params application.CreateLessonTypeParams) (application.LessonType, error)
	UpdateLessonType(ctx context.Context, params application.UpdateLessonTypeParams) (application.LessonType, error)
	DeleteLessonType(ctx context.Context, principal application.Principal, lessonTypeID string) error
	GetLessonType(ctx context.Context, principal application.Principal, lessonTypeID string) (application.LessonType, error)
	ListLessonTypes(ctx context.Context, principal application.Principal) ([]application.LessonType, error)
}

// LessonTypeHandler serves the lesson type catalog.
type LessonTypeHandler struct {
	service   lessonTypeService
	responder responder
	logger    *slog.Logger
}

func NewLessonTypeHandler(service lessonTypeService, logger *slog.Logger) *LessonTypeHandler {
	base := defaultLogger(logger)
	return &LessonTypeHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LessonTypeHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LessonTypeHandler", operation, attrs...)
}

func (h *LessonTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req lessonTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode lesson type request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	lessonType, err := h.service.CreateLessonType(r.Context(), application.CreateLessonTypeParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "lesson type creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("lesson_type_id", lessonType.ID).InfoContext(r.Context(), "lesson type created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toLessonTypeDTO(lessonType))
}

func (h *LessonTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonTypeID := pathParam(r, "id")
	if lessonTypeID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req lessonTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "lesson_type_id", lessonTypeID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode lesson type update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "lesson_type_id", lessonTypeID)
	lessonType, err := h.service.UpdateLessonType(r.Context(), application.UpdateLessonTypeParams{
		Principal:    principal,
		LessonTypeID: lessonTypeID,
		Input:        req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "lesson type update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "lesson type updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLessonTypeDTO(lessonType))
}

func (h *LessonTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonTypeID := pathParam(r, "id")
	if lessonTypeID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "lesson_type_id", lessonTypeID)
	if err := h.service.DeleteLessonType(r.Context(), principal, lessonTypeID); err != nil {
		logger.WarnContext(r.Context(), "lesson type delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "lesson type deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *LessonTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonTypeID := pathParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	lessonType, err := h.service.GetLessonType(r.Context(), principal, lessonTypeID)
	if err != nil {
		h.log(r.Context(), "Get", "lesson_type_id", lessonTypeID).WarnContext(r.Context(), "lesson type lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLessonTypeDTO(lessonType))
}

func (h *LessonTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	lessonTypes, err := h.service.ListLessonTypes(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "lesson type list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(lessonTypes)).DebugContext(r.Context(), "lesson types listed")
	dtos := make([]lessonTypeDTO, 0, len(lessonTypes))
	for _, lessonType := range lessonTypes {
		dtos = append(dtos, toLessonTypeDTO(lessonType))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

type lessonTypeRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	DurationMinutes int     `json:"duration_minutes"`
	MinAthletes     int     `json:"min_athletes"`
	MaxAthletes     int     `json:"max_athletes"`
	PriceCents      int64   `json:"price_cents"`
	Active          *bool   `json:"active"`
}

func (r lessonTypeRequest) toInput() application.LessonTypeInput {
	return application.LessonTypeInput{
		Name:            strings.TrimSpace(r.Name),
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		MinAthletes:     r.MinAthletes,
		MaxAthletes:     r.MaxAthletes,
		PriceCents:      r.PriceCents,
		Active:          r.Active,
	}
}

type lessonTypeDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     *string `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	MinAthletes     int     `json:"min_athletes"`
	MaxAthletes     int     `json:"max_athletes"`
	PriceCents      int64   `json:"price_cents"`
	Active          bool    `json:"active"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toLessonTypeDTO(lessonType application.LessonType) lessonTypeDTO {
	return lessonTypeDTO{
		ID:              lessonType.ID,
		Name:            lessonType.Name,
		Description:     lessonType.Description,
		DurationMinutes: lessonType.DurationMinutes,
		MinAthletes:     lessonType.MinAthletes,
		MaxAthletes:     lessonType.MaxAthletes,
		PriceCents:      lessonType.PriceCents,
		Active:          lessonType.Active,
		CreatedAt:       formatTimestamp(lessonType.CreatedAt),
		UpdatedAt:       formatTimestamp(lessonType.UpdatedAt),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
