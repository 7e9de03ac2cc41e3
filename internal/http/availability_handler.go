package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/availability"
)

type availabilityService interface {
	CreateWindow(ctx context.Context, params application.CreateWindowParams) (application.AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, params application.UpdateWindowParams) (application.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, principal application.Principal, windowID string) error
	ListWindows(ctx context.Context) ([]application.AvailabilityWindow, error)
	CreateException(ctx context.Context, params application.CreateExceptionParams) (application.AvailabilityException, error)
	DeleteException(ctx context.Context, principal application.Principal, exceptionID string) error
	ListExceptions(ctx context.Context, params application.ListExceptionsParams) ([]application.AvailabilityException, error)
	GetSlots(ctx context.Context, params application.GetSlotsParams) ([]application.Slot, error)
	ListAvailableDays(ctx context.Context, params application.ListAvailableDaysParams) ([]application.DaySlots, error)
}

// AvailabilityHandler serves the coaching calendar and slot queries.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

func (h *AvailabilityHandler) ListWindows(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	windows, err := h.service.ListWindows(r.Context())
	if err != nil {
		h.log(r.Context(), "ListWindows").ErrorContext(r.Context(), "window list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]windowDTO, 0, len(windows))
	for _, window := range windows {
		dtos = append(dtos, toWindowDTO(window))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

func (h *AvailabilityHandler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req windowRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CreateWindow", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode window request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateWindow", "principal_id", principal.UserID)
	window, err := h.service.CreateWindow(r.Context(), application.CreateWindowParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "window creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("window_id", window.ID).InfoContext(r.Context(), "window created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toWindowDTO(window))
}

func (h *AvailabilityHandler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	windowID := pathParam(r, "id")
	if windowID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req windowRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdateWindow", "window_id", windowID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode window update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateWindow", "principal_id", principal.UserID, "window_id", windowID)
	window, err := h.service.UpdateWindow(r.Context(), application.UpdateWindowParams{
		Principal: principal,
		WindowID:  windowID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "window update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "window updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWindowDTO(window))
}

func (h *AvailabilityHandler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	windowID := pathParam(r, "id")
	if windowID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DeleteWindow", "principal_id", principal.UserID, "window_id", windowID)
	if err := h.service.DeleteWindow(r.Context(), principal, windowID); err != nil {
		logger.WarnContext(r.Context(), "window delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "window deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AvailabilityHandler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	exceptions, err := h.service.ListExceptions(r.Context(), application.ListExceptionsParams{
		From: strings.TrimSpace(query.Get("from")),
		To:   strings.TrimSpace(query.Get("to")),
	})
	if err != nil {
		h.log(r.Context(), "ListExceptions").WarnContext(r.Context(), "exception list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]exceptionDTO, 0, len(exceptions))
	for _, exception := range exceptions {
		dtos = append(dtos, toExceptionDTO(exception))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

func (h *AvailabilityHandler) CreateException(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req exceptionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CreateException", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode exception request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateException", "principal_id", principal.UserID)
	exception, err := h.service.CreateException(r.Context(), application.CreateExceptionParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "exception creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("exception_id", exception.ID).InfoContext(r.Context(), "exception created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toExceptionDTO(exception))
}

func (h *AvailabilityHandler) DeleteException(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	exceptionID := pathParam(r, "id")
	if exceptionID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DeleteException", "principal_id", principal.UserID, "exception_id", exceptionID)
	if err := h.service.DeleteException(r.Context(), principal, exceptionID); err != nil {
		logger.WarnContext(r.Context(), "exception delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "exception deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Slots answers GET /availability/slots?date=&lesson_type_id=.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.GetSlotsParams{
		Date:         strings.TrimSpace(query.Get("date")),
		LessonTypeID: strings.TrimSpace(query.Get("lesson_type_id")),
	}
	logger := h.log(r.Context(), "Slots", "date", params.Date, "lesson_type_id", params.LessonTypeID)
	slots, err := h.service.GetSlots(r.Context(), params)
	if err != nil {
		logger.WarnContext(r.Context(), "slot computation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		dtos = append(dtos, slotDTO{
			Date:     availability.FormatDate(slot.Date),
			Start:    slot.Start.String(),
			End:      slot.End.String(),
			Override: slot.Override,
		})
	}
	logger.With("result_count", len(dtos)).DebugContext(r.Context(), "slots computed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

// Days answers GET /availability/days?from=&to=&lesson_type_id=.
func (h *AvailabilityHandler) Days(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.ListAvailableDaysParams{
		From:         strings.TrimSpace(query.Get("from")),
		To:           strings.TrimSpace(query.Get("to")),
		LessonTypeID: strings.TrimSpace(query.Get("lesson_type_id")),
	}
	days, err := h.service.ListAvailableDays(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "Days", "from", params.From, "to", params.To).WarnContext(r.Context(), "available days failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]dayDTO, 0, len(days))
	for _, day := range days {
		dtos = append(dtos, dayDTO{Date: availability.FormatDate(day.Date), SlotCount: day.SlotCount})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

type windowRequest struct {
	Weekday   *int    `json:"weekday"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Recurring *bool   `json:"recurring"`
	Available *bool   `json:"available"`
	Date      string  `json:"date"`
	Note      *string `json:"note"`
}

// toInput applies the request defaults: windows are available, and recurring
// unless pinned to a date.
func (r windowRequest) toInput() application.WindowInput {
	date := strings.TrimSpace(r.Date)
	recurring := date == ""
	if r.Recurring != nil {
		recurring = *r.Recurring
	}
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	return application.WindowInput{
		Weekday:   r.Weekday,
		Start:     strings.TrimSpace(r.Start),
		End:       strings.TrimSpace(r.End),
		Recurring: recurring,
		Available: available,
		Date:      date,
		Note:      r.Note,
	}
}

type windowDTO struct {
	ID        string  `json:"id"`
	Weekday   int     `json:"weekday"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Recurring bool    `json:"recurring"`
	Available bool    `json:"available"`
	Date      *string `json:"date,omitempty"`
	Note      *string `json:"note,omitempty"`
	Override  bool    `json:"override"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toWindowDTO(window application.AvailabilityWindow) windowDTO {
	var date *string
	if window.Date != nil {
		formatted := availability.FormatDate(*window.Date)
		date = &formatted
	}
	return windowDTO{
		ID:        window.ID,
		Weekday:   int(window.Weekday),
		Start:     window.Start.String(),
		End:       window.End.String(),
		Recurring: window.Recurring,
		Available: window.Available,
		Date:      date,
		Note:      window.Note,
		Override:  window.Override(),
		CreatedAt: formatTimestamp(window.CreatedAt),
		UpdatedAt: formatTimestamp(window.UpdatedAt),
	}
}

type exceptionRequest struct {
	Date      string  `json:"date"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Available bool    `json:"available"`
	Reason    *string `json:"reason"`
}

func (r exceptionRequest) toInput() application.ExceptionInput {
	return application.ExceptionInput{
		Date:      strings.TrimSpace(r.Date),
		Start:     strings.TrimSpace(r.Start),
		End:       strings.TrimSpace(r.End),
		Available: r.Available,
		Reason:    r.Reason,
	}
}

type exceptionDTO struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Start     *string `json:"start,omitempty"`
	End       *string `json:"end,omitempty"`
	Available bool    `json:"available"`
	Reason    *string `json:"reason,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toExceptionDTO(exception application.AvailabilityException) exceptionDTO {
	dto := exceptionDTO{
		ID:        exception.ID,
		Date:      availability.FormatDate(exception.Date),
		Available: exception.Available,
		Reason:    exception.Reason,
		CreatedAt: formatTimestamp(exception.CreatedAt),
		UpdatedAt: formatTimestamp(exception.UpdatedAt),
	}
	if exception.Start != nil && exception.End != nil {
		start, end := exception.Start.String(), exception.End.String()
		dto.Start, dto.End = &start, &end
	}
	return dto
}

type slotDTO struct {
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Override bool   `json:"override"`
}

type dayDTO struct {
	Date      string `json:"date"`
	SlotCount int    `json:"slot_count"`
}
