package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/availability"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	GetBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
	UpdateBookingStatus(ctx context.Context, params application.UpdateBookingStatusParams) (application.Booking, error)
	UpdatePaymentStatus(ctx context.Context, params application.UpdatePaymentStatusParams) (application.Booking, error)
	RescheduleBooking(ctx context.Context, params application.RescheduleBookingParams) (application.Booking, error)
}

// BookingHandler serves lesson bookings.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// Create reserves a lesson. It answers 201 with the booking, or 409 when the
// time is no longer free.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input := req.toInput()
	logger := h.log(r.Context(), "Create", "lesson_type_id", input.LessonTypeID, "date", input.Date, "time", input.Time)
	booking, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBookingDTO(booking))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := pathParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	booking, err := h.service.GetBooking(r.Context(), principal, bookingID)
	if err != nil {
		h.log(r.Context(), "Get", "booking_id", bookingID).WarnContext(r.Context(), "booking lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

// List accepts from, to and status filters. status may repeat or hold a
// comma separated list.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	var statuses []string
	for _, raw := range query["status"] {
		for _, status := range strings.Split(raw, ",") {
			if status = strings.TrimSpace(status); status != "" {
				statuses = append(statuses, status)
			}
		}
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	bookings, err := h.service.ListBookings(r.Context(), application.ListBookingsParams{
		Principal: principal,
		From:      strings.TrimSpace(query.Get("from")),
		To:        strings.TrimSpace(query.Get("to")),
		Statuses:  statuses,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		dtos = append(dtos, toBookingDTO(booking))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := pathParam(r, "id")
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdateStatus", "booking_id", bookingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateStatus", "principal_id", principal.UserID, "booking_id", bookingID)
	booking, err := h.service.UpdateBookingStatus(r.Context(), application.UpdateBookingStatusParams{
		Principal: principal,
		BookingID: bookingID,
		Status:    strings.TrimSpace(req.Status),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking status update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking status updated", "status", booking.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := pathParam(r, "id")
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdatePayment", "booking_id", bookingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode payment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdatePayment", "principal_id", principal.UserID, "booking_id", bookingID)
	booking, err := h.service.UpdatePaymentStatus(r.Context(), application.UpdatePaymentStatusParams{
		Principal:     principal,
		BookingID:     bookingID,
		PaymentStatus: strings.TrimSpace(req.PaymentStatus),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "payment status update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "payment status updated", "payment_status", booking.PaymentStatus)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := pathParam(r, "id")
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Reschedule", "booking_id", bookingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reschedule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Reschedule", "principal_id", principal.UserID, "booking_id", bookingID, "date", req.Date, "time", req.Time)
	booking, err := h.service.RescheduleBooking(r.Context(), application.RescheduleBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Date:      strings.TrimSpace(req.Date),
		Time:      strings.TrimSpace(req.Time),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking reschedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking rescheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

type bookingRequest struct {
	LessonTypeID string   `json:"lesson_type_id"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	AthleteIDs   []string `json:"athlete_ids"`
	ContactName  string   `json:"contact_name"`
	ContactEmail string   `json:"contact_email"`
	Notes        *string  `json:"notes"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		LessonTypeID: strings.TrimSpace(r.LessonTypeID),
		Date:         strings.TrimSpace(r.Date),
		Time:         strings.TrimSpace(r.Time),
		AthleteIDs:   r.AthleteIDs,
		ContactName:  strings.TrimSpace(r.ContactName),
		ContactEmail: strings.TrimSpace(r.ContactEmail),
		Notes:        r.Notes,
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type paymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type bookingDTO struct {
	ID              string   `json:"id"`
	LessonTypeID    string   `json:"lesson_type_id"`
	Date            string   `json:"date"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	DurationMinutes int      `json:"duration_minutes"`
	AthleteIDs      []string `json:"athlete_ids"`
	Status          string   `json:"status"`
	PaymentStatus   string   `json:"payment_status"`
	ContactName     string   `json:"contact_name"`
	ContactEmail    string   `json:"contact_email"`
	Notes           *string  `json:"notes,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	athleteIDs := booking.AthleteIDs
	if athleteIDs == nil {
		athleteIDs = []string{}
	}
	return bookingDTO{
		ID:              booking.ID,
		LessonTypeID:    booking.LessonTypeID,
		Date:            availability.FormatDate(booking.Date),
		Start:           booking.Start.String(),
		End:             booking.End().String(),
		DurationMinutes: booking.DurationMinutes,
		AthleteIDs:      athleteIDs,
		Status:          string(booking.Status),
		PaymentStatus:   string(booking.PaymentStatus),
		ContactName:     booking.ContactName,
		ContactEmail:    booking.ContactEmail,
		Notes:           booking.Notes,
		CreatedAt:       formatTimestamp(booking.CreatedAt),
		UpdatedAt:       formatTimestamp(booking.UpdatedAt),
	}
}
