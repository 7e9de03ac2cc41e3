package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/availability"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

type bookingServiceStub struct {
	createFn     func(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	listParams   application.ListBookingsParams
	statusParams application.UpdateBookingStatusParams
}

func (s *bookingServiceStub) CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
	return s.createFn(ctx, params)
}

func (s *bookingServiceStub) GetBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	if !principal.IsAdmin {
		return application.Booking{}, application.ErrUnauthorized
	}
	if bookingID != "bk-1" {
		return application.Booking{}, application.ErrNotFound
	}
	return sampleBooking(), nil
}

func (s *bookingServiceStub) ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error) {
	s.listParams = params
	return []application.Booking{sampleBooking()}, nil
}

func (s *bookingServiceStub) UpdateBookingStatus(ctx context.Context, params application.UpdateBookingStatusParams) (application.Booking, error) {
	s.statusParams = params
	booking := sampleBooking()
	booking.Status = application.BookingStatus(params.Status)
	return booking, nil
}

func (s *bookingServiceStub) UpdatePaymentStatus(ctx context.Context, params application.UpdatePaymentStatusParams) (application.Booking, error) {
	return application.Booking{}, &application.ValidationError{FieldErrors: map[string]string{"payment_status": "unknown payment status"}}
}

func (s *bookingServiceStub) RescheduleBooking(ctx context.Context, params application.RescheduleBookingParams) (application.Booking, error) {
	return application.Booking{}, fmt.Errorf("%w: %w", application.ErrConflict, availability.ErrSlotTaken)
}

func sampleBooking() application.Booking {
	return application.Booking{
		ID:              "bk-1",
		LessonTypeID:    "private",
		Date:            time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Start:           availability.MustParseClock("09:30"),
		DurationMinutes: 60,
		AthleteIDs:      []string{"ath-1"},
		Status:          application.BookingPending,
		PaymentStatus:   application.PaymentUnpaid,
		ContactName:     "Pat Parent",
		ContactEmail:    "pat@example.com",
		CreatedAt:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type availabilityServiceStub struct {
	application.AvailabilityService
	slotParams application.GetSlotsParams
	slotsErr   error
}

func (s *availabilityServiceStub) GetSlots(ctx context.Context, params application.GetSlotsParams) ([]application.Slot, error) {
	s.slotParams = params
	if s.slotsErr != nil {
		return nil, s.slotsErr
	}
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return []application.Slot{
		{Date: date, Start: availability.MustParseClock("07:00"), End: availability.MustParseClock("08:00"), Override: true},
		{Date: date, Start: availability.MustParseClock("09:00"), End: availability.MustParseClock("10:00")},
	}, nil
}

func (s *availabilityServiceStub) ListWindows(ctx context.Context) ([]application.AvailabilityWindow, error) {
	return []application.AvailabilityWindow{{
		ID:        "win-1",
		Weekday:   time.Monday,
		Start:     availability.MustParseClock("18:00"),
		End:       availability.MustParseClock("21:00"),
		Recurring: true,
		Available: true,
	}}, nil
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(context.Context) error { return p.err }

func newTestRouter(t *testing.T, bookings bookingService, avail availabilityService, health Pinger) http.Handler {
	t.Helper()
	logger := discardLogger()
	return NewRouter(RouterConfig{
		Bookings:     NewBookingHandler(bookings, logger),
		Availability: NewAvailabilityHandler(avail, logger),
		Health:       NewHealthHandler(health, logger),
		Middleware:   []func(http.Handler) http.Handler{RequestLogger(logger), Authenticate(adminTokenHash(t), logger)},
	})
}

func serve(handler http.Handler, method, target, body string, admin bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if admin {
		req.Header.Set("Authorization", "Bearer secret-token")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestBookingHandlerCreate(t *testing.T) {
	t.Parallel()

	const validBody = `{"lesson_type_id":" private ","date":"2024-03-04","time":"09:30","athlete_ids":["ath-1"],"contact_name":"Pat Parent","contact_email":"pat@example.com"}`

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{name: "created", body: validBody, wantStatus: http.StatusCreated},
		{name: "slot taken", body: validBody, serviceErr: fmt.Errorf("%w: %w", application.ErrConflict, availability.ErrSlotTaken), wantStatus: http.StatusConflict, wantCode: "SLOT_CONFLICT"},
		{name: "day blocked", body: validBody, serviceErr: fmt.Errorf("%w: %w", application.ErrConflict, availability.ErrDayBlocked), wantStatus: http.StatusConflict, wantCode: "SLOT_CONFLICT"},
		{name: "validation", body: validBody, serviceErr: &application.ValidationError{FieldErrors: map[string]string{"contact_email": "contact_email is invalid"}}, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED", wantField: "contact_email"},
		{name: "unexpected failure", body: validBody, serviceErr: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL"},
		{name: "malformed body", body: `{"date":`, wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "unknown field", body: `{"slot":"09:30"}`, wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var captured application.CreateBookingParams
			stub := &bookingServiceStub{createFn: func(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
				captured = params
				if tt.serviceErr != nil {
					return application.Booking{}, tt.serviceErr
				}
				return sampleBooking(), nil
			}}
			router := newTestRouter(t, stub, &availabilityServiceStub{}, nil)

			rec := serve(router, http.MethodPost, "/bookings", tt.body, false)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus == http.StatusCreated {
				if captured.Input.LessonTypeID != "private" {
					t.Fatalf("lesson type id not trimmed: %q", captured.Input.LessonTypeID)
				}
				if captured.Principal.IsAdmin {
					t.Fatalf("anonymous request should not be admin")
				}
				var dto bookingDTO
				if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
					t.Fatalf("decode booking: %v", err)
				}
				if dto.ID != "bk-1" || dto.Start != "09:30" || dto.End != "10:30" || dto.Date != "2024-03-04" {
					t.Fatalf("unexpected booking payload: %+v", dto)
				}
				if dto.Status != "pending" || dto.PaymentStatus != "unpaid" {
					t.Fatalf("unexpected statuses: %+v", dto)
				}
				return
			}

			body := decodeError(t, rec)
			if body.ErrorCode != tt.wantCode {
				t.Fatalf("error_code = %q, want %q", body.ErrorCode, tt.wantCode)
			}
			if tt.wantField != "" {
				if _, ok := body.Errors[tt.wantField]; !ok {
					t.Fatalf("expected field error for %q, got %v", tt.wantField, body.Errors)
				}
			}
		})
	}
}

func TestBookingConflictMessages(t *testing.T) {
	t.Parallel()

	tests := map[error]string{
		availability.ErrDayBlocked:          "the coach is unavailable on the requested date",
		availability.ErrOutsideAvailability: "the requested time is outside the coach's availability",
		availability.ErrSlotTaken:           "the requested time is no longer available",
	}
	for cause, want := range tests {
		if got := conflictMessage(fmt.Errorf("%w: %w", application.ErrConflict, cause)); got != want {
			t.Errorf("conflictMessage(%v) = %q, want %q", cause, got, want)
		}
	}
}

func TestBookingHandlerAdminRoutes(t *testing.T) {
	t.Parallel()

	t.Run("get requires admin", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(t, &bookingServiceStub{}, &availabilityServiceStub{}, nil)

		if rec := serve(router, http.MethodGet, "/bookings/bk-1", "", false); rec.Code != http.StatusForbidden {
			t.Fatalf("anonymous status = %d, want 403", rec.Code)
		}
		if rec := serve(router, http.MethodGet, "/bookings/bk-1", "", true); rec.Code != http.StatusOK {
			t.Fatalf("admin status = %d, want 200", rec.Code)
		}
		if rec := serve(router, http.MethodGet, "/bookings/missing", "", true); rec.Code != http.StatusNotFound {
			t.Fatalf("missing status = %d, want 404", rec.Code)
		}
	})

	t.Run("list splits status filters", func(t *testing.T) {
		t.Parallel()
		stub := &bookingServiceStub{}
		router := newTestRouter(t, stub, &availabilityServiceStub{}, nil)

		rec := serve(router, http.MethodGet, "/bookings?from=2024-03-01&to=2024-03-31&status=pending,confirmed&status=%20cancelled", "", true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		want := []string{"pending", "confirmed", "cancelled"}
		if fmt.Sprint(stub.listParams.Statuses) != fmt.Sprint(want) {
			t.Fatalf("statuses = %v, want %v", stub.listParams.Statuses, want)
		}
		if stub.listParams.From != "2024-03-01" || stub.listParams.To != "2024-03-31" {
			t.Fatalf("unexpected range %q..%q", stub.listParams.From, stub.listParams.To)
		}
		var dtos []bookingDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &dtos); err != nil || len(dtos) != 1 {
			t.Fatalf("expected one booking, got %s (%v)", rec.Body.String(), err)
		}
	})

	t.Run("status transition passes path id", func(t *testing.T) {
		t.Parallel()
		stub := &bookingServiceStub{}
		router := newTestRouter(t, stub, &availabilityServiceStub{}, nil)

		rec := serve(router, http.MethodPut, "/bookings/bk-1/status", `{"status":"confirmed"}`, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if stub.statusParams.BookingID != "bk-1" || stub.statusParams.Status != "confirmed" || !stub.statusParams.Principal.IsAdmin {
			t.Fatalf("unexpected params %+v", stub.statusParams)
		}
	})

	t.Run("payment validation is 400", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(t, &bookingServiceStub{}, &availabilityServiceStub{}, nil)

		rec := serve(router, http.MethodPut, "/bookings/bk-1/payment", `{"payment_status":"maybe"}`, true)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if body := decodeError(t, rec); body.Errors["payment_status"] == "" {
			t.Fatalf("expected payment_status field error, got %+v", body)
		}
	})

	t.Run("reschedule conflict is 409", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(t, &bookingServiceStub{}, &availabilityServiceStub{}, nil)

		rec := serve(router, http.MethodPut, "/bookings/bk-1/schedule", `{"date":"2024-03-05","time":"10:00"}`, true)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})
}

func TestAvailabilityHandlerSlots(t *testing.T) {
	t.Parallel()

	t.Run("returns slots with override flag", func(t *testing.T) {
		t.Parallel()
		stub := &availabilityServiceStub{}
		router := newTestRouter(t, &bookingServiceStub{}, stub, nil)

		rec := serve(router, http.MethodGet, "/availability/slots?date=2024-03-04&lesson_type_id=private", "", false)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if stub.slotParams.Date != "2024-03-04" || stub.slotParams.LessonTypeID != "private" {
			t.Fatalf("unexpected params %+v", stub.slotParams)
		}

		var slots []slotDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &slots); err != nil {
			t.Fatalf("decode slots: %v", err)
		}
		want := []slotDTO{
			{Date: "2024-03-04", Start: "07:00", End: "08:00", Override: true},
			{Date: "2024-03-04", Start: "09:00", End: "10:00"},
		}
		if len(slots) != len(want) {
			t.Fatalf("slots = %+v, want %+v", slots, want)
		}
		for i := range want {
			if slots[i] != want[i] {
				t.Fatalf("slot[%d] = %+v, want %+v", i, slots[i], want[i])
			}
		}
	})

	t.Run("unknown lesson type is 404", func(t *testing.T) {
		t.Parallel()
		stub := &availabilityServiceStub{slotsErr: application.ErrNotFound}
		router := newTestRouter(t, &bookingServiceStub{}, stub, nil)

		rec := serve(router, http.MethodGet, "/availability/slots?date=2024-03-04&lesson_type_id=nope", "", false)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("windows carry override", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(t, &bookingServiceStub{}, &availabilityServiceStub{}, nil)

		rec := serve(router, http.MethodGet, "/availability/windows", "", false)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var windows []windowDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &windows); err != nil {
			t.Fatalf("decode windows: %v", err)
		}
		if len(windows) != 1 || !windows[0].Override || windows[0].Weekday != int(time.Monday) || windows[0].End != "21:00" {
			t.Fatalf("unexpected windows %+v", windows)
		}
	})
}

func TestWindowRequestDefaults(t *testing.T) {
	t.Parallel()

	weekly := windowRequest{Start: "09:00", End: "12:00"}.toInput()
	if !weekly.Recurring || !weekly.Available {
		t.Fatalf("weekly window defaults = %+v", weekly)
	}

	dated := windowRequest{Start: "09:00", End: "12:00", Date: "2024-03-09"}.toInput()
	if dated.Recurring || !dated.Available {
		t.Fatalf("dated window defaults = %+v", dated)
	}

	blocked := false
	block := windowRequest{Start: "12:00", End: "13:00", Available: &blocked}.toInput()
	if block.Available {
		t.Fatalf("explicit available=false was ignored")
	}
}

func TestRouterFallbacks(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &bookingServiceStub{}, &availabilityServiceStub{}, pingerStub{})

	if rec := serve(router, http.MethodGet, "/nowhere", "", false); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d, want 404", rec.Code)
	}
	if rec := serve(router, http.MethodPatch, "/bookings", "", false); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method status = %d, want 405", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/bookings", "", false); rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	up := newTestRouter(t, &bookingServiceStub{}, &availabilityServiceStub{}, pingerStub{})
	if rec := serve(up, http.MethodGet, "/healthz", "", false); rec.Code != http.StatusOK {
		t.Fatalf("healthy status = %d, want 200", rec.Code)
	}

	down := newTestRouter(t, &bookingServiceStub{}, &availabilityServiceStub{}, pingerStub{err: errors.New("closed")})
	rec := serve(down, http.MethodGet, "/healthz", "", false)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status = %d, want 503", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Database != "down" {
		t.Fatalf("unexpected health body %s", rec.Body.String())
	}
}
