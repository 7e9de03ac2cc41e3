package http

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// RouterConfig collects the handlers and middleware mounted by NewRouter.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	LessonTypes  *LessonTypeHandler
	Athletes     *AthleteHandler
	Availability *AvailabilityHandler
	Bookings     *BookingHandler
	Health       *HealthHandler
	// RateLimiter throttles the public write endpoints.
	RateLimiter *RateLimiter
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()
	router.HandleMethodNotAllowed = true
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		newResponder(nil).writeError(r.Context(), w, http.StatusMethodNotAllowed, nil)
	})
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		newResponder(nil).writeError(r.Context(), w, http.StatusNotFound, nil)
	})

	limited := func(h http.HandlerFunc) http.Handler {
		return cfg.RateLimiter.Limit(h)
	}

	if cfg.Health != nil {
		router.HandlerFunc(http.MethodGet, "/healthz", cfg.Health.Check)
	}

	if h := cfg.LessonTypes; h != nil {
		router.HandlerFunc(http.MethodGet, "/lesson-types", h.List)
		router.HandlerFunc(http.MethodPost, "/lesson-types", h.Create)
		router.HandlerFunc(http.MethodGet, "/lesson-types/:id", h.Get)
		router.HandlerFunc(http.MethodPut, "/lesson-types/:id", h.Update)
		router.HandlerFunc(http.MethodDelete, "/lesson-types/:id", h.Delete)
	}

	if h := cfg.Availability; h != nil {
		router.HandlerFunc(http.MethodGet, "/availability/windows", h.ListWindows)
		router.HandlerFunc(http.MethodPost, "/availability/windows", h.CreateWindow)
		router.HandlerFunc(http.MethodPut, "/availability/windows/:id", h.UpdateWindow)
		router.HandlerFunc(http.MethodDelete, "/availability/windows/:id", h.DeleteWindow)
		router.HandlerFunc(http.MethodGet, "/availability/exceptions", h.ListExceptions)
		router.HandlerFunc(http.MethodPost, "/availability/exceptions", h.CreateException)
		router.HandlerFunc(http.MethodDelete, "/availability/exceptions/:id", h.DeleteException)
		router.HandlerFunc(http.MethodGet, "/availability/slots", h.Slots)
		router.HandlerFunc(http.MethodGet, "/availability/days", h.Days)
	}

	if h := cfg.Athletes; h != nil {
		router.HandlerFunc(http.MethodGet, "/athletes", h.List)
		router.Handler(http.MethodPost, "/athletes", limited(h.Register))
		router.HandlerFunc(http.MethodGet, "/athletes/:id", h.Get)
		router.HandlerFunc(http.MethodPut, "/athletes/:id", h.Update)
		router.HandlerFunc(http.MethodDelete, "/athletes/:id", h.Delete)
	}

	if h := cfg.Bookings; h != nil {
		router.HandlerFunc(http.MethodGet, "/bookings", h.List)
		router.Handler(http.MethodPost, "/bookings", limited(h.Create))
		router.HandlerFunc(http.MethodGet, "/bookings/:id", h.Get)
		router.HandlerFunc(http.MethodPut, "/bookings/:id/status", h.UpdateStatus)
		router.HandlerFunc(http.MethodPut, "/bookings/:id/payment", h.UpdatePayment)
		router.HandlerFunc(http.MethodPut, "/bookings/:id/schedule", h.Reschedule)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
