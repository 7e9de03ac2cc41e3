package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/config"
	"github.com/example/coaching-booking/internal/testfixtures"
)

const adminToken = "coach-secret"

type testAPI struct {
	t      *testing.T
	server *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	hash, err := application.HashAdminToken(adminToken, application.Argon2idParams{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("hash admin token: %v", err)
	}

	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	ids := testfixtures.NewIDGenerator("e2e")

	handler := buildHandler(appDeps{
		Storage: harness.Storage,
		Config: config.Config{
			AdminTokenHash:     hash,
			Location:           time.UTC,
			SlotGranularity:    30,
			BookingHorizonDays: 90,
			SlotCacheTTL:       time.Minute,
			CORSAllowedOrigins: []string{"*"},
			RateLimitPerMinute: 6000,
			RateLimitBurst:     100,
		},
		SlotCache: application.NewMemorySlotCache(time.Minute, 0, clock.NowFunc()),
		Now:       clock.NowFunc(),
		NewID:     ids.NextFunc(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &testAPI{t: t, server: server}
}

func (a *testAPI) do(method, path string, body any, admin bool) (int, []byte) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	resp, err := a.server.Client().Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func (a *testAPI) mustCreate(path string, body any, admin bool) string {
	a.t.Helper()
	status, data := a.do(http.MethodPost, path, body, admin)
	if status != http.StatusCreated {
		a.t.Fatalf("POST %s: expected 201, got %d: %s", path, status, data)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		a.t.Fatalf("decode created resource: %v", err)
	}
	return created.ID
}

// seed creates a 60 minute lesson type, one athlete and a Monday 09:00-12:00
// weekly window.
func (a *testAPI) seed() (lessonTypeID, athleteID string) {
	a.t.Helper()
	lessonTypeID = a.mustCreate("/lesson-types", map[string]any{
		"name":             "Private beam",
		"duration_minutes": 60,
		"min_athletes":     1,
		"max_athletes":     2,
		"price_cents":      6500,
	}, true)
	athleteID = a.mustCreate("/athletes", map[string]any{
		"first_name":   "Mia",
		"last_name":    "Rossi",
		"parent_name":  "Dana Parent",
		"parent_email": "dana@example.com",
	}, false)
	a.mustCreate("/availability/windows", map[string]any{
		"weekday": 1,
		"start":   "09:00",
		"end":     "12:00",
	}, true)
	return lessonTypeID, athleteID
}

func (a *testAPI) slotStarts(lessonTypeID, date string) []string {
	a.t.Helper()
	status, data := a.do(http.MethodGet, "/availability/slots?date="+date+"&lesson_type_id="+lessonTypeID, nil, false)
	if status != http.StatusOK {
		a.t.Fatalf("slots: expected 200, got %d: %s", status, data)
	}
	var slots []struct {
		Start string `json:"start"`
	}
	if err := json.Unmarshal(data, &slots); err != nil {
		a.t.Fatalf("decode slots: %v", err)
	}
	starts := make([]string, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.Start)
	}
	return starts
}

func bookingBody(lessonTypeID, athleteID, date, clock string) map[string]any {
	return map[string]any{
		"lesson_type_id": lessonTypeID,
		"date":           date,
		"time":           clock,
		"athlete_ids":    []string{athleteID},
		"contact_name":   "Dana Parent",
		"contact_email":  "dana@example.com",
	}
}

func TestBookingFlowRemovesBookedSlot(t *testing.T) {
	api := newTestAPI(t)
	lessonTypeID, athleteID := api.seed()

	before := api.slotStarts(lessonTypeID, "2024-03-04")
	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00"}
	if strings.Join(before, ",") != strings.Join(want, ",") {
		t.Fatalf("expected slots %v, got %v", want, before)
	}

	api.mustCreate("/bookings", bookingBody(lessonTypeID, athleteID, "2024-03-04", "10:00"), false)

	after := api.slotStarts(lessonTypeID, "2024-03-04")
	// 09:30 and 10:30 overlap the 10:00-11:00 lesson.
	want = []string{"09:00", "11:00"}
	if strings.Join(after, ",") != strings.Join(want, ",") {
		t.Fatalf("expected slots %v after booking, got %v", want, after)
	}

	status, data := api.do(http.MethodPost, "/bookings", bookingBody(lessonTypeID, athleteID, "2024-03-04", "10:30"), false)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for overlapping booking, got %d: %s", status, data)
	}
}

func TestUnavailableExceptionClosesDay(t *testing.T) {
	api := newTestAPI(t)
	lessonTypeID, athleteID := api.seed()

	api.mustCreate("/availability/exceptions", map[string]any{
		"date":      "2024-03-11",
		"available": false,
		"reason":    "Regional meet",
	}, true)

	if starts := api.slotStarts(lessonTypeID, "2024-03-11"); len(starts) != 0 {
		t.Fatalf("expected no slots on blocked day, got %v", starts)
	}
	if starts := api.slotStarts(lessonTypeID, "2024-03-18"); len(starts) != 5 {
		t.Fatalf("expected the following Monday to stay open, got %v", starts)
	}

	status, data := api.do(http.MethodPost, "/bookings", bookingBody(lessonTypeID, athleteID, "2024-03-11", "09:00"), false)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on blocked day, got %d: %s", status, data)
	}
}

func TestConcurrentIdenticalBookings(t *testing.T) {
	api := newTestAPI(t)
	lessonTypeID, athleteID := api.seed()

	const attempts = 8
	body := bookingBody(lessonTypeID, athleteID, "2024-03-04", "09:00")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			payload, _ := json.Marshal(body)
			resp, err := http.Post(api.server.URL+"/bookings", "application/json", bytes.NewReader(payload))
			if err != nil {
				t.Errorf("post booking: %v", err)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			mu.Lock()
			statuses[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	if statuses[http.StatusCreated] != 1 {
		t.Fatalf("expected exactly one 201, got %v", statuses)
	}
	if statuses[http.StatusConflict] != attempts-1 {
		t.Fatalf("expected %d conflicts, got %v", attempts-1, statuses)
	}

	status, data := api.do(http.MethodGet, "/bookings?from=2024-03-04&to=2024-03-04", nil, true)
	if status != http.StatusOK {
		t.Fatalf("list bookings: expected 200, got %d: %s", status, data)
	}
	var bookings []map[string]any
	if err := json.Unmarshal(data, &bookings); err != nil {
		t.Fatalf("decode bookings: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected one stored booking, got %d", len(bookings))
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(http.MethodPost, "/lesson-types", map[string]any{
		"name":             "Group floor",
		"duration_minutes": 90,
		"min_athletes":     1,
		"max_athletes":     4,
		"price_cents":      4000,
	}, false)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", status)
	}

	req, _ := http.NewRequest(http.MethodGet, api.server.URL+"/bookings", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err := api.server.Client().Do(req)
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)

	status, data := api.do(http.MethodGet, "/healthz", nil, false)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, data)
	}
	if !strings.Contains(string(data), `"database":"up"`) {
		t.Fatalf("unexpected health body %s", data)
	}
}

func TestRunCommandHashToken(t *testing.T) {
	var out bytes.Buffer
	if err := runCommand([]string{"hash-token", "s3cret"}, &out); err != nil {
		t.Fatalf("hash-token: %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if err := application.ValidateAdminTokenHash(hash); err != nil {
		t.Fatalf("printed hash does not validate: %v", err)
	}

	if err := runCommand([]string{"hash-token"}, &out); err == nil {
		t.Fatal("expected usage error without a token")
	}
	if err := runCommand([]string{"serve-ish"}, &out); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
