package httpx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWithRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rw.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated id echoed, ctx=%q header=%q", seen, rw.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "abc-123" {
		t.Fatalf("expected inbound id kept, got %q", seen)
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		codes = append(codes, rw.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, other)
	if rw.Code != http.StatusOK {
		t.Fatalf("other client should not be limited, got %d", rw.Code)
	}
}

func TestCORSPreflightWildcardSubdomain(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://*.monteluz.pe"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         10 * time.Minute,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/doctors", nil)
	req.Header.Set("Origin", "https://citas.monteluz.pe")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://citas.monteluz.pe" {
		t.Fatalf("unexpected allow origin %q", rw.Header().Get("Access-Control-Allow-Origin"))
	}
	if rw.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("unexpected max age %q", rw.Header().Get("Access-Control-Max-Age"))
	}

	evil := httptest.NewRequest(http.MethodGet, "/", nil)
	evil.Header.Set("Origin", "https://monteluz.pe.evil.com")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, evil)
	if rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected CORS grant for foreign origin")
	}
}

type bookingBody struct {
	DoctorID string `json:"doctor_id" validate:"required"`
	Rating   int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

func TestDecodeJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"rating": 9}`))
	var body bookingBody
	err := DecodeJSON(req, &body)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "doctor_id: required") || !strings.Contains(err.Error(), "rating: max=5") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"doctor_id":"d1","extra":1}`))
	if err := DecodeJSON(req, &body); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "doctor")

	cases := []struct {
		user, role string
		want       int
	}{
		{"", "", http.StatusUnauthorized},
		{"u1", "patient", http.StatusForbidden},
		{"u1", "Doctor", http.StatusOK},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.user != "" {
			req.Header.Set(UserIDHeader, c.user)
			req.Header.Set(RoleHeader, c.role)
		}
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if rw.Code != c.want {
			t.Fatalf("user=%q role=%q: expected %d, got %d", c.user, c.role, c.want, rw.Code)
		}
	}
}

func TestWithAccessLogRecordsIdentityAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := WithAccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusConflict, "slot_taken", "slot already booked")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil)
	req.Header.Set(UserIDHeader, "patient-1")
	req.Header.Set(RoleHeader, "Paciente")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["level"] != "WARN" || line["user_id"] != "patient-1" || line["role"] != "paciente" || line["status"] != float64(409) {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestAccessLevelQuietsProbes(t *testing.T) {
	if got := accessLevel("/readyz", http.StatusOK); got != slog.LevelDebug {
		t.Fatalf("expected debug for probes, got %v", got)
	}
	if got := accessLevel("/readyz", http.StatusServiceUnavailable); got != slog.LevelError {
		t.Fatalf("expected error for failing probes, got %v", got)
	}
}
