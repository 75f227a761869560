package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/auth"
	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
)

const secret = "test-secret"

type seen struct {
	Path   string `json:"path"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Auth   string `json:"auth"`
}

func newGateway(t *testing.T) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, seen{
			Path:   r.URL.Path,
			UserID: r.Header.Get(httpx.UserIDHeader),
			Role:   r.Header.Get(httpx.RoleHeader),
			Auth:   r.Header.Get("Authorization"),
		})
	}))
	t.Cleanup(upstream.Close)
	u, _ := url.Parse(upstream.URL)

	mux := http.NewServeMux()
	registerRoutes(mux, u, auth.NewVerifier(auth.VerifierConfig{Secret: secret}), nil)
	gw := httptest.NewServer(mux)
	t.Cleanup(gw.Close)
	return gw
}

func call(t *testing.T, method, url, token string, hdr map[string]string) (int, seen) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	var s seen
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode, s
}

func sign(t *testing.T, sub, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.SignHS256(sub, role, ttl, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestPublicCatalogDropsForgedIdentity(t *testing.T) {
	gw := newGateway(t)
	status, s := call(t, http.MethodGet, gw.URL+"/api/v1/doctors/doc-1/slots", "", map[string]string{
		httpx.UserIDHeader: "forged",
		httpx.RoleHeader:   "doctor",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if s.UserID != "" || s.Role != "" {
		t.Fatalf("identity leaked upstream: %+v", s)
	}
}

func TestAuthenticatedRoutesForwardIdentity(t *testing.T) {
	gw := newGateway(t)

	if status, _ := call(t, http.MethodGet, gw.URL+"/api/v1/me/appointments", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status, _ := call(t, http.MethodGet, gw.URL+"/api/v1/me/appointments", "garbage", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", status)
	}
	expired := sign(t, "pat-1", "patient", -time.Minute)
	if status, _ := call(t, http.MethodGet, gw.URL+"/api/v1/me/appointments", expired, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with expired token, got %d", status)
	}

	status, s := call(t, http.MethodGet, gw.URL+"/api/v1/me/appointments", sign(t, "pat-1", "Patient", time.Hour), map[string]string{
		httpx.UserIDHeader: "someone-else",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if s.UserID != "pat-1" || s.Role != "patient" || s.Auth != "" {
		t.Fatalf("unexpected upstream view: %+v", s)
	}
}

func TestDoctorOnlyPaths(t *testing.T) {
	gw := newGateway(t)
	patient := sign(t, "pat-1", "patient", time.Hour)
	doctor := sign(t, "doc-1", "doctor", time.Hour)

	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/me/schedules"},
		{http.MethodDelete, "/api/v1/me/schedules/3"},
		{http.MethodGet, "/api/v1/me/patients/p-1/history"},
		{http.MethodPost, "/api/v1/appointments/5/complete"},
		{http.MethodPut, "/api/v1/appointments/5/diagnosis"},
		{http.MethodPost, "/api/v1/appointments/5/prescriptions"},
	}
	for _, tc := range cases {
		if status, _ := call(t, tc.method, gw.URL+tc.path, patient, nil); status != http.StatusForbidden {
			t.Fatalf("%s %s as patient: expected 403, got %d", tc.method, tc.path, status)
		}
		if status, _ := call(t, tc.method, gw.URL+tc.path, doctor, nil); status != http.StatusOK {
			t.Fatalf("%s %s as doctor: expected 200, got %d", tc.method, tc.path, status)
		}
	}

	if status, _ := call(t, http.MethodPost, gw.URL+"/api/v1/appointments/5/cancel", patient, nil); status != http.StatusOK {
		t.Fatalf("cancel should pass for patients, got %d", status)
	}
}
