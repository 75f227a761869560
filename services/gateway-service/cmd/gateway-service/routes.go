package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/JohanU89-coder/clinica-monteluz/libs/auth"
	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
)

type tokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

const roleDoctor = "doctor"

func registerRoutes(mux *http.ServeMux, upstream *url.URL, verifier tokenVerifier, transport http.RoundTripper) {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	if transport != nil {
		proxy.Transport = transport
	}

	// Catalog reads are open so visitors can browse doctors and slots.
	public := anonymous(proxy)
	mux.Handle("GET /api/v1/specialties", public)
	mux.Handle("GET /api/v1/doctors", public)
	mux.Handle("GET /api/v1/doctors/", public)

	mux.Handle("/api/v1/", requireAuth(doctorPaths(proxy), verifier))
}

// anonymous drops identity headers a caller may have forged.
func anonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(httpx.UserIDHeader)
		r.Header.Del(httpx.RoleHeader)
		next.ServeHTTP(w, r)
	})
}

func requireAuth(next http.Handler, verifier tokenVerifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if !strings.HasPrefix(authHeader, "Bearer ") || token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid Authorization header")
			return
		}
		claims, err := verifier.Verify(r.Context(), token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
			return
		}

		r.Header.Del("Authorization")
		r.Header.Set(httpx.UserIDHeader, claims.Subject)
		r.Header.Set(httpx.RoleHeader, claims.Role)
		next.ServeHTTP(w, r)
	})
}

// doctorPaths refuses doctor-only endpoints to other roles before they reach
// the clinic service.
func doctorPaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isDoctorOnly(r.Method, r.URL.Path) && r.Header.Get(httpx.RoleHeader) != roleDoctor {
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isDoctorOnly(method, path string) bool {
	path = strings.TrimSuffix(path, "/")
	if strings.HasPrefix(path, "/api/v1/me/schedules") || strings.HasPrefix(path, "/api/v1/me/patients") {
		return true
	}
	if !strings.HasPrefix(path, "/api/v1/appointments/") {
		return false
	}
	switch {
	case method == http.MethodPost && strings.HasSuffix(path, "/complete"):
		return true
	case method == http.MethodPut && strings.HasSuffix(path, "/diagnosis"):
		return true
	case method == http.MethodPost && strings.HasSuffix(path, "/prescriptions"):
		return true
	}
	return false
}
