package httpx

import (
	"net/http"
	"strings"
)

// Headers set by the gateway after token verification. Services behind the
// gateway trust them and must not be reachable from outside.
const (
	UserIDHeader = "X-User-Id"
	RoleHeader   = "X-Role"
)

type Identity struct {
	UserID string
	Role   string
}

func IdentityFromRequest(r *http.Request) Identity {
	return Identity{
		UserID: strings.TrimSpace(r.Header.Get(UserIDHeader)),
		Role:   strings.ToLower(strings.TrimSpace(r.Header.Get(RoleHeader))),
	}
}

// RequireRole rejects requests whose identity is missing (401) or whose role
// is not in roles (403). With no roles any authenticated caller passes.
func RequireRole(next http.Handler, roles ...string) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromRequest(r)
		if id.UserID == "" {
			WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing caller identity")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[id.Role]; !ok {
				WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
