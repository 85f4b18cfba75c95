package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/limsathya/workspace/internal/auth"
)

// RequireAuth resolves the session cookie and stores the user on the request
// context. Anonymous requests get a 401 without detail.
func RequireAuth(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authSvc.CurrentUser(r)
			if err != nil || user == nil {
				unauthorized(w, http.StatusUnauthorized)
				return
			}

			ctx := auth.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates privileged endpoints: the session user's email must
// match the single designated administrator address. This is a placeholder
// authorization model, not a role system.
func RequireAdmin(adminEmail string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil || user.Email != adminEmail {
				unauthorized(w, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}
