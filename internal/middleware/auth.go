package middleware

import (
	"net/http"

	"github.com/dukerupert/stagedemo/internal/handler"
	"github.com/dukerupert/stagedemo/internal/session"
)

const sessionCookieName = "session"

// RequireAuth verifies the signed session cookie and populates the
// identity in context. The signature and expiry are checked on every
// request; a present-but-invalid cookie is rejected the same as a
// missing one.
func RequireAuth(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "you must be logged in", http.StatusUnauthorized)
				return
			}

			id, err := sessions.Validate(cookie.Value)
			if err != nil {
				http.Error(w, "you must be logged in", http.StatusUnauthorized)
				return
			}

			ctx := handler.WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
