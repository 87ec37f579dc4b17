package middleware

import (
	"net/http"

	"github.com/ayush/exam-bank/backend/internal/auth"
	"github.com/ayush/exam-bank/backend/internal/respond"
)

// RequireAuth is middleware that validates the session cookie and
// injects the user id into the request context.
func RequireAuth(sessions *auth.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				respond.Unauthorized(w)
				return
			}

			userID, ok := sessions.Get(cookie.Value)
			if !ok {
				respond.Unauthorized(w)
				return
			}

			ctx := auth.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
