package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/dom/auth-backend/internal/service"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
)

// Auth validates the session cookie and stores the session's user ID in the
// request context.
func Auth(sessions *service.SessionIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(service.SessionCookieName)
			if err != nil || cookie.Value == "" {
				log.Printf("ERROR [middleware.Auth] missing session cookie")
				unauthorized(w, "Unauthorized - no token provided")
				return
			}

			userID, err := sessions.Parse(cookie.Value)
			if err != nil {
				log.Printf("ERROR [middleware.Auth] session validation failed: %v", err)
				unauthorized(w, "Unauthorized - invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
