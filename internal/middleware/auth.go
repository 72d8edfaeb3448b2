package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/enrollio/referral-backend/internal/credential"
)

type contextKey string

const emailContextKey contextKey = "auth_email"

// Authenticate checks the bearer token and stores the authenticated email in
// the request context. Every failure mode answers 401 without revealing
// which part of the credentials was wrong.
func Authenticate(logger *zap.SugaredLogger, creds *credential.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				logger.Warn("No authorization header provided")
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(header, "Bearer ")
			if tokenString == header || tokenString == "" {
				logger.Warn("Malformed authorization header")
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}

			email, err := creds.VerifyToken(tokenString)
			if err != nil {
				logger.Warnw("Invalid token", "error", err)
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), emailContextKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmailFromContext returns the authenticated email set by Authenticate.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailContextKey).(string)
	return email, ok
}
