package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vodpipeline/mediaconvert-trigger/internal/utils/jwt"
	"github.com/vodpipeline/mediaconvert-trigger/internal/utils/response"
)

type contextKey string

const SubjectKey contextKey = "subject"

// AuthMiddleware requires a bearer token signed with jwtSecret and stores
// its subject in the request context
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("authorization header required")))
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("invalid authorization header format")))
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("token not provided")))
				return
			}

			subject, err := jwt.ExtractSubjectFromToken(token, jwtSecret)
			if err != nil {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("invalid token")))
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubjectFromContext extracts the authenticated sender from the request context
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}
