package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/auth"
)

// Auth requires a valid bearer token and puts its user ID into the request context.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := extractBearer(r); tok != "" {
				claims, err := auth.ValidateToken(jwtSecret, tok)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
					return
				}
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("auth: rejected token")
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}
