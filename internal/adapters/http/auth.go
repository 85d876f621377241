package httpadapter

import (
	"context"
	"net/http"
	"strings"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

const userContextKey contextKey = "user"

// authenticated resolves the caller from an API key before the handler runs.
// Both the Authorization bearer form and the X-API-Key header are accepted.
func (rt *Router) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := extractAPIKey(r)
		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "api key is required")
			return
		}

		user, err := rt.users.GetByAPIKey(r.Context(), apiKey)
		if err != nil {
			if domain.IsKind(err, domain.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
				return
			}
			writeDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

func extractAPIKey(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func userFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}
