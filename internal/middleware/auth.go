package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	OwnerKey  contextKey = "owner"
	APIKeyKey contextKey = "api_key"
)

// APIKeyAuth validates the API key from the Authorization header and stores the owner it belongs to.
// validKeys maps owner id to key.
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// constant-time comparison
			var owner string
			for o, key := range validKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					owner = o
					break
				}
			}
			if owner == "" {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), OwnerKey, owner)
			ctx = context.WithValue(ctx, APIKeyKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwnerFromContext extracts the authenticated owner
func GetOwnerFromContext(ctx context.Context) string {
	if owner, ok := ctx.Value(OwnerKey).(string); ok {
		return owner
	}
	return ""
}

// RequireOwner ensures the {owner} URL parameter matches the authenticated owner.
// Mount it inside the route that declares {owner}.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlOwner := chi.URLParam(r, "owner")
		if err := ValidateOwnerID(urlOwner); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if urlOwner != GetOwnerFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
