package middleware

import (
	"context"
	"net/http"
	"strings"

	"inkpad/store"
)

type contextKey string

const UserKey contextKey = "user"

// IdentityResolver validates a bearer credential and returns the user it
// belongs to.
type IdentityResolver interface {
	Resolve(token string) (store.User, error)
}

// Auth guards REST routes. The token is taken from the Authorization
// header, falling back to the "token" query parameter.
func Auth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" || tokenString == authHeader {
				tokenString = r.URL.Query().Get("token")
			}

			if tokenString == "" {
				http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
				return
			}

			user, err := resolver.Resolve(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the authenticated user stored by Auth.
func UserFrom(r *http.Request) (store.User, bool) {
	user, ok := r.Context().Value(UserKey).(store.User)
	return user, ok
}
