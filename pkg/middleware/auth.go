package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	claimsKey contextKeyType = "claims"
)

// Claims is the caller identity attached to the request context by the Auth
// middleware. It is built from a verified access token and a live user lookup,
// so it never carries credentials or the stored refresh token.
type Claims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// TokenVerifier validates an access token and resolves the caller identity.
// This allows the service to inject its own validation logic (signature check
// plus user load).
type TokenVerifier func(ctx context.Context, token string) (*Claims, error)

// ExtractToken pulls a bearer token from the request: the named cookie takes
// priority, then the Authorization header. Returns "" if neither is present.
func ExtractToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// Auth middleware resolves the caller identity from the accessToken cookie or
// an Authorization bearer header and injects it into the request context.
// Requests without a verifiable token are rejected before the handler runs.
func Auth(cookieName string, verify TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, cookieName)
			if token == "" {
				writeAuthError(w, "missing access token")
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				// Expired, malformed, and unknown-user tokens all read the
				// same from the outside.
				writeAuthError(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// ClaimsFromContext extracts the full caller identity from the request context.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
		"data":    nil,
	})
}
