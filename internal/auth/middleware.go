package auth

import (
	"context"
	"net/http"
	"strings"
)

// CookieName is the HttpOnly cookie that carries the session token.
const CookieName = "token"

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the values stored under it.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// RequireAuth is a middleware that enforces a valid token on protected routes.
//
// It reads the token (see TokenFromRequest), validates it, and stores the
// session id in the request context. If the token is missing or invalid, it
// returns 401 Unauthorized and stops the request chain.
//
// A valid token does not mean someone is signed in: the session may have
// been logged out or reaped. Handlers resolve the session and check it.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := extractSessionID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
				return
			}

			ctx := WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the session id if a valid token is present, but does
// NOT block the request if it's missing or invalid.
//
// Used on login and register so a client that already holds a session keeps it.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessionID, err := extractSessionID(r, tokens); err == nil {
				r = r.WithContext(WithSessionID(r.Context(), sessionID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSessionID returns a copy of ctx carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext retrieves the session id placed by the middleware.
//
// Returns ("", false) if the request carried no valid token.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// TokenFromRequest returns the raw token from "Authorization: Bearer <jwt>",
// falling back to the token cookie. Native clients use the header, browsers
// the cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func extractSessionID(r *http.Request, tokens *TokenService) (string, error) {
	return tokens.Validate(TokenFromRequest(r))
}
