package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserID extracts the authenticated user id from ctx.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDContextKey).(int64)
	return id, ok && id > 0
}

// Middleware rejects requests without a valid token. The token is read from
// the Authorization bearer header first, then from the session cookie.
type Middleware struct {
	tokens       *Tokens
	cookieName   string
	unauthorized http.HandlerFunc
	logger       *zap.Logger
}

func NewMiddleware(tokens *Tokens, cookieName string, unauthorized http.HandlerFunc, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens:       tokens,
		cookieName:   cookieName,
		unauthorized: unauthorized,
		logger:       logger,
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.tokenFromRequest(r)
		if token == "" {
			m.unauthorized(w, r)
			return
		}

		userID, err := m.tokens.Verify(token)
		if err != nil {
			m.logger.Warn("Rejected session token", zap.Error(err), zap.String("path", r.URL.Path))
			m.unauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *Middleware) tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
