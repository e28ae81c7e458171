package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// contextKey is a type for context keys
type contextKey string

const (
	// SubjectKey is the context key for the authenticated admin subject
	SubjectKey contextKey = "subject"
)

// Middleware provides authentication middleware for HTTP handlers
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware. A nil service lets every request through.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{authService: authService}
}

// Enabled reports whether requests are actually checked
func (m *Middleware) Enabled() bool {
	return m != nil && m.authService != nil
}

// RequireAdmin is middleware that requires a valid admin token
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, &AuthError{Code: "unauthorized", Message: "authorization required"})
			return
		}

		subject, err := m.authService.ValidateToken(token)
		if err != nil {
			status := http.StatusUnauthorized
			var authErr *AuthError
			if errors.As(err, &authErr) && authErr.Code == "forbidden" {
				status = http.StatusForbidden
			}
			writeAuthError(w, status, err)
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, subject)
		next(w, r.WithContext(ctx))
	}
}

// GetSubject extracts the admin subject from the request context
func GetSubject(ctx context.Context) string {
	subject, _ := ctx.Value(SubjectKey).(string)
	return subject
}

// extractToken reads a bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	body := &AuthError{Code: "unauthorized", Message: err.Error()}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		body = authErr
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
