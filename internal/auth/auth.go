package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	RoleKey   contextKey = "role"
)

// Roles allowed through RequireAdmin.
var adminRoles = map[string]bool{
	"root":  true,
	"admin": true,
}

// GetUserIDFromContext extracts userID from context
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		return "", errors.New("user ID not found in context")
	}
	return userID, nil
}

// GetRoleFromContext returns the caller's role, or "" when none was set.
func GetRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

// HasAdminRole reports whether role may use the admin endpoints.
func HasAdminRole(role string) bool {
	return adminRoles[strings.ToLower(role)]
}

// Middleware authenticates requests with bearer tokens.
type Middleware struct {
	parser *TokenParser
}

func NewMiddleware(parser *TokenParser) *Middleware {
	return &Middleware{parser: parser}
}

// Authenticate puts the token's user ID and role in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractTokenFromRequest(r)
		if err != nil {
			log.Printf("Error extracting token: %v", err)
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := m.parser.Parse(token)
		if err != nil {
			log.Printf("Error parsing JWT: %v", err)
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		log.Printf("User authenticated with ID: %s", claims.UserID)

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers without an admin role. It must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !HasAdminRole(GetRoleFromContext(r.Context())) {
			writeError(w, http.StatusForbidden, "Forbidden - Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
