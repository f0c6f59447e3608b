package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/warp/attendance-engine/auth"
)

// =============================================================================
// AUTHENTICATION
// =============================================================================

type ctxKey int

const claimsKey ctxKey = iota

// RequireAuth verifies the bearer token and stores its claims on the
// request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Missing or malformed Authorization header", nil)
			return
		}

		claims, err := h.Tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// =============================================================================
// AUTHORIZATION
// =============================================================================

// RequirePermission rejects callers whose role has no scope at all for p.
// Self-scoped callers pass and are narrowed by teacherScope in the handler.
func RequirePermission(p auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := claimsFrom(r.Context())
			if c == nil || auth.ScopeOf(c.Role, p) == auth.ScopeNone {
				writeError(w, http.StatusForbidden, "Forbidden", auth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// teacherScope returns the teacher ID a request may act on for p.
// Full-scope callers get requested back unchanged ("" meaning all).
// Self-scoped callers get their own teacher ID, and asking for anyone
// else is forbidden.
func teacherScope(r *http.Request, p auth.Permission, requested string) (string, error) {
	c := claimsFrom(r.Context())
	if c == nil {
		return "", auth.ErrForbidden
	}

	switch auth.ScopeOf(c.Role, p) {
	case auth.ScopeAll:
		return requested, nil
	case auth.ScopeSelf:
		if c.TeacherID == "" || (requested != "" && requested != c.TeacherID) {
			return "", auth.ErrForbidden
		}
		return c.TeacherID, nil
	default:
		return "", auth.ErrForbidden
	}
}

func isForbidden(err error) bool { return errors.Is(err, auth.ErrForbidden) }
