package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/snowfall-guild/guilddesk/internal/shared"
)

// PrincipalResolver resolves the principal for a session user ID.
type PrincipalResolver func(ctx context.Context, userID string) (Principal, bool)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Resolve PrincipalResolver
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := m.currentPrincipal(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if HasAnyPermission(principal, perms) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := m.currentPrincipal(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if HasAllPermissions(principal, perms) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) currentPrincipal(r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, false
	}
	userID := strings.TrimSpace(sess.User())
	if userID == "" {
		return nil, false
	}
	if m.Resolve == nil {
		return nil, false
	}
	principal, ok := m.Resolve(r.Context(), userID)
	if !ok {
		if m.Logger != nil {
			m.Logger.Warn("rbac resolve principal", slog.String("user_id", userID))
		}
		return nil, false
	}
	return principal, true
}
