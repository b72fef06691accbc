package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/platform/httpx"
	"github.com/socdesk/socdesk/internal/shared"
)

// PrincipalResolver turns a user id into a principal.
type PrincipalResolver interface {
	Principal(ctx context.Context, userID string) (*access.Principal, error)
}

// DecisionRecorder receives gate outcomes for metrics.
type DecisionRecorder interface {
	RecordDecision(gate string, allowed bool)
}

// Middleware wires authentication and RBAC authorization helpers for HTTP
// handlers.
type Middleware struct {
	Resolver PrincipalResolver
	Tokens   shared.TokenSource
	Logger   *slog.Logger
	Metrics  DecisionRecorder
}

// Authenticate resolves the bearer token into a principal and stores both in
// the request context. Requests without a valid token are rejected.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := shared.BearerToken(r)
		sess, err := m.Tokens.Lookup(r.Context(), token)
		if err != nil {
			if !errors.Is(err, shared.ErrTokenMissing) && !errors.Is(err, shared.ErrSessionExpired) {
				m.logger().Error("rbac lookup session", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		principal, err := m.Resolver.Principal(r.Context(), sess.UserID)
		if err != nil {
			if IsNotFound(err) {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "account disabled")
				return
			}
			m.logger().Error("rbac resolve principal", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		ctx := shared.ContextWithToken(r.Context(), sess.Token)
		ctx = shared.ContextWithPrincipal(ctx, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	req := access.RequireAnyOf(normalizePermissions(perms)...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			allowed := principal.Can(req)
			m.record("require_any", allowed)
			if !allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			allowed := principal.User.IsSuperuser || principal.Permissions.HasAll(normalized...)
			m.record("require_all", allowed)
			if !allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) record(gate string, allowed bool) {
	if m.Metrics != nil {
		m.Metrics.RecordDecision(gate, allowed)
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// normalizePermissions drops blanks and duplicates while keeping order.
// Keys stay case-sensitive.
func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
