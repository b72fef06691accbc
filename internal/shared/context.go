package shared

import (
	"context"

	"github.com/socdesk/socdesk/internal/access"
)

type principalContextKey struct{}

type tokenContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p *access.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *access.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*access.Principal)
	return p
}

// ContextWithToken stores the bearer token of the current request.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token of the current request.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}
