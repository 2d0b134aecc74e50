package praetor

import (
	"context"

	"github.com/xraph/forge"
)

type contextKey int

const ctxKeyTenantID contextKey = iota

// WithTenant returns a context carrying the given tenant ID. Use this for
// standalone mode (without Forge).
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

// tenantFromContext extracts the tenant from forge.Scope or the standalone
// context key. Falls back to the explicit value if Forge scope is not set.
func tenantFromContext(ctx context.Context) string {
	if s, ok := forge.ScopeFrom(ctx); ok {
		return s.OrgID()
	}
	v, _ := ctx.Value(ctxKeyTenantID).(string)
	return v
}
