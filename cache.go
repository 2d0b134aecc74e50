package praetor

import (
	"context"
	"strings"
	"time"
)

// Engine kinds used in cache fingerprints.
const (
	engineKindPolicy     = "policy"
	engineKindPermission = "permission"
)

// DecisionCache memoizes decisions for a short TTL. Keys are produced by
// Fingerprint; invalidation is tenant-wide because structural mutations
// have no per-key dependency tracking.
type DecisionCache interface {
	// Get returns a cached decision, if present and not expired.
	Get(ctx context.Context, key string) (*Decision, bool)

	// Set stores a decision for the given TTL. Every successful
	// evaluation re-inserts its key unconditionally; the engine passes
	// Config.CacheTTL so entry expiry has a single source of truth.
	Set(ctx context.Context, key string, d *Decision, ttl time.Duration)

	// InvalidateTenant removes all cached decisions for a tenant.
	InvalidateTenant(ctx context.Context, tenantID string)
}

// Fingerprint builds the deterministic cache key for a context: tenant,
// engine kind, principal id, resource id, action id, and the principal's
// roles in their given order. Two contexts with the same fingerprint are
// decision-equivalent until a structural mutation occurs.
func Fingerprint(engineKind string, ec *EvaluationContext) string {
	var b strings.Builder
	b.WriteString(ec.TenantID)
	b.WriteByte(':')
	b.WriteString(engineKind)
	b.WriteByte(':')
	b.WriteString(ec.Principal.ID)
	b.WriteByte(':')
	if ec.Resource != nil {
		b.WriteString(ec.Resource.ID)
	}
	b.WriteByte(':')
	b.WriteString(ec.Action.ID)
	b.WriteByte(':')
	b.WriteString(strings.Join(ec.Principal.Roles, ","))
	return b.String()
}
