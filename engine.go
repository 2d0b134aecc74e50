package praetor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/praetorhq/praetor/assignment"
	"github.com/praetorhq/praetor/auditlog"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/plugin"
	"github.com/praetorhq/praetor/store"
)

// Engine is the central authorization engine. It coordinates policy
// statement evaluation, permission rule evaluation, and role hierarchy
// resolution, manages the store and decision cache, and fires audit
// events and plugin hooks.
type Engine struct {
	store     store.Store
	evaluator Evaluator
	hierarchy *HierarchyResolver
	cache     DecisionCache
	sink      auditlog.Sink
	plugins   *plugin.Registry
	logger    *slog.Logger
	config    Config
}

// NewEngine creates a new Praetor engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		evaluator: DefaultEvaluator(),
		logger:    slog.Default(),
		config:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("praetor: store is required")
	}
	e.hierarchy = NewHierarchyResolver(e.store, e.config.maxHierarchyDepth())
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Hierarchy returns the role hierarchy resolver.
func (e *Engine) Hierarchy() *HierarchyResolver { return e.hierarchy }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown and notifies plugins.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// scoped returns the evaluation context with TenantID resolved, copying
// it if the caller left the tenant to the ambient request scope.
func (e *Engine) scoped(ctx context.Context, ec *EvaluationContext) *EvaluationContext {
	if ec.TenantID != "" {
		return ec
	}
	scoped := *ec
	scoped.TenantID = tenantFromContext(ctx)
	return &scoped
}

// EvaluatePolicy evaluates the tenant's active policy documents against
// the context. This is the expression-tree hot path.
func (e *Engine) EvaluatePolicy(ctx context.Context, ec *EvaluationContext) (*Decision, error) {
	start := time.Now()
	ec = e.scoped(ctx, ec)
	key := Fingerprint(engineKindPolicy, ec)

	if d, ok := e.cached(ctx, key); ok {
		d.EvalTimeNs = time.Since(start).Nanoseconds()
		return d, nil
	}

	docs, err := e.store.ListActivePolicies(ctx, ec.TenantID)
	if err != nil {
		return nil, fmt.Errorf("praetor: list policies: %w", err)
	}

	applicable, evalErrors := e.evaluator.Evaluate(ctx, docs, ec, e.config)
	d := resolveConflicts(applicable, e.config.strategy(), e.config.defaultEffect())
	d.EvalErrors = evalErrors

	return e.finish(ctx, engineKindPolicy, key, ec, d, start), nil
}

// EvaluatePermission evaluates the tenant's active permission rules
// (flat conditions and time windows) against the context.
func (e *Engine) EvaluatePermission(ctx context.Context, ec *EvaluationContext) (*Decision, error) {
	start := time.Now()
	ec = e.scoped(ctx, ec)
	key := Fingerprint(engineKindPermission, ec)

	if d, ok := e.cached(ctx, key); ok {
		d.EvalTimeNs = time.Since(start).Nanoseconds()
		return d, nil
	}

	rules, err := e.store.ListActiveRules(ctx, ec.TenantID)
	if err != nil {
		return nil, fmt.Errorf("praetor: list rules: %w", err)
	}

	var applicable []AppliedRef
	var evalErrors []string
	for _, r := range rules {
		if !r.IsActive || !ruleApplies(r, ec) {
			continue
		}
		matched, err := ruleMatches(r, ec)
		if err != nil {
			evalErrors = append(evalErrors, fmt.Sprintf("rule %s: %v", r.ID, err))
			continue
		}
		if !matched {
			continue
		}
		applicable = append(applicable, AppliedRef{
			ID:       r.ID.String(),
			Effect:   Effect(r.Effect),
			Priority: r.Priority,
		})
	}

	d := resolveConflicts(applicable, e.config.strategy(), e.config.defaultEffect())
	d.EvalErrors = evalErrors

	return e.finish(ctx, engineKindPermission, key, ec, d, start), nil
}

// Enforce evaluates permission rules and returns ErrAccessDenied when the
// decision denies.
func (e *Engine) Enforce(ctx context.Context, ec *EvaluationContext) error {
	d, err := e.EvaluatePermission(ctx, ec)
	if err != nil {
		return fmt.Errorf("praetor evaluate: %w", err)
	}
	if !d.Allowed {
		return fmt.Errorf("%w: %s", ErrAccessDenied, d.Reason)
	}
	return nil
}

// cached probes the decision cache, returning a caller-safe copy marked
// as a cache hit.
func (e *Engine) cached(ctx context.Context, key string) (*Decision, bool) {
	if e.cache == nil || e.config.CacheTTL <= 0 {
		return nil, false
	}
	d, ok := e.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	out := d.clone()
	out.CacheHit = true
	return out, true
}

// finish stamps timing, inserts into the cache, and fires audit and
// plugin notifications. It returns the decision unchanged otherwise.
func (e *Engine) finish(ctx context.Context, engineKind, key string, ec *EvaluationContext, d *Decision, start time.Time) *Decision {
	d.EvalTimeNs = time.Since(start).Nanoseconds()

	if e.config.MaxEvaluationTime > 0 && time.Duration(d.EvalTimeNs) > e.config.MaxEvaluationTime {
		e.logger.Warn("slow evaluation",
			slog.String("engine", engineKind),
			slog.String("tenant_id", ec.TenantID),
			slog.String("principal_id", ec.Principal.ID),
			slog.Duration("elapsed", time.Duration(d.EvalTimeNs)),
			slog.Duration("budget", e.config.MaxEvaluationTime),
		)
	}

	// Cache a copy so callers mutating the returned decision cannot
	// corrupt later hits.
	if e.cache != nil && e.config.CacheTTL > 0 {
		e.cache.Set(ctx, key, d.clone(), e.config.CacheTTL)
	}

	e.auditDecision(ctx, engineKind, ec, d)
	if e.plugins != nil {
		e.plugins.EmitDecisionEvaluated(ctx, ec, d)
	}
	return d
}

// invalidate clears the tenant's cached decisions after a structural
// mutation.
func (e *Engine) invalidate(ctx context.Context, tenantID string) {
	if e.cache != nil {
		e.cache.InvalidateTenant(ctx, tenantID)
	}
}

// ──────────────────────────────────────────────────
// Hierarchy queries
// ──────────────────────────────────────────────────

// ResolvePermissions returns the union of a role's direct permissions and
// every ancestor's permissions, nearest-first, deduplicated.
func (e *Engine) ResolvePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	return e.hierarchy.ResolvePermissions(ctx, roleID)
}

// UserPermissions returns the union of permissions over all currently
// valid role assignments of the user in the ambient tenant.
func (e *Engine) UserPermissions(ctx context.Context, userID string) ([]id.PermissionID, error) {
	return e.hierarchy.UserPermissions(ctx, tenantFromContext(ctx), userID)
}

// HasPermission reports whether the user holds the permission through any
// currently valid assignment, directly or by inheritance.
func (e *Engine) HasPermission(ctx context.Context, userID string, permID id.PermissionID) (bool, error) {
	perms, err := e.UserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	want := permID.String()
	for _, p := range perms {
		if p.String() == want {
			return true, nil
		}
	}
	return false, nil
}

// ──────────────────────────────────────────────────
// Assignments
// ──────────────────────────────────────────────────

// AssignOption customizes a role assignment.
type AssignOption func(*assignment.Assignment)

// WithExpiresAt sets an expiry on the assignment.
func WithExpiresAt(t time.Time) AssignOption {
	return func(a *assignment.Assignment) { a.ExpiresAt = &t }
}

// WithAssignmentMetadata attaches metadata to the assignment.
func WithAssignmentMetadata(m map[string]any) AssignOption {
	return func(a *assignment.Assignment) { a.Metadata = m }
}

// AssignRole grants a role to a user. The role must exist, be active, and
// not expired; a user cannot hold two active assignments of the same
// role; the role's assignment limit is enforced.
func (e *Engine) AssignRole(ctx context.Context, userID string, roleID id.RoleID, grantedBy string, opts ...AssignOption) (*assignment.Assignment, error) {
	tenantID := tenantFromContext(ctx)
	now := time.Now().UTC()

	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("praetor: get role: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: role %s", ErrNotFound, roleID)
	}
	if !r.IsActive {
		return nil, fmt.Errorf("%w: role %s is inactive", ErrValidation, roleID)
	}
	if r.Expired(now) {
		return nil, fmt.Errorf("%w: role %s is expired", ErrValidation, roleID)
	}

	existing, err := e.store.ListAssignmentsForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("praetor: list assignments: %w", err)
	}
	for _, a := range existing {
		if a.RoleID.String() == roleID.String() && a.ValidAt(now) {
			return nil, fmt.Errorf("%w: role %s, user %s", ErrDuplicateAssignment, roleID, userID)
		}
	}

	if r.MaxAssignments > 0 {
		n, err := e.store.CountActiveAssignmentsForRole(ctx, roleID)
		if err != nil {
			return nil, fmt.Errorf("praetor: count assignments: %w", err)
		}
		if n >= int64(r.MaxAssignments) {
			return nil, fmt.Errorf("%w: role %s limit %d", ErrMaxAssignmentsExceeded, roleID, r.MaxAssignments)
		}
	}

	a := &assignment.Assignment{
		ID:        id.NewAssignmentID(),
		TenantID:  tenantID,
		RoleID:    roleID,
		UserID:    userID,
		GrantedBy: grantedBy,
		IsActive:  true,
		CreatedAt: now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := e.store.CreateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("praetor: create assignment: %w", err)
	}

	e.invalidate(ctx, tenantID)
	e.auditChange(ctx, tenantID, "assignment", "role_assigned", a.ID.String())
	if e.plugins != nil {
		e.plugins.EmitRoleAssigned(ctx, a)
	}
	return a, nil
}

// RevokeRole tombstones the user's active assignment of the role. The
// assignment record is kept for audit history.
func (e *Engine) RevokeRole(ctx context.Context, userID string, roleID id.RoleID, revokedBy string) error {
	tenantID := tenantFromContext(ctx)
	now := time.Now().UTC()

	existing, err := e.store.ListAssignmentsForUser(ctx, tenantID, userID)
	if err != nil {
		return fmt.Errorf("praetor: list assignments: %w", err)
	}

	var target *assignment.Assignment
	for _, a := range existing {
		if a.RoleID.String() == roleID.String() && a.IsActive {
			target = a
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: no active assignment of role %s for user %s", ErrNotFound, roleID, userID)
	}

	target.IsActive = false
	target.RevokedBy = revokedBy
	target.RevokedAt = &now
	if err := e.store.UpdateAssignment(ctx, target); err != nil {
		return fmt.Errorf("praetor: update assignment: %w", err)
	}

	e.invalidate(ctx, tenantID)
	e.auditChange(ctx, tenantID, "assignment", "role_revoked", target.ID.String())
	if e.plugins != nil {
		e.plugins.EmitRoleRevoked(ctx, target)
	}
	return nil
}
