package praetor

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/praetorhq/praetor/action"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/resource"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/rule"
)

// Administrative mutation surface. Every method follows the same shape:
// validate fully, commit, then invalidate the tenant's decision cache and
// fire audit plus plugin notifications. Validation failures leave the
// store untouched.

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

// CreateRole validates and persists a new role. Parent references must
// exist and must not introduce a cycle.
func (e *Engine) CreateRole(ctx context.Context, r *role.Role) error {
	now := time.Now().UTC()
	if r.ID.IsNil() {
		r.ID = id.NewRoleID()
	}
	if r.TenantID == "" {
		r.TenantID = tenantFromContext(ctx)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := e.checkRoleParents(ctx, r); err != nil {
		return err
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := e.store.CreateRole(ctx, r); err != nil {
		return fmt.Errorf("praetor: create role: %w", err)
	}

	e.invalidate(ctx, r.TenantID)
	e.auditChange(ctx, r.TenantID, "role", "created", r.ID.String())
	if e.plugins != nil {
		e.plugins.EmitRoleCreated(ctx, r)
	}
	return nil
}

// UpdateRole validates and persists changes to a role. A system role's
// name and slug are immutable, and it cannot be demoted to non-system.
func (e *Engine) UpdateRole(ctx context.Context, r *role.Role) error {
	existing, err := e.store.GetRole(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("%w: role %s", ErrNotFound, r.ID)
	}
	if existing.IsSystem {
		if r.Name != existing.Name || r.Slug != existing.Slug || !r.IsSystem {
			return fmt.Errorf("%w: system role %s identity cannot change", ErrImmutableEntity, r.ID)
		}
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := e.checkRoleParents(ctx, r); err != nil {
		return err
	}
	r.TenantID = existing.TenantID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	if err := e.store.UpdateRole(ctx, r); err != nil {
		return fmt.Errorf("praetor: update role: %w", err)
	}

	e.invalidate(ctx, r.TenantID)
	e.auditChange(ctx, r.TenantID, "role", "updated", r.ID.String())
	if e.plugins != nil {
		e.plugins.EmitRoleUpdated(ctx, r)
	}
	return nil
}

// DeleteRole removes a role. System roles, roles with child roles, and
// roles with active assignments cannot be deleted.
func (e *Engine) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	existing, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("%w: role %s", ErrNotFound, roleID)
	}
	if existing.IsSystem {
		return fmt.Errorf("%w: system role %s cannot be deleted", ErrImmutableEntity, roleID)
	}
	children, err := e.store.ListChildRoles(ctx, roleID)
	if err != nil {
		return fmt.Errorf("praetor: list child roles: %w", err)
	}
	if len(children) > 0 {
		return fmt.Errorf("%w: role %s is a parent of %d roles", ErrImmutableEntity, roleID, len(children))
	}
	active, err := e.store.CountActiveAssignmentsForRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("praetor: count assignments: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("%w: role %s has %d active assignments", ErrImmutableEntity, roleID, active)
	}

	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		return fmt.Errorf("praetor: delete role: %w", err)
	}

	e.invalidate(ctx, existing.TenantID)
	e.auditChange(ctx, existing.TenantID, "role", "deleted", roleID.String())
	if e.plugins != nil {
		e.plugins.EmitRoleDeleted(ctx, roleID)
	}
	return nil
}

// checkRoleParents verifies that every parent exists and that the edge
// set keeps the role graph acyclic.
func (e *Engine) checkRoleParents(ctx context.Context, r *role.Role) error {
	if err := e.hierarchy.ValidateHierarchy(ctx, r.ID, r.ParentIDs); err != nil {
		return err
	}
	for _, p := range r.ParentIDs {
		if _, err := e.store.GetRole(ctx, p); err != nil {
			return fmt.Errorf("%w: parent role %s", ErrNotFound, p)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permissions
// ──────────────────────────────────────────────────

// CreatePermission validates and persists a new permission. Name is
// always derived from resource and action.
func (e *Engine) CreatePermission(ctx context.Context, p *permission.Permission) error {
	now := time.Now().UTC()
	if p.ID.IsNil() {
		p.ID = id.NewPermissionID()
	}
	if p.TenantID == "" {
		p.TenantID = tenantFromContext(ctx)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	p.Name = permission.DeriveName(p.Resource, p.Action)
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := e.store.CreatePermission(ctx, p); err != nil {
		return fmt.Errorf("praetor: create permission: %w", err)
	}

	e.invalidate(ctx, p.TenantID)
	e.auditChange(ctx, p.TenantID, "permission", "created", p.ID.String())
	if e.plugins != nil {
		e.plugins.EmitPermissionCreated(ctx, p)
	}
	return nil
}

// UpdatePermission validates and persists changes to a permission. A core
// permission's resource and action are frozen.
func (e *Engine) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	existing, err := e.store.GetPermission(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("%w: permission %s", ErrNotFound, p.ID)
	}
	if existing.IsCore && (p.Resource != existing.Resource || p.Action != existing.Action) {
		return fmt.Errorf("%w: core permission %s resource/action cannot change", ErrImmutableEntity, p.ID)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	p.Name = permission.DeriveName(p.Resource, p.Action)
	p.TenantID = existing.TenantID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	if err := e.store.UpdatePermission(ctx, p); err != nil {
		return fmt.Errorf("praetor: update permission: %w", err)
	}

	e.invalidate(ctx, p.TenantID)
	e.auditChange(ctx, p.TenantID, "permission", "updated", p.ID.String())
	return nil
}

// DeletePermission removes a permission after detaching it from every
// role that holds it. Core permissions cannot be deleted.
func (e *Engine) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	existing, err := e.store.GetPermission(ctx, permID)
	if err != nil {
		return fmt.Errorf("%w: permission %s", ErrNotFound, permID)
	}
	if existing.IsCore {
		return fmt.Errorf("%w: core permission %s cannot be deleted", ErrImmutableEntity, permID)
	}

	if err := e.store.DetachPermissionFromAll(ctx, permID); err != nil {
		return fmt.Errorf("praetor: detach permission: %w", err)
	}
	if err := e.store.DeletePermission(ctx, permID); err != nil {
		return fmt.Errorf("praetor: delete permission: %w", err)
	}

	e.invalidate(ctx, existing.TenantID)
	e.auditChange(ctx, existing.TenantID, "permission", "deleted", permID.String())
	if e.plugins != nil {
		e.plugins.EmitPermissionDeleted(ctx, permID)
	}
	return nil
}

// AttachPermission links a permission to a role. Both must exist.
func (e *Engine) AttachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("%w: role %s", ErrNotFound, roleID)
	}
	if _, err := e.store.GetPermission(ctx, permID); err != nil {
		return fmt.Errorf("%w: permission %s", ErrNotFound, permID)
	}

	if err := e.store.AttachPermission(ctx, roleID, permID); err != nil {
		return fmt.Errorf("praetor: attach permission: %w", err)
	}

	e.invalidate(ctx, r.TenantID)
	e.auditChange(ctx, r.TenantID, "role", "permission_attached", roleID.String())
	if e.plugins != nil {
		e.plugins.EmitPermissionAttached(ctx, roleID, permID)
	}
	return nil
}

// DetachPermission removes a permission from a role.
func (e *Engine) DetachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("%w: role %s", ErrNotFound, roleID)
	}

	if err := e.store.DetachPermission(ctx, roleID, permID); err != nil {
		return fmt.Errorf("praetor: detach permission: %w", err)
	}

	e.invalidate(ctx, r.TenantID)
	e.auditChange(ctx, r.TenantID, "role", "permission_detached", roleID.String())
	if e.plugins != nil {
		e.plugins.EmitPermissionDetached(ctx, roleID, permID)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Rules
// ──────────────────────────────────────────────────

// CreateRule validates and persists a new permission rule. Regex
// condition values must compile before anything is stored.
func (e *Engine) CreateRule(ctx context.Context, r *rule.Rule) error {
	now := time.Now().UTC()
	if r.ID.IsNil() {
		r.ID = id.NewRuleID()
	}
	if r.TenantID == "" {
		r.TenantID = tenantFromContext(ctx)
	}
	if err := validateRule(r); err != nil {
		return err
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := e.store.CreateRule(ctx, r); err != nil {
		return fmt.Errorf("praetor: create rule: %w", err)
	}

	e.invalidate(ctx, r.TenantID)
	e.auditChange(ctx, r.TenantID, "rule", "created", r.ID.String())
	if e.plugins != nil {
		e.plugins.EmitRuleCreated(ctx, r)
	}
	return nil
}

// UpdateRule validates and persists changes to a rule.
func (e *Engine) UpdateRule(ctx context.Context, r *rule.Rule) error {
	existing, err := e.store.GetRule(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("%w: rule %s", ErrNotFound, r.ID)
	}
	if err := validateRule(r); err != nil {
		return err
	}
	r.TenantID = existing.TenantID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	if err := e.store.UpdateRule(ctx, r); err != nil {
		return fmt.Errorf("praetor: update rule: %w", err)
	}

	e.invalidate(ctx, r.TenantID)
	e.auditChange(ctx, r.TenantID, "rule", "updated", r.ID.String())
	if e.plugins != nil {
		e.plugins.EmitRuleUpdated(ctx, r)
	}
	return nil
}

// DeleteRule removes a rule.
func (e *Engine) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	existing, err := e.store.GetRule(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("%w: rule %s", ErrNotFound, ruleID)
	}

	if err := e.store.DeleteRule(ctx, ruleID); err != nil {
		return fmt.Errorf("praetor: delete rule: %w", err)
	}

	e.invalidate(ctx, existing.TenantID)
	e.auditChange(ctx, existing.TenantID, "rule", "deleted", ruleID.String())
	if e.plugins != nil {
		e.plugins.EmitRuleDeleted(ctx, ruleID)
	}
	return nil
}

func validateRule(r *rule.Rule) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, c := range r.Conditions {
		if c.Operator != rule.OpRegex {
			continue
		}
		if _, err := regexp.Compile(fmt.Sprint(c.Value)); err != nil {
			return fmt.Errorf("%w: condition %s regex: %v", ErrValidation, c.Path, err)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Policies
// ──────────────────────────────────────────────────

// CreatePolicy validates and persists a new policy document. Statements
// without IDs get one assigned.
func (e *Engine) CreatePolicy(ctx context.Context, d *policy.Document) error {
	now := time.Now().UTC()
	if d.ID.IsNil() {
		d.ID = id.NewPolicyID()
	}
	if d.TenantID == "" {
		d.TenantID = tenantFromContext(ctx)
	}
	for i := range d.Statements {
		if d.Statements[i].ID.IsNil() {
			d.Statements[i].ID = id.NewStatementID()
		}
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if d.Version <= 0 {
		d.Version = 1
	}
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := e.store.CreatePolicy(ctx, d); err != nil {
		return fmt.Errorf("praetor: create policy: %w", err)
	}

	e.invalidate(ctx, d.TenantID)
	e.auditChange(ctx, d.TenantID, "policy", "created", d.ID.String())
	if e.plugins != nil {
		e.plugins.EmitPolicyCreated(ctx, d)
	}
	return nil
}

// UpdatePolicy validates and persists a new version of a document.
func (e *Engine) UpdatePolicy(ctx context.Context, d *policy.Document) error {
	existing, err := e.store.GetPolicy(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("%w: policy %s", ErrNotFound, d.ID)
	}
	for i := range d.Statements {
		if d.Statements[i].ID.IsNil() {
			d.Statements[i].ID = id.NewStatementID()
		}
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	d.TenantID = existing.TenantID
	d.Version = existing.Version + 1
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()

	if err := e.store.UpdatePolicy(ctx, d); err != nil {
		return fmt.Errorf("praetor: update policy: %w", err)
	}

	e.invalidate(ctx, d.TenantID)
	e.auditChange(ctx, d.TenantID, "policy", "updated", d.ID.String())
	if e.plugins != nil {
		e.plugins.EmitPolicyUpdated(ctx, d)
	}
	return nil
}

// DeletePolicy removes a policy document.
func (e *Engine) DeletePolicy(ctx context.Context, polID id.PolicyID) error {
	existing, err := e.store.GetPolicy(ctx, polID)
	if err != nil {
		return fmt.Errorf("%w: policy %s", ErrNotFound, polID)
	}

	if err := e.store.DeletePolicy(ctx, polID); err != nil {
		return fmt.Errorf("praetor: delete policy: %w", err)
	}

	e.invalidate(ctx, existing.TenantID)
	e.auditChange(ctx, existing.TenantID, "policy", "deleted", polID.String())
	if e.plugins != nil {
		e.plugins.EmitPolicyDeleted(ctx, polID)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Resources
// ──────────────────────────────────────────────────

// CreateResource validates and persists a new resource. The parent, when
// set, must exist.
func (e *Engine) CreateResource(ctx context.Context, r *resource.Resource) error {
	now := time.Now().UTC()
	if r.ID.IsNil() {
		r.ID = id.NewResourceID()
	}
	if r.TenantID == "" {
		r.TenantID = tenantFromContext(ctx)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if r.ParentID != nil {
		if _, err := e.store.GetResource(ctx, *r.ParentID); err != nil {
			return fmt.Errorf("%w: parent resource %s", ErrNotFound, *r.ParentID)
		}
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := e.store.CreateResource(ctx, r); err != nil {
		return fmt.Errorf("praetor: create resource: %w", err)
	}

	e.invalidate(ctx, r.TenantID)
	e.auditChange(ctx, r.TenantID, "resource", "created", r.ID.String())
	return nil
}

// UpdateResource validates and persists changes to a resource. Reparenting
// must keep the forest acyclic.
func (e *Engine) UpdateResource(ctx context.Context, r *resource.Resource) error {
	existing, err := e.store.GetResource(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("%w: resource %s", ErrNotFound, r.ID)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if r.ParentID != nil {
		if err := e.checkResourceParent(ctx, r.ID, *r.ParentID); err != nil {
			return err
		}
	}
	r.TenantID = existing.TenantID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	if err := e.store.UpdateResource(ctx, r); err != nil {
		return fmt.Errorf("praetor: update resource: %w", err)
	}

	e.invalidate(ctx, r.TenantID)
	e.auditChange(ctx, r.TenantID, "resource", "updated", r.ID.String())
	return nil
}

// DeleteResource removes a resource. Resources with children cannot be
// deleted.
func (e *Engine) DeleteResource(ctx context.Context, resID id.ResourceID) error {
	existing, err := e.store.GetResource(ctx, resID)
	if err != nil {
		return fmt.Errorf("%w: resource %s", ErrNotFound, resID)
	}
	children, err := e.store.ListChildResources(ctx, resID)
	if err != nil {
		return fmt.Errorf("praetor: list child resources: %w", err)
	}
	if len(children) > 0 {
		return fmt.Errorf("%w: resource %s has %d children", ErrImmutableEntity, resID, len(children))
	}

	if err := e.store.DeleteResource(ctx, resID); err != nil {
		return fmt.Errorf("praetor: delete resource: %w", err)
	}

	e.invalidate(ctx, existing.TenantID)
	e.auditChange(ctx, existing.TenantID, "resource", "deleted", resID.String())
	return nil
}

// checkResourceParent walks the ancestor chain from the proposed parent
// and fails if it reaches back to resID.
func (e *Engine) checkResourceParent(ctx context.Context, resID, parentID id.ResourceID) error {
	target := resID.String()
	current := parentID
	for depth := 0; depth < 64; depth++ {
		if current.String() == target {
			return fmt.Errorf("%w: resource %s would become its own ancestor", ErrCircularDependency, resID)
		}
		p, err := e.store.GetResource(ctx, current)
		if err != nil {
			return fmt.Errorf("%w: parent resource %s", ErrNotFound, current)
		}
		if p.ParentID == nil {
			return nil
		}
		current = *p.ParentID
	}
	return fmt.Errorf("%w: resource ancestry too deep", ErrValidation)
}

// ──────────────────────────────────────────────────
// Actions
// ──────────────────────────────────────────────────

// CreateAction validates and persists a new action.
func (e *Engine) CreateAction(ctx context.Context, a *action.Action) error {
	now := time.Now().UTC()
	if a.ID.IsNil() {
		a.ID = id.NewActionID()
	}
	if a.TenantID == "" {
		a.TenantID = tenantFromContext(ctx)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := e.store.CreateAction(ctx, a); err != nil {
		return fmt.Errorf("praetor: create action: %w", err)
	}

	e.invalidate(ctx, a.TenantID)
	e.auditChange(ctx, a.TenantID, "action", "created", a.ID.String())
	return nil
}

// UpdateAction validates and persists changes to an action.
func (e *Engine) UpdateAction(ctx context.Context, a *action.Action) error {
	existing, err := e.store.GetAction(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("%w: action %s", ErrNotFound, a.ID)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	a.TenantID = existing.TenantID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	if err := e.store.UpdateAction(ctx, a); err != nil {
		return fmt.Errorf("praetor: update action: %w", err)
	}

	e.invalidate(ctx, a.TenantID)
	e.auditChange(ctx, a.TenantID, "action", "updated", a.ID.String())
	return nil
}

// DeleteAction removes an action.
func (e *Engine) DeleteAction(ctx context.Context, actID id.ActionID) error {
	existing, err := e.store.GetAction(ctx, actID)
	if err != nil {
		return fmt.Errorf("%w: action %s", ErrNotFound, actID)
	}

	if err := e.store.DeleteAction(ctx, actID); err != nil {
		return fmt.Errorf("praetor: delete action: %w", err)
	}

	e.invalidate(ctx, existing.TenantID)
	e.auditChange(ctx, existing.TenantID, "action", "deleted", actID.String())
	return nil
}
