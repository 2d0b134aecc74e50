// Package memory provides an in-memory implementation of the Praetor
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/praetorhq/praetor/action"
	"github.com/praetorhq/praetor/assignment"
	"github.com/praetorhq/praetor/auditlog"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/resource"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/rule"
)

// Compile-time interface checks.
var (
	_ role.Store       = (*Store)(nil)
	_ permission.Store = (*Store)(nil)
	_ assignment.Store = (*Store)(nil)
	_ rule.Store       = (*Store)(nil)
	_ policy.Store     = (*Store)(nil)
	_ resource.Store   = (*Store)(nil)
	_ action.Store     = (*Store)(nil)
	_ auditlog.Store   = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Praetor entities.
type Store struct {
	mu sync.RWMutex

	roles           map[string]*role.Role
	permissions     map[string]*permission.Permission
	rolePermissions map[string]map[string]struct{} // roleID -> set of permIDs
	assignments     map[string]*assignment.Assignment
	rules           map[string]*rule.Rule
	policies        map[string]*policy.Document
	resources       map[string]*resource.Resource
	actions         map[string]*action.Action
	auditLogs       map[string]*auditlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		roles:           make(map[string]*role.Role),
		permissions:     make(map[string]*permission.Permission),
		rolePermissions: make(map[string]map[string]struct{}),
		assignments:     make(map[string]*assignment.Assignment),
		rules:           make(map[string]*rule.Rule),
		policies:        make(map[string]*policy.Document),
		resources:       make(map[string]*resource.Resource),
		actions:         make(map[string]*action.Action),
		auditLogs:       make(map[string]*auditlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, errNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleBySlug(_ context.Context, tenantID, slug string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.TenantID == tenantID && r.Slug == slug {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role slug %q: %w", slug, errNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, errNotFound)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, roleID.String())
	delete(s.rolePermissions, roleID.String())
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter != nil {
			if filter.TenantID != "" && r.TenantID != filter.TenantID {
				continue
			}
			if filter.IsSystem != nil && r.IsSystem != *filter.IsSystem {
				continue
			}
			if filter.IsActive != nil && r.IsActive != *filter.IsActive {
				continue
			}
			if filter.ParentID != nil && !hasParent(r, *filter.ParentID) {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	list, err := s.ListRoles(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListRolePermissions(_ context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms, ok := s.rolePermissions[roleID.String()]
	if !ok {
		return nil, nil
	}
	result := make([]id.PermissionID, 0, len(perms))
	for pid := range perms {
		parsed, err := id.ParsePermissionID(pid)
		if err == nil {
			result = append(result, parsed)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].String() < result[j].String() })
	return result, nil
}

func (s *Store) AttachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := roleID.String()
	if s.rolePermissions[rk] == nil {
		s.rolePermissions[rk] = make(map[string]struct{})
	}
	s.rolePermissions[rk][permID.String()] = struct{}{}
	return nil
}

func (s *Store) DetachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perms, ok := s.rolePermissions[roleID.String()]; ok {
		delete(perms, permID.String())
	}
	return nil
}

func (s *Store) DetachPermissionFromAll(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := permID.String()
	for _, perms := range s.rolePermissions {
		delete(perms, pk)
	}
	return nil
}

func (s *Store) SetRolePermissions(_ context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	perms := make(map[string]struct{}, len(permIDs))
	for _, pid := range permIDs {
		perms[pid.String()] = struct{}{}
	}
	s.rolePermissions[roleID.String()] = perms
	return nil
}

func (s *Store) ListChildRoles(_ context.Context, parentID id.RoleID) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*role.Role
	for _, r := range s.roles {
		if hasParent(r, parentID) {
			result = append(result, copyRole(r))
		}
	}
	return result, nil
}

func hasParent(r *role.Role, parentID id.RoleID) bool {
	pk := parentID.String()
	for _, p := range r.ParentIDs {
		if p.String() == pk {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok {
		return nil, fmt.Errorf("permission %s: %w", permID, errNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissionByName(_ context.Context, tenantID, name string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.TenantID == tenantID && p.Name == name {
			return copyPermission(p), nil
		}
	}
	return nil, fmt.Errorf("permission %q: %w", name, errNotFound)
}

func (s *Store) UpdatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permissions[p.ID.String()]; !ok {
		return fmt.Errorf("permission %s: %w", p.ID, errNotFound)
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) DeletePermission(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.permissions, permID.String())
	return nil
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*permission.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		if filter != nil {
			if filter.TenantID != "" && p.TenantID != filter.TenantID {
				continue
			}
			if filter.Resource != "" && p.Resource != filter.Resource {
				continue
			}
			if filter.Action != "" && p.Action != filter.Action {
				continue
			}
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if filter.IsCore != nil && p.IsCore != *filter.IsCore {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyPermission(p))
	}
	return applyPagination(result, paginationOptsPerm(filter)), nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	list, err := s.ListPermissions(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID.String()] = copyAssignment(a)
	return nil
}

func (s *Store) GetAssignment(_ context.Context, asgnID id.AssignmentID) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[asgnID.String()]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", asgnID, errNotFound)
	}
	return copyAssignment(a), nil
}

func (s *Store) UpdateAssignment(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[a.ID.String()]; !ok {
		return fmt.Errorf("assignment %s: %w", a.ID, errNotFound)
	}
	s.assignments[a.ID.String()] = copyAssignment(a)
	return nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if filter != nil {
			if filter.TenantID != "" && a.TenantID != filter.TenantID {
				continue
			}
			if filter.RoleID != nil && a.RoleID.String() != filter.RoleID.String() {
				continue
			}
			if filter.UserID != "" && a.UserID != filter.UserID {
				continue
			}
			if filter.IsActive != nil && a.IsActive != *filter.IsActive {
				continue
			}
		}
		result = append(result, copyAssignment(a))
	}
	return applyPagination(result, paginationOptsAssign(filter)), nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	list, err := s.ListAssignments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListAssignmentsForUser(_ context.Context, tenantID, userID string) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*assignment.Assignment
	for _, a := range s.assignments {
		if a.TenantID == tenantID && a.UserID == userID {
			result = append(result, copyAssignment(a))
		}
	}
	return result, nil
}

func (s *Store) ListAssignmentsForRole(_ context.Context, roleID id.RoleID) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*assignment.Assignment
	rk := roleID.String()
	for _, a := range s.assignments {
		if a.RoleID.String() == rk {
			result = append(result, copyAssignment(a))
		}
	}
	return result, nil
}

func (s *Store) CountActiveAssignmentsForRole(_ context.Context, roleID id.RoleID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	rk := roleID.String()
	for _, a := range s.assignments {
		if a.RoleID.String() == rk && a.IsActive {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Rule Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.ID.String()] = copyRule(r)
	return nil
}

func (s *Store) GetRule(_ context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleID.String()]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", ruleID, errNotFound)
	}
	return copyRule(r), nil
}

func (s *Store) UpdateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[r.ID.String()]; !ok {
		return fmt.Errorf("rule %s: %w", r.ID, errNotFound)
	}
	s.rules[r.ID.String()] = copyRule(r)
	return nil
}

func (s *Store) DeleteRule(_ context.Context, ruleID id.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, ruleID.String())
	return nil
}

func (s *Store) ListRules(_ context.Context, filter *rule.ListFilter) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*rule.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if filter != nil {
			if filter.TenantID != "" && r.TenantID != filter.TenantID {
				continue
			}
			if filter.Effect != "" && r.Effect != filter.Effect {
				continue
			}
			if filter.IsActive != nil && r.IsActive != *filter.IsActive {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRule(r))
	}
	return applyPagination(result, paginationOptsRule(filter)), nil
}

func (s *Store) ListActiveRules(_ context.Context, tenantID string) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*rule.Rule
	for _, r := range s.rules {
		if r.TenantID == tenantID && r.IsActive {
			result = append(result, copyRule(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) CountRules(ctx context.Context, filter *rule.ListFilter) (int64, error) {
	list, err := s.ListRules(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Policy Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePolicy(_ context.Context, d *policy.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[d.ID.String()] = copyPolicy(d)
	return nil
}

func (s *Store) GetPolicy(_ context.Context, polID id.PolicyID) (*policy.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.policies[polID.String()]
	if !ok {
		return nil, fmt.Errorf("policy %s: %w", polID, errNotFound)
	}
	return copyPolicy(d), nil
}

func (s *Store) UpdatePolicy(_ context.Context, d *policy.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[d.ID.String()]; !ok {
		return fmt.Errorf("policy %s: %w", d.ID, errNotFound)
	}
	s.policies[d.ID.String()] = copyPolicy(d)
	return nil
}

func (s *Store) DeletePolicy(_ context.Context, polID id.PolicyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policies, polID.String())
	return nil
}

func (s *Store) ListPolicies(_ context.Context, filter *policy.ListFilter) ([]*policy.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*policy.Document, 0, len(s.policies))
	for _, d := range s.policies {
		if filter != nil {
			if filter.TenantID != "" && d.TenantID != filter.TenantID {
				continue
			}
			if filter.IsActive != nil && d.IsActive != *filter.IsActive {
				continue
			}
			if filter.Tag != "" && !containsString(d.Tags, filter.Tag) {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyPolicy(d))
	}
	return applyPagination(result, paginationOptsPol(filter)), nil
}

func (s *Store) ListActivePolicies(_ context.Context, tenantID string) ([]*policy.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*policy.Document
	for _, d := range s.policies {
		if d.TenantID == tenantID && d.IsActive {
			result = append(result, copyPolicy(d))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CountPolicies(ctx context.Context, filter *policy.ListFilter) (int64, error) {
	list, err := s.ListPolicies(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Resource Store
// ──────────────────────────────────────────────────

func (s *Store) CreateResource(_ context.Context, r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.ID.String()] = copyResource(r)
	return nil
}

func (s *Store) GetResource(_ context.Context, resID id.ResourceID) (*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[resID.String()]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", resID, errNotFound)
	}
	return copyResource(r), nil
}

func (s *Store) UpdateResource(_ context.Context, r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[r.ID.String()]; !ok {
		return fmt.Errorf("resource %s: %w", r.ID, errNotFound)
	}
	s.resources[r.ID.String()] = copyResource(r)
	return nil
}

func (s *Store) DeleteResource(_ context.Context, resID id.ResourceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, resID.String())
	return nil
}

func (s *Store) ListResources(_ context.Context, filter *resource.ListFilter) ([]*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*resource.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		if filter != nil {
			if filter.TenantID != "" && r.TenantID != filter.TenantID {
				continue
			}
			if filter.Type != "" && r.Type != filter.Type {
				continue
			}
			if filter.ParentID != nil && (r.ParentID == nil || r.ParentID.String() != filter.ParentID.String()) {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyResource(r))
	}
	return applyPagination(result, paginationOptsRes(filter)), nil
}

func (s *Store) CountResources(ctx context.Context, filter *resource.ListFilter) (int64, error) {
	list, err := s.ListResources(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListChildResources(_ context.Context, parentID id.ResourceID) ([]*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*resource.Resource
	pk := parentID.String()
	for _, r := range s.resources {
		if r.ParentID != nil && r.ParentID.String() == pk {
			result = append(result, copyResource(r))
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Action Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAction(_ context.Context, a *action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[a.ID.String()] = copyAction(a)
	return nil
}

func (s *Store) GetAction(_ context.Context, actID id.ActionID) (*action.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[actID.String()]
	if !ok {
		return nil, fmt.Errorf("action %s: %w", actID, errNotFound)
	}
	return copyAction(a), nil
}

func (s *Store) GetActionByName(_ context.Context, tenantID, name string) (*action.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.actions {
		if a.TenantID == tenantID && a.Name == name {
			return copyAction(a), nil
		}
	}
	return nil, fmt.Errorf("action %q: %w", name, errNotFound)
}

func (s *Store) UpdateAction(_ context.Context, a *action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[a.ID.String()]; !ok {
		return fmt.Errorf("action %s: %w", a.ID, errNotFound)
	}
	s.actions[a.ID.String()] = copyAction(a)
	return nil
}

func (s *Store) DeleteAction(_ context.Context, actID id.ActionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actions, actID.String())
	return nil
}

func (s *Store) ListActions(_ context.Context, filter *action.ListFilter) ([]*action.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*action.Action, 0, len(s.actions))
	for _, a := range s.actions {
		if filter != nil {
			if filter.TenantID != "" && a.TenantID != filter.TenantID {
				continue
			}
			if filter.Category != "" && a.Category != filter.Category {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyAction(a))
	}
	return applyPagination(result, paginationOptsAct(filter)), nil
}

func (s *Store) CountActions(ctx context.Context, filter *action.ListFilter) (int64, error) {
	list, err := s.ListActions(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Audit Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditLog(_ context.Context, e *auditlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs[e.ID.String()] = copyAuditLog(e)
	return nil
}

func (s *Store) GetAuditLog(_ context.Context, logID id.AuditLogID) (*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.auditLogs[logID.String()]
	if !ok {
		return nil, fmt.Errorf("audit log %s: %w", logID, errNotFound)
	}
	return copyAuditLog(e), nil
}

func (s *Store) ListAuditLogs(_ context.Context, filter *auditlog.QueryFilter) ([]*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*auditlog.Entry, 0, len(s.auditLogs))
	for _, e := range s.auditLogs {
		if filter != nil {
			if filter.TenantID != "" && e.TenantID != filter.TenantID {
				continue
			}
			if filter.Kind != "" && e.Kind != filter.Kind {
				continue
			}
			if filter.Category != "" && e.Category != filter.Category {
				continue
			}
			if filter.PrincipalID != "" && e.PrincipalID != filter.PrincipalID {
				continue
			}
			if filter.ResourceType != "" && e.ResourceType != filter.ResourceType {
				continue
			}
			if filter.ResourceID != "" && e.ResourceID != filter.ResourceID {
				continue
			}
			if filter.Outcome != "" && e.Outcome != filter.Outcome {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyAuditLog(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return applyPagination(result, paginationOptsAudit(filter)), nil
}

func (s *Store) CountAuditLogs(ctx context.Context, filter *auditlog.QueryFilter) (int64, error) {
	list, err := s.ListAuditLogs(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeAuditLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.auditLogs {
		if e.CreatedAt.Before(before) {
			delete(s.auditLogs, k)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

var errNotFound = fmt.Errorf("not found")

func copyRole(r *role.Role) *role.Role {
	c := *r
	if r.ParentIDs != nil {
		c.ParentIDs = make([]id.RoleID, len(r.ParentIDs))
		copy(c.ParentIDs, r.ParentIDs)
	}
	return &c
}

func copyPermission(p *permission.Permission) *permission.Permission {
	c := *p
	return &c
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	return &c
}

func copyRule(r *rule.Rule) *rule.Rule {
	c := *r
	if r.Resources != nil {
		c.Resources = make([]string, len(r.Resources))
		copy(c.Resources, r.Resources)
	}
	if r.Actions != nil {
		c.Actions = make([]string, len(r.Actions))
		copy(c.Actions, r.Actions)
	}
	if r.Roles != nil {
		c.Roles = make([]string, len(r.Roles))
		copy(c.Roles, r.Roles)
	}
	if r.Conditions != nil {
		c.Conditions = make([]rule.Condition, len(r.Conditions))
		copy(c.Conditions, r.Conditions)
	}
	if r.TimeWindow != nil {
		w := *r.TimeWindow
		c.TimeWindow = &w
	}
	return &c
}

func copyPolicy(d *policy.Document) *policy.Document {
	c := *d
	if d.Statements != nil {
		c.Statements = make([]policy.Statement, len(d.Statements))
		copy(c.Statements, d.Statements)
	}
	if d.Tags != nil {
		c.Tags = make([]string, len(d.Tags))
		copy(c.Tags, d.Tags)
	}
	return &c
}

func copyResource(r *resource.Resource) *resource.Resource {
	c := *r
	return &c
}

func copyAction(a *action.Action) *action.Action {
	c := *a
	return &c
}

func copyAuditLog(e *auditlog.Entry) *auditlog.Entry {
	c := *e
	return &c
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Pagination helpers for each entity type.
type pagOpts struct{ limit, offset int }

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset >= len(items) && p.offset > 0 {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}

func paginationOpts(f *role.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsPerm(f *permission.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAssign(f *assignment.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsRule(f *rule.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsPol(f *policy.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsRes(f *resource.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAct(f *action.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAudit(f *auditlog.QueryFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}
