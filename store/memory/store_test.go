package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/praetorhq/praetor/assignment"
	"github.com/praetorhq/praetor/auditlog"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/rule"
)

func boolPtr(b bool) *bool { return &b }

func TestRoleRoundtrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := &role.Role{
		ID:       id.NewRoleID(),
		TenantID: "t1",
		Name:     "Editor",
		Slug:     "editor",
		IsActive: true,
	}
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	got, err := s.GetRole(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if got.Name != "Editor" || got.TenantID != "t1" {
		t.Fatalf("unexpected role: %+v", got)
	}

	// Mutating the returned copy must not affect the stored role.
	got.Name = "mutated"
	again, err := s.GetRole(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if again.Name != "Editor" {
		t.Fatalf("stored role mutated through returned copy")
	}

	bySlug, err := s.GetRoleBySlug(ctx, "t1", "editor")
	if err != nil {
		t.Fatalf("GetRoleBySlug: %v", err)
	}
	if bySlug.ID != r.ID {
		t.Fatalf("GetRoleBySlug returned wrong role")
	}

	r.Description = "edits things"
	if err := s.UpdateRole(ctx, r); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	got, err = s.GetRole(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRole after update: %v", err)
	}
	if got.Description != "edits things" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}
	if _, err := s.GetRole(ctx, r.ID); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRoleUpdateMissing(t *testing.T) {
	s := New()
	r := &role.Role{ID: id.NewRoleID(), Name: "ghost", Slug: "ghost"}
	if err := s.UpdateRole(context.Background(), r); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListRolesFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	parent := id.NewRoleID()
	seed := []*role.Role{
		{ID: parent, TenantID: "t1", Name: "Admin", Slug: "admin", IsActive: true, IsSystem: true},
		{ID: id.NewRoleID(), TenantID: "t1", Name: "Site Reliability", Slug: "sre", IsActive: true, ParentIDs: []id.RoleID{parent}},
		{ID: id.NewRoleID(), TenantID: "t1", Name: "Retired", Slug: "retired", IsActive: false},
		{ID: id.NewRoleID(), TenantID: "t2", Name: "Admin", Slug: "admin", IsActive: true},
	}
	for _, r := range seed {
		if err := s.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter *role.ListFilter
		want   int
	}{
		{"nil filter", nil, 4},
		{"tenant", &role.ListFilter{TenantID: "t1"}, 3},
		{"active only", &role.ListFilter{TenantID: "t1", IsActive: boolPtr(true)}, 2},
		{"system only", &role.ListFilter{IsSystem: boolPtr(true)}, 1},
		{"by parent", &role.ListFilter{ParentID: &parent}, 1},
		{"search case-insensitive", &role.ListFilter{TenantID: "t1", Search: "reliab"}, 1},
		{"search no match", &role.ListFilter{Search: "nobody"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListRoles(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListRoles: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d roles, want %d", len(got), tt.want)
			}
		})
	}

	count, err := s.CountRoles(ctx, &role.ListFilter{TenantID: "t1"})
	if err != nil {
		t.Fatalf("CountRoles: %v", err)
	}
	if count != 3 {
		t.Fatalf("CountRoles = %d, want 3", count)
	}
}

func TestListRolesPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		r := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "r", Slug: "r", IsActive: true}
		if err := s.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	page, err := s.ListRoles(ctx, &role.ListFilter{TenantID: "t1", Limit: 2})
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("limit: got %d, want 2", len(page))
	}

	page, err = s.ListRoles(ctx, &role.ListFilter{TenantID: "t1", Offset: 3})
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("offset: got %d, want 2", len(page))
	}

	page, err = s.ListRoles(ctx, &role.ListFilter{TenantID: "t1", Offset: 10})
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("offset past end: got %d, want 0", len(page))
	}
}

func TestRolePermissionLinks(t *testing.T) {
	s := New()
	ctx := context.Background()

	r1 := id.NewRoleID()
	r2 := id.NewRoleID()
	p1 := id.NewPermissionID()
	p2 := id.NewPermissionID()

	for _, link := range []struct {
		role id.RoleID
		perm id.PermissionID
	}{{r1, p1}, {r1, p2}, {r2, p1}} {
		if err := s.AttachPermission(ctx, link.role, link.perm); err != nil {
			t.Fatalf("AttachPermission: %v", err)
		}
	}
	// Attaching twice is a no-op.
	if err := s.AttachPermission(ctx, r1, p1); err != nil {
		t.Fatalf("AttachPermission duplicate: %v", err)
	}

	perms, err := s.ListRolePermissions(ctx, r1)
	if err != nil {
		t.Fatalf("ListRolePermissions: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("r1 has %d permissions, want 2", len(perms))
	}
	for i := 1; i < len(perms); i++ {
		if perms[i-1].String() >= perms[i].String() {
			t.Fatalf("permissions not sorted: %v", perms)
		}
	}

	if err := s.DetachPermission(ctx, r1, p2); err != nil {
		t.Fatalf("DetachPermission: %v", err)
	}
	perms, _ = s.ListRolePermissions(ctx, r1)
	if len(perms) != 1 || perms[0] != p1 {
		t.Fatalf("after detach: %v", perms)
	}

	if err := s.DetachPermissionFromAll(ctx, p1); err != nil {
		t.Fatalf("DetachPermissionFromAll: %v", err)
	}
	for _, rid := range []id.RoleID{r1, r2} {
		perms, _ = s.ListRolePermissions(ctx, rid)
		if len(perms) != 0 {
			t.Fatalf("role %s still holds %v", rid, perms)
		}
	}

	if err := s.SetRolePermissions(ctx, r1, []id.PermissionID{p1, p2}); err != nil {
		t.Fatalf("SetRolePermissions: %v", err)
	}
	perms, _ = s.ListRolePermissions(ctx, r1)
	if len(perms) != 2 {
		t.Fatalf("after set: %v", perms)
	}
	if err := s.SetRolePermissions(ctx, r1, []id.PermissionID{p2}); err != nil {
		t.Fatalf("SetRolePermissions replace: %v", err)
	}
	perms, _ = s.ListRolePermissions(ctx, r1)
	if len(perms) != 1 || perms[0] != p2 {
		t.Fatalf("set did not replace: %v", perms)
	}
}

func TestListChildRoles(t *testing.T) {
	s := New()
	ctx := context.Background()

	parent := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "parent", Slug: "parent", IsActive: true}
	childA := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "a", Slug: "a", IsActive: true, ParentIDs: []id.RoleID{parent.ID}}
	childB := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "b", Slug: "b", IsActive: true, ParentIDs: []id.RoleID{parent.ID}}
	other := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "c", Slug: "c", IsActive: true}
	for _, r := range []*role.Role{parent, childA, childB, other} {
		if err := s.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	children, err := s.ListChildRoles(ctx, parent.ID)
	if err != nil {
		t.Fatalf("ListChildRoles: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
}

func TestPermissionRoundtripAndFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	seed := []*permission.Permission{
		{ID: id.NewPermissionID(), TenantID: "t1", Name: "documents.read", Resource: "documents", Action: "read", Category: permission.CategoryRead},
		{ID: id.NewPermissionID(), TenantID: "t1", Name: "documents.write", Resource: "documents", Action: "write", Category: permission.CategoryWrite},
		{ID: id.NewPermissionID(), TenantID: "t1", Name: "users.manage", Resource: "users", Action: "manage", Category: permission.CategoryManage, IsCore: true},
	}
	for _, p := range seed {
		if err := s.CreatePermission(ctx, p); err != nil {
			t.Fatalf("CreatePermission: %v", err)
		}
	}

	got, err := s.GetPermissionByName(ctx, "t1", "documents.read")
	if err != nil {
		t.Fatalf("GetPermissionByName: %v", err)
	}
	if got.ID != seed[0].ID {
		t.Fatalf("GetPermissionByName returned wrong permission")
	}
	if _, err := s.GetPermissionByName(ctx, "t1", "missing"); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	tests := []struct {
		name   string
		filter *permission.ListFilter
		want   int
	}{
		{"by resource", &permission.ListFilter{Resource: "documents"}, 2},
		{"by category", &permission.ListFilter{Category: permission.CategoryWrite}, 1},
		{"core only", &permission.ListFilter{IsCore: boolPtr(true)}, 1},
		{"search", &permission.ListFilter{Search: "manage"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListPermissions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListPermissions: %v", err)
			}
			if len(list) != tt.want {
				t.Fatalf("got %d, want %d", len(list), tt.want)
			}
		})
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	rid := id.NewRoleID()
	a1 := &assignment.Assignment{ID: id.NewAssignmentID(), TenantID: "t1", RoleID: rid, UserID: "alice", IsActive: true}
	a2 := &assignment.Assignment{ID: id.NewAssignmentID(), TenantID: "t1", RoleID: rid, UserID: "bob", IsActive: true}
	a3 := &assignment.Assignment{ID: id.NewAssignmentID(), TenantID: "t1", RoleID: id.NewRoleID(), UserID: "alice", IsActive: false}
	for _, a := range []*assignment.Assignment{a1, a2, a3} {
		if err := s.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("CreateAssignment: %v", err)
		}
	}

	forAlice, err := s.ListAssignmentsForUser(ctx, "t1", "alice")
	if err != nil {
		t.Fatalf("ListAssignmentsForUser: %v", err)
	}
	if len(forAlice) != 2 {
		t.Fatalf("alice has %d assignments, want 2", len(forAlice))
	}

	forRole, err := s.ListAssignmentsForRole(ctx, rid)
	if err != nil {
		t.Fatalf("ListAssignmentsForRole: %v", err)
	}
	if len(forRole) != 2 {
		t.Fatalf("role has %d assignments, want 2", len(forRole))
	}

	count, err := s.CountActiveAssignmentsForRole(ctx, rid)
	if err != nil {
		t.Fatalf("CountActiveAssignmentsForRole: %v", err)
	}
	if count != 2 {
		t.Fatalf("active count = %d, want 2", count)
	}

	// Deactivation drops the assignment from the active count.
	now := time.Now().UTC()
	a1.IsActive = false
	a1.RevokedBy = "system"
	a1.RevokedAt = &now
	if err := s.UpdateAssignment(ctx, a1); err != nil {
		t.Fatalf("UpdateAssignment: %v", err)
	}
	count, _ = s.CountActiveAssignmentsForRole(ctx, rid)
	if count != 1 {
		t.Fatalf("active count after revoke = %d, want 1", count)
	}

	got, err := s.GetAssignment(ctx, a1.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if got.IsActive || got.RevokedBy != "system" || got.RevokedAt == nil {
		t.Fatalf("revocation fields not persisted: %+v", got)
	}

	active, err := s.ListAssignments(ctx, &assignment.ListFilter{TenantID: "t1", IsActive: boolPtr(true)})
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active assignments = %d, want 1", len(active))
	}
}

func TestListActiveRulesOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed := []*rule.Rule{
		{ID: id.NewRuleID(), TenantID: "t1", Name: "low", Effect: rule.EffectAllow, Priority: 1, IsActive: true, CreatedAt: base},
		{ID: id.NewRuleID(), TenantID: "t1", Name: "high", Effect: rule.EffectDeny, Priority: 10, IsActive: true, CreatedAt: base.Add(time.Hour)},
		{ID: id.NewRuleID(), TenantID: "t1", Name: "mid-old", Effect: rule.EffectAllow, Priority: 5, IsActive: true, CreatedAt: base},
		{ID: id.NewRuleID(), TenantID: "t1", Name: "mid-new", Effect: rule.EffectAllow, Priority: 5, IsActive: true, CreatedAt: base.Add(time.Minute)},
		{ID: id.NewRuleID(), TenantID: "t1", Name: "inactive", Effect: rule.EffectAllow, Priority: 99, IsActive: false, CreatedAt: base},
		{ID: id.NewRuleID(), TenantID: "t2", Name: "other-tenant", Effect: rule.EffectAllow, Priority: 50, IsActive: true, CreatedAt: base},
	}
	for _, r := range seed {
		if err := s.CreateRule(ctx, r); err != nil {
			t.Fatalf("CreateRule: %v", err)
		}
	}

	rules, err := s.ListActiveRules(ctx, "t1")
	if err != nil {
		t.Fatalf("ListActiveRules: %v", err)
	}
	wantOrder := []string{"high", "mid-old", "mid-new", "low"}
	if len(rules) != len(wantOrder) {
		t.Fatalf("got %d rules, want %d", len(rules), len(wantOrder))
	}
	for i, name := range wantOrder {
		if rules[i].Name != name {
			t.Fatalf("position %d: got %q, want %q", i, rules[i].Name, name)
		}
	}
}

func TestRuleCopyIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := &rule.Rule{
		ID:       id.NewRuleID(),
		TenantID: "t1",
		Name:     "scoped",
		Effect:   rule.EffectAllow,
		IsActive: true,
		Roles:    []string{"developer"},
		Conditions: []rule.Condition{
			{ID: id.NewConditionID(), Path: "environment.network", Operator: rule.OpEquals, Value: "office", Required: true},
		},
	}
	if err := s.CreateRule(ctx, r); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	got, err := s.GetRule(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	got.Roles[0] = "mutated"
	got.Conditions[0].Path = "mutated"

	again, _ := s.GetRule(ctx, r.ID)
	if again.Roles[0] != "developer" || again.Conditions[0].Path != "environment.network" {
		t.Fatalf("stored rule mutated through returned copy: %+v", again)
	}
}

func TestListActivePoliciesOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed := []*policy.Document{
		{ID: id.NewPolicyID(), TenantID: "t1", Name: "second", IsActive: true, CreatedAt: base.Add(time.Hour)},
		{ID: id.NewPolicyID(), TenantID: "t1", Name: "first", IsActive: true, CreatedAt: base},
		{ID: id.NewPolicyID(), TenantID: "t1", Name: "disabled", IsActive: false, CreatedAt: base},
	}
	for _, d := range seed {
		if err := s.CreatePolicy(ctx, d); err != nil {
			t.Fatalf("CreatePolicy: %v", err)
		}
	}

	docs, err := s.ListActivePolicies(ctx, "t1")
	if err != nil {
		t.Fatalf("ListActivePolicies: %v", err)
	}
	if len(docs) != 2 || docs[0].Name != "first" || docs[1].Name != "second" {
		t.Fatalf("unexpected order: %+v", docs)
	}
}

func TestListPoliciesTagFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	seed := []*policy.Document{
		{ID: id.NewPolicyID(), TenantID: "t1", Name: "compliance", IsActive: true, Tags: []string{"soc2", "audit"}},
		{ID: id.NewPolicyID(), TenantID: "t1", Name: "access", IsActive: true, Tags: []string{"audit"}},
		{ID: id.NewPolicyID(), TenantID: "t1", Name: "untagged", IsActive: true},
	}
	for _, d := range seed {
		if err := s.CreatePolicy(ctx, d); err != nil {
			t.Fatalf("CreatePolicy: %v", err)
		}
	}

	docs, err := s.ListPolicies(ctx, &policy.ListFilter{TenantID: "t1", Tag: "audit"})
	if err != nil {
		t.Fatalf("ListPolicies: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("tag filter returned %d, want 2", len(docs))
	}
	docs, err = s.ListPolicies(ctx, &policy.ListFilter{TenantID: "t1", Tag: "soc2"})
	if err != nil {
		t.Fatalf("ListPolicies: %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "compliance" {
		t.Fatalf("tag filter soc2: %+v", docs)
	}
}

func TestAuditLogQueryAndPurge(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seed := []*auditlog.Entry{
		{ID: id.NewAuditLogID(), TenantID: "t1", Kind: auditlog.KindDecision, PrincipalID: "alice", Outcome: auditlog.OutcomeAllow, CreatedAt: base},
		{ID: id.NewAuditLogID(), TenantID: "t1", Kind: auditlog.KindDecision, PrincipalID: "alice", Outcome: auditlog.OutcomeDeny, CreatedAt: base.Add(time.Hour)},
		{ID: id.NewAuditLogID(), TenantID: "t1", Kind: auditlog.KindConfigChange, PrincipalID: "admin", Outcome: auditlog.OutcomeSuccess, CreatedAt: base.Add(2 * time.Hour)},
		{ID: id.NewAuditLogID(), TenantID: "t2", Kind: auditlog.KindDecision, PrincipalID: "eve", Outcome: auditlog.OutcomeDeny, CreatedAt: base},
	}
	for _, e := range seed {
		if err := s.CreateAuditLog(ctx, e); err != nil {
			t.Fatalf("CreateAuditLog: %v", err)
		}
	}

	entries, err := s.ListAuditLogs(ctx, &auditlog.QueryFilter{TenantID: "t1", Kind: auditlog.KindDecision})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("decision entries = %d, want 2", len(entries))
	}
	if !entries[0].CreatedAt.Before(entries[1].CreatedAt) {
		t.Fatalf("entries not in chronological order")
	}

	cutoff := base.Add(30 * time.Minute)
	entries, err = s.ListAuditLogs(ctx, &auditlog.QueryFilter{TenantID: "t1", After: &cutoff})
	if err != nil {
		t.Fatalf("ListAuditLogs after: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries after cutoff = %d, want 2", len(entries))
	}

	entries, err = s.ListAuditLogs(ctx, &auditlog.QueryFilter{Outcome: auditlog.OutcomeDeny})
	if err != nil {
		t.Fatalf("ListAuditLogs outcome: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("deny entries = %d, want 2", len(entries))
	}

	purged, err := s.PurgeAuditLogs(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("PurgeAuditLogs: %v", err)
	}
	if purged != 3 {
		t.Fatalf("purged %d, want 3", purged)
	}
	remaining, _ := s.CountAuditLogs(ctx, nil)
	if remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
}
