package praetor

import (
	"context"
	"fmt"
	"time"

	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/store"
)

// HierarchyResolver aggregates permissions across the role parent graph.
// Traversal is bounded by a per-call visited set plus a configurable max
// depth; cycles are rejected before commit by ValidateHierarchy, so the
// runtime guards are defense-in-depth, not the primary protection.
type HierarchyResolver struct {
	store    store.Store
	maxDepth int
}

// NewHierarchyResolver creates a resolver over the given store.
func NewHierarchyResolver(s store.Store, maxDepth int) *HierarchyResolver {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &HierarchyResolver{store: s, maxDepth: maxDepth}
}

// ResolvePermissions returns the union of a role's direct permissions with
// every transitive parent's, in depth-first discovery order.
func (h *HierarchyResolver) ResolvePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	seen := make(map[string]struct{})
	perms := make([]id.PermissionID, 0, 8)
	permSeen := make(map[string]struct{})

	if err := h.walk(ctx, roleID, seen, &perms, permSeen, 0); err != nil {
		return nil, err
	}
	return perms, nil
}

func (h *HierarchyResolver) walk(ctx context.Context, roleID id.RoleID, seen map[string]struct{}, perms *[]id.PermissionID, permSeen map[string]struct{}, depth int) error {
	if depth > h.maxDepth {
		return nil
	}
	key := roleID.String()
	if _, ok := seen[key]; ok {
		return nil
	}
	seen[key] = struct{}{}

	r, err := h.store.GetRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("resolve role %s: %w", roleID, err)
	}
	if !r.IsActive {
		return nil
	}

	direct, err := h.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return fmt.Errorf("list permissions for %s: %w", roleID, err)
	}
	for _, p := range direct {
		pk := p.String()
		if _, ok := permSeen[pk]; ok {
			continue
		}
		permSeen[pk] = struct{}{}
		*perms = append(*perms, p)
	}

	for _, parent := range r.ParentIDs {
		if err := h.walk(ctx, parent, seen, perms, permSeen, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// ValidateHierarchy checks that giving roleID the proposed parents keeps
// the graph acyclic. It runs before any store mutation — validate then
// commit, never commit then roll back. Because the existing graph is
// acyclic, any new cycle must pass through roleID, so it suffices to
// search for roleID from each proposed parent along existing parent edges.
func (h *HierarchyResolver) ValidateHierarchy(ctx context.Context, roleID id.RoleID, parents []id.RoleID) error {
	target := roleID.String()
	for _, p := range parents {
		if p.String() == target {
			return fmt.Errorf("%w: role %s cannot be its own parent", ErrCircularDependency, roleID)
		}
	}

	onPath := map[string]struct{}{target: {}}
	for _, p := range parents {
		if err := h.searchCycle(ctx, p, target, onPath); err != nil {
			return err
		}
	}
	return nil
}

func (h *HierarchyResolver) searchCycle(ctx context.Context, current id.RoleID, target string, onPath map[string]struct{}) error {
	key := current.String()
	if _, ok := onPath[key]; ok {
		return fmt.Errorf("%w: role %s is on the current path", ErrCircularDependency, current)
	}
	onPath[key] = struct{}{}
	defer delete(onPath, key)

	r, err := h.store.GetRole(ctx, current)
	if err != nil {
		// A missing parent is caught by reference validation; the graph
		// check only cares about reachability.
		return nil
	}
	for _, parent := range r.ParentIDs {
		if parent.String() == target {
			return fmt.Errorf("%w: role %s reaches back to %s", ErrCircularDependency, current, target)
		}
		if err := h.searchCycle(ctx, parent, target, onPath); err != nil {
			return err
		}
	}
	return nil
}

// UserPermissions unions ResolvePermissions over every currently valid
// assignment of the user. Valid means the assignment is active and
// unexpired, and its role is active and unexpired. Validity is re-checked
// on every call; there is no background sweep.
func (h *HierarchyResolver) UserPermissions(ctx context.Context, tenantID, userID string) ([]id.PermissionID, error) {
	assignments, err := h.store.ListAssignmentsForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments for %s: %w", userID, err)
	}

	now := time.Now()
	perms := make([]id.PermissionID, 0, 8)
	permSeen := make(map[string]struct{})

	for _, a := range assignments {
		if !a.ValidAt(now) {
			continue
		}
		r, err := h.store.GetRole(ctx, a.RoleID)
		if err != nil {
			continue
		}
		if !r.IsActive || r.Expired(now) {
			continue
		}

		resolved, err := h.ResolvePermissions(ctx, a.RoleID)
		if err != nil {
			return nil, err
		}
		for _, p := range resolved {
			pk := p.String()
			if _, ok := permSeen[pk]; ok {
				continue
			}
			permSeen[pk] = struct{}{}
			perms = append(perms, p)
		}
	}
	return perms, nil
}
