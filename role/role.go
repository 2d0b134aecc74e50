// Package role defines the Role entity and its store interface.
package role

import (
	"fmt"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Role is a named bundle of permissions that can be assigned to users.
// Roles form a directed acyclic graph through ParentIDs; a role inherits
// the full transitive permission set of its parents.
type Role struct {
	ID             id.RoleID      `json:"id" db:"id"`
	TenantID       string         `json:"tenant_id" db:"tenant_id"`
	Name           string         `json:"name" db:"name"`
	Description    string         `json:"description,omitempty" db:"description"`
	Slug           string         `json:"slug" db:"slug"`
	ParentIDs      []id.RoleID    `json:"parent_ids,omitempty" db:"-"`
	Priority       int            `json:"priority" db:"priority"`
	Level          int            `json:"level" db:"level"`
	IsActive       bool           `json:"is_active" db:"is_active"`
	IsSystem       bool           `json:"is_system" db:"is_system"`
	MaxAssignments int            `json:"max_assignments,omitempty" db:"max_assignments"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty" db:"expires_at"`
	Metadata       map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks single-entity invariants. Graph invariants (cycles) are
// the engine's responsibility because they need store access.
func (r *Role) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("role name is required")
	}
	if r.Slug == "" {
		return fmt.Errorf("role slug is required")
	}
	if r.MaxAssignments < 0 {
		return fmt.Errorf("role max_assignments cannot be negative")
	}
	for _, p := range r.ParentIDs {
		if p == r.ID {
			return fmt.Errorf("role cannot be its own parent")
		}
	}
	return nil
}

// Expired reports whether the role itself has expired at the given time.
func (r *Role) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	TenantID string     `json:"tenant_id,omitempty"`
	IsSystem *bool      `json:"is_system,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
	ParentID *id.RoleID `json:"parent_id,omitempty"`
	Search   string     `json:"search,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}
