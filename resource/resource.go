// Package resource defines the Resource entity and its store interface.
package resource

import (
	"fmt"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Resource is a protected target of authorization checks. Resources form a
// forest through ParentID: no cycles, and a resource with children cannot
// be deleted.
type Resource struct {
	ID         id.ResourceID  `json:"id" db:"id"`
	TenantID   string         `json:"tenant_id" db:"tenant_id"`
	Type       string         `json:"type" db:"type"`
	Name       string         `json:"name" db:"name"`
	ParentID   *id.ResourceID `json:"parent_id,omitempty" db:"parent_id"`
	Attributes map[string]any `json:"attributes,omitempty" db:"attributes"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks single-entity invariants.
func (r *Resource) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("resource type is required")
	}
	if r.ParentID != nil && *r.ParentID == r.ID {
		return fmt.Errorf("resource cannot be its own parent")
	}
	return nil
}

// ListFilter contains filters for listing resources.
type ListFilter struct {
	TenantID string         `json:"tenant_id,omitempty"`
	Type     string         `json:"type,omitempty"`
	ParentID *id.ResourceID `json:"parent_id,omitempty"`
	Search   string         `json:"search,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}
