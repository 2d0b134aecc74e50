// Package permission defines the Permission entity and its store interface.
package permission

import (
	"fmt"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Category classifies what kind of access a permission grants.
type Category string

const (
	CategoryRead    Category = "read"
	CategoryWrite   Category = "write"
	CategoryAdmin   Category = "admin"
	CategoryDelete  Category = "delete"
	CategoryExecute Category = "execute"
	CategoryManage  Category = "manage"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryRead, CategoryWrite, CategoryAdmin, CategoryDelete, CategoryExecute, CategoryManage:
		return true
	default:
		return false
	}
}

// Permission grants one action on one resource type. Name is derived as
// "resource:action". Core permissions are immutable: their resource and
// action cannot change and they cannot be deleted.
type Permission struct {
	ID          id.PermissionID `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Resource    string          `json:"resource" db:"resource"`
	Action      string          `json:"action" db:"action"`
	Category    Category        `json:"category" db:"category"`
	Level       int             `json:"level" db:"level"`
	IsCore      bool            `json:"is_core" db:"is_core"`
	Metadata    map[string]any  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// DeriveName builds the canonical "resource:action" permission name.
func DeriveName(resource, action string) string {
	return resource + ":" + action
}

// Validate checks single-entity invariants.
func (p *Permission) Validate() error {
	if p.Resource == "" {
		return fmt.Errorf("permission resource is required")
	}
	if p.Action == "" {
		return fmt.Errorf("permission action is required")
	}
	if !p.Category.Valid() {
		return fmt.Errorf("permission category %q is not valid", p.Category)
	}
	if p.Level < 0 || p.Level > 100 {
		return fmt.Errorf("permission level %d out of range [0,100]", p.Level)
	}
	return nil
}

// ListFilter contains filters for listing permissions.
type ListFilter struct {
	TenantID string   `json:"tenant_id,omitempty"`
	Resource string   `json:"resource,omitempty"`
	Action   string   `json:"action,omitempty"`
	Category Category `json:"category,omitempty"`
	IsCore   *bool    `json:"is_core,omitempty"`
	Search   string   `json:"search,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}
