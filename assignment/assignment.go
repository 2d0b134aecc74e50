// Package assignment defines the Assignment entity (role→user binding).
package assignment

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// Assignment binds a role to a user within a tenant. Revocation flips
// IsActive and records who revoked it — assignments are tombstoned, never
// deleted, so the grant history stays auditable.
type Assignment struct {
	ID        id.AssignmentID `json:"id" db:"id"`
	TenantID  string          `json:"tenant_id" db:"tenant_id"`
	RoleID    id.RoleID       `json:"role_id" db:"role_id"`
	UserID    string          `json:"user_id" db:"user_id"`
	GrantedBy string          `json:"granted_by,omitempty" db:"granted_by"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
	IsActive  bool            `json:"is_active" db:"is_active"`
	RevokedBy string          `json:"revoked_by,omitempty" db:"revoked_by"`
	RevokedAt *time.Time      `json:"revoked_at,omitempty" db:"revoked_at"`
	Metadata  map[string]any  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// ValidAt reports whether the assignment itself is in force at the given
// time: active and not past its own expiry. Role-level expiry is checked
// separately because it needs the role entity.
func (a *Assignment) ValidAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt != nil && now.After(*a.ExpiresAt) {
		return false
	}
	return true
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	TenantID string     `json:"tenant_id,omitempty"`
	RoleID   *id.RoleID `json:"role_id,omitempty"`
	UserID   string     `json:"user_id,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}
