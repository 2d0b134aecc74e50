// Package action defines the Action entity and its store interface.
package action

import (
	"fmt"
	"time"

	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
)

// Action describes a privileged operation the platform can perform, with
// the risk posture callers use to decide whether extra confirmation is
// needed before executing it.
type Action struct {
	ID                   id.ActionID         `json:"id" db:"id"`
	TenantID             string              `json:"tenant_id" db:"tenant_id"`
	Name                 string              `json:"name" db:"name"`
	Description          string              `json:"description,omitempty" db:"description"`
	Category             permission.Category `json:"category" db:"category"`
	RiskLevel            int                 `json:"risk_level" db:"risk_level"`
	RequiresConfirmation bool                `json:"requires_confirmation" db:"requires_confirmation"`
	MinRoleLevel         int                 `json:"min_role_level" db:"min_role_level"`
	Metadata             map[string]any      `json:"metadata,omitempty" db:"metadata"`
	CreatedAt            time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" db:"updated_at"`
}

// Validate checks single-entity invariants.
func (a *Action) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("action name is required")
	}
	if !a.Category.Valid() {
		return fmt.Errorf("action category %q is not valid", a.Category)
	}
	if a.RiskLevel < 0 {
		return fmt.Errorf("action risk_level cannot be negative")
	}
	return nil
}

// ListFilter contains filters for listing actions.
type ListFilter struct {
	TenantID string              `json:"tenant_id,omitempty"`
	Category permission.Category `json:"category,omitempty"`
	Search   string              `json:"search,omitempty"`
	Limit    int                 `json:"limit,omitempty"`
	Offset   int                 `json:"offset,omitempty"`
}
