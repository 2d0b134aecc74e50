// Package auditlog defines the audit log Entry entity and its store.
package auditlog

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// Entry kinds.
const (
	KindDecision     = "decision"
	KindConfigChange = "config_change"
)

// Severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Outcomes.
const (
	OutcomeAllow   = "allow"
	OutcomeDeny    = "deny"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Entry is a single audit record: either an authorization decision or a
// structural configuration change.
type Entry struct {
	ID           id.AuditLogID  `json:"id" db:"id"`
	TenantID     string         `json:"tenant_id" db:"tenant_id"`
	Kind         string         `json:"kind" db:"kind"`
	Severity     string         `json:"severity" db:"severity"`
	Category     string         `json:"category" db:"category"`
	PrincipalID  string         `json:"principal_id,omitempty" db:"principal_id"`
	ResourceType string         `json:"resource_type" db:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty" db:"resource_id"`
	Action       string         `json:"action" db:"action"`
	Outcome      string         `json:"outcome" db:"outcome"`
	Context      map[string]any `json:"context,omitempty" db:"context"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit log entries.
type QueryFilter struct {
	TenantID     string     `json:"tenant_id,omitempty"`
	Kind         string     `json:"kind,omitempty"`
	Category     string     `json:"category,omitempty"`
	PrincipalID  string     `json:"principal_id,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	ResourceID   string     `json:"resource_id,omitempty"`
	Outcome      string     `json:"outcome,omitempty"`
	After        *time.Time `json:"after,omitempty"`
	Before       *time.Time `json:"before,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Offset       int        `json:"offset,omitempty"`
}
