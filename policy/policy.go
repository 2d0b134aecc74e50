// Package policy defines the PolicyDocument and PolicyStatement entities.
// Statements carry expression-tree conditions; documents own statements
// plus the named variables and data-only custom functions those
// conditions may reference.
package policy

import (
	"fmt"
	"time"

	"github.com/praetorhq/praetor/expr"
	"github.com/praetorhq/praetor/id"
)

// Effect is the statement outcome — allow or deny.
type Effect string

const (
	// EffectAllow permits matching requests.
	EffectAllow Effect = "allow"

	// EffectDeny blocks matching requests.
	EffectDeny Effect = "deny"
)

// Statement is one declarative allow/deny clause within a document. Its
// optional Condition must evaluate truthy for the statement to apply.
type Statement struct {
	ID         id.StatementID   `json:"id"`
	Effect     Effect           `json:"effect"`
	Priority   int              `json:"priority"`
	Resources  []string         `json:"resources"`
	Actions    []string         `json:"actions"`
	Principals []string         `json:"principals"`
	Condition  *expr.Expression `json:"condition,omitempty"`
}

// Document is a versioned collection of statements. Variables and
// Functions are document-scoped: statement conditions resolve named
// variables before context paths, and may call the document's custom
// functions. Function bodies are expression data, never executable source.
type Document struct {
	ID         id.PolicyID              `json:"id" db:"id"`
	TenantID   string                   `json:"tenant_id" db:"tenant_id"`
	Name       string                   `json:"name" db:"name"`
	Version    int                      `json:"version" db:"version"`
	Statements []Statement              `json:"statements" db:"-"`
	Variables  map[string]any           `json:"variables,omitempty" db:"-"`
	Functions  map[string]expr.Function `json:"functions,omitempty" db:"-"`
	IsActive   bool                     `json:"is_active" db:"is_active"`
	Tags       []string                 `json:"tags,omitempty" db:"-"`
	CreatedAt  time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at" db:"updated_at"`
}

// Validate checks single-entity invariants.
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	for i := range d.Statements {
		s := &d.Statements[i]
		if s.Effect != EffectAllow && s.Effect != EffectDeny {
			return fmt.Errorf("statement %d: effect %q is not valid", i, s.Effect)
		}
	}
	for name, fn := range d.Functions {
		if fn.Body == nil {
			return fmt.Errorf("function %q has no body", name)
		}
	}
	return nil
}

// ListFilter contains filters for listing policy documents.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
