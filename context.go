package praetor

import (
	"strings"
	"time"

	"github.com/praetorhq/praetor/expr"
)

// EvaluationContext is the immutable per-evaluation snapshot of principal,
// resource, action, environment, and request. Callers build it once; the
// engine never mutates it.
type EvaluationContext struct {
	TenantID    string         `json:"tenant_id,omitempty"`
	Principal   Principal      `json:"principal"`
	Resource    *ResourceRef   `json:"resource,omitempty"`
	Action      ActionRef      `json:"action"`
	Environment map[string]any `json:"environment,omitempty"`
	Request     map[string]any `json:"request,omitempty"`

	// Timestamp anchors time-window checks and the "now" builtin. Zero
	// means the wall clock at evaluation time.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// At returns the effective evaluation time.
func (ec *EvaluationContext) At() time.Time {
	if !ec.Timestamp.IsZero() {
		return ec.Timestamp
	}
	return time.Now()
}

// Attribute resolves a dotted path against the context. The first segment
// selects a root — principal, resource, action, environment, or request —
// and the remainder traverses that snapshot. Missing segments resolve to
// nil, never an error.
func (ec *EvaluationContext) Attribute(path string) any {
	head, rest, _ := strings.Cut(path, ".")

	switch head {
	case "principal":
		return ec.principalAttribute(rest)
	case "resource":
		return ec.resourceAttribute(rest)
	case "action":
		return ec.actionAttribute(rest)
	case "environment":
		return expr.LookupPath(ec.Environment, rest)
	case "request":
		return expr.LookupPath(ec.Request, rest)
	default:
		return nil
	}
}

func (ec *EvaluationContext) principalAttribute(path string) any {
	switch path {
	case "":
		return ec.Principal.ID
	case "id":
		return ec.Principal.ID
	case "type":
		return ec.Principal.Type
	case "roles":
		return ec.Principal.Roles
	}
	if rest, ok := strings.CutPrefix(path, "attributes."); ok {
		return expr.LookupPath(ec.Principal.Attributes, rest)
	}
	if path == "attributes" {
		return ec.Principal.Attributes
	}
	// Bare keys fall through to the attribute bag.
	return expr.LookupPath(ec.Principal.Attributes, path)
}

func (ec *EvaluationContext) resourceAttribute(path string) any {
	if ec.Resource == nil {
		return nil
	}
	switch path {
	case "":
		return ec.Resource.ID
	case "id":
		return ec.Resource.ID
	case "type":
		return ec.Resource.Type
	case "parent_id":
		return ec.Resource.ParentID
	}
	if rest, ok := strings.CutPrefix(path, "attributes."); ok {
		return expr.LookupPath(ec.Resource.Attributes, rest)
	}
	if path == "attributes" {
		return ec.Resource.Attributes
	}
	return expr.LookupPath(ec.Resource.Attributes, path)
}

func (ec *EvaluationContext) actionAttribute(path string) any {
	switch path {
	case "":
		return ec.Action.ID
	case "id":
		return ec.Action.ID
	case "category":
		return ec.Action.Category
	}
	if rest, ok := strings.CutPrefix(path, "attributes."); ok {
		return expr.LookupPath(ec.Action.Attributes, rest)
	}
	if path == "attributes" {
		return ec.Action.Attributes
	}
	return expr.LookupPath(ec.Action.Attributes, path)
}
