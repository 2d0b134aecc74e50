// Package rule defines the PermissionRule entity: a flat allow/deny clause
// with applicability patterns, ordered attribute conditions, and an
// optional time window. Unlike policy statements, rule conditions are not
// expression trees — each is a single path/operator/value predicate.
package rule

import (
	"fmt"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Effect is the rule outcome — allow or deny.
type Effect string

const (
	// EffectAllow permits matching requests.
	EffectAllow Effect = "allow"

	// EffectDeny blocks matching requests.
	EffectDeny Effect = "deny"
)

// Operator is a comparison operator for rule conditions.
type Operator string

const (
	// OpEquals checks for equality.
	OpEquals Operator = "eq"

	// OpNotEquals checks for inequality.
	OpNotEquals Operator = "neq"

	// OpIn checks if a value is in a set.
	OpIn Operator = "in"

	// OpNotIn checks if a value is not in a set.
	OpNotIn Operator = "not_in"

	// OpContains checks if a string contains a substring.
	OpContains Operator = "contains"

	// OpStartsWith checks if a string starts with a prefix.
	OpStartsWith Operator = "starts_with"

	// OpEndsWith checks if a string ends with a suffix.
	OpEndsWith Operator = "ends_with"

	// OpGreaterThan checks if a value is greater than another.
	OpGreaterThan Operator = "gt"

	// OpLessThan checks if a value is less than another.
	OpLessThan Operator = "lt"

	// OpGTE checks if a value is greater than or equal to another.
	OpGTE Operator = "gte"

	// OpLTE checks if a value is less than or equal to another.
	OpLTE Operator = "lte"

	// OpExists checks if a field is present.
	OpExists Operator = "exists"

	// OpNotExists checks if a field is absent.
	OpNotExists Operator = "not_exists"

	// OpRegex checks if a value matches a regular expression.
	OpRegex Operator = "regex"
)

// Condition is a single attribute predicate within a rule. Conditions are
// ordered. A condition with Required=false that fails does not block the
// rule; only required conditions gate applicability.
type Condition struct {
	ID       id.ConditionID `json:"id"`
	Path     string         `json:"path"`
	Operator Operator       `json:"operator"`
	Value    any            `json:"value,omitempty"`
	Required bool           `json:"required"`
}

// TimeWindow constrains when a rule is in force. All populated fields must
// hold simultaneously.
type TimeWindow struct {
	NotBefore *time.Time     `json:"not_before,omitempty"`
	NotAfter  *time.Time     `json:"not_after,omitempty"`
	Hours     []int          `json:"hours,omitempty"` // 0–23
	Days      []time.Weekday `json:"days,omitempty"`  // Sunday = 0
}

// Contains reports whether the window is open at the given time.
func (w *TimeWindow) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	if w.NotBefore != nil && t.Before(*w.NotBefore) {
		return false
	}
	if w.NotAfter != nil && t.After(*w.NotAfter) {
		return false
	}
	if len(w.Hours) > 0 {
		hour := t.Hour()
		found := false
		for _, h := range w.Hours {
			if h == hour {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(w.Days) > 0 {
		day := t.Weekday()
		found := false
		for _, d := range w.Days {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Rule is one declarative permission clause. Pattern sets may contain "*"
// to match anything; resource patterns match resource id or type, action
// patterns match action id or category, role patterns match principal id
// or any of the principal's roles.
type Rule struct {
	ID         id.RuleID      `json:"id" db:"id"`
	TenantID   string         `json:"tenant_id" db:"tenant_id"`
	Name       string         `json:"name" db:"name"`
	Resources  []string       `json:"resources" db:"-"`
	Actions    []string       `json:"actions" db:"-"`
	Roles      []string       `json:"roles" db:"-"`
	Effect     Effect         `json:"effect" db:"effect"`
	Priority   int            `json:"priority" db:"priority"`
	Conditions []Condition    `json:"conditions,omitempty" db:"-"`
	TimeWindow *TimeWindow    `json:"time_window,omitempty" db:"-"`
	IsActive   bool           `json:"is_active" db:"is_active"`
	Metadata   map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks single-entity invariants.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.Effect != EffectAllow && r.Effect != EffectDeny {
		return fmt.Errorf("rule effect %q is not valid", r.Effect)
	}
	for _, c := range r.Conditions {
		if c.Path == "" {
			return fmt.Errorf("rule condition path is required")
		}
		if c.Operator == "" {
			return fmt.Errorf("rule condition operator is required")
		}
	}
	if r.TimeWindow != nil {
		for _, h := range r.TimeWindow.Hours {
			if h < 0 || h > 23 {
				return fmt.Errorf("rule time window hour %d out of range [0,23]", h)
			}
		}
		for _, d := range r.TimeWindow.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("rule time window day %d out of range [0,6]", d)
			}
		}
	}
	return nil
}

// ListFilter contains filters for listing rules.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Effect   Effect `json:"effect,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
