// Package praetor answers, for every privileged operation in a
// developer-platform integration service: is principal P allowed to perform
// action A on resource R, given context C?
//
// Three overlapping engines share one design — declarative rules, priority,
// conflict resolution, and caching — at three granularities:
//
//   - policy statements with expression-tree conditions (EvaluatePolicy)
//   - flat attribute/time-window permission rules (EvaluatePermission)
//   - role-permission hierarchy resolution (UserPermissions, HasPermission)
//
//	eng, err := praetor.NewEngine(
//	    praetor.WithStore(memStore),
//	)
//	decision, err := eng.EvaluatePermission(ctx, &praetor.EvaluationContext{
//	    TenantID:  "t1",
//	    Principal: praetor.Principal{ID: "user_123", Roles: []string{devRole}},
//	    Action:    praetor.ActionRef{ID: "repository:read", Category: "read"},
//	    Resource:  &praetor.ResourceRef{Type: "repository", ID: "repo_456"},
//	})
package praetor

// Effect is the authorization outcome of a decision.
type Effect string

const (
	// EffectAllow means the request is permitted.
	EffectAllow Effect = "allow"

	// EffectDeny means the request is blocked.
	EffectDeny Effect = "deny"

	// EffectIndeterminate means no conclusion could be reached. It only
	// appears in intermediate states; returned Decisions resolve to the
	// configured default effect instead.
	EffectIndeterminate Effect = "indeterminate"
)

// Principal is the actor whose access is being evaluated. Authentication is
// assumed to have already resolved the caller into this snapshot.
type Principal struct {
	ID         string         `json:"id"`
	Type       string         `json:"type,omitempty"`
	Roles      []string       `json:"roles,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ResourceRef is the snapshot of the target resource inside an evaluation
// context. A nil ResourceRef in the context means no resource constraint is
// asserted.
type ResourceRef struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ParentID   string         `json:"parent_id,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ActionRef is the snapshot of the requested action inside an evaluation
// context.
type ActionRef struct {
	ID         string         `json:"id"`
	Category   string         `json:"category,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// AppliedRef names one rule or statement that contributed to a Decision.
type AppliedRef struct {
	ID       string `json:"id"`
	Effect   Effect `json:"effect"`
	Priority int    `json:"priority"`
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Effect  Effect `json:"effect"`
	Reason  string `json:"reason,omitempty"`

	// Applied lists every applicable rule/statement in evaluation order,
	// whether or not it won the conflict resolution.
	Applied []AppliedRef `json:"applied,omitempty"`

	// DefaultDecisionUsed is true when no rule or statement applied and
	// the configured default effect decided the outcome.
	DefaultDecisionUsed bool `json:"default_decision_used,omitempty"`

	// EvalErrors records per-statement evaluation failures. A failing
	// statement degrades to not-applicable; it never aborts the whole
	// evaluation.
	EvalErrors []string `json:"eval_errors,omitempty"`

	CacheHit   bool  `json:"cache_hit,omitempty"`
	EvalTimeNs int64 `json:"eval_time_ns"`
}

// clone returns a copy safe to hand to callers after a cache hit.
func (d *Decision) clone() *Decision {
	out := *d
	out.Applied = append([]AppliedRef(nil), d.Applied...)
	out.EvalErrors = append([]string(nil), d.EvalErrors...)
	return &out
}
