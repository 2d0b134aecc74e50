package praetor

import (
	"testing"
	"time"

	"github.com/praetorhq/praetor/rule"
)

func TestPatternMatches(t *testing.T) {
	tests := []struct {
		name       string
		patterns   []string
		candidates []string
		want       bool
	}{
		{"empty set matches", nil, []string{"doc"}, true},
		{"wildcard matches", []string{"*"}, []string{"doc"}, true},
		{"literal match", []string{"doc", "repo"}, []string{"repo"}, true},
		{"no match", []string{"doc"}, []string{"repo"}, false},
		{"empty candidate never matches", []string{"doc"}, []string{""}, false},
		{"wildcard with no candidates", []string{"*"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := patternMatches(tt.patterns, tt.candidates...); got != tt.want {
				t.Fatalf("patternMatches(%v, %v) = %v, want %v", tt.patterns, tt.candidates, got, tt.want)
			}
		})
	}
}

func TestRuleApplies(t *testing.T) {
	r := &rule.Rule{
		Resources: []string{"repository"},
		Actions:   []string{"read"},
		Roles:     []string{"developer"},
	}

	ec := &EvaluationContext{
		Principal: Principal{ID: "u1", Roles: []string{"developer"}},
		Action:    ActionRef{ID: "read"},
		Resource:  &ResourceRef{Type: "repository", ID: "r1"},
	}
	if !ruleApplies(r, ec) {
		t.Fatal("expected rule to apply")
	}

	// Role pattern may also match the principal id directly.
	direct := &rule.Rule{Roles: []string{"u1"}}
	if !ruleApplies(direct, ec) {
		t.Fatal("expected principal-id role pattern to apply")
	}

	// Action mismatch.
	ec2 := *ec
	ec2.Action = ActionRef{ID: "write"}
	if ruleApplies(r, &ec2) {
		t.Fatal("expected action mismatch")
	}

	// Resource pattern matches the literal id too.
	byID := &rule.Rule{Resources: []string{"r1"}}
	if !ruleApplies(byID, ec) {
		t.Fatal("expected resource-id pattern to apply")
	}

	// A nil resource asserts no resource constraint.
	noRes := &EvaluationContext{
		Principal: Principal{ID: "u1", Roles: []string{"developer"}},
		Action:    ActionRef{ID: "read"},
	}
	if !ruleApplies(r, noRes) {
		t.Fatal("expected rule to apply without a resource")
	}
}

func TestRuleAppliesActionCategory(t *testing.T) {
	r := &rule.Rule{Actions: []string{"read"}}
	ec := &EvaluationContext{
		Principal: Principal{ID: "u1"},
		Action:    ActionRef{ID: "repository:list", Category: "read"},
	}
	if !ruleApplies(r, ec) {
		t.Fatal("expected action category to match")
	}
}

func TestMatchCondition(t *testing.T) {
	ec := &EvaluationContext{
		Principal: Principal{
			ID:         "u1",
			Attributes: map[string]any{"clearance": 3, "team": "platform"},
		},
		Environment: map[string]any{"network": "office"},
		Request:     map[string]any{"path": "/api/v1/users"},
	}

	tests := []struct {
		name string
		cond rule.Condition
		want bool
	}{
		{"eq string", rule.Condition{Path: "environment.network", Operator: rule.OpEquals, Value: "office"}, true},
		{"eq numeric across types", rule.Condition{Path: "principal.clearance", Operator: rule.OpEquals, Value: 3.0}, true},
		{"neq", rule.Condition{Path: "environment.network", Operator: rule.OpNotEquals, Value: "vpn"}, true},
		{"in", rule.Condition{Path: "principal.team", Operator: rule.OpIn, Value: []any{"platform", "infra"}}, true},
		{"not_in", rule.Condition{Path: "principal.team", Operator: rule.OpNotIn, Value: []any{"sales"}}, true},
		{"contains", rule.Condition{Path: "request.path", Operator: rule.OpContains, Value: "v1"}, true},
		{"starts_with", rule.Condition{Path: "request.path", Operator: rule.OpStartsWith, Value: "/api"}, true},
		{"ends_with", rule.Condition{Path: "request.path", Operator: rule.OpEndsWith, Value: "users"}, true},
		{"gt", rule.Condition{Path: "principal.clearance", Operator: rule.OpGreaterThan, Value: 2}, true},
		{"lt false", rule.Condition{Path: "principal.clearance", Operator: rule.OpLessThan, Value: 2}, false},
		{"gte equal", rule.Condition{Path: "principal.clearance", Operator: rule.OpGTE, Value: 3}, true},
		{"lte equal", rule.Condition{Path: "principal.clearance", Operator: rule.OpLTE, Value: 3}, true},
		{"exists", rule.Condition{Path: "principal.team", Operator: rule.OpExists}, true},
		{"not_exists missing", rule.Condition{Path: "principal.badge", Operator: rule.OpNotExists}, true},
		{"regex", rule.Condition{Path: "request.path", Operator: rule.OpRegex, Value: `^/api/v\d+/`}, true},
		{"lte missing attribute", rule.Condition{Path: "environment.clearance", Operator: rule.OpLTE, Value: 5}, false},
		{"gte missing attribute", rule.Condition{Path: "environment.clearance", Operator: rule.OpGTE, Value: 0}, false},
		{"gt missing attribute", rule.Condition{Path: "principal.badge", Operator: rule.OpGreaterThan, Value: -1}, false},
		{"lt string vs number", rule.Condition{Path: "principal.team", Operator: rule.OpLessThan, Value: 10}, false},
		{"gte string pair lexical", rule.Condition{Path: "principal.team", Operator: rule.OpGTE, Value: "alpha"}, true},
		{"gte string pair lexical false", rule.Condition{Path: "principal.team", Operator: rule.OpGTE, Value: "security"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchCondition(&tt.cond, ec)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("matchCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestMatchConditionErrors(t *testing.T) {
	ec := &EvaluationContext{Principal: Principal{ID: "u1"}}

	_, err := matchCondition(&rule.Condition{Path: "principal.id", Operator: rule.OpRegex, Value: "(["}, ec)
	if err == nil {
		t.Fatal("expected error for invalid regex")
	}

	_, err = matchCondition(&rule.Condition{Path: "principal.id", Operator: "bogus"}, ec)
	if err == nil {
		t.Fatal("expected error for unknown operator")
	}
}

func TestRuleMatchesOptionalCondition(t *testing.T) {
	ec := &EvaluationContext{
		Principal:   Principal{ID: "u1"},
		Environment: map[string]any{"network": "vpn"},
	}

	r := &rule.Rule{
		Conditions: []rule.Condition{
			{Path: "environment.network", Operator: rule.OpEquals, Value: "office", Required: false},
		},
	}
	ok, err := ruleMatches(r, ec)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected optional failing condition not to block the rule")
	}

	r.Conditions[0].Required = true
	ok, err = ruleMatches(r, ec)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected required failing condition to block the rule")
	}
}

func TestRuleMatchesIncomparableConditionBlocks(t *testing.T) {
	// Ordered operators over a missing or non-numeric attribute must not
	// match: coercing absent values to zero would let allow rules fire
	// for principals that never asserted the attribute.
	ec := &EvaluationContext{
		Principal:   Principal{ID: "u1"},
		Environment: map[string]any{"region": "eu-west"},
	}

	missing := &rule.Rule{
		Conditions: []rule.Condition{
			{Path: "environment.clearance", Operator: rule.OpLTE, Value: 5, Required: true},
		},
	}
	ok, err := ruleMatches(missing, ec)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("lte over a missing attribute must not match")
	}

	mixed := &rule.Rule{
		Conditions: []rule.Condition{
			{Path: "environment.region", Operator: rule.OpGTE, Value: 100, Required: true},
		},
	}
	ok, err = ruleMatches(mixed, ec)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("gte between a string and a number must not match")
	}
}

func TestRuleMatchesTimeWindowShortCircuits(t *testing.T) {
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &rule.Rule{
		TimeWindow: &rule.TimeWindow{NotAfter: &past},
		Conditions: []rule.Condition{
			// Would error, but the closed window is checked first.
			{Path: "request.path", Operator: rule.OpRegex, Value: "([", Required: true},
		},
	}
	ok, err := ruleMatches(r, &EvaluationContext{Principal: Principal{ID: "u1"}})
	if err != nil {
		t.Fatalf("expected no error past the window, got %v", err)
	}
	if ok {
		t.Fatal("expected rule outside its window not to match")
	}
}

func TestTimeWindowContains(t *testing.T) {
	mondayNoon := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) // a Monday

	var w *rule.TimeWindow
	if !w.Contains(mondayNoon) {
		t.Fatal("nil window must always be open")
	}

	w = &rule.TimeWindow{Hours: []int{9, 10, 11, 12}, Days: []time.Weekday{time.Monday}}
	if !w.Contains(mondayNoon) {
		t.Fatal("expected Monday noon inside window")
	}
	if w.Contains(mondayNoon.Add(6 * time.Hour)) {
		t.Fatal("expected 18:00 outside hour set")
	}
	if w.Contains(mondayNoon.AddDate(0, 0, 1)) {
		t.Fatal("expected Tuesday outside day set")
	}
}
