package praetor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorhq/praetor/expr"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/rule"
)

// ──────────────────────────────────────────────────
// Applicability patterns
// ──────────────────────────────────────────────────

// patternMatches reports whether a pattern set covers any of the candidate
// values. A set containing "*" matches everything; an empty set asserts no
// constraint and also matches.
func patternMatches(patterns []string, candidates ...string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		for _, c := range candidates {
			if c != "" && p == c {
				return true
			}
		}
	}
	return false
}

// resourceCandidates returns the values a resource pattern may match: the
// literal resource id and its type. A nil resource means no resource
// constraint is asserted by the context.
func resourceCandidates(ec *EvaluationContext) []string {
	if ec.Resource == nil {
		return nil
	}
	return []string{ec.Resource.ID, ec.Resource.Type}
}

// ruleApplies checks a rule's resource/action/role patterns against the
// context.
func ruleApplies(r *rule.Rule, ec *EvaluationContext) bool {
	if ec.Resource != nil && !patternMatches(r.Resources, resourceCandidates(ec)...) {
		return false
	}
	if !patternMatches(r.Actions, ec.Action.ID, ec.Action.Category) {
		return false
	}
	principals := append([]string{ec.Principal.ID}, ec.Principal.Roles...)
	return patternMatches(r.Roles, principals...)
}

// statementApplies checks a statement's resource/action/principal patterns
// against the context.
func statementApplies(s *policy.Statement, ec *EvaluationContext) bool {
	if ec.Resource != nil && !patternMatches(s.Resources, resourceCandidates(ec)...) {
		return false
	}
	if !patternMatches(s.Actions, ec.Action.ID, ec.Action.Category) {
		return false
	}
	principals := append([]string{ec.Principal.ID}, ec.Principal.Roles...)
	return patternMatches(s.Principals, principals...)
}

// ──────────────────────────────────────────────────
// Rule condition matching
// ──────────────────────────────────────────────────

// ruleMatches checks a rule's time window and conditions against the
// context. The time window short-circuits before any condition runs. A
// rule with zero conditions always matches. Optional (Required=false)
// conditions that fail do not block the rule.
func ruleMatches(r *rule.Rule, ec *EvaluationContext) (bool, error) {
	if !r.TimeWindow.Contains(ec.At()) {
		return false, nil
	}

	for _, c := range r.Conditions {
		ok, err := matchCondition(&c, ec)
		if err != nil {
			return false, fmt.Errorf("condition %s: %w", c.Path, err)
		}
		if !ok && c.Required {
			return false, nil
		}
	}
	return true, nil
}

// matchCondition applies one flat predicate: resolve the dotted path,
// apply the operator. No recursion.
func matchCondition(c *rule.Condition, ec *EvaluationContext) (bool, error) {
	actual := ec.Attribute(c.Path)

	switch c.Operator {
	case rule.OpEquals:
		return looseEqual(actual, c.Value), nil
	case rule.OpNotEquals:
		return !looseEqual(actual, c.Value), nil
	case rule.OpIn:
		return expr.InSlice(actual, c.Value), nil
	case rule.OpNotIn:
		return !expr.InSlice(actual, c.Value), nil
	case rule.OpContains:
		return strings.Contains(fmt.Sprint(actual), fmt.Sprint(c.Value)), nil
	case rule.OpStartsWith:
		return strings.HasPrefix(fmt.Sprint(actual), fmt.Sprint(c.Value)), nil
	case rule.OpEndsWith:
		return strings.HasSuffix(fmt.Sprint(actual), fmt.Sprint(c.Value)), nil
	case rule.OpGreaterThan:
		cmp, ok := expr.CompareOrdered(actual, c.Value)
		return ok && cmp > 0, nil
	case rule.OpLessThan:
		cmp, ok := expr.CompareOrdered(actual, c.Value)
		return ok && cmp < 0, nil
	case rule.OpGTE:
		cmp, ok := expr.CompareOrdered(actual, c.Value)
		return ok && cmp >= 0, nil
	case rule.OpLTE:
		cmp, ok := expr.CompareOrdered(actual, c.Value)
		return ok && cmp <= 0, nil
	case rule.OpExists:
		return actual != nil, nil
	case rule.OpNotExists:
		return actual == nil, nil
	case rule.OpRegex:
		re, err := regexp.Compile(fmt.Sprint(c.Value))
		if err != nil {
			return false, fmt.Errorf("%w: invalid regex %q: %w", ErrValidation, c.Value, err)
		}
		return re.MatchString(fmt.Sprint(actual)), nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrEvaluation, c.Operator)
	}
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, aok := expr.ToFloat64(a)
	fb, bok := expr.ToFloat64(b)
	if aok && bok {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
