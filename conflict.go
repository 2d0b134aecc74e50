package praetor

import "fmt"

// resolveConflicts reduces the applicable tuples to one decision under the
// given strategy. Tuples arrive in evaluation order; ties break by that
// order. An empty set falls to the default effect with
// DefaultDecisionUsed set.
func resolveConflicts(applicable []AppliedRef, strategy Strategy, defaultEffect Effect) *Decision {
	if len(applicable) == 0 {
		return &Decision{
			Allowed:             defaultEffect == EffectAllow,
			Effect:              defaultEffect,
			Reason:              fmt.Sprintf("no applicable rules; default effect %s used", defaultEffect),
			DefaultDecisionUsed: true,
		}
	}

	var winner AppliedRef
	switch strategy {
	case StrategyFirstApplicable:
		winner = applicable[0]

	case StrategyAllowOverrides:
		winner = pickPreferred(applicable, EffectAllow)

	case StrategyHighestPriority:
		winner = applicable[0]
		for _, t := range applicable[1:] {
			if t.Priority > winner.Priority {
				winner = t
			}
		}

	default: // deny-overrides, the fail-closed default
		winner = pickPreferred(applicable, EffectDeny)
	}

	return &Decision{
		Allowed: winner.Effect == EffectAllow,
		Effect:  winner.Effect,
		Reason:  fmt.Sprintf("%s by %s (priority %d)", winner.Effect, winner.ID, winner.Priority),
		Applied: applicable,
	}
}

// pickPreferred returns the highest-priority tuple with the preferred
// effect, or the highest-priority tuple overall when none has it. Ties
// keep the earlier tuple.
func pickPreferred(applicable []AppliedRef, preferred Effect) AppliedRef {
	var best AppliedRef
	found := false
	for _, t := range applicable {
		if t.Effect != preferred {
			continue
		}
		if !found || t.Priority > best.Priority {
			best = t
			found = true
		}
	}
	if found {
		return best
	}

	best = applicable[0]
	for _, t := range applicable[1:] {
		if t.Priority > best.Priority {
			best = t
		}
	}
	return best
}
