package praetor

import "testing"

func TestResolveConflictsEmpty(t *testing.T) {
	d := resolveConflicts(nil, StrategyDenyOverrides, EffectDeny)
	if d.Allowed {
		t.Fatal("expected default deny")
	}
	if !d.DefaultDecisionUsed {
		t.Fatal("expected DefaultDecisionUsed")
	}

	d = resolveConflicts(nil, StrategyDenyOverrides, EffectAllow)
	if !d.Allowed {
		t.Fatal("expected default allow when configured")
	}
}

func TestResolveConflictsStrategies(t *testing.T) {
	applicable := []AppliedRef{
		{ID: "allow-low", Effect: EffectAllow, Priority: 1},
		{ID: "deny-mid", Effect: EffectDeny, Priority: 5},
		{ID: "allow-high", Effect: EffectAllow, Priority: 10},
	}

	tests := []struct {
		name     string
		strategy Strategy
		wantID   string
		allowed  bool
	}{
		{"first-applicable", StrategyFirstApplicable, "allow-low", true},
		{"deny-overrides", StrategyDenyOverrides, "deny-mid", false},
		{"allow-overrides", StrategyAllowOverrides, "allow-high", true},
		{"highest-priority", StrategyHighestPriority, "allow-high", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resolveConflicts(applicable, tt.strategy, EffectDeny)
			if d.Allowed != tt.allowed {
				t.Fatalf("allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if len(d.Applied) != len(applicable) {
				t.Fatalf("expected all tuples retained, got %d", len(d.Applied))
			}
			// The winner is named in the reason.
			if d.Reason == "" {
				t.Fatal("expected a reason")
			}
		})
	}
}

func TestResolveConflictsPreferredFallback(t *testing.T) {
	// No deny present: deny-overrides falls back to the best allow.
	applicable := []AppliedRef{
		{ID: "a", Effect: EffectAllow, Priority: 1},
		{ID: "b", Effect: EffectAllow, Priority: 7},
	}
	d := resolveConflicts(applicable, StrategyDenyOverrides, EffectDeny)
	if !d.Allowed {
		t.Fatal("expected allow when no deny exists")
	}
}

func TestResolveConflictsTieBreaksByOrder(t *testing.T) {
	applicable := []AppliedRef{
		{ID: "first", Effect: EffectDeny, Priority: 5},
		{ID: "second", Effect: EffectAllow, Priority: 5},
	}
	// Equal priority under highest-priority keeps the earlier tuple.
	d := resolveConflicts(applicable, StrategyHighestPriority, EffectDeny)
	if d.Allowed {
		t.Fatal("expected the earlier tuple to win the tie")
	}
}
