package praetor

import "time"

// Strategy selects how multiple applicable rules or statements reduce to
// one decision.
type Strategy string

const (
	// StrategyFirstApplicable lets the first applicable tuple win.
	StrategyFirstApplicable Strategy = "first-applicable"

	// StrategyDenyOverrides lets the highest-priority deny win when any
	// deny exists, otherwise the highest-priority allow.
	StrategyDenyOverrides Strategy = "deny-overrides"

	// StrategyAllowOverrides is the symmetric counterpart: allow takes
	// precedence.
	StrategyAllowOverrides Strategy = "allow-overrides"

	// StrategyHighestPriority lets the globally-highest-priority tuple
	// win regardless of effect; ties break by input order.
	StrategyHighestPriority Strategy = "highest-priority"
)

// DecisionLogging selects which decisions are forwarded to the audit sink.
type DecisionLogging string

const (
	// LogAllDecisions forwards every allow and deny decision.
	LogAllDecisions DecisionLogging = "all"

	// LogDeniedOnly forwards only denied decisions.
	LogDeniedOnly DecisionLogging = "denied"

	// LogNoDecisions forwards no decisions. Structural configuration
	// changes are always forwarded regardless of this setting.
	LogNoDecisions DecisionLogging = "none"
)

// Config holds configuration for the engine.
type Config struct {
	// Strategy is the conflict resolution strategy. Defaults to
	// deny-overrides.
	Strategy Strategy `json:"strategy,omitempty"`

	// DefaultEffect decides the outcome when nothing applies. The engine
	// is fail-closed: the default is deny and should stay deny.
	DefaultEffect Effect `json:"default_effect,omitempty"`

	// MaxExpressionDepth bounds recursion during expression evaluation.
	// Defaults to 32.
	MaxExpressionDepth int `json:"max_expression_depth,omitempty"`

	// MaxHierarchyDepth bounds role-parent traversal. Defaults to 10.
	MaxHierarchyDepth int `json:"max_hierarchy_depth,omitempty"`

	// CacheTTL is the time-to-live for cached decisions. Zero means no
	// caching even when a cache is configured.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// DecisionLogging selects which decisions reach the audit sink.
	// Defaults to denied-only.
	DecisionLogging DecisionLogging `json:"decision_logging,omitempty"`

	// MaxEvaluationTime is advisory: evaluations exceeding it are logged
	// as slow, never preempted.
	MaxEvaluationTime time.Duration `json:"max_evaluation_time,omitempty"`
}

// DefaultConfig returns a Config with fail-closed defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:           StrategyDenyOverrides,
		DefaultEffect:      EffectDeny,
		MaxExpressionDepth: 32,
		MaxHierarchyDepth:  10,
		CacheTTL:           30 * time.Second,
		DecisionLogging:    LogDeniedOnly,
		MaxEvaluationTime:  250 * time.Millisecond,
	}
}

func (c Config) strategy() Strategy {
	if c.Strategy == "" {
		return StrategyDenyOverrides
	}
	return c.Strategy
}

func (c Config) defaultEffect() Effect {
	if c.DefaultEffect == "" {
		return EffectDeny
	}
	return c.DefaultEffect
}

func (c Config) maxExpressionDepth() int {
	if c.MaxExpressionDepth <= 0 {
		return 32
	}
	return c.MaxExpressionDepth
}

func (c Config) maxHierarchyDepth() int {
	if c.MaxHierarchyDepth <= 0 {
		return 10
	}
	return c.MaxHierarchyDepth
}

func (c Config) decisionLogging() DecisionLogging {
	if c.DecisionLogging == "" {
		return LogDeniedOnly
	}
	return c.DecisionLogging
}
