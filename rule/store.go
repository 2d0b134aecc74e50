package rule

import (
	"context"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for permission rules.
type Store interface {
	// CreateRule persists a new rule.
	CreateRule(ctx context.Context, r *Rule) error

	// GetRule retrieves a rule by ID.
	GetRule(ctx context.Context, ruleID id.RuleID) (*Rule, error)

	// UpdateRule persists changes to a rule.
	UpdateRule(ctx context.Context, r *Rule) error

	// DeleteRule removes a rule by ID.
	DeleteRule(ctx context.Context, ruleID id.RuleID) error

	// ListRules returns rules matching the filter.
	ListRules(ctx context.Context, filter *ListFilter) ([]*Rule, error)

	// ListActiveRules returns all active rules for a tenant, ordered by
	// descending priority then creation time. This is the evaluation path.
	ListActiveRules(ctx context.Context, tenantID string) ([]*Rule, error)

	// CountRules returns the number of rules matching the filter.
	CountRules(ctx context.Context, filter *ListFilter) (int64, error)
}
