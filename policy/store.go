package policy

import (
	"context"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for policy documents.
type Store interface {
	// CreatePolicy persists a new policy document.
	CreatePolicy(ctx context.Context, d *Document) error

	// GetPolicy retrieves a policy document by ID.
	GetPolicy(ctx context.Context, polID id.PolicyID) (*Document, error)

	// UpdatePolicy persists changes to a policy document.
	UpdatePolicy(ctx context.Context, d *Document) error

	// DeletePolicy removes a policy document by ID.
	DeletePolicy(ctx context.Context, polID id.PolicyID) error

	// ListPolicies returns policy documents matching the filter.
	ListPolicies(ctx context.Context, filter *ListFilter) ([]*Document, error)

	// ListActivePolicies returns all active policy documents for a tenant.
	// This is the evaluation path.
	ListActivePolicies(ctx context.Context, tenantID string) ([]*Document, error)

	// CountPolicies returns the number of documents matching the filter.
	CountPolicies(ctx context.Context, filter *ListFilter) (int64, error)
}
