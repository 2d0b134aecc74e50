package resource

import (
	"context"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for resources.
type Store interface {
	// CreateResource persists a new resource.
	CreateResource(ctx context.Context, r *Resource) error

	// GetResource retrieves a resource by ID.
	GetResource(ctx context.Context, resID id.ResourceID) (*Resource, error)

	// UpdateResource persists changes to a resource.
	UpdateResource(ctx context.Context, r *Resource) error

	// DeleteResource removes a resource by ID.
	DeleteResource(ctx context.Context, resID id.ResourceID) error

	// ListResources returns resources matching the filter.
	ListResources(ctx context.Context, filter *ListFilter) ([]*Resource, error)

	// CountResources returns the number of resources matching the filter.
	CountResources(ctx context.Context, filter *ListFilter) (int64, error)

	// ListChildResources returns direct children of a resource.
	ListChildResources(ctx context.Context, parentID id.ResourceID) ([]*Resource, error)
}
