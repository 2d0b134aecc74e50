package action

import (
	"context"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for actions.
type Store interface {
	// CreateAction persists a new action.
	CreateAction(ctx context.Context, a *Action) error

	// GetAction retrieves an action by ID.
	GetAction(ctx context.Context, actID id.ActionID) (*Action, error)

	// GetActionByName retrieves an action by tenant and name.
	GetActionByName(ctx context.Context, tenantID, name string) (*Action, error)

	// UpdateAction persists changes to an action.
	UpdateAction(ctx context.Context, a *Action) error

	// DeleteAction removes an action by ID.
	DeleteAction(ctx context.Context, actID id.ActionID) error

	// ListActions returns actions matching the filter.
	ListActions(ctx context.Context, filter *ListFilter) ([]*Action, error)

	// CountActions returns the number of actions matching the filter.
	CountActions(ctx context.Context, filter *ListFilter) (int64, error)
}
