package assignment

import (
	"context"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for role assignments.
// There is deliberately no delete: revocation updates the tombstone flag.
type Store interface {
	// CreateAssignment persists a new assignment.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// GetAssignment retrieves an assignment by ID.
	GetAssignment(ctx context.Context, asgnID id.AssignmentID) (*Assignment, error)

	// UpdateAssignment persists changes to an assignment (revocation).
	UpdateAssignment(ctx context.Context, a *Assignment) error

	// ListAssignments returns assignments matching the filter.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)

	// CountAssignments returns the number of assignments matching the filter.
	CountAssignments(ctx context.Context, filter *ListFilter) (int64, error)

	// ListAssignmentsForUser returns all assignments for a user, including
	// revoked and expired ones. Validity filtering is the caller's job.
	ListAssignmentsForUser(ctx context.Context, tenantID, userID string) ([]*Assignment, error)

	// ListAssignmentsForRole returns all assignments of a given role.
	ListAssignmentsForRole(ctx context.Context, roleID id.RoleID) ([]*Assignment, error)

	// CountActiveAssignmentsForRole counts non-revoked assignments of a
	// role, for max-assignment enforcement.
	CountActiveAssignmentsForRole(ctx context.Context, roleID id.RoleID) (int64, error)
}
