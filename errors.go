package praetor

import "errors"

var (
	// ErrAccessDenied is returned by Enforce when a decision denies.
	ErrAccessDenied = errors.New("praetor: access denied")

	// ErrValidation is returned when an entity is malformed. Nothing is
	// persisted.
	ErrValidation = errors.New("praetor: validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("praetor: not found")

	// ErrCircularDependency is returned when a role mutation would
	// introduce a cycle in the parent graph. The store is untouched.
	ErrCircularDependency = errors.New("praetor: circular role dependency")

	// ErrImmutableEntity is returned when altering a core permission's
	// resource/action, changing a system role's identity, or deleting an
	// entity that is still depended upon.
	ErrImmutableEntity = errors.New("praetor: immutable entity")

	// ErrEvaluation is returned when expression evaluation fails (depth
	// exceeded, unknown operator/function, wrong arity). During policy
	// evaluation it degrades the offending statement instead of failing
	// the whole decision.
	ErrEvaluation = errors.New("praetor: evaluation failed")

	// ErrDuplicateAssignment is returned when the user already holds an
	// active assignment of the role.
	ErrDuplicateAssignment = errors.New("praetor: role already assigned to user")

	// ErrMaxAssignmentsExceeded is returned when a role's assignment
	// limit is reached.
	ErrMaxAssignmentsExceeded = errors.New("praetor: role max assignments exceeded")
)
