// Package store defines the aggregate persistence interface. Each subsystem
// (role, permission, assignment, rule, policy, resource, action, auditlog)
// defines its own store interface. The composite Store composes them all.
// Backends: SQLite and Memory.
package store

import (
	"context"

	"github.com/praetorhq/praetor/action"
	"github.com/praetorhq/praetor/assignment"
	"github.com/praetorhq/praetor/auditlog"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/resource"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/rule"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (sqlite, memory) implements all of them.
type Store interface {
	role.Store
	permission.Store
	assignment.Store
	rule.Store
	policy.Store
	resource.Store
	action.Store
	auditlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
