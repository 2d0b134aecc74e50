package auditlog

import (
	"context"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for audit log entries.
type Store interface {
	// CreateAuditLog persists a new audit log entry.
	CreateAuditLog(ctx context.Context, e *Entry) error

	// GetAuditLog retrieves an audit log entry by ID.
	GetAuditLog(ctx context.Context, logID id.AuditLogID) (*Entry, error)

	// ListAuditLogs returns entries matching the filter.
	ListAuditLogs(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountAuditLogs returns the number of entries matching the filter.
	CountAuditLogs(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeAuditLogs removes entries older than the given time.
	PurgeAuditLogs(ctx context.Context, before time.Time) (int64, error)
}
