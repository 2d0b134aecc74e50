package auditlog

import (
	"context"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Sink consumes audit events. The engine treats delivery as
// fire-and-forget: a failing sink degrades to a logged error and never
// affects the decision being returned.
type Sink interface {
	Record(ctx context.Context, e *Entry) error
}

// Compile-time interface check.
var _ Sink = (*StoreSink)(nil)

// StoreSink persists audit events through an auditlog store.
type StoreSink struct {
	store Store
}

// NewStoreSink creates a sink backed by the given store.
func NewStoreSink(s Store) *StoreSink {
	return &StoreSink{store: s}
}

// Record assigns identity and timestamp if unset and persists the entry.
func (s *StoreSink) Record(ctx context.Context, e *Entry) error {
	if e.ID.IsNil() {
		e.ID = id.NewAuditLogID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return s.store.CreateAuditLog(ctx, e)
}
