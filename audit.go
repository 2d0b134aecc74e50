package praetor

import (
	"context"
	"log/slog"
	"time"

	"github.com/praetorhq/praetor/auditlog"
)

// auditDecision emits a decision audit event according to the configured
// decision logging mode. Delivery is fire-and-forget: sink errors are
// logged and never reach the caller.
func (e *Engine) auditDecision(ctx context.Context, engineKind string, ec *EvaluationContext, d *Decision) {
	if e.sink == nil {
		return
	}
	switch e.config.decisionLogging() {
	case LogNoDecisions:
		return
	case LogDeniedOnly:
		if d.Allowed {
			return
		}
	}

	entry := &auditlog.Entry{
		TenantID:    ec.TenantID,
		Kind:        auditlog.KindDecision,
		Severity:    auditlog.SeverityInfo,
		Category:    engineKind,
		PrincipalID: ec.Principal.ID,
		Action:      ec.Action.ID,
		Outcome:     auditlog.OutcomeDeny,
		Context: map[string]any{
			"reason":       d.Reason,
			"applied":      len(d.Applied),
			"default_used": d.DefaultDecisionUsed,
		},
		CreatedAt: time.Now().UTC(),
	}
	if ec.Resource != nil {
		entry.ResourceType = ec.Resource.Type
		entry.ResourceID = ec.Resource.ID
	}
	if d.Allowed {
		entry.Outcome = auditlog.OutcomeAllow
	} else {
		entry.Severity = auditlog.SeverityWarning
	}
	if len(d.EvalErrors) > 0 {
		entry.Context["eval_errors"] = d.EvalErrors
	}

	e.record(ctx, entry)
}

// auditChange emits a configuration change audit event. Structural
// mutations are always recorded, regardless of decision logging mode.
func (e *Engine) auditChange(ctx context.Context, tenantID, category, action, targetID string) {
	if e.sink == nil {
		return
	}
	e.record(ctx, &auditlog.Entry{
		TenantID:     tenantID,
		Kind:         auditlog.KindConfigChange,
		Severity:     auditlog.SeverityInfo,
		Category:     category,
		ResourceType: category,
		ResourceID:   targetID,
		Action:       action,
		Outcome:      auditlog.OutcomeSuccess,
		CreatedAt:    time.Now().UTC(),
	})
}

func (e *Engine) record(ctx context.Context, entry *auditlog.Entry) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := e.sink.Record(bg, entry); err != nil {
			e.logger.Error("audit sink failed",
				slog.String("kind", entry.Kind),
				slog.String("tenant_id", entry.TenantID),
				slog.String("error", err.Error()),
			)
		}
	}()
}
