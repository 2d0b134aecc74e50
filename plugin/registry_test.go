package plugin

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/rule"
)

// recorderPlugin implements a subset of the lifecycle hooks and records
// every invocation.
type recorderPlugin struct {
	name  string
	calls []string
	fail  bool
}

func (p *recorderPlugin) Name() string { return p.name }

func (p *recorderPlugin) record(event string) error {
	p.calls = append(p.calls, event)
	if p.fail {
		return fmt.Errorf("%s exploded", p.name)
	}
	return nil
}

func (p *recorderPlugin) OnDecisionEvaluated(_ context.Context, _, _ any) error {
	return p.record("decision")
}

func (p *recorderPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	return p.record("role_created")
}

func (p *recorderPlugin) OnRuleDeleted(_ context.Context, _ id.RuleID) error {
	return p.record("rule_deleted")
}

func (p *recorderPlugin) OnShutdown(_ context.Context) error {
	return p.record("shutdown")
}

// nameOnlyPlugin implements no lifecycle hooks at all.
type nameOnlyPlugin struct{}

func (nameOnlyPlugin) Name() string { return "inert" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry(discardLogger())
	ctx := context.Background()

	p := &recorderPlugin{name: "recorder"}
	r.Register(p)
	r.Register(nameOnlyPlugin{})

	if got := len(r.Plugins()); got != 2 {
		t.Fatalf("Plugins() = %d, want 2", got)
	}

	r.EmitDecisionEvaluated(ctx, nil, nil)
	r.EmitRoleCreated(ctx, &role.Role{ID: id.NewRoleID(), Name: "x", Slug: "x"})
	r.EmitRuleDeleted(ctx, id.NewRuleID())
	// recorder does not implement RuleCreated; the emit must skip it.
	r.EmitRuleCreated(ctx, &rule.Rule{ID: id.NewRuleID(), Name: "x", Effect: rule.EffectAllow})
	r.EmitShutdown(ctx)

	want := []string{"decision", "role_created", "rule_deleted", "shutdown"}
	if len(p.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", p.calls, want)
	}
	for i := range want {
		if p.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", p.calls, want)
		}
	}
}

func TestRegistryOrdering(t *testing.T) {
	r := NewRegistry(discardLogger())
	ctx := context.Background()

	first := &recorderPlugin{name: "first"}
	second := &recorderPlugin{name: "second"}
	r.Register(first)
	r.Register(second)

	r.EmitShutdown(ctx)
	if len(first.calls) != 1 || len(second.calls) != 1 {
		t.Fatalf("both plugins should be notified: %v %v", first.calls, second.calls)
	}
}

func TestRegistryHookErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewRegistry(logger)
	ctx := context.Background()

	failing := &recorderPlugin{name: "boom", fail: true}
	healthy := &recorderPlugin{name: "ok"}
	r.Register(failing)
	r.Register(healthy)

	// A hook error must be logged and must not stop later plugins.
	r.EmitRoleCreated(ctx, &role.Role{ID: id.NewRoleID(), Name: "x", Slug: "x"})

	if len(healthy.calls) != 1 {
		t.Fatalf("healthy plugin not notified after failing plugin")
	}
	out := buf.String()
	if !strings.Contains(out, "plugin hook error") {
		t.Fatalf("expected hook error log, got %q", out)
	}
	if !strings.Contains(out, "boom") || !strings.Contains(out, "OnRoleCreated") {
		t.Fatalf("log missing plugin name or hook: %q", out)
	}
}
