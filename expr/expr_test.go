package expr

import (
	"errors"
	"testing"
	"time"
)

func testScope() *Scope {
	attrs := map[string]any{
		"principal": map[string]any{
			"id":    "u1",
			"roles": []string{"developer", "oncall"},
			"attributes": map[string]any{
				"clearance": 3,
			},
		},
		"environment": map[string]any{
			"ip": "10.0.1.5",
		},
	}
	return &Scope{
		Resolve: func(path string) any { return LookupPath(attrs, path) },
		Now:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateLiteralAndVariable(t *testing.T) {
	scope := testScope()

	v, err := Evaluate(Literal(42), scope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("literal = %v, want 42", v)
	}

	v, err = Evaluate(Variable("principal.id"), scope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v != "u1" {
		t.Fatalf("variable = %v, want u1", v)
	}

	// Missing paths resolve to nil, never error.
	v, err = Evaluate(Variable("principal.badge"), scope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("missing path = %v, want nil", v)
	}
}

func TestEvaluateOperators(t *testing.T) {
	scope := testScope()

	tests := []struct {
		name string
		e    *Expression
		want bool
	}{
		{"eq", Op(OpEq, Variable("principal.id"), Literal("u1")), true},
		{"ne", Op(OpNe, Variable("principal.id"), Literal("u2")), true},
		{"eq numeric coercion", Op(OpEq, Variable("principal.attributes.clearance"), Literal(3.0)), true},
		{"gt", Op(OpGt, Variable("principal.attributes.clearance"), Literal(2)), true},
		{"lte", Op(OpLte, Variable("principal.attributes.clearance"), Literal(3)), true},
		{"in", Op(OpIn, Literal("developer"), Variable("principal.roles")), true},
		{"nin", Op(OpNin, Literal("admin"), Variable("principal.roles")), true},
		{"contains", Op(OpContains, Variable("principal.roles"), Literal("oncall")), true},
		{"matches", Op(OpMatches, Variable("environment.ip"), Literal(`^10\.`)), true},
		{"and short-circuit", Op(OpAnd, Literal(true), Literal(true)), true},
		{"and false", Op(OpAnd, Literal(true), Literal(false)), false},
		{"or", Op(OpOr, Literal(false), Literal(true)), true},
		{"not", Op(OpNot, Literal(false)), true},
		{"exists", Op(OpExists, Variable("principal.id")), true},
		{"exists missing", Op(OpExists, Variable("principal.badge")), false},
		{"incompatible ordering is false", Op(OpGt, Literal("abc"), Literal(true)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateBool(tt.e, scope, 0)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateBuiltins(t *testing.T) {
	scope := testScope()

	tests := []struct {
		name string
		e    *Expression
		want any
	}{
		{"upper", Call("upper", Literal("abc")), "ABC"},
		{"lower", Call("lower", Literal("ABC")), "abc"},
		{"strlen", Call("strlen", Literal("abcd")), 4},
		{"substring", Call("substring", Literal("abcdef"), Literal(1), Literal(3)), "bc"},
		{"size", Call("size", Variable("principal.roles")), 2},
		{"isEmpty", Call("isEmpty", Literal("")), true},
		{"first", Call("first", Variable("principal.roles")), "developer"},
		{"last", Call("last", Variable("principal.roles")), "oncall"},
		{"hasRole", Call("hasRole", Literal("developer")), true},
		{"hasRole miss", Call("hasRole", Literal("admin")), false},
		{"hasAttribute", Call("hasAttribute", Literal("principal.attributes.clearance")), true},
		{"ipInCIDR", Call("ipInCIDR", Variable("environment.ip"), Literal("10.0.0.0/8")), true},
		{"ipInCIDR miss", Call("ipInCIDR", Variable("environment.ip"), Literal("192.168.0.0/16")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.e, scope, 0)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestEvaluateNowAnchored(t *testing.T) {
	scope := testScope()

	v, err := Evaluate(Call("now"), scope, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(time.Time)
	if !ok || !got.Equal(scope.Now) {
		t.Fatalf("now = %v, want scope anchor %v", v, scope.Now)
	}

	before, err := EvaluateBool(
		Op(OpEq, Call("dateBefore", Call("now"), Call("dateAdd", Call("now"), Literal("1h"))), Literal(true)),
		scope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !before {
		t.Fatal("expected now < now+1h")
	}
}

func TestEvaluateCustomFunction(t *testing.T) {
	scope := testScope()
	scope.Variables = map[string]any{"threshold": 5}
	scope.Functions = map[string]Function{
		"above": {
			Params: []string{"n"},
			Body:   Op(OpGt, Variable("n"), Variable("threshold")),
		},
	}

	got, err := EvaluateBool(Call("above", Literal(9)), scope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Fatal("expected 9 > threshold")
	}

	// Wrong arity fails.
	_, err = Evaluate(Call("above"), scope, 0)
	if !errors.Is(err, ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
}

func TestEvaluateVariableShadowing(t *testing.T) {
	scope := testScope()
	scope.Variables = map[string]any{"principal": map[string]any{"id": "override"}}

	v, err := Evaluate(Variable("principal.id"), scope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v != "override" {
		t.Fatalf("expected policy variable to shadow context, got %v", v)
	}
}

func TestEvaluateErrors(t *testing.T) {
	scope := testScope()

	_, err := Evaluate(Call("no_such_fn"), scope, 0)
	if !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}

	_, err = Evaluate(Op("bogus", Literal(1), Literal(2)), scope, 0)
	if !errors.Is(err, ErrUnknownOperator) {
		t.Fatalf("expected ErrUnknownOperator, got %v", err)
	}

	_, err = Evaluate(Op(OpNot), scope, 0)
	if !errors.Is(err, ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
}

func TestEvaluateDepthBounded(t *testing.T) {
	scope := testScope()
	scope.MaxDepth = 4

	// Build a chain deeper than the budget.
	e := Literal(true)
	for i := 0; i < 10; i++ {
		e = Op(OpNot, e)
	}

	_, err := Evaluate(e, scope, 0)
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, false},
		{1, true},
		{"", false},
		{"x", true},
		{[]any{}, false},
		{[]any{1}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Fatalf("Truthy(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestLookupPath(t *testing.T) {
	root := map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 7}},
	}
	if got := LookupPath(root, "a.b.c"); got != 7 {
		t.Fatalf("LookupPath = %v, want 7", got)
	}
	if got := LookupPath(root, "a.x.c"); got != nil {
		t.Fatalf("missing segment = %v, want nil", got)
	}
	if got := LookupPath(root, ""); got == nil {
		t.Fatal("empty path should return the root")
	}
}
