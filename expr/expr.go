// Package expr implements the typed expression language used by policy
// statement conditions. An Expression is a tagged union over four variants
// (literal, variable, function, operator) evaluated recursively against an
// evaluation scope with a bounded depth.
package expr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrDepthExceeded is returned when evaluation recurses past Scope.MaxDepth.
	ErrDepthExceeded = errors.New("expr: max evaluation depth exceeded")

	// ErrUnknownOperator is returned when an expression references an
	// operator the evaluator does not implement.
	ErrUnknownOperator = errors.New("expr: unknown operator")

	// ErrUnknownFunction is returned when an expression references a
	// function that is neither built in nor policy-local.
	ErrUnknownFunction = errors.New("expr: unknown function")

	// ErrArity is returned when an operator or function receives the
	// wrong number of arguments.
	ErrArity = errors.New("expr: wrong argument count")
)

// Kind discriminates the expression variants.
type Kind string

const (
	// KindLiteral is a constant value.
	KindLiteral Kind = "literal"

	// KindVariable is a dotted-path lookup into the evaluation scope.
	KindVariable Kind = "variable"

	// KindFunction is a call to a built-in or policy-local function.
	KindFunction Kind = "function"

	// KindOperator is an application of a boolean/comparison operator.
	KindOperator Kind = "operator"
)

// Operator is a comparison, boolean, or membership operator.
type Operator string

const (
	// OpAnd is short-circuiting conjunction.
	OpAnd Operator = "and"

	// OpOr is short-circuiting disjunction.
	OpOr Operator = "or"

	// OpNot is boolean negation.
	OpNot Operator = "not"

	// OpEq checks loose equality.
	OpEq Operator = "eq"

	// OpNe checks loose inequality.
	OpNe Operator = "ne"

	// OpGt checks strict ordering. Incompatible types compare false.
	OpGt Operator = "gt"

	// OpGte checks ordering or equality.
	OpGte Operator = "gte"

	// OpLt checks reverse strict ordering.
	OpLt Operator = "lt"

	// OpLte checks reverse ordering or equality.
	OpLte Operator = "lte"

	// OpIn checks set membership.
	OpIn Operator = "in"

	// OpNin checks set non-membership.
	OpNin Operator = "nin"

	// OpContains checks string or slice containment.
	OpContains Operator = "contains"

	// OpMatches checks a regular-expression test.
	OpMatches Operator = "matches"

	// OpExists checks that the operand is neither missing nor null.
	OpExists Operator = "exists"
)

// Expression is one node of an expression tree. Exactly one variant is
// populated, selected by Kind. The struct is JSON-stable so policy
// statements can persist their condition trees.
type Expression struct {
	Kind  Kind          `json:"kind"`
	Value any           `json:"value,omitempty"` // literal
	Path  string        `json:"path,omitempty"`  // variable
	Name  string        `json:"name,omitempty"`  // function
	Op    Operator      `json:"op,omitempty"`    // operator
	Args  []*Expression `json:"args,omitempty"`
}

// Literal builds a constant expression.
func Literal(v any) *Expression { return &Expression{Kind: KindLiteral, Value: v} }

// Variable builds a dotted-path variable reference.
func Variable(path string) *Expression { return &Expression{Kind: KindVariable, Path: path} }

// Call builds a function invocation.
func Call(name string, args ...*Expression) *Expression {
	return &Expression{Kind: KindFunction, Name: name, Args: args}
}

// Op builds an operator application.
func Op(op Operator, args ...*Expression) *Expression {
	return &Expression{Kind: KindOperator, Op: op, Args: args}
}

// Function is a policy-local custom function: a named expression body with
// positional parameters. Bodies are plain data evaluated by this package's
// interpreter under the caller's depth budget — no runtime code loading.
type Function struct {
	Params []string    `json:"params"`
	Body   *Expression `json:"body"`
}

// Resolver looks up a dotted path in the evaluation context. Missing
// segments resolve to nil, never an error.
type Resolver func(path string) any

// Scope carries everything an evaluation needs: the context resolver,
// policy-local variables and functions, the evaluation timestamp, and the
// recursion budget.
type Scope struct {
	Resolve   Resolver
	Variables map[string]any
	Functions map[string]Function
	Now       time.Time
	MaxDepth  int
}

// DefaultMaxDepth bounds recursion when Scope.MaxDepth is unset.
const DefaultMaxDepth = 32

func (s *Scope) maxDepth() int {
	if s.MaxDepth > 0 {
		return s.MaxDepth
	}
	return DefaultMaxDepth
}

func (s *Scope) now() time.Time {
	if !s.Now.IsZero() {
		return s.Now
	}
	return time.Now()
}

// Evaluate evaluates an expression tree against the scope. Every recursive
// call increments depth; exceeding the scope's budget, referencing an
// unknown operator/function, or a wrong arity fails the whole evaluation.
func Evaluate(e *Expression, scope *Scope, depth int) (any, error) {
	if depth > scope.maxDepth() {
		return nil, fmt.Errorf("%w (depth %d)", ErrDepthExceeded, depth)
	}
	if e == nil {
		return nil, nil
	}

	switch e.Kind {
	case KindLiteral:
		return e.Value, nil

	case KindVariable:
		return resolveVariable(e.Path, scope), nil

	case KindFunction:
		return evaluateFunction(e, scope, depth)

	case KindOperator:
		return evaluateOperator(e, scope, depth)

	default:
		return nil, fmt.Errorf("expr: unknown expression kind %q", e.Kind)
	}
}

// EvaluateBool evaluates an expression and converts the result to a boolean
// using the language's truthiness rules.
func EvaluateBool(e *Expression, scope *Scope, depth int) (bool, error) {
	v, err := Evaluate(e, scope, depth)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// resolveVariable checks policy-local variables before falling back to the
// context resolver.
func resolveVariable(path string, scope *Scope) any {
	if scope.Variables != nil {
		if v, ok := scope.Variables[path]; ok {
			return v
		}
		// A policy variable may also shadow the first path segment.
		if head, rest, found := strings.Cut(path, "."); found {
			if v, ok := scope.Variables[head]; ok {
				return LookupPath(v, rest)
			}
		}
	}
	if scope.Resolve != nil {
		return scope.Resolve(path)
	}
	return nil
}

func evaluateFunction(e *Expression, scope *Scope, depth int) (any, error) {
	// Arguments evaluate eagerly, left to right.
	args := make([]any, len(e.Args))
	for i, a := range e.Args {
		v, err := Evaluate(a, scope, depth+1)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if fn, ok := builtins[e.Name]; ok {
		return fn(scope, args)
	}

	if custom, ok := scope.Functions[e.Name]; ok {
		return callCustom(e.Name, custom, args, scope, depth)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, e.Name)
}

// callCustom binds the evaluated arguments to the function's parameters in a
// child scope and evaluates the body. Custom functions cannot call other
// custom functions' locals; they only see their own parameters and the
// original policy variables.
func callCustom(name string, fn Function, args []any, scope *Scope, depth int) (any, error) {
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("%w: %s expects %d args, got %d", ErrArity, name, len(fn.Params), len(args))
	}

	locals := make(map[string]any, len(scope.Variables)+len(fn.Params))
	for k, v := range scope.Variables {
		locals[k] = v
	}
	for i, p := range fn.Params {
		locals[p] = args[i]
	}

	child := &Scope{
		Resolve:   scope.Resolve,
		Variables: locals,
		Functions: scope.Functions,
		Now:       scope.Now,
		MaxDepth:  scope.MaxDepth,
	}
	return Evaluate(fn.Body, child, depth+1)
}

func evaluateOperator(e *Expression, scope *Scope, depth int) (any, error) {
	switch e.Op {
	case OpAnd:
		for _, a := range e.Args {
			ok, err := EvaluateBool(a, scope, depth+1)
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case OpOr:
		for _, a := range e.Args {
			ok, err := EvaluateBool(a, scope, depth+1)
			if err != nil {
				return nil, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case OpNot:
		if len(e.Args) != 1 {
			return nil, fmt.Errorf("%w: not expects 1 arg, got %d", ErrArity, len(e.Args))
		}
		ok, err := EvaluateBool(e.Args[0], scope, depth+1)
		if err != nil {
			return nil, err
		}
		return !ok, nil

	case OpExists:
		if len(e.Args) != 1 {
			return nil, fmt.Errorf("%w: exists expects 1 arg, got %d", ErrArity, len(e.Args))
		}
		v, err := Evaluate(e.Args[0], scope, depth+1)
		if err != nil {
			return nil, err
		}
		return v != nil, nil

	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin, OpContains, OpMatches:
		if len(e.Args) != 2 {
			return nil, fmt.Errorf("%w: %s expects 2 args, got %d", ErrArity, e.Op, len(e.Args))
		}
		left, err := Evaluate(e.Args[0], scope, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(e.Args[1], scope, depth+1)
		if err != nil {
			return nil, err
		}
		return applyBinary(e.Op, left, right)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, e.Op)
	}
}

func applyBinary(op Operator, left, right any) (any, error) {
	switch op {
	case OpEq:
		return looseEqual(left, right), nil
	case OpNe:
		return !looseEqual(left, right), nil
	case OpGt:
		c, ok := CompareOrdered(left, right)
		return ok && c > 0, nil
	case OpGte:
		c, ok := CompareOrdered(left, right)
		return ok && c >= 0, nil
	case OpLt:
		c, ok := CompareOrdered(left, right)
		return ok && c < 0, nil
	case OpLte:
		c, ok := CompareOrdered(left, right)
		return ok && c <= 0, nil
	case OpIn:
		return InSlice(left, right), nil
	case OpNin:
		return !InSlice(left, right), nil
	case OpContains:
		return containsValue(left, right), nil
	case OpMatches:
		re, err := regexp.Compile(fmt.Sprint(right))
		if err != nil {
			return nil, fmt.Errorf("expr: invalid pattern %q: %w", right, err)
		}
		return re.MatchString(fmt.Sprint(left)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
}

// Truthy converts an evaluation result to a boolean. Nil and zero values
// are false; everything else is true.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int, int64, float64, float32:
		f, _ := ToFloat64(t)
		return f != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	default:
		return true
	}
}

// looseEqual compares two values the way conditions expect: numerically when
// both sides are numbers, otherwise by string form.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, aok := ToFloat64(a)
	fb, bok := ToFloat64(b)
	if aok && bok {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// CompareOrdered returns a three-way comparison and whether the two values
// are comparable at all. Incompatible types report not-comparable, so the
// ordering operators yield false instead of failing.
func CompareOrdered(a, b any) (int, bool) {
	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	fa, aok := ToFloat64(a)
	fb, bok := ToFloat64(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs), true
	}

	return 0, false
}

// InSlice reports whether needle appears in haystack, comparing loosely.
func InSlice(needle, haystack any) bool {
	switch hs := haystack.(type) {
	case []string:
		for _, item := range hs {
			if looseEqual(needle, item) {
				return true
			}
		}
	case []any:
		for _, item := range hs {
			if looseEqual(needle, item) {
				return true
			}
		}
	case []int:
		for _, item := range hs {
			if looseEqual(needle, item) {
				return true
			}
		}
	case []float64:
		for _, item := range hs {
			if looseEqual(needle, item) {
				return true
			}
		}
	}
	return false
}

// containsValue checks substring containment for strings and element
// membership for slices.
func containsValue(container, item any) bool {
	switch c := container.(type) {
	case string:
		return strings.Contains(c, fmt.Sprint(item))
	case []string, []any, []int, []float64:
		return InSlice(item, c)
	default:
		return false
	}
}

// ToFloat64 converts a numeric value to float64, reporting whether the
// input was numeric.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// LookupPath traverses a dotted path through nested maps. A missing segment
// resolves to nil.
func LookupPath(root any, path string) any {
	if path == "" {
		return root
	}
	current := root
	for _, seg := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]any:
			current = m[seg]
		case map[string]string:
			v, ok := m[seg]
			if !ok {
				return nil
			}
			current = v
		default:
			return nil
		}
		if current == nil {
			return nil
		}
	}
	return current
}
