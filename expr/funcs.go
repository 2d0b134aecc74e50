package expr

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// builtin is the signature shared by all built-in functions. Arguments
// arrive already evaluated.
type builtin func(scope *Scope, args []any) (any, error)

// builtins is the statically-registered function table. Policy-local custom
// functions are consulted only after this table misses.
var builtins = map[string]builtin{
	"now":          fnNow,
	"dateAdd":      fnDateAdd,
	"dateBefore":   fnDateBefore,
	"dateAfter":    fnDateAfter,
	"upper":        fnUpper,
	"lower":        fnLower,
	"substring":    fnSubstring,
	"strlen":       fnStrlen,
	"size":         fnSize,
	"isEmpty":      fnIsEmpty,
	"first":        fnFirst,
	"last":         fnLast,
	"ipInCIDR":     fnIPInCIDR,
	"hasRole":      fnHasRole,
	"hasAttribute": fnHasAttribute,
}

func arity(name string, args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: %s expects %d args, got %d", ErrArity, name, want, len(args))
	}
	return nil
}

func fnNow(scope *Scope, args []any) (any, error) {
	if err := arity("now", args, 0); err != nil {
		return nil, err
	}
	return scope.now(), nil
}

// fnDateAdd adds a duration ("2h", "30m", "72h") to a time value.
func fnDateAdd(_ *Scope, args []any) (any, error) {
	if err := arity("dateAdd", args, 2); err != nil {
		return nil, err
	}
	t, ok := toTime(args[0])
	if !ok {
		return nil, fmt.Errorf("expr: dateAdd: %v is not a time", args[0])
	}
	d, err := time.ParseDuration(fmt.Sprint(args[1]))
	if err != nil {
		return nil, fmt.Errorf("expr: dateAdd: %w", err)
	}
	return t.Add(d), nil
}

func fnDateBefore(_ *Scope, args []any) (any, error) {
	if err := arity("dateBefore", args, 2); err != nil {
		return nil, err
	}
	a, aok := toTime(args[0])
	b, bok := toTime(args[1])
	if !aok || !bok {
		return false, nil
	}
	return a.Before(b), nil
}

func fnDateAfter(_ *Scope, args []any) (any, error) {
	if err := arity("dateAfter", args, 2); err != nil {
		return nil, err
	}
	a, aok := toTime(args[0])
	b, bok := toTime(args[1])
	if !aok || !bok {
		return false, nil
	}
	return a.After(b), nil
}

func fnUpper(_ *Scope, args []any) (any, error) {
	if err := arity("upper", args, 1); err != nil {
		return nil, err
	}
	return strings.ToUpper(fmt.Sprint(args[0])), nil
}

func fnLower(_ *Scope, args []any) (any, error) {
	if err := arity("lower", args, 1); err != nil {
		return nil, err
	}
	return strings.ToLower(fmt.Sprint(args[0])), nil
}

// fnSubstring returns s[start:end] with bounds clamped to the string.
func fnSubstring(_ *Scope, args []any) (any, error) {
	if err := arity("substring", args, 3); err != nil {
		return nil, err
	}
	s := fmt.Sprint(args[0])
	start, sok := ToFloat64(args[1])
	end, eok := ToFloat64(args[2])
	if !sok || !eok {
		return nil, fmt.Errorf("expr: substring: bounds must be numeric")
	}
	lo, hi := int(start), int(end)
	if lo < 0 {
		lo = 0
	}
	if hi > len(s) {
		hi = len(s)
	}
	if lo >= hi {
		return "", nil
	}
	return s[lo:hi], nil
}

func fnStrlen(_ *Scope, args []any) (any, error) {
	if err := arity("strlen", args, 1); err != nil {
		return nil, err
	}
	return len(fmt.Sprint(args[0])), nil
}

func sliceLen(v any) (int, bool) {
	switch s := v.(type) {
	case []any:
		return len(s), true
	case []string:
		return len(s), true
	case []int:
		return len(s), true
	case []float64:
		return len(s), true
	case string:
		return len(s), true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

func fnSize(_ *Scope, args []any) (any, error) {
	if err := arity("size", args, 1); err != nil {
		return nil, err
	}
	n, ok := sliceLen(args[0])
	if !ok {
		return nil, fmt.Errorf("expr: size: %T is not a collection", args[0])
	}
	return n, nil
}

func fnIsEmpty(_ *Scope, args []any) (any, error) {
	if err := arity("isEmpty", args, 1); err != nil {
		return nil, err
	}
	n, ok := sliceLen(args[0])
	if !ok {
		return nil, fmt.Errorf("expr: isEmpty: %T is not a collection", args[0])
	}
	return n == 0, nil
}

func sliceIndex(v any, i int) (any, bool) {
	switch s := v.(type) {
	case []any:
		if i < 0 {
			i += len(s)
		}
		if i < 0 || i >= len(s) {
			return nil, true
		}
		return s[i], true
	case []string:
		if i < 0 {
			i += len(s)
		}
		if i < 0 || i >= len(s) {
			return nil, true
		}
		return s[i], true
	default:
		return nil, false
	}
}

func fnFirst(_ *Scope, args []any) (any, error) {
	if err := arity("first", args, 1); err != nil {
		return nil, err
	}
	v, ok := sliceIndex(args[0], 0)
	if !ok {
		return nil, fmt.Errorf("expr: first: %T is not a slice", args[0])
	}
	return v, nil
}

func fnLast(_ *Scope, args []any) (any, error) {
	if err := arity("last", args, 1); err != nil {
		return nil, err
	}
	v, ok := sliceIndex(args[0], -1)
	if !ok {
		return nil, fmt.Errorf("expr: last: %T is not a slice", args[0])
	}
	return v, nil
}

// fnIPInCIDR checks whether an IP address falls inside one or more CIDR
// ranges. Unparseable inputs evaluate to false rather than failing the
// statement.
func fnIPInCIDR(_ *Scope, args []any) (any, error) {
	if err := arity("ipInCIDR", args, 2); err != nil {
		return nil, err
	}
	ip := net.ParseIP(fmt.Sprint(args[0]))
	if ip == nil {
		return false, nil
	}

	var cidrs []string
	switch v := args[1].(type) {
	case string:
		cidrs = []string{v}
	case []string:
		cidrs = v
	case []any:
		for _, item := range v {
			cidrs = append(cidrs, fmt.Sprint(item))
		}
	default:
		return false, nil
	}

	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true, nil
		}
	}
	return false, nil
}

// fnHasRole checks membership of a role ID in the principal's role set.
func fnHasRole(scope *Scope, args []any) (any, error) {
	if err := arity("hasRole", args, 1); err != nil {
		return nil, err
	}
	if scope.Resolve == nil {
		return false, nil
	}
	return InSlice(args[0], scope.Resolve("principal.roles")), nil
}

// fnHasAttribute checks that a dotted path resolves to a non-nil value.
func fnHasAttribute(scope *Scope, args []any) (any, error) {
	if err := arity("hasAttribute", args, 1); err != nil {
		return nil, err
	}
	if scope.Resolve == nil {
		return false, nil
	}
	return scope.Resolve(fmt.Sprint(args[0])) != nil, nil
}
