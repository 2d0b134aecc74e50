package praetor

import (
	"context"
	"fmt"

	"github.com/praetorhq/praetor/expr"
	"github.com/praetorhq/praetor/policy"
)

// Evaluator scores policy statements against an evaluation context and
// returns the applicable (statement, effect, priority) tuples in
// evaluation order. It never fails the evaluation as a whole: a statement
// whose condition errors degrades to not-applicable and the error string
// is reported alongside the tuples.
type Evaluator interface {
	Evaluate(ctx context.Context, docs []*policy.Document, ec *EvaluationContext, cfg Config) (applicable []AppliedRef, evalErrors []string)
}

// DefaultEvaluator returns the built-in statement evaluator.
func DefaultEvaluator() Evaluator { return &statementEvaluator{} }

type statementEvaluator struct{}

func (e *statementEvaluator) Evaluate(_ context.Context, docs []*policy.Document, ec *EvaluationContext, cfg Config) ([]AppliedRef, []string) {
	var applicable []AppliedRef
	var evalErrors []string

	for _, doc := range docs {
		if !doc.IsActive {
			continue
		}

		scope := &expr.Scope{
			Resolve:   ec.Attribute,
			Variables: doc.Variables,
			Functions: doc.Functions,
			Now:       ec.At(),
			MaxDepth:  cfg.maxExpressionDepth(),
		}

		for i := range doc.Statements {
			stmt := &doc.Statements[i]
			if !statementApplies(stmt, ec) {
				continue
			}

			if stmt.Condition != nil {
				ok, err := expr.EvaluateBool(stmt.Condition, scope, 0)
				if err != nil {
					evalErrors = append(evalErrors, fmt.Sprintf("statement %s: %v", stmt.ID, err))
					continue
				}
				if !ok {
					continue
				}
			}

			applicable = append(applicable, AppliedRef{
				ID:       stmt.ID.String(),
				Effect:   Effect(stmt.Effect),
				Priority: stmt.Priority,
			})
		}
	}
	return applicable, evalErrors
}
