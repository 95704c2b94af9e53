// Package condition implements the deterministic condition grammar that
// drives config targeting. A condition is a boolean expression tree of Or,
// And, literal, percent and custom-signal nodes; the evaluator walks the
// tree against a per-call Context and reports which named conditions are
// satisfied.
//
// Evaluation never fails. Malformed trees, unknown operators and missing
// inputs all degrade to "unsatisfied" with a diagnostic on the injected
// logger, so one bad condition cannot take down the config it belongs to.
// Percent bucketing is pinned to a fixed hashing contract (see Bucket) so
// every process and every implementation of this format buckets the same
// client identically.
package condition

import (
	"github.com/rs/zerolog"
)

// DefaultMaxDepth is the recursion limit applied to condition trees.
// Nodes below this depth evaluate to false without visiting their children.
const DefaultMaxDepth = 10

// Evaluator evaluates named condition trees against evaluation contexts.
// It holds only configuration and is safe for concurrent use.
type Evaluator struct {
	maxDepth int
	log      zerolog.Logger
}

// NewEvaluator returns an evaluator with the default recursion limit.
// Diagnostics about degraded evaluations go to log; pass zerolog.Nop() to
// discard them.
func NewEvaluator(log zerolog.Logger) *Evaluator {
	return &Evaluator{maxDepth: DefaultMaxDepth, log: log}
}

// Evaluate evaluates every condition in order and returns the outcome per
// name. The result preserves input order; duplicate names keep their first
// position and the last outcome wins.
func (e *Evaluator) Evaluate(conditions []NamedCondition, ctx Context) *Results {
	results := newResults(len(conditions))
	for _, nc := range conditions {
		results.set(nc.Name, e.evaluateNode(nc.Name, nc.Condition, ctx, 0))
	}
	return results
}

// EvaluateOne evaluates a single condition tree.
func (e *Evaluator) EvaluateOne(name string, c Condition, ctx Context) bool {
	return e.evaluateNode(name, c, ctx, 0)
}

func (e *Evaluator) evaluateNode(name string, c Condition, ctx Context, depth int) bool {
	if depth >= e.maxDepth {
		e.log.Warn().Str("condition", name).Int("depth", depth).Msg("condition tree exceeds recursion limit")
		return false
	}
	switch node := c.(type) {
	case Or:
		for _, child := range node.Conditions {
			if e.evaluateNode(name, child, ctx, depth+1) {
				return true
			}
		}
		return false
	case And:
		for _, child := range node.Conditions {
			if !e.evaluateNode(name, child, ctx, depth+1) {
				return false
			}
		}
		return true
	case True:
		return true
	case False:
		return false
	case Percent:
		return e.evaluatePercent(name, node, ctx)
	case CustomSignal:
		return e.evaluateSignal(name, node, ctx)
	default:
		e.log.Debug().Str("condition", name).Msg("condition node has no recognised variant")
		return false
	}
}
