// Package task implements the catalog of dataflow task kinds: the
// evaluate/refine contract and every concrete task produced by lowering an
// imperative function into a graph (construction of these tasks, i.e. the
// front-end lowering itself, is out of scope — see spec §1's Non-goals —
// but the catalog the translator would target is implemented in full).
//
// Grounded on pydron/dataflow/tasks.py, one file per family of tasks:
// control flow (if/for/while/iter/next), function definitions and calls,
// assignment forms, operators, literal construction, and attribute/
// subscript/global access.
package task

import (
	"context"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// Evaluator is implemented by every task that can run to completion given
// its resolved inputs. Tasks with a Refine method (see Refiner) are never
// evaluated directly; the traverser replaces them with a subgraph instead.
type Evaluator interface {
	Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error)
}

// Refiner is implemented by control-flow tasks whose behavior depends on
// data the traverser must see before the task's shape is even known
// (If/For/While). RefinerPorts names the subset of input ports whose
// values must be known before Refine can run; Refine mutates g in place,
// typically via package splicer, and is never called more than once per
// tick.
type Refiner interface {
	RefinerPorts() []string
	Refine(g *graph.Graph, t tick.Tick, known map[string]value.Value) error
}

// ReducingRefiner is implemented by Refiner tasks that only need a reduced
// form of their refiner port values (e.g. a bool rather than the full
// value) to decide how to refine — this lets the traverser avoid shipping
// a large value back from a remote worker just to inspect its truthiness.
type ReducingRefiner interface {
	RefinerReducer() map[string]func(value.Value) value.Value
}

// Subgrapher is implemented by tasks that own one or more nested graphs
// (If/For/While/FunctionDef), so that graph-wide traversals (e.g.
// checking for side effects) can recurse into them.
type Subgrapher interface {
	Subgraphs() []*graph.Graph
}

// Scheduler is the callback a FunctionDef-produced Callable uses to run
// its body graph to completion and collect "retval". It is implemented by
// whatever drives the traverser (package traverser); it lives here, not
// there, so that package task does not need to import its own caller.
type Scheduler interface {
	ExecuteBlocking(ctx context.Context, g *graph.Graph, inputs map[string]value.Value) (map[string]value.Value, error)
}
