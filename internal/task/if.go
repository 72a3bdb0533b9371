package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/splicer"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// If refines into Body when "$test" is truthy, OrElse otherwise. Its
// input/output ports are derived from the union of both branches' own
// boundaries, since whichever branch does not end up chosen must still
// have somewhere for its ports to have come from or gone to structurally.
//
// Grounded on tasks.py's IfTask.
type If struct {
	Body, OrElse *graph.Graph
}

func (t *If) InputPorts() []string {
	bodyOutputs := subgraphOutputPorts(t.Body)
	orelseOutputs := subgraphOutputPorts(t.OrElse)
	potentiallyUnassigned := symmetricDifference(bodyOutputs, orelseOutputs)

	result := subgraphInputPorts(t.Body).union(subgraphInputPorts(t.OrElse), potentiallyUnassigned)
	result.add("$test")
	return result.slice()
}

func (t *If) OutputPorts() []string {
	return subgraphOutputPorts(t.Body).union(subgraphOutputPorts(t.OrElse)).slice()
}

func (t *If) Subgraphs() []*graph.Graph { return []*graph.Graph{t.Body, t.OrElse} }

func (t *If) RefinerPorts() []string { return []string{"$test"} }

func (t *If) RefinerReducer() map[string]func(value.Value) value.Value {
	return map[string]func(value.Value) value.Value{
		"$test": func(v value.Value) value.Value { return value.Bool(value.Truthy(v)) },
	}
}

func (t *If) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	return nil, fmt.Errorf("task: If was not refined before evaluation")
}

func (t *If) Refine(g *graph.Graph, at tick.Tick, known map[string]value.Value) error {
	subgraph := t.OrElse
	if value.Truthy(known["$test"]) {
		subgraph = t.Body
	}
	return splicer.ReplaceTask(g, at, subgraph, at, nil)
}

func (t *If) String() string {
	return "If(...)"
}
