package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/splicer"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// While represents one not-yet-unrolled iteration of a while-loop,
// re-testing "$test" before deciding whether to splice in another copy
// of Body or fall through to OrElse. HasBreakedInput carries the previous
// iteration's break status, same as For.
//
// Grounded on tasks.py's WhileTask. $test's refiner_reducer there always
// coerces the value to a Python bool before refine() runs; value.Truthy
// on the raw input is an equivalent simplification here since the only
// values $test can carry at refine time are ones that reducer would
// already have coerced to true/false.
type While struct {
	IsTail          bool
	HasBreakedInput bool
	Body, OrElse    *graph.Graph
}

func (t *While) InputPorts() []string {
	bodyInputs := subgraphInputPorts(t.Body)
	orelseInputs := subgraphInputPorts(t.OrElse)
	bodyOutputs := subgraphOutputPorts(t.Body)
	orelseOutputs := subgraphOutputPorts(t.OrElse)

	additional := newPortSet("$test")
	if t.HasBreakedInput {
		additional.add("$breaked")
	}

	return bodyInputs.union(orelseInputs, bodyOutputs, orelseOutputs, additional).slice()
}

func (t *While) OutputPorts() []string {
	return subgraphOutputPorts(t.Body).union(subgraphOutputPorts(t.OrElse)).slice()
}

func (t *While) Subgraphs() []*graph.Graph { return []*graph.Graph{t.Body, t.OrElse} }

func (t *While) RefinerPorts() []string {
	if t.HasBreakedInput {
		return []string{"$test", "$breaked"}
	}
	return []string{"$test"}
}

func (t *While) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	return nil, fmt.Errorf("task: While was not refined before evaluation")
}

func (t *While) Refine(g *graph.Graph, at tick.Tick, known map[string]value.Value) error {
	if t.HasBreakedInput {
		breaked, ok := known["$breaked"]
		if !ok {
			return nil
		}
		if value.Truthy(breaked) {
			return splicer.ReplaceTask(g, at, graph.New(), at, nil)
		}
	}

	if !value.Truthy(known["$test"]) {
		return splicer.ReplaceTask(g, at, t.OrElse, at, nil)
	}

	var iterationTick tick.Tick
	if t.IsTail {
		origWhileTick := at.RightShift(2)
		iterationCounter := at.Elems()[len(at.Elems())-2] + 1
		iterationTick = tick.Start.Increment(iterationCounter).ShiftInto(origWhileTick)
	} else {
		iterationTick = tick.Start.Increment(1).ShiftInto(at)
	}
	return splicer.ReplaceTask(g, at, t.Body, iterationTick, nil)
}

func (t *While) String() string {
	return fmt.Sprintf("While(tail=%v, breaked=%v)", t.IsTail, t.HasBreakedInput)
}
