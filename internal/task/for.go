package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/splicer"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// For represents one not-yet-unrolled iteration of a for-loop. IsTail
// distinguishes the very first occurrence (false) from the task that
// stands for "the rest of the loop" reinserted after each iteration
// (true), which additionally carries the previous iteration's break
// status as "$breaked" when HasBreakedInput is set.
//
// Grounded on tasks.py's ForTask; the refine tick arithmetic follows it
// element for element.
type For struct {
	IsTail          bool
	HasBreakedInput bool
	Body, OrElse    *graph.Graph
}

func (t *For) InputPorts() []string {
	bodyInputs := subgraphInputPorts(t.Body)
	bodyInputs.remove("$target") // supplied by refine, not a real loop input
	orelseInputs := subgraphInputPorts(t.OrElse)
	bodyOutputs := subgraphOutputPorts(t.Body)
	orelseOutputs := subgraphOutputPorts(t.OrElse)

	additional := newPortSet("$iterator")
	if t.HasBreakedInput {
		additional.add("$breaked")
	}

	return bodyInputs.union(orelseInputs, bodyOutputs, orelseOutputs, additional).slice()
}

func (t *For) OutputPorts() []string {
	return subgraphOutputPorts(t.Body).union(subgraphOutputPorts(t.OrElse)).slice()
}

func (t *For) Subgraphs() []*graph.Graph { return []*graph.Graph{t.Body, t.OrElse} }

func (t *For) RefinerPorts() []string {
	if t.HasBreakedInput {
		return []string{"$iterator", "$breaked"}
	}
	return []string{"$iterator"}
}

func (t *For) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	return nil, fmt.Errorf("task: For was not refined before evaluation")
}

func (t *For) Refine(g *graph.Graph, at tick.Tick, known map[string]value.Value) error {
	iterVal, ok := known["$iterator"]
	if !ok {
		return nil
	}
	if t.HasBreakedInput {
		breaked, ok := known["$breaked"]
		if !ok {
			return nil
		}
		if value.Truthy(breaked) {
			return splicer.ReplaceTask(g, at, graph.New(), at, nil)
		}
	}

	it := value.AsIterator(iterVal)
	if !it.HasNext() {
		return splicer.ReplaceTask(g, at, t.OrElse, at, nil)
	}
	item, _ := it.Next()

	var iterationTick tick.Tick
	if t.IsTail {
		origForTick := at.RightShift(3)
		iterationCounter := at.Elems()[len(at.Elems())-3] + 1
		iterationTick = tick.Start.Increment(iterationCounter).ShiftInto(origForTick)
	} else {
		iterationTick = tick.Start.Increment(1).ShiftInto(at)
	}
	itemTick := tick.Start.Increment(1).ShiftInto(iterationTick)
	subgraphTick := tick.Start.Increment(2).ShiftInto(iterationTick)

	if err := g.AddTask(itemTick, NewConst(item), nil); err != nil {
		return err
	}
	itemEndpoint := graph.Endpoint{Tick: itemTick, Port: "value"}
	return splicer.ReplaceTask(g, at, t.Body, subgraphTick, map[string]graph.Endpoint{"$target": itemEndpoint})
}

func (t *For) String() string {
	return fmt.Sprintf("For(tail=%v, breaked=%v)", t.IsTail, t.HasBreakedInput)
}
