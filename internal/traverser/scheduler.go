package traverser

import (
	"context"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/value"
)

// Scheduler implements task.Scheduler: it is what a FunctionDef-produced
// Callable uses (via task.Invoke) to run its body graph to completion
// and collect "retval". Each call spins up a fresh Traverser over the
// body graph, so a function's local ticks never collide with its
// caller's.
type Scheduler struct {
	RefineCallback RefineCallback
	ReadyCallback  ReadyCallback
}

// ExecuteBlocking implements task.Scheduler.
func (s *Scheduler) ExecuteBlocking(ctx context.Context, g *graph.Graph, inputs map[string]value.Value) (map[string]value.Value, error) {
	ctx, leave, err := EnterGraph(ctx, g)
	if err != nil {
		return nil, err
	}
	defer leave()

	tv := New(s.RefineCallback, s.ReadyCallback)
	return tv.Execute(ctx, g, inputs)
}
