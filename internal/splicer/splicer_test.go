package splicer

import (
	"testing"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/tick"
)

type stubTask struct {
	name string
	in   []string
	out  []string
}

func (s stubTask) InputPorts() []string  { return s.in }
func (s stubTask) OutputPorts() []string { return s.out }

func constTask(name string) stubTask { return stubTask{name: name, out: []string{"value"}} }
func binopTask(name string) stubTask {
	return stubTask{name: name, in: []string{"left", "right"}, out: []string{"value"}}
}

// buildOuterGraph builds: c (const) -> target.left, and target.right fed
// from start's "y" input; target's "value" output feeds final's "retval".
func buildOuterGraph(t *testing.T) (*graph.Graph, tick.Tick) {
	t.Helper()
	g := graph.New()
	c := tick.Start.Increment(1)
	target := tick.Start.Increment(2)
	if err := g.AddTask(c, constTask("c"), nil); err != nil {
		t.Fatalf("AddTask c: %v", err)
	}
	if err := g.AddTask(target, binopTask("target"), nil); err != nil {
		t.Fatalf("AddTask target: %v", err)
	}
	if err := g.Connect(graph.Endpoint{Tick: tick.Start, Port: "y"}, graph.Endpoint{Tick: target, Port: "right"}); err != nil {
		t.Fatalf("connect y->right: %v", err)
	}
	if err := g.Connect(graph.Endpoint{Tick: c, Port: "value"}, graph.Endpoint{Tick: target, Port: "left"}); err != nil {
		t.Fatalf("connect c->left: %v", err)
	}
	if err := g.Connect(graph.Endpoint{Tick: target, Port: "value"}, graph.Endpoint{Tick: tick.Final, Port: "retval"}); err != nil {
		t.Fatalf("connect target->retval: %v", err)
	}
	return g, target
}

// buildSubgraph builds a minimal subgraph with one inner task that takes
// "left" and "right" as its own inputs (declared via start connections)
// and produces "value" to final.
func buildSubgraph(t *testing.T) *graph.Graph {
	t.Helper()
	sub := graph.New()
	inner := tick.Start.Increment(1)
	if err := sub.AddTask(inner, binopTask("inner"), nil); err != nil {
		t.Fatalf("AddTask inner: %v", err)
	}
	if err := sub.Connect(graph.Endpoint{Tick: tick.Start, Port: "left"}, graph.Endpoint{Tick: inner, Port: "left"}); err != nil {
		t.Fatalf("connect start->inner.left: %v", err)
	}
	if err := sub.Connect(graph.Endpoint{Tick: tick.Start, Port: "right"}, graph.Endpoint{Tick: inner, Port: "right"}); err != nil {
		t.Fatalf("connect start->inner.right: %v", err)
	}
	if err := sub.Connect(graph.Endpoint{Tick: inner, Port: "value"}, graph.Endpoint{Tick: tick.Final, Port: "value"}); err != nil {
		t.Fatalf("connect inner->final.value: %v", err)
	}
	return sub
}

func TestReplaceTaskRewiresBoundary(t *testing.T) {
	g, target := buildOuterGraph(t)
	sub := buildSubgraph(t)

	if err := ReplaceTask(g, target, sub, target, nil); err != nil {
		t.Fatalf("ReplaceTask: %v", err)
	}

	if g.HasTick(target) {
		t.Fatalf("replaced task's tick should no longer be present directly")
	}

	innerTick := tick.Start.Increment(1).ShiftInto(target)
	if !g.HasTick(innerTick) {
		t.Fatalf("expected spliced-in task at %s", innerTick)
	}

	ins := g.InConnections(innerTick)
	wantSources := map[string]graph.Endpoint{
		"left":  {Tick: tick.Start.Increment(1), Port: "value"},
		"right": {Tick: tick.Start, Port: "y"},
	}
	if len(ins) != 2 {
		t.Fatalf("expected 2 in-connections on spliced task, got %d", len(ins))
	}
	for _, c := range ins {
		want, ok := wantSources[c.Dest.Port]
		if !ok || !c.Source.Equal(want) {
			t.Fatalf("unexpected in-connection %+v", c)
		}
	}

	finalIns := g.InConnections(tick.Final)
	if len(finalIns) != 1 || !finalIns[0].Source.Equal(graph.Endpoint{Tick: innerTick, Port: "value"}) {
		t.Fatalf("expected final.retval to come from the spliced task, got %+v", finalIns)
	}
}

func TestReplaceTaskWithEmptyGraphFailsWithNoFallbackInput(t *testing.T) {
	g, target := buildOuterGraph(t)
	empty := graph.New()

	// The replaced task's only output port is "value", but it has no
	// input port of that same name to fall back on, and the empty
	// subgraph assigns nothing to "value" either -- this must fail
	// rather than silently drop the final connection.
	if err := ReplaceTask(g, target, empty, target, nil); err == nil {
		t.Fatalf("expected ReplaceTask to fail when no source exists for output port %q", "value")
	}
}

func TestReplaceTaskAdditionalInputs(t *testing.T) {
	g := graph.New()
	target := tick.Start.Increment(2)
	if err := g.AddTask(target, stubTask{name: "t", out: []string{"value"}}, nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := g.Connect(graph.Endpoint{Tick: target, Port: "value"}, graph.Endpoint{Tick: tick.Final, Port: "retval"}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	sub := graph.New()
	inner := tick.Start.Increment(1)
	if err := sub.AddTask(inner, stubTask{name: "inner", in: []string{"target"}, out: []string{"value"}}, nil); err != nil {
		t.Fatalf("AddTask inner: %v", err)
	}
	if err := sub.Connect(graph.Endpoint{Tick: tick.Start, Port: "$target"}, graph.Endpoint{Tick: inner, Port: "target"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := sub.Connect(graph.Endpoint{Tick: inner, Port: "value"}, graph.Endpoint{Tick: tick.Final, Port: "value"}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	itemTick := tick.Start.Increment(1)
	if err := g.AddTask(itemTick, constTask("item"), nil); err != nil {
		t.Fatalf("AddTask item: %v", err)
	}
	additional := map[string]graph.Endpoint{
		"$target": {Tick: itemTick, Port: "value"},
	}
	if err := ReplaceTask(g, target, sub, target, additional); err != nil {
		t.Fatalf("ReplaceTask: %v", err)
	}

	innerTick := tick.Start.Increment(1).ShiftInto(target)
	ins := g.InConnections(innerTick)
	if len(ins) != 1 || !ins[0].Source.Equal(graph.Endpoint{Tick: itemTick, Port: "value"}) {
		t.Fatalf("expected spliced task's input wired to the additional input endpoint, got %+v", ins)
	}
}
