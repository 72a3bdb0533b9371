package graph

import "github.com/pydron/pydron/internal/tick"

// This file provides the graph-literal construction helpers used pervasively
// by this engine's tests (and, e.g., by the splicer's subgraph assembly),
// grounded on the G()/T()/C() trio from pydron/dataflow/graph.py's test
// support. Go has no keyword-argument-with-default story, so the three
// free functions become TaskSpec/ConnSpec value types plus a Build
// function that applies them in task-then-connection order, matching the
// source's two-pass application (all tasks added before any connection is
// made).

// TaskSpec describes one task to add to a literal graph.
type TaskSpec struct {
	Tick       tick.Tick
	Task       Task
	Properties map[string]interface{}
}

// T constructs a TaskSpec, optionally with properties.
func T(t tick.Tick, task Task, properties map[string]interface{}) TaskSpec {
	return TaskSpec{Tick: t, Task: task, Properties: properties}
}

// ConnSpec describes one connection to add to a literal graph.
type ConnSpec struct {
	Source, Dest Endpoint
}

// C constructs a ConnSpec.
func C(sourceTick tick.Tick, sourcePort string, destTick tick.Tick, destPort string) ConnSpec {
	return ConnSpec{
		Source: Endpoint{Tick: sourceTick, Port: sourcePort},
		Dest:   Endpoint{Tick: destTick, Port: destPort},
	}
}

// Build assembles a fresh graph from a mix of TaskSpec and ConnSpec values,
// adding every task first and only then applying every connection — this
// lets literals list tasks and wiring in whatever order reads best without
// needing forward declarations.
func Build(items ...interface{}) (*Graph, error) {
	g := New()
	var conns []ConnSpec
	for _, item := range items {
		switch v := item.(type) {
		case TaskSpec:
			if err := g.AddTask(v.Tick, v.Task, v.Properties); err != nil {
				return nil, err
			}
		case ConnSpec:
			conns = append(conns, v)
		}
	}
	for _, c := range conns {
		if err := g.Connect(c.Source, c.Dest); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// MustBuild is like Build but panics on error; intended for tests and
// literals whose correctness is an invariant of the calling code, not
// something the caller needs to recover from.
func MustBuild(items ...interface{}) *Graph {
	g, err := Build(items...)
	if err != nil {
		panic(err)
	}
	return g
}
