// Package splicer implements the graph surgery used by control-flow task
// refinement: replacing a single task with a whole subgraph, rewiring the
// subgraph's boundary onto whatever the replaced task was already
// connected to.
//
// Grounded on pydron/dataflow/refine.py's replace_task/insert_subgraph.
package splicer

import (
	"fmt"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/tick"
)

// ReplaceTask replaces the task at t in g with subgraph. Every tick of
// subgraph is shifted into g relative to subgraphTick (pass t itself when
// the caller has no reason to place the subgraph elsewhere — e.g. a loop
// unrolling one iteration ahead of its own tick will pass a later tick).
//
// additionalInputs overrides, by subgraph input port name, which endpoint
// in g an input should be wired to instead of the corresponding input of
// the replaced task — this is how ForTask feeds a freshly unrolled loop
// variable ($target) into the body subgraph without that endpoint having
// existed on the original task at all.
func ReplaceTask(g *graph.Graph, t tick.Tick, subgraph *graph.Graph, subgraphTick tick.Tick, additionalInputs map[string]graph.Endpoint) error {
	taskInputs := make(map[string]graph.Endpoint)
	for _, c := range g.InConnections(t) {
		taskInputs[c.Dest.Port] = c.Source
	}
	for port, ep := range additionalInputs {
		taskInputs[port] = ep
	}

	subgraphOutputs := make(map[string]graph.Endpoint)
	for _, c := range subgraph.InConnections(tick.Final) {
		subgraphOutputs[c.Dest.Port] = c.Source
	}

	// Connections that will hook up the subgraph's own inputs once it has
	// been inserted.
	type pendingConn struct{ source, dest graph.Endpoint }
	var inputConns []pendingConn
	for _, c := range subgraph.OutConnections(tick.Start) {
		source := c.Source
		dest := c.Dest
		if tick.Equal(dest.Tick, tick.Final) {
			// A direct start->final passthrough inside the subgraph; this
			// becomes an output connection, handled below instead.
			continue
		}
		taskInput, ok := taskInputs[source.Port]
		if !ok {
			return fmt.Errorf("splicer: no source for subgraph input port %q", source.Port)
		}
		subgraphDest := graph.Endpoint{Tick: dest.Tick.ShiftInto(subgraphTick), Port: dest.Port}
		inputConns = append(inputConns, pendingConn{source: taskInput, dest: subgraphDest})
	}

	// Connections that will replace the ones the removed task used to
	// satisfy.
	var outputConns []pendingConn
	for _, c := range g.OutConnections(t) {
		source := c.Source
		dest := c.Dest
		var newSource graph.Endpoint
		if sgSource, ok := subgraphOutputs[source.Port]; ok {
			if tick.Equal(sgSource.Tick, tick.Start) {
				// The subgraph output is itself a direct passthrough of one
				// of its inputs; resolve it the same way an input would be.
				resolved, ok := taskInputs[sgSource.Port]
				if !ok {
					return fmt.Errorf("splicer: no source for passthrough output port %q", sgSource.Port)
				}
				newSource = resolved
			} else {
				newSource = graph.Endpoint{Tick: sgSource.Tick.ShiftInto(subgraphTick), Port: sgSource.Port}
			}
		} else if taskInput, ok := taskInputs[source.Port]; ok {
			// Output not assigned anywhere in the subgraph; pass through
			// whatever fed the replaced task's same-named input.
			newSource = taskInput
		} else {
			return fmt.Errorf("splicer: no input on the replaced task for output port %q", source.Port)
		}
		outputConns = append(outputConns, pendingConn{source: newSource, dest: dest})
	}

	for _, c := range g.InConnections(t) {
		if err := g.Disconnect(c.Source, c.Dest); err != nil {
			return err
		}
	}
	for _, c := range g.OutConnections(t) {
		if err := g.Disconnect(c.Source, c.Dest); err != nil {
			return err
		}
	}
	if err := g.RemoveTask(t); err != nil {
		return err
	}

	if err := InsertSubgraph(g, subgraph, subgraphTick); err != nil {
		return err
	}
	for _, c := range inputConns {
		if err := g.Connect(c.source, c.dest); err != nil {
			return err
		}
	}
	for _, c := range outputConns {
		if err := g.Connect(c.source, c.dest); err != nil {
			return err
		}
	}
	return nil
}

// InsertSubgraph copies every task and internal connection of subgraph into
// g, with every tick shifted into g relative to supertick. Connections
// touching subgraph's Start or Final are not copied — the caller is
// expected to wire the boundary itself (see ReplaceTask).
func InsertSubgraph(g *graph.Graph, subgraph *graph.Graph, supertick tick.Tick) error {
	for _, t := range subgraph.AllTicks() {
		newTick := t.ShiftInto(supertick)
		task, err := subgraph.GetTask(t)
		if err != nil {
			return err
		}
		if err := g.AddTask(newTick, task, subgraph.GetProperties(t)); err != nil {
			return err
		}
	}

	ticks := append(subgraph.AllTicks(), tick.Final)
	for _, t := range ticks {
		for _, c := range subgraph.InConnections(t) {
			if tick.Equal(c.Source.Tick, tick.Start) || tick.Equal(t, tick.Final) {
				continue
			}
			source := graph.Endpoint{Tick: c.Source.Tick.ShiftInto(supertick), Port: c.Source.Port}
			dest := graph.Endpoint{Tick: c.Dest.Tick.ShiftInto(supertick), Port: c.Dest.Port}
			if err := g.Connect(source, dest); err != nil {
				return err
			}
		}
	}
	return nil
}
