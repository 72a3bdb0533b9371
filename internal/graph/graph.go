// Package graph implements the typed dataflow graph: tasks addressed by
// tick, connected port-to-port, with a synchronous observer surface.
//
// Grounded on pydron/dataflow/graph.py. The two differences from the
// source are structural, not semantic: properties are a plain
// map[string]interface{} rather than a persistent frozendict (Go has no
// immutable-map idiom worth reaching for here); AddTask and GetProperties
// copy the map, while SetProperty updates the task's own map in place.
// Equality keeps an explicit visited-pair set instead of a thread-local
// recursion guard. Internally, nodes and connections are keyed by the
// tick's string Key() rather than the Tick value itself, since Tick holds
// slices and so is not a valid, comparable Go map key.
package graph

import (
	"fmt"
	"sort"

	"github.com/pydron/pydron/internal/tick"
)

// Task is the abstract unit of computation addressed by one tick. Concrete
// tasks live in package task; graph only needs the contract, not the
// catalog, to avoid a dependency cycle (task imports graph to mutate it
// during refinement).
type Task interface {
	// InputPorts lists the names of this task's input ports.
	InputPorts() []string
	// OutputPorts lists the names of this task's output ports.
	OutputPorts() []string
}

// Endpoint addresses one port of one task.
type Endpoint struct {
	Tick tick.Tick
	Port string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s.%s", e.Tick, e.Port)
}

// Equal reports whether two endpoints address the same tick and port.
func (e Endpoint) Equal(o Endpoint) bool {
	return tick.Equal(e.Tick, o.Tick) && e.Port == o.Port
}

// Key returns a string uniquely identifying this endpoint, suitable for
// use as a map key.
func (e Endpoint) Key() string {
	return e.Tick.Key() + "\x00" + e.Port
}

// connection is an edge from an output port to an input port.
type connection struct {
	source, dest Endpoint
}

// taskNode is the graph's internal record for one tick.
type taskNode struct {
	tick       tick.Tick
	task       Task
	properties map[string]interface{}
	// inConnections maps this node's input port name to the connection
	// feeding it; a destination port has at most one incoming edge.
	inConnections map[string]connection
	// outConnections is the set of edges leaving this node, keyed by the
	// destination endpoint's Key() since a source may fan out freely.
	outConnections map[string]connection
}

func newTaskNode(t tick.Tick, task Task, properties map[string]interface{}) *taskNode {
	props := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	return &taskNode{
		tick:           t,
		task:           task,
		properties:     props,
		inConnections:  make(map[string]connection),
		outConnections: make(map[string]connection),
	}
}

// Observer receives synchronous notifications of structural graph changes,
// fired in subscription order after the change has already taken effect.
// Observers must not mutate graph structure from within a callback; task
// property changes are the only mutation allowed during a callback.
type Observer interface {
	TaskAdded(t tick.Tick, task Task, properties map[string]interface{})
	TaskRemoved(t tick.Tick)
	Connected(source, dest Endpoint)
	Disconnected(source, dest Endpoint)
	TaskPropertyChanged(t tick.Tick, key string, value interface{})
}

// Graph is a mutable dataflow graph: tasks at ticks, connected port to
// port. Start and Final are always present with nil tasks and serve as the
// graph's external input/output boundary.
type Graph struct {
	nodes     map[string]*taskNode
	observers []Observer
}

// New returns an empty graph containing only the Start and Final
// sentinels.
func New() *Graph {
	g := &Graph{nodes: make(map[string]*taskNode)}
	g.nodes[tick.Start.Key()] = newTaskNode(tick.Start, nil, nil)
	g.nodes[tick.Final.Key()] = newTaskNode(tick.Final, nil, nil)
	return g
}

// AddTask adds task at t with the given initial properties. t must not be
// Start, Final, or already present.
func (g *Graph) AddTask(t tick.Tick, task Task, properties map[string]interface{}) error {
	if tick.Equal(t, tick.Start) {
		return fmt.Errorf("graph: start is reserved for graph inputs")
	}
	if tick.Equal(t, tick.Final) {
		return fmt.Errorf("graph: final is reserved for graph outputs")
	}
	key := t.Key()
	if _, ok := g.nodes[key]; ok {
		return fmt.Errorf("graph: tick %s already has a task", t)
	}
	g.nodes[key] = newTaskNode(t, task, properties)
	g.fireTaskAdded(t, task, properties)
	return nil
}

// RemoveTask removes the task at t, which must exist and be unconnected.
func (g *Graph) RemoveTask(t tick.Tick) error {
	key := t.Key()
	node, ok := g.nodes[key]
	if !ok {
		return fmt.Errorf("graph: no task at tick %s", t)
	}
	if len(node.inConnections) > 0 || len(node.outConnections) > 0 {
		return fmt.Errorf("graph: task at tick %s is still connected", t)
	}
	delete(g.nodes, key)
	g.fireTaskRemoved(t)
	return nil
}

// Connect adds an edge from source to dest. It fails if dest executes no
// later than source, if source is Final, if dest is Start, or if the
// connection already exists (exactly or on the same destination port).
func (g *Graph) Connect(source, dest Endpoint) error {
	if !tick.Less(source.Tick, dest.Tick) {
		return fmt.Errorf("graph: destination %s does not execute after source %s", dest, source)
	}
	if tick.Equal(source.Tick, tick.Final) {
		return fmt.Errorf("graph: final can only have input ports")
	}
	if tick.Equal(dest.Tick, tick.Start) {
		return fmt.Errorf("graph: start can only have output ports")
	}

	srcNode, ok := g.nodes[source.Tick.Key()]
	if !ok {
		return fmt.Errorf("graph: no task at tick %s", source.Tick)
	}
	dstNode, ok := g.nodes[dest.Tick.Key()]
	if !ok {
		return fmt.Errorf("graph: no task at tick %s", dest.Tick)
	}

	conn := connection{source: source, dest: dest}
	if existing, ok := dstNode.inConnections[dest.Port]; ok {
		if existing.Equal(conn) {
			return fmt.Errorf("graph: connection %s -> %s already exists", source, dest)
		}
		return fmt.Errorf("graph: destination port %s is already connected", dest)
	}

	dstNode.inConnections[dest.Port] = conn
	srcNode.outConnections[dest.Key()] = conn
	g.fireConnected(source, dest)
	return nil
}

// Disconnect removes the edge from source to dest, which must exist.
func (g *Graph) Disconnect(source, dest Endpoint) error {
	srcNode, ok := g.nodes[source.Tick.Key()]
	if !ok {
		return fmt.Errorf("graph: no task at tick %s", source.Tick)
	}
	dstNode, ok := g.nodes[dest.Tick.Key()]
	if !ok {
		return fmt.Errorf("graph: no task at tick %s", dest.Tick)
	}
	if _, ok := srcNode.outConnections[dest.Key()]; !ok {
		return fmt.Errorf("graph: connection %s -> %s does not exist", source, dest)
	}
	delete(srcNode.outConnections, dest.Key())
	delete(dstNode.inConnections, dest.Port)
	g.fireDisconnected(source, dest)
	return nil
}

// AllTicks returns the ticks of all tasks, excluding Start and Final, in
// lexicographic order.
func (g *Graph) AllTicks() []tick.Tick {
	out := make([]tick.Tick, 0, len(g.nodes))
	for _, node := range g.nodes {
		if tick.Equal(node.tick, tick.Start) || tick.Equal(node.tick, tick.Final) {
			continue
		}
		out = append(out, node.tick)
	}
	sort.Slice(out, func(i, j int) bool { return tick.Less(out[i], out[j]) })
	return out
}

// GetTask returns the task at t, or nil if t is Start/Final, or an error
// if t is not present.
func (g *Graph) GetTask(t tick.Tick) (Task, error) {
	node, ok := g.nodes[t.Key()]
	if !ok {
		return nil, fmt.Errorf("graph: no task at tick %s", t)
	}
	return node.task, nil
}

// HasTick reports whether t is present in the graph (including Start and
// Final).
func (g *Graph) HasTick(t tick.Tick) bool {
	_, ok := g.nodes[t.Key()]
	return ok
}

// GetProperty returns the named property of the task at t.
func (g *Graph) GetProperty(t tick.Tick, key string) (interface{}, bool) {
	node, ok := g.nodes[t.Key()]
	if !ok {
		return nil, false
	}
	v, ok := node.properties[key]
	return v, ok
}

// GetProperties returns a copy of every property of the task at t.
func (g *Graph) GetProperties(t tick.Tick) map[string]interface{} {
	node, ok := g.nodes[t.Key()]
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(node.properties))
	for k, v := range node.properties {
		out[k] = v
	}
	return out
}

// SetProperty changes a property of the task at t, firing
// TaskPropertyChanged. Property changes never invalidate edges and may
// happen at any time, including from within an observer callback.
func (g *Graph) SetProperty(t tick.Tick, key string, value interface{}) error {
	node, ok := g.nodes[t.Key()]
	if !ok {
		return fmt.Errorf("graph: no task at tick %s", t)
	}
	node.properties[key] = value
	g.fireTaskPropertyChanged(t, key, value)
	return nil
}

// InConnections returns the (source, dest) pairs of every incoming edge of
// the task at t.
func (g *Graph) InConnections(t tick.Tick) []Connection {
	node, ok := g.nodes[t.Key()]
	if !ok {
		return nil
	}
	out := make([]Connection, 0, len(node.inConnections))
	for _, c := range node.inConnections {
		out = append(out, Connection{Source: c.source, Dest: c.dest})
	}
	return out
}

// OutConnections returns the (source, dest) pairs of every outgoing edge
// of the task at t.
func (g *Graph) OutConnections(t tick.Tick) []Connection {
	node, ok := g.nodes[t.Key()]
	if !ok {
		return nil
	}
	out := make([]Connection, 0, len(node.outConnections))
	for _, c := range node.outConnections {
		out = append(out, Connection{Source: c.source, Dest: c.dest})
	}
	return out
}

// Connection is the public (source, dest) view of a graph edge.
type Connection struct {
	Source, Dest Endpoint
}

// Subscribe registers an observer.
func (g *Graph) Subscribe(o Observer) {
	g.observers = append(g.observers, o)
}

// Unsubscribe removes a previously-registered observer.
func (g *Graph) Unsubscribe(o Observer) {
	for i, existing := range g.observers {
		if existing == o {
			g.observers = append(g.observers[:i], g.observers[i+1:]...)
			return
		}
	}
}

func (g *Graph) fireTaskAdded(t tick.Tick, task Task, properties map[string]interface{}) {
	for _, o := range g.observers {
		o.TaskAdded(t, task, properties)
	}
}

func (g *Graph) fireTaskRemoved(t tick.Tick) {
	for _, o := range g.observers {
		o.TaskRemoved(t)
	}
}

func (g *Graph) fireConnected(source, dest Endpoint) {
	for _, o := range g.observers {
		o.Connected(source, dest)
	}
}

func (g *Graph) fireDisconnected(source, dest Endpoint) {
	for _, o := range g.observers {
		o.Disconnected(source, dest)
	}
}

func (g *Graph) fireTaskPropertyChanged(t tick.Tick, key string, value interface{}) {
	for _, o := range g.observers {
		o.TaskPropertyChanged(t, key, value)
	}
}
