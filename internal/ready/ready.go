// Package ready tracks which tasks in a graph have become ready to
// evaluate or ready to refine, reacting incrementally to output data
// being set and connections being made, instead of rescanning the whole
// graph on every change.
//
// Grounded on pydron/interpreter/graphdecorator.py's
// AbstractReadyDecorator/ReadyDecorator/RefineDecorator trio.
package ready

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/sets/treeset"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/tick"
)

func tickComparator(a, b interface{}) int {
	return tick.Compare(a.(tick.Tick), b.(tick.Tick))
}

// PortFilter decides whether a connection into (t, port) counts towards
// readiness. EvalReady counts every input; RefineReady counts only a
// task's declared refiner ports.
type PortFilter func(t tick.Tick, port string) bool

// PropertyFilter gates which data-complete tasks are actually considered
// ready, given their current properties. EvalReady additionally requires
// unrefined tasks to have already been refined; RefineReady has no
// further gate once a task's refiner-port data is complete.
type PropertyFilter func(t tick.Tick, props map[string]interface{}) bool

// Tracker wraps a graph and incrementally tracks which tasks have
// satisfied PortFilter on every relevant input connection, surfacing
// newly-ready ticks via Collect. Output data ("this task has run, and
// here are its results") is recorded separately from graph structure
// since readiness depends on both.
//
// Grounded on AbstractReadyDecorator. The source wraps the graph so every
// mutation funnels through overridden connect/disconnect/add_task methods;
// this port instead subscribes to graph.Graph's own Observer mechanism
// (graph.Graph.Subscribe), since Go's composition-over-inheritance style
// already gives the graph a first-class notification hook rather than
// needing to be wrapped.
type Tracker struct {
	mu sync.Mutex

	g              *graph.Graph
	portFilter     PortFilter
	propertyFilter PropertyFilter
	syncpointLast  bool

	queue             *treeset.Set
	pendingSyncpoints *treeset.Set
	pendingTicks      *treeset.Set

	count     map[string]int
	readyCnt  map[string]int
	collected map[string]bool
	outData   map[string]map[string]bool
}

// New builds a Tracker over an already-populated graph, seeding its
// bookkeeping from every tick currently in g, then subscribes to g so
// every subsequent AddTask/RemoveTask/Connect/Disconnect/SetProperty is
// observed automatically.
func New(g *graph.Graph, portFilter PortFilter, propertyFilter PropertyFilter, syncpointRunLast bool) *Tracker {
	tr := &Tracker{
		g:                 g,
		portFilter:        portFilter,
		propertyFilter:    propertyFilter,
		syncpointLast:     syncpointRunLast,
		queue:             treeset.NewWith(tickComparator),
		pendingSyncpoints: treeset.NewWith(tickComparator),
		pendingTicks:      treeset.NewWith(tickComparator),
		count:             make(map[string]int),
		readyCnt:          make(map[string]int),
		collected:         make(map[string]bool),
		outData:           make(map[string]map[string]bool),
	}
	for _, t := range g.AllTicks() {
		tr.onAddTask(t)
	}
	for _, t := range g.AllTicks() {
		for _, c := range g.InConnections(t) {
			if tr.portFilter(c.Dest.Tick, c.Dest.Port) {
				tr.count[c.Dest.Tick.Key()]++
			}
		}
	}
	for _, t := range g.AllTicks() {
		tr.consider(t)
	}
	g.Subscribe(tr)
	return tr
}

func (tr *Tracker) onAddTask(t tick.Tick) {
	tr.collected[t.Key()] = false
	if _, ok := tr.count[t.Key()]; !ok {
		tr.count[t.Key()] = 0
	}
	tr.readyCnt[t.Key()] = 0
	tr.pendingTicks.Add(t)
	if props := tr.g.GetProperties(t); props != nil {
		if sp, _ := props["syncpoint"].(bool); sp {
			tr.pendingSyncpoints.Add(t)
		}
	}
}

// TaskAdded implements graph.Observer.
func (tr *Tracker) TaskAdded(t tick.Tick, _ graph.Task, _ map[string]interface{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.onAddTask(t)
	tr.consider(t)
}

// TaskRemoved implements graph.Observer.
func (tr *Tracker) TaskRemoved(t tick.Tick) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	k := t.Key()
	tr.queue.Remove(t)
	tr.pendingSyncpoints.Remove(t)
	tr.pendingTicks.Remove(t)
	delete(tr.count, k)
	delete(tr.readyCnt, k)
	delete(tr.collected, k)
	delete(tr.outData, k)
}

// Connected implements graph.Observer.
func (tr *Tracker) Connected(source, dest graph.Endpoint) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if !tr.portFilter(dest.Tick, dest.Port) {
		return
	}
	tr.count[dest.Tick.Key()]++
	if tr.hasOutput(source.Tick, source.Port) {
		tr.readyCnt[dest.Tick.Key()]++
	}
	tr.consider(dest.Tick)
}

// Disconnected implements graph.Observer.
func (tr *Tracker) Disconnected(source, dest graph.Endpoint) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if !tr.portFilter(dest.Tick, dest.Port) {
		return
	}
	tr.count[dest.Tick.Key()]--
	if tr.hasOutput(source.Tick, source.Port) {
		tr.readyCnt[dest.Tick.Key()]--
	}
	tr.consider(dest.Tick)
}

// TaskPropertyChanged implements graph.Observer.
func (tr *Tracker) TaskPropertyChanged(t tick.Tick, key string, value interface{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if key == "syncpoint" {
		sp, _ := value.(bool)
		if sp {
			tr.pendingSyncpoints.Add(t)
		} else {
			tr.pendingSyncpoints.Remove(t)
		}
	}
	tr.consider(t)
}

// SetOutputData records that t finished with the given named outputs,
// marking it executed and bumping the readiness count of every
// filtered-in connection fed by one of those outputs.
func (tr *Tracker) SetOutputData(t tick.Tick, outputs map[string]bool) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	k := t.Key()
	set, ok := tr.outData[k]
	if !ok {
		set = make(map[string]bool)
		tr.outData[k] = set
	}
	for port := range outputs {
		if set[port] {
			return fmt.Errorf("ready: value of out-port %s is already set", port)
		}
		set[port] = true
	}

	tr.pendingSyncpoints.Remove(t)
	tr.pendingTicks.Remove(t)

	for _, c := range tr.g.OutConnections(t) {
		if !outputs[c.Source.Port] {
			continue
		}
		if !tr.portFilter(c.Dest.Tick, c.Dest.Port) {
			continue
		}
		tr.readyCnt[c.Dest.Tick.Key()]++
		tr.consider(c.Dest.Tick)
	}
	return nil
}

func (tr *Tracker) hasOutput(t tick.Tick, port string) bool {
	set, ok := tr.outData[t.Key()]
	return ok && set[port]
}

func (tr *Tracker) consider(t tick.Tick) {
	k := t.Key()
	if tr.collected[k] {
		return
	}
	props := tr.g.GetProperties(t)
	ready := tr.count[k] == tr.readyCnt[k] && tr.propertyFilter(t, props)
	if ready {
		tr.queue.Add(t)
	} else {
		tr.queue.Remove(t)
	}
}

func (tr *Tracker) checkAgainstSyncpoint(t tick.Tick) bool {
	if tr.pendingSyncpoints.Empty() {
		return true
	}
	next := tr.pendingSyncpoints.Values()[0].(tick.Tick)
	cmp := tick.Compare(t, next)
	switch {
	case cmp < 0:
		return true
	case cmp == 0:
		if tr.syncpointLast && !tr.pendingTicks.Empty() {
			first := tr.pendingTicks.Values()[0].(tick.Tick)
			if tick.Compare(first, next) < 0 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ConsumeReady returns the next ready tick, or false if none is
// currently available (respecting syncpoint ordering).
func (tr *Tracker) ConsumeReady() (tick.Tick, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.queue.Empty() {
		return tick.Tick{}, false
	}
	t := tr.queue.Values()[0].(tick.Tick)
	if !tr.checkAgainstSyncpoint(t) {
		return tick.Tick{}, false
	}
	tr.collected[t.Key()] = true
	tr.queue.Remove(t)
	return t, true
}

// Collect drains every currently-ready tick in ascending tick order.
func (tr *Tracker) Collect() []tick.Tick {
	var out []tick.Tick
	for {
		t, ok := tr.ConsumeReady()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out
}

// WasCollected reports whether t has already been returned by Collect.
func (tr *Tracker) WasCollected(t tick.Tick) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.collected[t.Key()]
}

// PastAllSyncpoints reports whether every syncpoint task has executed.
func (tr *Tracker) PastAllSyncpoints() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.pendingSyncpoints.Empty()
}

// refinerPortSet is the subset of task.Refiner used here; declared
// locally rather than importing package task's Refiner interface outright
// keeps this package able to recognize a refiner without depending on the
// full task catalog — only graph.Task's GetTask result needs to satisfy it.
type refinerPortSet interface {
	RefinerPorts() []string
}

// NewEvalTracker mirrors ReadyDecorator: every input port counts towards
// readiness, and a task that declares refiner ports must additionally
// carry a "refined" property before it is considered ready to evaluate
// (it still needs its refine-time splicing to happen first).
func NewEvalTracker(g *graph.Graph) *Tracker {
	portFilter := func(tick.Tick, string) bool { return true }
	propertyFilter := func(t tick.Tick, props map[string]interface{}) bool {
		task, err := g.GetTask(t)
		if err != nil {
			return false
		}
		if _, ok := task.(refinerPortSet); ok {
			refined, _ := props["refined"].(bool)
			return refined
		}
		return true
	}
	return New(g, portFilter, propertyFilter, true)
}

// NewRefineTracker mirrors RefineDecorator: only a task's own declared
// refiner ports count towards readiness, and there is no further
// property gate once that data is present. syncpoint_run_last is false
// here since refining ahead of a pending syncpoint is always safe.
func NewRefineTracker(g *graph.Graph) *Tracker {
	portFilter := func(t tick.Tick, port string) bool {
		task, err := g.GetTask(t)
		if err != nil {
			return false
		}
		rps, ok := task.(refinerPortSet)
		if !ok {
			return false
		}
		for _, p := range rps.RefinerPorts() {
			if p == port {
				return true
			}
		}
		return false
	}
	propertyFilter := func(tick.Tick, map[string]interface{}) bool { return true }
	return New(g, portFilter, propertyFilter, false)
}

// WillBeRefined reports whether t declares any refiner ports at all (and
// so must pass through a RefineTracker before it can be evaluated).
func WillBeRefined(g *graph.Graph, t tick.Tick) bool {
	task, err := g.GetTask(t)
	if err != nil {
		return false
	}
	rps, ok := task.(refinerPortSet)
	return ok && len(rps.RefinerPorts()) > 0
}
