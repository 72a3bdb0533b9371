// Package traverser drives graph refinement and evaluation: it watches an
// internal/ready.Tracker pair (one for refine-readiness, one for
// eval-readiness), dispatches callbacks as tasks become ready, and folds
// the results back into the graph until the Final tick's inputs are all
// present.
//
// Grounded on pydron/interpreter/traverser.py's Traverser. The source
// drives this with Twisted Deferreds and a hand-rolled re-entrant
// _iterate() loop; Go's native goroutines/channels make that machinery
// unnecessary, so this port instead runs one dispatch loop that wakes on
// a channel whenever a dispatched callback completes or the graph
// mutates.
package traverser

import (
	"context"
	"fmt"
	"sync"

	"github.com/apparentlymart/go-workgraph/workgraph"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/ready"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// TaskState describes where a task is in the refine/evaluate lifecycle.
// Grounded on traverser.py's TaskState enum.
type TaskState int

const (
	WaitingForRefineInputs TaskState = iota
	Refining
	WaitingForInputs
	Evaluating
	Evaluated
)

func (s TaskState) String() string {
	switch s {
	case WaitingForRefineInputs:
		return "waiting-for-refine-inputs"
	case Refining:
		return "refining"
	case WaitingForInputs:
		return "waiting-for-inputs"
	case Evaluating:
		return "evaluating"
	case Evaluated:
		return "evaluated"
	default:
		return "unknown"
	}
}

// EvalResult is what a ReadyCallback reports for one task's evaluation.
// Duration and DataSizes are optional scheduling telemetry (package pool
// uses them to pick between workers); a nil map means no value was
// produced for byte-sizing purposes, typically because a value could
// not be serialized.
//
// Grounded on traverser.py's EvalResult (TransferResults, which belongs
// to the worker-to-worker value transfer protocol, is out of scope here
// and lives with package worker instead).
type EvalResult struct {
	Outputs   map[string]value.Value
	Duration  float64
	DataSizes map[string]int
}

// RefineCallback runs a task's Refine step. The default implementation
// (DefaultRefine) just calls the task's own Refine method; this stays
// pluggable so a scheduler can log, rate-limit, or otherwise intercept
// refinement.
type RefineCallback func(ctx context.Context, g *graph.Graph, t tick.Tick, task graph.Task, inputs map[string]value.Value) error

// ReadyCallback runs a task's Evaluate step, typically by dispatching it
// to a worker (package pool). It is never called for a task that still
// needs refinement.
type ReadyCallback func(ctx context.Context, g *graph.Graph, t tick.Tick, task graph.Task, inputs map[string]value.Value) (*EvalResult, error)

type refiner interface {
	RefinerPorts() []string
	Refine(g *graph.Graph, t tick.Tick, known map[string]value.Value) error
}

// DefaultRefine runs refinement locally and synchronously: Refine's job
// is pure graph surgery (package splicer), never remote work, so there
// is nothing to hand off.
func DefaultRefine(_ context.Context, g *graph.Graph, t tick.Tick, task graph.Task, inputs map[string]value.Value) error {
	r, ok := task.(refiner)
	if !ok {
		return fmt.Errorf("traverser: task at tick %s is not refinable", t)
	}
	return r.Refine(g, t, inputs)
}

type evaluator interface {
	Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error)
}

// DefaultReady runs a task's own Evaluate method locally and
// synchronously. Real deployments pass a ReadyCallback that dispatches
// to package pool instead; this is mainly useful for tests and for
// single-process use where remote workers would be overkill.
func DefaultReady(ctx context.Context, _ *graph.Graph, t tick.Tick, task graph.Task, inputs map[string]value.Value) (*EvalResult, error) {
	e, ok := task.(evaluator)
	if !ok {
		return nil, fmt.Errorf("traverser: task at tick %s is not evaluable", t)
	}
	outputs, err := e.Evaluate(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return &EvalResult{Outputs: outputs}, nil
}

// EvaluationError wraps a failure surfaced from a ReadyCallback.
type EvaluationError struct {
	Tick  tick.Tick
	Cause error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("traverser: evaluation of tick %s failed: %s", e.Tick, e.Cause)
}
func (e *EvaluationError) Unwrap() error { return e.Cause }

// RefineError wraps a failure surfaced from a RefineCallback.
type RefineError struct {
	Tick  tick.Tick
	Cause error
}

func (e *RefineError) Error() string {
	return fmt.Sprintf("traverser: refinement of tick %s failed: %s", e.Tick, e.Cause)
}
func (e *RefineError) Unwrap() error { return e.Cause }

// ErrStalled is returned when the graph has neither a ready task nor a
// task in flight, yet the Final tick has not become ready either — a
// bug in the task catalog's port/refiner declarations, never a user
// error.
var ErrStalled = fmt.Errorf("traverser: graph is stalled: nothing ready and nothing in flight")

// Traverser runs one graph to completion, refining and evaluating tasks
// as their inputs become available.
type Traverser struct {
	refineCallback RefineCallback
	readyCallback  ReadyCallback

	mu            sync.Mutex
	g             *graph.Graph
	evalTracker   *ready.Tracker
	refineTracker *ready.Tracker
	data          map[string]map[string]value.Value
	pendingRefine map[string]bool
	pendingReady  map[string]bool
	caughtErr     error
	finished      bool
	wake          chan struct{}
}

// New builds a Traverser. readyCallback is required; refineCallback may
// be nil, in which case DefaultRefine is used.
func New(refineCallback RefineCallback, readyCallback ReadyCallback) *Traverser {
	if refineCallback == nil {
		refineCallback = DefaultRefine
	}
	return &Traverser{
		refineCallback: refineCallback,
		readyCallback:  readyCallback,
		data:           make(map[string]map[string]value.Value),
		pendingRefine:  make(map[string]bool),
		pendingReady:   make(map[string]bool),
		wake:           make(chan struct{}, 1),
	}
}

// GetTaskState reports where tick t currently sits in the refine/evaluate
// lifecycle. Grounded on traverser.py's get_task_state.
func (tv *Traverser) GetTaskState(t tick.Tick) TaskState {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	k := t.Key()

	if tv.pendingRefine[k] {
		return Refining
	}
	if tv.pendingReady[k] {
		return Evaluating
	}

	if ready.WillBeRefined(tv.g, t) {
		if tv.refineTracker.WasCollected(t) {
			if tv.evalTracker.WasCollected(t) {
				return Evaluated
			}
			return WaitingForInputs
		}
		return WaitingForRefineInputs
	}
	if tv.evalTracker.WasCollected(t) {
		return Evaluated
	}
	return WaitingForInputs
}

// Graph returns the graph being refined as traversal progresses.
func (tv *Traverser) Graph() *graph.Graph { return tv.g }

// Execute runs g to completion with the given boundary inputs (bound to
// Start's output ports), returning the values bound to Final's input
// ports. It may only be called once per Traverser.
//
// Grounded on traverser.py's execute/_iterate.
func (tv *Traverser) Execute(ctx context.Context, g *graph.Graph, inputs map[string]value.Value) (map[string]value.Value, error) {
	tv.mu.Lock()
	if tv.g != nil {
		tv.mu.Unlock()
		return nil, fmt.Errorf("traverser: Execute can only be called once per Traverser")
	}
	tv.g = g
	tv.evalTracker = ready.NewEvalTracker(g)
	tv.refineTracker = ready.NewRefineTracker(g)
	tv.mu.Unlock()

	if err := tv.setOutputData(tick.Start, boolKeys(inputs), inputs); err != nil {
		return nil, err
	}
	tv.poke()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tv.wake:
		}

		tv.mu.Lock()
		if tv.caughtErr != nil {
			err := tv.caughtErr
			tv.mu.Unlock()
			return nil, err
		}

		refineReady := tv.refineTracker.Collect()
		evalReady := tv.evalTracker.Collect()

		finalReady := false
		for _, t := range evalReady {
			if tick.Equal(t, tick.Final) {
				finalReady = true
				continue
			}
			tv.dispatchReady(ctx, t)
		}
		for _, t := range refineReady {
			tv.dispatchRefine(ctx, t)
		}

		if finalReady {
			tv.finished = true
			outputs := tv.collectFinalOutputs()
			tv.mu.Unlock()
			return outputs, nil
		}

		stalled := len(tv.pendingRefine) == 0 && len(tv.pendingReady) == 0
		tv.mu.Unlock()
		if stalled {
			return nil, ErrStalled
		}
	}
}

func (tv *Traverser) poke() {
	select {
	case tv.wake <- struct{}{}:
	default:
	}
}

func boolKeys(m map[string]value.Value) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// setOutputData records t's output values and tells the ready trackers
// about the newly-produced ports. Must be called without tv.mu held.
func (tv *Traverser) setOutputData(t tick.Tick, ports map[string]bool, values map[string]value.Value) error {
	tv.mu.Lock()
	k := t.Key()
	set, ok := tv.data[k]
	if !ok {
		set = make(map[string]value.Value)
		tv.data[k] = set
	}
	for port := range ports {
		set[port] = values[port]
	}
	tv.mu.Unlock()

	if err := tv.evalTracker.SetOutputData(t, ports); err != nil {
		return err
	}
	return tv.refineTracker.SetOutputData(t, ports)
}

// getData reads a recorded output value. Callers must already hold tv.mu.
func (tv *Traverser) getData(e graph.Endpoint) value.Value {
	if set, ok := tv.data[e.Tick.Key()]; ok {
		return set[e.Port]
	}
	return value.Null
}

// collectFinalOutputs reads every value wired into Final. Callers must
// already hold tv.mu.
func (tv *Traverser) collectFinalOutputs() map[string]value.Value {
	out := make(map[string]value.Value)
	for _, c := range tv.g.InConnections(tick.Final) {
		out[c.Dest.Port] = tv.getData(c.Source)
	}
	return out
}

// dispatchRefine spawns the refine callback for t, if it isn't already
// in flight. tv.mu must be held by the caller.
func (tv *Traverser) dispatchRefine(ctx context.Context, t tick.Tick) {
	k := t.Key()
	if tv.pendingRefine[k] {
		return
	}
	tv.pendingRefine[k] = true

	task, err := tv.g.GetTask(t)
	if err != nil {
		tv.failLocked(&RefineError{Tick: t, Cause: err})
		return
	}
	r := task.(refiner)
	inputs := make(map[string]value.Value)
	for _, c := range tv.g.InConnections(t) {
		for _, p := range r.RefinerPorts() {
			if c.Dest.Port == p {
				inputs[c.Dest.Port] = tv.getData(c.Source)
			}
		}
	}

	go func() {
		err := tv.refineCallback(ctx, tv.g, t, task, inputs)

		tv.mu.Lock()
		delete(tv.pendingRefine, k)
		if err != nil {
			tv.failLocked(&RefineError{Tick: t, Cause: err})
			tv.mu.Unlock()
			tv.poke()
			return
		}
		// Mark refined only if the task is still the same one: Refine may
		// have spliced it away entirely (loop unrolling, If/While
		// resolution), in which case there's nothing left to mark.
		if still, _ := tv.g.GetTask(t); still == task {
			_ = tv.g.SetProperty(t, "refined", true)
		}
		tv.mu.Unlock()
		tv.poke()
	}()
}

// dispatchReady spawns the ready callback for t, if it isn't already in
// flight. tv.mu must be held by the caller.
func (tv *Traverser) dispatchReady(ctx context.Context, t tick.Tick) {
	k := t.Key()
	if tv.pendingReady[k] {
		return
	}
	tv.pendingReady[k] = true

	task, err := tv.g.GetTask(t)
	if err != nil {
		tv.failLocked(&EvaluationError{Tick: t, Cause: err})
		return
	}
	inputs := make(map[string]value.Value)
	for _, c := range tv.g.InConnections(t) {
		inputs[c.Dest.Port] = tv.getData(c.Source)
	}

	go func() {
		result, err := tv.readyCallback(ctx, tv.g, t, task, inputs)

		tv.mu.Lock()
		delete(tv.pendingReady, k)
		if err != nil {
			tv.failLocked(&EvaluationError{Tick: t, Cause: err})
			tv.mu.Unlock()
			tv.poke()
			return
		}
		if result.Duration != 0 {
			_ = tv.g.SetProperty(t, "eval_time", result.Duration)
		}
		if result.DataSizes != nil {
			_ = tv.g.SetProperty(t, "datasizes", result.DataSizes)
		}
		tv.mu.Unlock()

		if err := tv.setOutputData(t, boolKeys(result.Outputs), result.Outputs); err != nil {
			tv.mu.Lock()
			tv.failLocked(&EvaluationError{Tick: t, Cause: err})
			tv.mu.Unlock()
		}
		tv.poke()
	}()
}

// failLocked records the first failure seen; tv.mu must be held.
func (tv *Traverser) failLocked(err error) {
	if tv.caughtErr == nil {
		tv.caughtErr = err
	}
}

// recursionKey identifies one call-graph frame: a worker identity shared
// across a single top-level traversal, paired with the body graph being
// entered. A repeat of the same pair on the same goroutine's call stack
// means a function is calling itself (directly or indirectly) without a
// base case that bottoms out — a self-dependency that would otherwise
// deadlock the caller forever waiting on its own result.
//
// *workgraph.Worker is used here purely as the shared per-traversal
// identity token (constructed once via workgraph.NewWorker and threaded
// through context): this port doesn't reach for the library's own
// Promise/Resolver request-tracking surface, since nothing in the
// retrieved pack shows that surface's exact generic API (only
// NewWorker's construction, the context-plumbing helpers in
// internal/lang/grapheval, and the RequestID/ErrSelfDependency/
// ErrUnresolved error shapes are visible) — guessing at an undocumented
// method signature would be fabricating API, not grounding it.
type recursionKey struct {
	worker *workgraph.Worker
	graph  *graph.Graph
}

type recursionCtxKey struct{}

// ErrSelfDependency reports that entering a graph would recurse into a
// call already in progress on the same traversal.
type ErrSelfDependency struct {
	Graph *graph.Graph
}

func (e *ErrSelfDependency) Error() string {
	return "traverser: function invocation depends on its own result"
}

// WithNewWorker returns a context carrying a fresh recursion-tracking
// identity, for use at the top of a call graph (the entry point that
// first invokes Execute).
func WithNewWorker(ctx context.Context) context.Context {
	return context.WithValue(ctx, recursionCtxKey{}, &recursionState{worker: workgraph.NewWorker()})
}

type recursionState struct {
	mu     sync.Mutex
	worker *workgraph.Worker
	active map[recursionKey]bool
}

// EnterGraph marks g as being actively traversed on ctx's recursion
// worker, returning a derived context and a leave function, or
// ErrSelfDependency if g is already active higher up the same call
// stack. If ctx carries no recursion worker yet (this is the first
// Execute call), one is created automatically.
func EnterGraph(ctx context.Context, g *graph.Graph) (context.Context, func(), error) {
	state, ok := ctx.Value(recursionCtxKey{}).(*recursionState)
	if !ok {
		state = &recursionState{worker: workgraph.NewWorker()}
		ctx = context.WithValue(ctx, recursionCtxKey{}, state)
	}

	state.mu.Lock()
	if state.active == nil {
		state.active = make(map[recursionKey]bool)
	}
	key := recursionKey{worker: state.worker, graph: g}
	if state.active[key] {
		state.mu.Unlock()
		return ctx, func() {}, &ErrSelfDependency{Graph: g}
	}
	state.active[key] = true
	state.mu.Unlock()

	leave := func() {
		state.mu.Lock()
		delete(state.active, key)
		state.mu.Unlock()
	}
	return ctx, leave, nil
}
