// Package worker implements the worker-side value store and task
// evaluation surface: a worker holds a set of values (live and/or
// serialized), lazily fetches values it doesn't yet have from a peer, and
// runs a task's Evaluate against locally resolved inputs.
//
// Grounded on pydron/backend/worker.py's Worker/RemoteWorker. The source
// drives everything through Twisted Deferreds; this port uses
// context.Context-aware blocking calls instead, since Go's goroutines make
// the callback-chaining machinery unnecessary.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/logging"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// TransmissionResult reports how much data moved and how long it took, for
// a FetchFrom that actually had to transfer something. A nil result (no
// error) from FetchFrom means the value was already present locally.
type TransmissionResult struct {
	ByteCount int
	Duration  time.Duration
}

func (t *TransmissionResult) String() string {
	if t == nil {
		return "TransmissionResult(nil)"
	}
	return fmt.Sprintf("TransmissionResult(%d, %s)", t.ByteCount, t.Duration)
}

// Input names where Evaluate should obtain one input port's value: an id
// and the worker that currently holds it (which may be the worker being
// asked to evaluate, in which case no transfer is needed).
type Input struct {
	ID     value.ID
	Worker RemoteWorker
}

// EvalResult is what Evaluate returns: the task's outputs, now ingested
// into this worker's value store and reported back as ids rather than raw
// values, plus telemetry a pool scheduling strategy can use.
//
// Grounded on the teacher's evaluate()/task_completed() pair: the teacher
// mutates evalresult.result in place from a values dict to a valueids
// dict once ingestion completes. This port keeps that two-step shape but
// returns a fresh struct rather than mutating one, since nothing here
// needs the in-place aliasing Python's closures relied on.
type EvalResult struct {
	Outputs         map[string]value.ID
	Duration        time.Duration
	DataSizes       map[string]int
	TransferResults map[string]*TransmissionResult
}

// RemoteWorker is the part of a worker's API that can be invoked by a peer,
// whether that peer is in-process (package pool driving a local Worker
// directly) or across a process boundary (package rpcworker's net/rpc
// client stub implements the same interface).
//
// Grounded on the teacher's RemoteWorker abstract base.
type RemoteWorker interface {
	// ID returns this worker's address, for ValueRef bookkeeping.
	ID() value.WorkerID

	// FetchFrom transfers the named value from source to this worker.
	// Returns nil, nil if the value was already present locally.
	FetchFrom(ctx context.Context, source RemoteWorker, id value.ID) (*TransmissionResult, error)

	// GetCucumber returns the serialized form of a value already present on
	// this worker.
	GetCucumber(ctx context.Context, id value.ID) ([]byte, error)

	// Free releases a value this worker holds.
	Free(ctx context.Context, id value.ID) error

	// Copy creates an alias for an existing value under a fresh id. dest
	// must not already exist.
	Copy(ctx context.Context, source, dest value.ID) error

	// Evaluate runs tk with the named inputs (fetching from their source
	// workers as needed), ingests the outputs, and returns their new ids.
	// nosendPorts names output ports that must never be pickled (because
	// the produced value is known not to leave this process, e.g. a
	// Callable closing over local state).
	Evaluate(ctx context.Context, t tick.Tick, tk graph.Task, inputs map[string]Input, nosendPorts map[string]bool) (*EvalResult, error)
}

// Lifecycle is optionally implemented by a RemoteWorker that supports
// pool-managed reset/stop. The source assigns `reset`/`stop`/`kill` to a
// Worker externally, via its process smartstarter (WorkerStarter.start);
// Worker itself defines no such method. The local, in-process Worker here
// fills that gap with the one kind of "reset" a value store can
// meaningfully do on its own: drop everything it is holding, so package
// pool's periodic reset loop (§4.9) has something concrete to call even
// when a worker isn't backed by a real subprocess.
type Lifecycle interface {
	Reset(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Reset drops every value this worker currently holds.
func (w *Worker) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.values = make(map[string]*value.Holder)
	return nil
}

// Stop resets the worker. It does not mark the worker as stopped: later
// calls to SetValue, FetchFrom or Evaluate still work.
func (w *Worker) Stop(ctx context.Context) error {
	return w.Reset(ctx)
}

// evaluator is implemented by any graph.Task that can be run given
// resolved inputs; defined locally (rather than imported from package
// task) to avoid this package depending on the task catalog just to
// describe the shape it evaluates.
type evaluator interface {
	Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error)
}

// Worker is a concrete, local RemoteWorker: it owns a map of value ids to
// Holders and the thread-pool-style evaluation of tasks.
type Worker struct {
	id       value.WorkerID
	nicename string
	log      hclogger

	mu     sync.Mutex
	values map[string]*value.Holder

	fetchGroup singleflight.Group
}

// hclogger is the narrow subset of hclog.Logger this package calls,
// declared locally so tests can swap in a no-op without pulling in hclog's
// full interface surface.
type hclogger interface {
	Debug(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// New creates an empty Worker addressed by id.
func New(id value.WorkerID, nicename string) *Worker {
	return &Worker{
		id:       id,
		nicename: nicename,
		log:      logging.ForWorker(nicename),
		values:   make(map[string]*value.Holder),
	}
}

// ID implements RemoteWorker.
func (w *Worker) ID() value.WorkerID { return w.id }

func (w *Worker) String() string { return fmt.Sprintf("Worker(%s)", w.nicename) }

// SetValue stores a freshly produced live value under id, attempting
// serialization per pickleSupported/failIfUnsupported exactly as
// value.NewFromValue does. Returns the serialized size, or ok=false if the
// value could not be (or was told not to be) serialized.
func (w *Worker) SetValue(id value.ID, v value.Value, pickleSupported, failIfUnsupported bool) (size int, ok bool, err error) {
	c, err := value.NewFromValue(v, pickleSupported, failIfUnsupported)
	if err != nil {
		return 0, false, err
	}
	if err := w.insert(id, value.NewStored(id, c)); err != nil {
		return 0, false, err
	}
	size, ok = c.Size()
	return size, ok, nil
}

// SetCucumber stores an already-serialized value received from a peer.
func (w *Worker) SetCucumber(id value.ID, cucumber []byte) error {
	return w.insert(id, value.NewStored(id, value.NewFromCucumber(cucumber)))
}

func (w *Worker) insert(id value.ID, h *value.Holder) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.values[id.Key()]; exists {
		return fmt.Errorf("worker: value id %s already in use on %s", id, w)
	}
	w.values[id.Key()] = h
	return nil
}

func (w *Worker) lookup(id value.ID) (*value.Holder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.values[id.Key()]
	if !ok {
		return nil, fmt.Errorf("worker: no value with id %s on %s", id, w)
	}
	return h, nil
}

// GetValue returns the unpickled value for id, blocking if a transfer is
// still in flight.
func (w *Worker) GetValue(ctx context.Context, id value.ID) (value.Value, error) {
	h, err := w.lookup(id)
	if err != nil {
		return value.Null, err
	}
	c, err := h.Get(ctx)
	if err != nil {
		return value.Null, err
	}
	return c.Value()
}

// GetCucumber implements RemoteWorker.
func (w *Worker) GetCucumber(ctx context.Context, id value.ID) ([]byte, error) {
	h, err := w.lookup(id)
	if err != nil {
		return nil, err
	}
	c, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return c.Cucumber()
}

// GetPickleSupported reports whether the stored value round-trips through
// serialization.
func (w *Worker) GetPickleSupported(ctx context.Context, id value.ID) (bool, error) {
	h, err := w.lookup(id)
	if err != nil {
		return false, err
	}
	c, err := h.Get(ctx)
	if err != nil {
		return false, err
	}
	return c.PickleSupported(), nil
}

// Free implements RemoteWorker.
func (w *Worker) Free(ctx context.Context, id value.ID) error {
	h, err := w.lookup(id)
	if err != nil {
		// Matches the teacher's Worker.free: freeing an id that isn't
		// (or is no longer) present is not an error.
		return nil
	}
	if err := h.Free(ctx); err != nil && err != value.ErrFreed {
		return err
	}
	w.mu.Lock()
	delete(w.values, id.Key())
	w.mu.Unlock()
	return nil
}

// Copy implements RemoteWorker: it creates dest as an independent live
// copy of source's current value.
func (w *Worker) Copy(ctx context.Context, source, dest value.ID) error {
	h, err := w.lookup(source)
	if err != nil {
		return fmt.Errorf("worker: copy source does not exist: %w", err)
	}
	w.mu.Lock()
	if _, exists := w.values[dest.Key()]; exists {
		w.mu.Unlock()
		return fmt.Errorf("worker: copy destination %s already exists", dest)
	}
	w.mu.Unlock()

	c, err := h.Get(ctx)
	if err != nil {
		return err
	}
	v, err := c.Value()
	if err != nil {
		return err
	}
	destContainer, err := value.NewFromValue(v, c.PickleSupported(), false)
	if err != nil {
		return err
	}
	return w.insert(dest, value.NewStored(dest, destContainer))
}

// Reduce applies reducer to the value named by id and returns the result,
// without materializing the full value on the caller's side first (e.g.
// the traverser's syncpoint reducer for a refiner's condition).
func (w *Worker) Reduce(ctx context.Context, id value.ID, reducer func(value.Value) (value.Value, error)) (value.Value, error) {
	v, err := w.GetValue(ctx, id)
	if err != nil {
		return value.Null, err
	}
	return reducer(v)
}

// FetchFrom implements RemoteWorker: it pulls id from source if w doesn't
// already have it. Concurrent FetchFrom calls for the same id are
// coalesced via singleflight, matching the "conversion is attempted once"
// at-most-once guarantee the source gives the live/serialized round trip
// (§3); here it's applied one level up, to the transfer itself.
func (w *Worker) FetchFrom(ctx context.Context, source RemoteWorker, id value.ID) (*TransmissionResult, error) {
	w.mu.Lock()
	_, exists := w.values[id.Key()]
	w.mu.Unlock()
	if exists {
		return nil, nil
	}

	result, err, _ := w.fetchGroup.Do(id.Key(), func() (interface{}, error) {
		return w.doFetch(ctx, source, id)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*TransmissionResult), nil
}

func (w *Worker) doFetch(ctx context.Context, source RemoteWorker, id value.ID) (*TransmissionResult, error) {
	w.mu.Lock()
	if _, exists := w.values[id.Key()]; exists {
		w.mu.Unlock()
		return nil, nil
	}
	holder := value.NewTransferring(id, func() {
		w.mu.Lock()
		delete(w.values, id.Key())
		w.mu.Unlock()
	})
	w.values[id.Key()] = holder
	w.mu.Unlock()

	start := time.Now()
	cucumber, err := source.GetCucumber(ctx, id)
	if err != nil {
		holder.Fail(err)
		w.mu.Lock()
		delete(w.values, id.Key())
		w.mu.Unlock()
		return nil, err
	}
	duration := time.Since(start)
	holder.Set(value.NewFromCucumber(cucumber))
	return &TransmissionResult{ByteCount: len(cucumber), Duration: duration}, nil
}

// Evaluate implements RemoteWorker: it fetches every input that isn't
// already local, runs tk.Evaluate with the resolved values, and ingests
// the results back into this worker's store under fresh ids.
//
// Grounded on the teacher's Worker.evaluate: fetch all inputs in parallel,
// then run the task, then replace its output values with freshly minted
// ValueIds. The source runs the task body in a background thread via
// threads.deferToThread; here it runs on the calling goroutine, since the
// caller (package dispatch's Master.Ready, run as a traverser
// ReadyCallback) already invokes Evaluate from a per-task goroutine of its
// own rather than the traversal's main loop.
func (w *Worker) Evaluate(ctx context.Context, t tick.Tick, tk graph.Task, inputs map[string]Input, nosendPorts map[string]bool) (*EvalResult, error) {
	e, ok := tk.(evaluator)
	if !ok {
		return nil, fmt.Errorf("worker: task at tick %s is not evaluable", t)
	}

	w.log.Debug("transfers for job", "tick", t.String())

	type fetched struct {
		port  string
		value value.Value
	}
	results := make([]fetched, len(inputs))
	transferResults := make(map[string]*TransmissionResult)
	var transferMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	i := 0
	for port, in := range inputs {
		idx, port, in := i, port, in
		i++
		g.Go(func() error {
			tr, err := w.FetchFrom(gctx, in.Worker, in.ID)
			if err != nil {
				return fmt.Errorf("worker: fetching input %q for tick %s: %w", port, t, err)
			}
			if tr != nil {
				transferMu.Lock()
				transferResults[port] = tr
				transferMu.Unlock()
			}
			v, err := w.GetValue(gctx, in.ID)
			if err != nil {
				return fmt.Errorf("worker: reading input %q for tick %s: %w", port, t, err)
			}
			results[idx] = fetched{port: port, value: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	taskInputs := make(map[string]value.Value, len(results))
	for _, r := range results {
		taskInputs[r.port] = r.value
	}

	w.log.Debug("running job", "tick", t.String())
	start := time.Now()
	outputs, err := e.Evaluate(ctx, taskInputs)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}

	outs := make(map[string]value.ID, len(outputs))
	datasizes := make(map[string]int)
	for port, v := range outputs {
		id := value.NewID(t, port)
		pickleSupported := true
		if nosendPorts != nil && nosendPorts[port] {
			pickleSupported = false
		}
		size, hasSize, err := w.SetValue(id, v, pickleSupported, false)
		if err != nil {
			return nil, fmt.Errorf("worker: ingesting output %q of tick %s: %w", port, t, err)
		}
		outs[port] = id
		if hasSize {
			datasizes[port] = size
		}
	}

	return &EvalResult{
		Outputs:         outs,
		Duration:        duration,
		DataSizes:       datasizes,
		TransferResults: transferResults,
	}, nil
}
