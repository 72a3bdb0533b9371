// Package pool manages the set of workers available to run jobs and the
// scheduling strategy that decides which worker runs which job and where
// each job should fetch its inputs from.
//
// Grounded on pydron/backend/worker.py's Pool and pydron/interpreter/
// strategies.py's SchedulingStrategy family.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-version"
	"golang.org/x/sync/errgroup"

	"github.com/pydron/pydron/internal/diag"
	"github.com/pydron/pydron/internal/logging"
	"github.com/pydron/pydron/internal/value"
	"github.com/pydron/pydron/internal/worker"
)

// DefaultResetInterval is how often the pool resets every worker it
// manages, matching the teacher's Pool._reset_interval class attribute.
const DefaultResetInterval = 60 * time.Second

// Observer is notified of pool membership changes and cross-worker
// transmissions, mirroring the teacher's PoolObserver.
type Observer interface {
	WorkerAdded(id value.WorkerID)
	WorkerRemoved(id value.WorkerID)
	TransmissionTime(from, to value.WorkerID, byteCount int, d time.Duration)
}

// member is the bookkeeping the pool keeps per worker: its handle, its
// self-reported protocol version (used to reject workers too old to
// understand the current job/eval wire shape), and whether it's currently
// running a (non-quick) job.
type member struct {
	w       worker.RemoteWorker
	version *version.Version
	busy    bool
}

// Pool owns the set of workers a scheduling strategy can assign jobs to,
// and runs a periodic reset across all of them the way the teacher's
// Pool._reset_loop does.
type Pool struct {
	mu            sync.Mutex
	members       map[value.WorkerID]*member
	observers     []Observer
	resetInterval time.Duration
	minVersion    *version.Version

	log    hclog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates an empty pool. minProtocolVersion, if non-empty, rejects any
// worker whose AddWorker call reports an older semantic version - the same
// negotiation the teacher's provider handshake performs with go-version,
// applied here to the worker-to-pool handshake instead.
func New(minProtocolVersion string, resetInterval time.Duration) (*Pool, error) {
	if resetInterval <= 0 {
		resetInterval = DefaultResetInterval
	}
	p := &Pool{
		members:       make(map[value.WorkerID]*member),
		resetInterval: resetInterval,
		log:           logging.Named("pool"),
	}
	if minProtocolVersion != "" {
		v, err := version.NewVersion(minProtocolVersion)
		if err != nil {
			return nil, fmt.Errorf("pool: invalid minimum protocol version %q: %w", minProtocolVersion, err)
		}
		p.minVersion = v
	}
	return p, nil
}

// Workers returns the ids of every worker currently in the pool.
func (p *Pool) Workers() []value.WorkerID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]value.WorkerID, 0, len(p.members))
	for id := range p.members {
		out = append(out, id)
	}
	return out
}

// Get returns the RemoteWorker handle for id, if present.
func (p *Pool) Get(id value.WorkerID) (worker.RemoteWorker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return nil, false
	}
	return m.w, true
}

// Lookup is an alias for Get, satisfying internal/rpcworker.Registry so a
// Pool can resolve the worker ids an RPCServer receives on the wire.
func (p *Pool) Lookup(id value.WorkerID) (worker.RemoteWorker, bool) {
	return p.Get(id)
}

// AddWorker registers w, resets it (if it supports Lifecycle), and starts
// the periodic reset loop if this is the pool's first member.
//
// Grounded on Pool.add_worker: `if len(self.workers) == 0:
// self._reset_loop.start(...)`, `self.workers.append(worker)`,
// `return worker.reset()`.
func (p *Pool) AddWorker(ctx context.Context, w worker.RemoteWorker, protocolVersion string) error {
	v, err := version.NewVersion(protocolVersion)
	if err != nil {
		return fmt.Errorf("pool: worker %s reported an invalid protocol version %q: %w", w.ID(), protocolVersion, err)
	}
	if p.minVersion != nil && v.LessThan(p.minVersion) {
		return diag.Invariantf("worker %s speaks protocol %s, older than the minimum %s this pool requires", w.ID(), v, p.minVersion)
	}

	p.mu.Lock()
	if _, exists := p.members[w.ID()]; exists {
		p.mu.Unlock()
		return fmt.Errorf("pool: worker %s is already registered", w.ID())
	}
	first := len(p.members) == 0
	p.members[w.ID()] = &member{w: w, version: v}
	p.mu.Unlock()

	if first {
		p.startResetLoop()
	}

	if lc, ok := w.(worker.Lifecycle); ok {
		if err := lc.Reset(ctx); err != nil {
			return fmt.Errorf("pool: resetting newly added worker %s: %w", w.ID(), err)
		}
	}
	p.fireWorkerAdded(w.ID())
	return nil
}

// RemoveWorker unregisters id and stops the reset loop if the pool is now
// empty.
func (p *Pool) RemoveWorker(id value.WorkerID) error {
	p.mu.Lock()
	if _, exists := p.members[id]; !exists {
		p.mu.Unlock()
		return fmt.Errorf("pool: worker %s is not registered", id)
	}
	delete(p.members, id)
	last := len(p.members) == 0
	p.mu.Unlock()

	if last {
		p.stopResetLoop()
	}
	p.fireWorkerRemoved(id)
	return nil
}

// Stop removes and stops every worker in the pool in parallel, surfacing
// the first error encountered (§4.9).
//
// Grounded on Pool.stop's `defer.DeferredList(ds, fireOnOneErrback=True)`.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	members := make([]*member, 0, len(p.members))
	for _, m := range p.members {
		members = append(members, m)
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range members {
		m := m
		g.Go(func() error {
			if err := p.RemoveWorker(m.w.ID()); err != nil {
				return err
			}
			if lc, ok := m.w.(worker.Lifecycle); ok {
				p.log.Debug("stopping worker", "worker", m.w.ID())
				if err := lc.Stop(gctx); err != nil {
					p.log.Error("stopping worker failed", "worker", m.w.ID(), "error", err)
					return fmt.Errorf("pool: stopping worker %s: %w", m.w.ID(), err)
				}
				p.log.Debug("worker stopped", "worker", m.w.ID())
			}
			return nil
		})
	}
	return g.Wait()
}

// Subscribe registers an observer.
func (p *Pool) Subscribe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// Unsubscribe removes a previously registered observer.
func (p *Pool) Unsubscribe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.observers {
		if existing == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

func (p *Pool) fireWorkerAdded(id value.WorkerID) {
	p.mu.Lock()
	obs := append([]Observer(nil), p.observers...)
	p.mu.Unlock()
	for _, o := range obs {
		o.WorkerAdded(id)
	}
}

func (p *Pool) fireWorkerRemoved(id value.WorkerID) {
	p.mu.Lock()
	obs := append([]Observer(nil), p.observers...)
	p.mu.Unlock()
	for _, o := range obs {
		o.WorkerRemoved(id)
	}
}

// FireTransmissionTime reports a completed cross-worker transfer to every
// observer; callers (typically the code driving worker.RemoteWorker.FetchFrom)
// invoke this once they have a worker.TransmissionResult in hand.
func (p *Pool) FireTransmissionTime(from, to value.WorkerID, byteCount int, d time.Duration) {
	p.mu.Lock()
	obs := append([]Observer(nil), p.observers...)
	p.mu.Unlock()
	for _, o := range obs {
		o.TransmissionTime(from, to, byteCount, d)
	}
}

func (p *Pool) startResetLoop() {
	p.mu.Lock()
	if p.stopCh != nil {
		p.mu.Unlock()
		return
	}
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.resetInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				p.resetAll()
			}
		}
	}()
}

func (p *Pool) stopResetLoop() {
	p.mu.Lock()
	stopCh := p.stopCh
	p.stopCh = nil
	p.mu.Unlock()
	if stopCh != nil {
		close(stopCh)
	}
}

func (p *Pool) resetAll() {
	p.mu.Lock()
	members := make([]*member, 0, len(p.members))
	for _, m := range p.members {
		members = append(members, m)
	}
	p.mu.Unlock()

	for _, m := range members {
		lc, ok := m.w.(worker.Lifecycle)
		if !ok {
			continue
		}
		if err := lc.Reset(context.Background()); err != nil {
			p.log.Error("periodic reset failed", "worker", m.w.ID(), "error", err)
		}
	}
}
