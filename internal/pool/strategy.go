package pool

import (
	"fmt"
	"sync"

	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// Job is one ready task waiting to be assigned to a worker: the tick and
// task the traverser wants evaluated, plus a Ref for every input port
// naming where replicas of that value currently live.
//
// Grounded on the teacher's informal "job" objects passed into
// SchedulingStrategy.assign_jobs_to_workers (job.g, job.tick, job.inputs).
type Job struct {
	Tick       tick.Tick
	Inputs     map[string]*value.Ref
	MasterOnly bool
	Syncpoint  bool
	Quick      bool
}

// AssignedJob pairs a Job with the worker chosen to run it and a release
// callback the caller must invoke once the job (and any resulting
// transfers) have finished, so the strategy can update its idle/busy
// bookkeeping.
type AssignedJob struct {
	Worker  value.WorkerID
	Job     Job
	Release func(workerIsDead bool)
}

// Strategy decides where ready jobs run and which replica a worker should
// fetch a needed value from.
//
// Grounded on strategies.py's SchedulingStrategy.
type Strategy interface {
	// AssignJobsToWorkers decides which of jobs can run now. It returns the
	// jobs it assigned (paired with their worker and a release callback)
	// and the jobs it left for a later call.
	AssignJobsToWorkers(jobs []Job) (assigned []AssignedJob, remaining []Job, err error)

	// ChooseSourceWorker decides which of ref's holder workers dest should
	// fetch the value from.
	ChooseSourceWorker(ref *value.Ref, dest value.WorkerID) (value.WorkerID, error)
}

// checkFixedWorkerForJob returns the one worker job must run on, if its
// properties or its no-send inputs force that, or ok=false if any worker
// will do.
//
// Grounded on strategies.py's check_fixed_worker_for_job.
func checkFixedWorkerForJob(job Job, masterWorker value.WorkerID) (only value.WorkerID, ok bool, err error) {
	if job.Syncpoint || job.MasterOnly {
		only, ok = masterWorker, true
	}
	for port, ref := range job.Inputs {
		if ref.PickleSupported {
			continue
		}
		workers := ref.Workers()
		if len(workers) == 0 {
			return "", false, fmt.Errorf("pool: job at tick %s has no worker holding its no-send input %q", job.Tick, port)
		}
		source := workers[0]
		if ok && only != source {
			return "", false, fmt.Errorf("pool: job at tick %s has no-send input %q from %s but needs to run on %s", job.Tick, port, source, only)
		}
		only, ok = source, true
	}
	return only, ok, nil
}

// TrivialStrategy runs "quick" jobs (and anything pinned to the master by
// checkFixedWorkerForJob) on the master worker, and spreads everything
// else across idle workers one job at a time, matching
// strategies.py's TrivialSchedulingStrategy.
type TrivialStrategy struct {
	mu           sync.Mutex
	idle         map[value.WorkerID]bool
	busy         map[value.WorkerID]bool
	masterWorker value.WorkerID
}

// NewTrivialStrategy seeds the strategy with the pool's current workers,
// all idle, and the worker designated to run syncpoints.
func NewTrivialStrategy(workers []value.WorkerID, masterWorker value.WorkerID) *TrivialStrategy {
	idle := make(map[value.WorkerID]bool, len(workers))
	for _, w := range workers {
		idle[w] = true
	}
	return &TrivialStrategy{
		idle:         idle,
		busy:         make(map[value.WorkerID]bool),
		masterWorker: masterWorker,
	}
}

func (s *TrivialStrategy) AssignJobsToWorkers(jobs []Job) ([]AssignedJob, []Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var assigned []AssignedJob
	var remaining []Job
	for _, job := range jobs {
		w, release, err := s.assignJobToWorker(job)
		if err != nil {
			return nil, nil, err
		}
		if w == "" {
			remaining = append(remaining, job)
			continue
		}
		assigned = append(assigned, AssignedJob{Worker: w, Job: job, Release: release})
	}
	return assigned, remaining, nil
}

func (s *TrivialStrategy) assignJobToWorker(job Job) (value.WorkerID, func(bool), error) {
	w, fixed, err := checkFixedWorkerForJob(job, s.masterWorker)
	if err != nil {
		return "", nil, err
	}

	if !fixed && job.Quick {
		w, fixed = s.masterWorker, true
	}
	if !fixed {
		for candidate := range s.idle {
			w, fixed = candidate, true
			break
		}
	}
	if !fixed {
		return "", nil, nil
	}

	if job.Quick {
		// Quick jobs run inline on whichever worker was chosen without
		// reserving it as busy; no release callback is needed.
		return w, nil, nil
	}

	if s.busy[w] {
		return "", nil, nil
	}
	wasIdle := s.idle[w]
	if wasIdle {
		delete(s.idle, w)
	}
	s.busy[w] = true

	release := func(workerIsDead bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.busy, w)
		if wasIdle && !workerIsDead {
			s.idle[w] = true
		}
	}
	return w, release, nil
}

// ChooseSourceWorker picks whichever of ref's holders first comes to hand;
// the teacher's own implementation makes the same arbitrary choice when
// more than one replica exists.
func (s *TrivialStrategy) ChooseSourceWorker(ref *value.Ref, dest value.WorkerID) (value.WorkerID, error) {
	workers := ref.Workers()
	if len(workers) == 0 {
		return "", fmt.Errorf("pool: %s is not stored on any worker", ref.ID)
	}
	return workers[0], nil
}

// VerifyStrategy wraps another Strategy and double-checks every decision
// it makes against the constraints checkFixedWorkerForJob and the value's
// own replica set impose, returning a descriptive error instead of
// silently running a job somewhere it structurally cannot.
//
// Grounded on strategies.py's VerifySchedulingStrategy.
type VerifyStrategy struct {
	Inner        Strategy
	MasterWorker value.WorkerID
}

func (s *VerifyStrategy) AssignJobsToWorkers(jobs []Job) ([]AssignedJob, []Job, error) {
	assigned, remaining, err := s.Inner.AssignJobsToWorkers(jobs)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range assigned {
		fixed, ok, err := checkFixedWorkerForJob(a.Job, s.MasterWorker)
		if err != nil {
			return nil, nil, err
		}
		if ok && fixed != a.Worker {
			return nil, nil, fmt.Errorf("pool: invalid scheduling decision: job at tick %s must run on %s, but was assigned to %s", a.Job.Tick, fixed, a.Worker)
		}
	}
	return assigned, remaining, nil
}

func (s *VerifyStrategy) ChooseSourceWorker(ref *value.Ref, dest value.WorkerID) (value.WorkerID, error) {
	w, err := s.Inner.ChooseSourceWorker(ref, dest)
	if err != nil {
		return "", err
	}
	if !ref.HasWorker(w) {
		return "", fmt.Errorf("pool: invalid scheduling decision: expected %s to be fetched from one of %v, but got %s", ref.ID, ref.Workers(), w)
	}
	return w, nil
}
