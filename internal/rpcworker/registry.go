package rpcworker

import (
	"github.com/pydron/pydron/internal/value"
	"github.com/pydron/pydron/internal/worker"
)

// Registry resolves a worker id to a live worker.RemoteWorker, so an
// RPCServer can turn the worker ids it receives on the wire (as part of
// FetchFrom/Evaluate arguments) back into something it can call.
// internal/pool.Pool satisfies this directly through its Lookup method,
// an alias for its Get.
type Registry interface {
	Lookup(id value.WorkerID) (worker.RemoteWorker, bool)
}

// NoPeers is a Registry for a worker that never needs to resolve another
// worker by id, e.g. a standalone worker subprocess whose every input
// happens to already live locally. Every lookup fails.
var NoPeers Registry = noPeers{}

type noPeers struct{}

func (noPeers) Lookup(value.WorkerID) (worker.RemoteWorker, bool) { return nil, false }
