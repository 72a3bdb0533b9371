// Package rpcworker exposes internal/worker.RemoteWorker over
// github.com/hashicorp/go-plugin's net/rpc transport, the library's
// classic (pre-gRPC) plugin mode: a WorkerPlugin pair whose Server side
// wraps a local worker.RemoteWorker and whose Client side is an RPCClient
// implementing the same interface by making net/rpc calls.
//
// Grounded on the teacher's own use of github.com/hashicorp/go-plugin
// (internal/plugin/grpc_provider.go embeds plugin.Plugin and is driven by
// a plugin.Client); the teacher's own plugins all speak the library's
// newer gRPC/protobuf transport, which would require hand-authoring
// protoc-generated stubs to reproduce here - something this port avoids
// per DESIGN.md. net/rpc needs no code generation and is a first-class,
// documented mode of the same real dependency, so only the transport
// differs, not the library.
package rpcworker

import (
	"context"
	"encoding/gob"
	"fmt"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/task"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
	"github.com/pydron/pydron/internal/worker"
)

func init() {
	// net/rpc encodes arguments with encoding/gob, which needs every
	// concrete type that will flow through a graph.Task-typed field
	// registered up front. This is the full task catalog from package
	// task (see its package doc for the source each is grounded on).
	gob.Register(&task.Repr{})
	gob.Register(&task.Attribute{})
	gob.Register(&task.Subscript{})
	gob.Register(&task.BuiltinCall{})
	gob.Register(&task.AttrAssign{})
	gob.Register(&task.SubscriptAssign{})
	gob.Register(&task.Unpack{})
	gob.Register(&task.AugAssign{})
	gob.Register(&task.AugAttrAssign{})
	gob.Register(&task.AugSubscriptAssign{})
	gob.Register(&task.Raise{})
	gob.Register(&task.BinOpTask{})
	gob.Register(&task.UnaryOpTask{})
	gob.Register(&task.Call{})
	gob.Register(&task.Dict{})
	gob.Register(&task.Set{})
	gob.Register(&task.List{})
	gob.Register(&task.Tuple{})
	gob.Register(&task.Const{})
	gob.Register(&task.For{})
	gob.Register(&task.FunctionDef{})
	gob.Register(&task.If{})
	gob.Register(&task.Iter{})
	gob.Register(&task.Next{})
	gob.Register(&task.Namespace{})
	gob.Register(&task.ReadGlobal{})
	gob.Register(&task.AssignGlobal{})
	gob.Register(&task.While{})
}

// WireInput is the wire form of worker.Input: the source worker is named
// by address rather than carrying a live RemoteWorker, which can't cross
// net/rpc. The server resolves the address through its Registry.
type WireInput struct {
	ID     value.ID
	Worker value.WorkerID
}

func toWireInputs(inputs map[string]worker.Input) map[string]WireInput {
	out := make(map[string]WireInput, len(inputs))
	for port, in := range inputs {
		out[port] = WireInput{ID: in.ID, Worker: in.Worker.ID()}
	}
	return out
}

func (s *RPCServer) fromWireInputs(inputs map[string]WireInput) (map[string]worker.Input, error) {
	out := make(map[string]worker.Input, len(inputs))
	for port, in := range inputs {
		rw, ok := s.Registry.Lookup(in.Worker)
		if !ok {
			return nil, fmt.Errorf("rpcworker: unknown source worker %s for input port %q", in.Worker, port)
		}
		out[port] = worker.Input{ID: in.ID, Worker: rw}
	}
	return out, nil
}

type FetchFromArgs struct {
	Source value.WorkerID
	ID     value.ID
}

type FetchFromReply struct {
	// NoTransfer is set when the value was already present locally - the
	// net/rpc equivalent of FetchFrom returning a nil *TransmissionResult.
	NoTransfer bool
	ByteCount  int
	DurationNS int64
}

type IDArgs struct {
	ID value.ID
}

type CucumberReply struct {
	Cucumber []byte
}

type CopyArgs struct {
	Source, Dest value.ID
}

type EvaluateArgs struct {
	Tick        tick.Tick
	Task        graph.Task
	Inputs      map[string]WireInput
	NosendPorts map[string]bool
}

type EvaluateReply struct {
	Outputs         map[string]value.ID
	DurationNS      int64
	DataSizes       map[string]int
	TransferResults map[string]TransferResultWire
}

type TransferResultWire struct {
	ByteCount  int
	DurationNS int64
}

// backgroundCtx is used on the server side of every RPC call: net/rpc has
// no concept of a caller-supplied context, so cancellation/deadlines are
// not propagated across this transport. This is a known, accepted
// limitation of go-plugin's net/rpc mode (it's the reason the library grew
// a gRPC mode at all) - see DESIGN.md.
func backgroundCtx() context.Context { return context.Background() }
