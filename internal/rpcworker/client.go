package rpcworker

import (
	"context"
	"net/rpc"
	"time"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
	"github.com/pydron/pydron/internal/worker"
)

// RPCClient implements worker.RemoteWorker by calling an RPCServer over
// net/rpc. It's what go-plugin's Client side of a WorkerPlugin hands back
// from Dispense.
type RPCClient struct {
	id     value.WorkerID
	client *rpc.Client
}

// NewClient wraps an established net/rpc client, naming the remote worker
// id so local callers (a Pool, a sibling Worker) have something to key on
// without a round trip.
func NewClient(id value.WorkerID, client *rpc.Client) *RPCClient {
	return &RPCClient{id: id, client: client}
}

func (c *RPCClient) ID() value.WorkerID { return c.id }

func (c *RPCClient) FetchFrom(ctx context.Context, source worker.RemoteWorker, id value.ID) (*worker.TransmissionResult, error) {
	args := FetchFromArgs{Source: source.ID(), ID: id}
	var reply FetchFromReply
	if err := c.call(ctx, "RPCServer.FetchFrom", args, &reply); err != nil {
		return nil, err
	}
	if reply.NoTransfer {
		return nil, nil
	}
	return &worker.TransmissionResult{ByteCount: reply.ByteCount, Duration: time.Duration(reply.DurationNS)}, nil
}

func (c *RPCClient) GetCucumber(ctx context.Context, id value.ID) ([]byte, error) {
	var reply CucumberReply
	if err := c.call(ctx, "RPCServer.GetCucumber", IDArgs{ID: id}, &reply); err != nil {
		return nil, err
	}
	return reply.Cucumber, nil
}

func (c *RPCClient) Free(ctx context.Context, id value.ID) error {
	return c.call(ctx, "RPCServer.Free", IDArgs{ID: id}, &struct{}{})
}

func (c *RPCClient) Copy(ctx context.Context, source, dest value.ID) error {
	return c.call(ctx, "RPCServer.Copy", CopyArgs{Source: source, Dest: dest}, &struct{}{})
}

func (c *RPCClient) Evaluate(ctx context.Context, t tick.Tick, tk graph.Task, inputs map[string]worker.Input, nosendPorts map[string]bool) (*worker.EvalResult, error) {
	args := EvaluateArgs{Tick: t, Task: tk, Inputs: toWireInputs(inputs), NosendPorts: nosendPorts}
	var reply EvaluateReply
	if err := c.call(ctx, "RPCServer.Evaluate", args, &reply); err != nil {
		return nil, err
	}
	result := &worker.EvalResult{
		Outputs:         reply.Outputs,
		Duration:        time.Duration(reply.DurationNS),
		DataSizes:       reply.DataSizes,
		TransferResults: make(map[string]*worker.TransmissionResult, len(reply.TransferResults)),
	}
	for port, tr := range reply.TransferResults {
		result.TransferResults[port] = &worker.TransmissionResult{ByteCount: tr.ByteCount, Duration: time.Duration(tr.DurationNS)}
	}
	return result, nil
}

// call runs the net/rpc request on a goroutine and races it against
// ctx.Done, since *rpc.Client.Call itself has no cancellation hook. A
// cancelled call still completes server-side (net/rpc has no in-flight
// abort), it's just that this caller stops waiting on it - the same
// limitation documented in wire.go's backgroundCtx.
func (c *RPCClient) call(ctx context.Context, method string, args, reply interface{}) error {
	done := make(chan error, 1)
	go func() { done <- c.client.Call(method, args, reply) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
