package rpcworker

import (
	"context"
	"net"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pydron/pydron/internal/task"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
	"github.com/pydron/pydron/internal/worker"
)

// fakeRegistry resolves worker ids against a fixed in-memory set, standing
// in for a Pool in these in-process tests.
type fakeRegistry map[value.WorkerID]worker.RemoteWorker

func (r fakeRegistry) Lookup(id value.WorkerID) (worker.RemoteWorker, bool) {
	w, ok := r[id]
	return w, ok
}

// dial wires an RPCServer wrapping local to an RPCClient over an in-memory
// net.Pipe, the same shape go-plugin sets up over a real subprocess's
// stdio/socket, minus the handshake and process management.
func dial(t *testing.T, local worker.RemoteWorker, registry Registry, id value.WorkerID) *RPCClient {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("RPCServer", &RPCServer{Local: local, Registry: registry}))

	clientConn, serverConn := net.Pipe()
	go server.ServeConn(serverConn)
	t.Cleanup(func() { clientConn.Close() })

	return NewClient(id, rpc.NewClient(clientConn))
}

func TestRPCClientSetValueThenGetCucumberRoundTrips(t *testing.T) {
	w := worker.New("w1", "w1")
	id := value.NewID(tick.Start, "out")
	_, _, err := w.SetValue(id, value.Int(42), true, true)
	require.NoError(t, err)

	client := dial(t, w, fakeRegistry{"w1": w}, "w1")
	cucumber, err := client.GetCucumber(context.Background(), id)
	require.NoError(t, err)
	require.NotEmpty(t, cucumber)
}

func TestRPCClientFetchFromPullsAcrossTheWire(t *testing.T) {
	source := worker.New("source", "source")
	id := value.NewID(tick.Start, "out")
	_, _, err := source.SetValue(id, value.Int(7), true, true)
	require.NoError(t, err)

	dest := worker.New("dest", "dest")
	registry := fakeRegistry{"source": source, "dest": dest}
	sourceClient := dial(t, source, registry, "source")
	destClient := dial(t, dest, registry, "dest")

	res, err := destClient.FetchFrom(context.Background(), sourceClient, id)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Positive(t, res.ByteCount)

	v, err := dest.GetValue(context.Background(), id)
	require.NoError(t, err)
	require.True(t, value.Int(7).RawEquals(v))

	// A second fetch of the same id needs no further transfer.
	res2, err := destClient.FetchFrom(context.Background(), sourceClient, id)
	require.NoError(t, err)
	require.Nil(t, res2)
}

func TestRPCClientEvaluateRunsOnTheRemoteWorkerAndReturnsIDs(t *testing.T) {
	source := worker.New("source", "source")
	aID := value.NewID(tick.Start, "a")
	bID := value.NewID(tick.Start, "b")
	_, _, err := source.SetValue(aID, value.Int(3), true, true)
	require.NoError(t, err)
	_, _, err = source.SetValue(bID, value.Int(4), true, true)
	require.NoError(t, err)

	dest := worker.New("dest", "dest")
	registry := fakeRegistry{"source": source, "dest": dest}
	sourceClient := dial(t, source, registry, "source")
	destClient := dial(t, dest, registry, "dest")

	inputs := map[string]worker.Input{
		"left":  {ID: aID, Worker: sourceClient},
		"right": {ID: bID, Worker: sourceClient},
	}
	result, err := destClient.Evaluate(context.Background(), tick.Start.Increment(1), &task.BinOpTask{Op: task.Add}, inputs, nil)
	require.NoError(t, err)
	require.Len(t, result.TransferResults, 2)

	outID, ok := result.Outputs["value"]
	require.True(t, ok)
	outVal, err := dest.GetValue(context.Background(), outID)
	require.NoError(t, err)
	require.True(t, value.Int(7).RawEquals(outVal))
}
