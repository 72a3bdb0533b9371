package rpcworker

import (
	"net/rpc"

	plugin "github.com/hashicorp/go-plugin"

	"github.com/pydron/pydron/internal/value"
	"github.com/pydron/pydron/internal/worker"
)

// Handshake is shared between a worker subprocess (Serve) and the process
// that launches it (Dial), the same cookie/version exchange go-plugin
// documents for its classic net/rpc mode - the teacher's own plugin setup
// (internal/plugin/plugin.go's VersionedPlugins) follows the same idea for
// its provider protocol versions, just over gRPC instead.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "PYDRON_WORKER_PLUGIN",
	MagicCookieValue: "pydron",
}

// pluginMapKey is the name a WorkerPlugin is registered and dispensed
// under, on both sides of a plugin.ClientConfig/plugin.ServeConfig.
const pluginMapKey = "worker"

// WorkerPlugin implements plugin.Plugin's net/rpc method pair: Server runs
// inside the worker subprocess and wraps a local worker.RemoteWorker (plus
// a Registry for resolving peer workers named in incoming requests);
// Client runs in the launching process and returns an RPCClient.
type WorkerPlugin struct {
	// Local and Registry are only needed on the Server side; a WorkerPlugin
	// used purely to Dispense a client can leave them nil.
	Local    worker.RemoteWorker
	Registry Registry

	// ID names the remote worker an RPCClient returned by Client should
	// report as its own, since net/rpc has no handshake step that would
	// otherwise communicate it.
	ID value.WorkerID
}

func (p *WorkerPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &RPCServer{Local: p.Local, Registry: p.Registry}, nil
}

func (p *WorkerPlugin) Client(broker *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return NewClient(p.ID, c), nil
}

// Plugins builds the plugin.PluginSet a launching process passes to
// plugin.ClientConfig and a served worker passes to plugin.ServeConfig.
func Plugins(local worker.RemoteWorker, registry Registry, id value.WorkerID) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		pluginMapKey: &WorkerPlugin{Local: local, Registry: registry, ID: id},
	}
}

// Serve runs forever as a worker subprocess's main loop, exposing local
// (typically an *internal/worker.Worker) over net/rpc using the shared
// Handshake. It never returns under normal operation; go-plugin's Serve
// calls os.Exit itself on shutdown.
func Serve(local worker.RemoteWorker, registry Registry, id value.WorkerID) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         Plugins(local, registry, id),
	})
}

// Dial launches (or attaches to) a worker subprocess via client and
// returns an RPCClient for it. client stays owned by the caller, which is
// responsible for eventually calling Kill on it.
func Dial(client *plugin.Client, id value.WorkerID) (*RPCClient, error) {
	rpcClient, err := client.Client()
	if err != nil {
		return nil, err
	}
	raw, err := rpcClient.Dispense(pluginMapKey)
	if err != nil {
		return nil, err
	}
	return raw.(*RPCClient), nil
}
