package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pydron/pydron/internal/config"
	"github.com/pydron/pydron/internal/dispatch"
	"github.com/pydron/pydron/internal/pool"
	"github.com/pydron/pydron/internal/traverser"
	"github.com/pydron/pydron/internal/value"
	"github.com/pydron/pydron/internal/worker"
)

const masterWorkerID = value.WorkerID("master")

// loadConfig resolves a pydron.conf the way internal/config.Locate does,
// but a graph this small is useful to run without ever writing one: a
// missing config file falls back to a single in-process multicore group
// instead of failing outright.
func loadConfig(explicit string) (*config.Config, error) {
	path := explicit
	if path == "" {
		found, err := config.Locate("")
		if err != nil {
			return &config.Config{
				Workers: []config.WorkerGroup{{Type: config.LauncherMulticore, Cores: 1}},
			}, nil
		}
		path = found
	}
	return config.Load(path)
}

// buildPool spins up one in-process worker.Worker per configured core and
// registers them, plus the local master worker, with a fresh pool.Pool.
//
// Every worker-group type parses through internal/config's schema the
// same way a real deployment's would; only multicore groups actually
// start anything here; ssh/cloud groups are validated (see
// internal/config.SSHLauncher/CloudLauncher) and then skipped, since this
// command has no real remote process launcher wired to it (see
// DESIGN.md's cmd/pydron entry).
func buildPool(cfg *config.Config, master *worker.Worker) (*pool.Pool, []value.WorkerID, error) {
	p, err := pool.New("", 0)
	if err != nil {
		return nil, nil, err
	}
	if err := p.AddWorker(context.Background(), master, "1.0.0"); err != nil {
		return nil, nil, err
	}

	var ids []value.WorkerID
	for gi, group := range cfg.Workers {
		launcher, err := config.NewLauncher(group)
		if err != nil {
			return nil, nil, err
		}
		switch v := launcher.(type) {
		case *config.SSHLauncher:
			if err := v.Validate(); err != nil {
				return nil, nil, err
			}
			continue
		case *config.CloudLauncher:
			if err := v.Validate(); err != nil {
				return nil, nil, err
			}
			continue
		}

		cores := group.Cores
		if cores <= 0 {
			cores = 1
		}
		for c := 0; c < cores; c++ {
			id := value.WorkerID(fmt.Sprintf("worker-%d-%d", gi, c))
			w := worker.New(id, string(id))
			if err := p.AddWorker(context.Background(), w, "1.0.0"); err != nil {
				return nil, nil, err
			}
			ids = append(ids, id)
		}
	}
	return p, ids, nil
}

// runGraph loads configPath and graphPath, executes the graph to
// completion against an in-process worker pool, and prints the Final
// tick's bound values to stdout as JSON. It returns the process exit code
// spec.md's EXTERNAL INTERFACES section commits to: 0 on success, 1 on
// any failure to load, schedule, or evaluate the graph.
func runGraph(configPath, graphPath string) int {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pydron: loading configuration: %s\n", err)
		return 1
	}

	raw, err := os.ReadFile(graphPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pydron: reading graph file: %s\n", err)
		return 1
	}
	g, inputs, err := loadGraph(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pydron: %s\n", err)
		return 1
	}

	master := worker.New(masterWorkerID, "master")
	p, workerIDs, err := buildPool(cfg, master)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pydron: building worker pool: %s\n", err)
		return 1
	}
	defer p.Stop(context.Background())

	strategy, err := config.BuildStrategy(cfg, workerIDs, masterWorkerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pydron: building scheduling strategy: %s\n", err)
		return 1
	}

	m := dispatch.NewMaster(p, strategy, master)
	trav := traverser.New(nil, m.Ready)

	outputs, err := trav.Execute(context.Background(), g, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pydron: executing graph: %s\n", err)
		return 1
	}

	encoded := make(map[string]interface{}, len(outputs))
	for port, v := range outputs {
		ev, err := encodeValue(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pydron: encoding output %q: %s\n", port, err)
			return 1
		}
		encoded[port] = ev
	}
	out, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "pydron: encoding outputs: %s\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}
