// Command pydron runs a compiled dataflow graph.
//
// Grounded on SPEC_FULL.md's PART B design for this command: a thin
// entrypoint using only the standard library's flag package (no
// mitchellh/cli, unlike the teacher's cmd/tofu/main.go - a single-graph
// dataflow runner has nothing resembling the teacher's sprawling
// subcommand surface, so pulling in a command framework for one verb
// would just be ceremony) and a single "run" subcommand that loads a
// pre-built graph literal and its input values and drives the graph to
// completion.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pydron/pydron/internal/rpcworker"
	"github.com/pydron/pydron/internal/worker"

	"github.com/pydron/pydron/internal/value"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}

	switch args[0] {
	case "run":
		fs := flag.NewFlagSet("run", flag.ContinueOnError)
		configPath := fs.String("config", "", "path to a pydron.conf; defaults to the usual search path, falling back to a single in-process worker")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "usage: pydron run [-config FILE] GRAPH-FILE")
			return 1
		}
		return runGraph(*configPath, fs.Arg(0))

	case "worker":
		// Runs as a go-plugin subprocess: a worker with no peers of its
		// own, serving evaluate/fetch/free/copy over net/rpc to whichever
		// process dialed it. Not invoked by "run" itself (see
		// DESIGN.md's cmd/pydron entry on why multicore groups there stay
		// in-process), but a real, independently usable entrypoint onto
		// internal/rpcworker.Serve.
		fs := flag.NewFlagSet("worker", flag.ContinueOnError)
		id := fs.String("id", "worker", "worker id to report to whatever dials this process")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		w := worker.New(value.WorkerID(*id), *id)
		rpcworker.Serve(w, rpcworker.NoPeers, value.WorkerID(*id))
		return 0

	default:
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pydron run [-config FILE] GRAPH-FILE")
	fmt.Fprintln(os.Stderr, "       pydron worker [-id NAME]")
}
