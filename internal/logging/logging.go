// Package logging centralizes construction of the structured logger used
// throughout the engine, mirroring the teacher's pattern of a single
// process-wide hclog.Logger that components derive named, field-annotated
// children from rather than constructing their own.
package logging

import (
	"os"
	"strings"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
)

const envLevel = "PYDRON_LOG"

var root = sync.OnceValue(func() hclog.Logger {
	level := hclog.LevelFromString(strings.ToUpper(os.Getenv(envLevel)))
	if level == hclog.NoLevel {
		level = hclog.Warn
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            "pydron",
		Level:           level,
		Output:          os.Stderr,
		IncludeLocation: level <= hclog.Debug,
	})
})

// HCLogger returns the process-wide root logger. Callers should derive a
// named child with Named or With rather than logging directly against it.
func HCLogger() hclog.Logger {
	return root()
}

// Named returns a child of the root logger scoped to component, e.g.
// "traverser" or "pool".
func Named(component string) hclog.Logger {
	return root().Named(component)
}

// ForWorker returns a child logger annotated with the worker's nickname,
// matching the "#%s" nicename convention used to label workers in the
// configuration loader.
func ForWorker(nicename string) hclog.Logger {
	return root().Named("worker").With("worker", nicename)
}

// ForTick returns a child logger annotated with a tick string, used by the
// traverser and ready tracker when logging per-task decisions.
func ForTick(component, tickStr string) hclog.Logger {
	return root().Named(component).With("tick", tickStr)
}
