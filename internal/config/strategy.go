package config

import (
	"fmt"

	"github.com/pydron/pydron/internal/pool"
	"github.com/pydron/pydron/internal/value"
)

// BuildStrategy constructs the scheduling strategy named by the config,
// wrapped in pool.VerifyStrategy the way create_scheduler always wraps
// TrivialSchedulingStrategy in VerifySchedulingStrategy regardless of
// which strategy was chosen.
func BuildStrategy(c *Config, workers []value.WorkerID, master value.WorkerID) (pool.Strategy, error) {
	var inner pool.Strategy
	switch c.SchedulerName() {
	case "trivial":
		inner = pool.NewTrivialStrategy(workers, master)
	default:
		return nil, fmt.Errorf("config: unsupported scheduler %q", c.SchedulerName())
	}
	return &pool.VerifyStrategy{Inner: inner, MasterWorker: master}, nil
}
