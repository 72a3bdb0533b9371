package value

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pydron/pydron/internal/tick"
)

// ID uniquely identifies a value passed through the dataflow graph. For
// debugging and logging we also carry the endpoint that produced it and an
// optional human-readable name (usually the name of the corresponding
// variable in the source program). Equality and hashing are by the
// underlying uuid alone, exactly as in the teacher's ValueId.
type ID struct {
	id       uuid.UUID
	Tick     tick.Tick
	Port     string
	Nicename string
}

// NewID mints a fresh, process-unique value id attributed to the given
// producing endpoint.
func NewID(t tick.Tick, port string) ID {
	return ID{id: uuid.New(), Tick: t, Port: port}
}

// NewNamedID is like NewID but also attaches a human-readable label, e.g.
// the source variable name.
func NewNamedID(t tick.Tick, port, nicename string) ID {
	return ID{id: uuid.New(), Tick: t, Port: port, Nicename: nicename}
}

// Key returns a string that uniquely identifies this value id, suitable
// for use as a map key. ID itself embeds a Tick, which holds slices and so
// is not a valid, comparable Go map key — every package that indexes
// per-value state (the worker's value map, a holder table) must key on
// Key(), not on ID itself, matching the convention established in package
// graph for Tick/Endpoint.
func (i ID) Key() string {
	return i.id.String()
}

func (i ID) String() string {
	if i.Nicename != "" {
		return fmt.Sprintf("ValueID(%s, %s, %s, %s)", i.id, i.Tick, i.Port, i.Nicename)
	}
	return fmt.Sprintf("ValueID(%s, %s, %s)", i.id, i.Tick, i.Port)
}

// WorkerID identifies a worker for the purposes of addressing value
// replicas. It is intentionally a plain comparable value rather than a
// pointer to a worker object: value.Ref needs to track which workers hold
// a replica without creating an import cycle between the value and worker
// packages.
type WorkerID string
