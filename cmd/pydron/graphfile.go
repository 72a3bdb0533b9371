package main

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/task"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// The original system never serializes a graph to disk at all: graphs are
// always built in-memory by pydron's compiler front end
// (pydron/translation) and handed straight to the interpreter. This file
// format has no source to port from; it is a deliberately minimal literal
// format covering just the task kinds with plain scalar fields
// (Const/BinOp/UnaryOp), enough to drive a graph through this command's
// "run" subcommand without the full compiler front end this port does not
// implement. See DESIGN.md.

// graphFile is the on-disk JSON shape loaded by "pydron run".
type graphFile struct {
	Inputs      map[string]json.RawMessage `json:"inputs"`
	Tasks       []taskSpec                 `json:"tasks"`
	Connections []connSpec                 `json:"connections"`
}

type taskSpec struct {
	Tick       []int                  `json:"tick"`
	Kind       string                 `json:"kind"`
	Op         string                 `json:"op,omitempty"`
	Value      json.RawMessage        `json:"value,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

type connSpec struct {
	SourceTick interface{} `json:"source_tick"`
	SourcePort string      `json:"source_port"`
	DestTick   interface{} `json:"dest_tick"`
	DestPort   string      `json:"dest_port"`
}

// decodeValue unmarshals one graph-literal value. Only the plain JSON
// scalars and arrays of them (decoded as lists) are supported - this format has
// no original source to ground a richer encoding against (see the package
// doc above), and internal/value's own worker-to-worker wire format
// already uses msgpack (internal/value/container.go), so there is no
// reason to reach for a second, heavier value-serialization library just
// for this file's bool/number/string/null/list literals.
func decodeValue(raw json.RawMessage) (value.Value, error) {
	if len(raw) == 0 {
		return value.Null, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return value.Null, err
	}
	return goToValue(v)
}

func goToValue(v interface{}) (value.Value, error) {
	switch x := v.(type) {
	case nil:
		return value.Null, nil
	case bool:
		return value.Bool(x), nil
	case float64:
		return value.Float(x), nil
	case string:
		return value.Str(x), nil
	case []interface{}:
		elems := make([]value.Value, len(x))
		for i, e := range x {
			ev, err := goToValue(e)
			if err != nil {
				return value.Null, err
			}
			elems[i] = ev
		}
		return value.List(elems), nil
	default:
		return value.Null, fmt.Errorf("graphfile: unsupported JSON value %v (%T)", v, v)
	}
}

// encodeValue renders a live value.Value back to a plain JSON scalar, or
// a JSON array for lists and tuples, the inverse of decodeValue, used to
// print a graph's outputs.
func encodeValue(v value.Value) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch {
	case v.Type() == cty.Bool:
		return v.True(), nil
	case v.Type() == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case v.Type() == cty.String:
		return v.AsString(), nil
	case v.Type().IsTupleType(), v.Type().IsListType():
		out := []interface{}{}
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			encoded, err := encodeValue(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("graphfile: cannot encode value of type %s as JSON", v.Type().FriendlyName())
	}
}

func decodeTick(raw interface{}) (tick.Tick, error) {
	switch v := raw.(type) {
	case string:
		switch v {
		case "start":
			return tick.Start, nil
		case "final":
			return tick.Final, nil
		}
		return tick.Tick{}, fmt.Errorf("graphfile: unknown tick sentinel %q", v)
	case []int:
		return tick.New(v...), nil
	case []interface{}:
		elems := make([]int, len(v))
		for i, e := range v {
			n, ok := e.(float64)
			if !ok {
				return tick.Tick{}, fmt.Errorf("graphfile: tick element %v is not a number", e)
			}
			elems[i] = int(n)
		}
		return tick.New(elems...), nil
	default:
		return tick.Tick{}, fmt.Errorf("graphfile: unsupported tick value %v (%T)", raw, raw)
	}
}

func buildTask(spec taskSpec) (graph.Task, error) {
	switch spec.Kind {
	case "const":
		v, err := decodeValue(spec.Value)
		if err != nil {
			return nil, fmt.Errorf("graphfile: task at tick %v: decoding const value: %w", spec.Tick, err)
		}
		return task.NewConst(v), nil
	case "binop":
		return &task.BinOpTask{Op: task.Operator(spec.Op)}, nil
	case "unaryop":
		return &task.UnaryOpTask{Op: task.UnaryOperator(spec.Op)}, nil
	default:
		return nil, fmt.Errorf("graphfile: unsupported task kind %q", spec.Kind)
	}
}

// loadGraph parses raw into a graph.Graph and its Start-bound input
// values, ready to pass to traverser.Traverser.Execute.
func loadGraph(raw []byte) (*graph.Graph, map[string]value.Value, error) {
	var gf graphFile
	if err := json.Unmarshal(raw, &gf); err != nil {
		return nil, nil, fmt.Errorf("graphfile: parsing graph file: %w", err)
	}

	g := graph.New()
	for _, spec := range gf.Tasks {
		t, err := buildTask(spec)
		if err != nil {
			return nil, nil, err
		}
		if err := g.AddTask(tick.New(spec.Tick...), t, spec.Properties); err != nil {
			return nil, nil, fmt.Errorf("graphfile: adding task at tick %v: %w", spec.Tick, err)
		}
	}
	for _, c := range gf.Connections {
		sourceTick, err := decodeTick(c.SourceTick)
		if err != nil {
			return nil, nil, err
		}
		destTick, err := decodeTick(c.DestTick)
		if err != nil {
			return nil, nil, err
		}
		source := graph.Endpoint{Tick: sourceTick, Port: c.SourcePort}
		dest := graph.Endpoint{Tick: destTick, Port: c.DestPort}
		if err := g.Connect(source, dest); err != nil {
			return nil, nil, fmt.Errorf("graphfile: connecting %s to %s: %w", source, dest, err)
		}
	}

	inputs := make(map[string]value.Value, len(gf.Inputs))
	for port, raw := range gf.Inputs {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("graphfile: decoding input %q: %w", port, err)
		}
		inputs[port] = v
	}
	return g, inputs, nil
}
