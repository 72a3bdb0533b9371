package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/value"
)

// Repr renders "value" as a Go-syntax string, the closest stand-in for
// Python's repr() available without reimplementing CPython's formatter.
//
// Grounded on tasks.py's ReprTask.
type Repr struct{}

func (t *Repr) InputPorts() []string  { return []string{"value"} }
func (t *Repr) OutputPorts() []string { return []string{"value"} }

func (t *Repr) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	return map[string]value.Value{"value": value.Str(inputs["value"].GoString())}, nil
}

func (t *Repr) String() string { return "Repr()" }

// Attribute reads a named field off a Record "object".
//
// Grounded on tasks.py's AttributeTask.
type Attribute struct {
	Attribute string
}

func (t *Attribute) InputPorts() []string  { return []string{"object"} }
func (t *Attribute) OutputPorts() []string { return []string{"value"} }

func (t *Attribute) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	rec := value.AsRecord(inputs["object"])
	if rec == nil {
		return nil, fmt.Errorf("task: Attribute target is not a record")
	}
	v, ok := rec.Get(t.Attribute)
	if !ok {
		return nil, fmt.Errorf("task: record has no attribute %q", t.Attribute)
	}
	return map[string]value.Value{"value": v}, nil
}

func (t *Attribute) String() string { return fmt.Sprintf("Attribute(%s)", t.Attribute) }

// Subscript reads "object"["slice"], supporting both mutable lists and
// plain index/key collections (list, tuple, Record-by-string-key).
//
// Grounded on tasks.py's SubscriptTask.
type Subscript struct{}

func (t *Subscript) InputPorts() []string  { return []string{"object", "slice"} }
func (t *Subscript) OutputPorts() []string { return []string{"value"} }

func (t *Subscript) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	obj := inputs["object"]
	sl := inputs["slice"]

	if list := value.AsMutableList(obj); list != nil {
		idx, _ := sl.AsBigFloat().Int64()
		v, err := list.Get(int(idx))
		if err != nil {
			return nil, err
		}
		return map[string]value.Value{"value": v}, nil
	}
	if rec := value.AsRecord(obj); rec != nil {
		v, ok := rec.Get(sl.AsString())
		if !ok {
			return nil, fmt.Errorf("task: record has no key %q", sl.AsString())
		}
		return map[string]value.Value{"value": v}, nil
	}

	elems, err := value.Elements(obj)
	if err != nil {
		return nil, fmt.Errorf("task: object is not subscriptable: %w", err)
	}
	idx, _ := sl.AsBigFloat().Int64()
	if idx < 0 {
		idx += int64(len(elems))
	}
	if idx < 0 || int(idx) >= len(elems) {
		return nil, fmt.Errorf("task: index %d out of range (len %d)", idx, len(elems))
	}
	return map[string]value.Value{"value": elems[idx]}, nil
}

func (t *Subscript) String() string { return "Subscript()" }

// BuiltinCall invokes a fixed Go function with NumArgs positional inputs.
//
// Grounded on tasks.py's BuiltinCallTask.
type BuiltinCall struct {
	Name     string
	Func     func([]value.Value) (value.Value, error)
	NumArgs  int
}

func (t *BuiltinCall) InputPorts() []string  { return indexedPorts("arg", t.NumArgs) }
func (t *BuiltinCall) OutputPorts() []string { return []string{"value"} }

func (t *BuiltinCall) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	args := make([]value.Value, t.NumArgs)
	for i := 0; i < t.NumArgs; i++ {
		args[i] = inputs[fmt.Sprintf("arg%d", i)]
	}
	v, err := t.Func(args)
	if err != nil {
		return nil, err
	}
	return map[string]value.Value{"value": v}, nil
}

func (t *BuiltinCall) String() string { return fmt.Sprintf("BuiltinCall(%s, %d)", t.Name, t.NumArgs) }
