package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/value"
)

// AttrAssign sets a named field on a mutable Record "object" to "value"
// and produces no outputs.
//
// Grounded on tasks.py's AttrAssign.
type AttrAssign struct {
	Attribute string
}

func (t *AttrAssign) InputPorts() []string  { return []string{"object", "value"} }
func (t *AttrAssign) OutputPorts() []string { return nil }

func (t *AttrAssign) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	rec := value.AsRecord(inputs["object"])
	if rec == nil {
		return nil, fmt.Errorf("task: AttrAssign target is not a record")
	}
	rec.Set(t.Attribute, inputs["value"])
	return map[string]value.Value{}, nil
}

func (t *AttrAssign) String() string { return fmt.Sprintf("AttrAssign(%s)", t.Attribute) }

// SubscriptAssign sets "object"["slice"] = "value" on a mutable list-like
// container and produces no outputs.
//
// Grounded on tasks.py's SubscriptAssign.
type SubscriptAssign struct{}

func (t *SubscriptAssign) InputPorts() []string  { return []string{"object", "slice", "value"} }
func (t *SubscriptAssign) OutputPorts() []string { return nil }

func (t *SubscriptAssign) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	list := value.AsMutableList(inputs["object"])
	if list == nil {
		return nil, fmt.Errorf("task: SubscriptAssign target is not a mutable list")
	}
	idx, _ := inputs["slice"].AsBigFloat().Int64()
	if err := list.Set(int(idx), inputs["value"]); err != nil {
		return nil, err
	}
	return map[string]value.Value{}, nil
}

func (t *SubscriptAssign) String() string { return "SubscriptAssign()" }

// Unpack destructures "value" into ElemCount positionally numbered
// outputs, consuming it as an iterable.
//
// Grounded on tasks.py's UnpackTask.
type Unpack struct {
	ElemCount int
}

func (t *Unpack) InputPorts() []string { return []string{"value"} }

func (t *Unpack) OutputPorts() []string {
	ports := make([]string, t.ElemCount)
	for i := range ports {
		ports[i] = fmt.Sprintf("%d", i)
	}
	return ports
}

func (t *Unpack) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	elems, err := value.Elements(inputs["value"])
	if err != nil {
		return nil, err
	}
	if len(elems) != t.ElemCount {
		return nil, fmt.Errorf("task: Unpack expected %d elements, got %d", t.ElemCount, len(elems))
	}
	out := make(map[string]value.Value, t.ElemCount)
	for i, e := range elems {
		out[fmt.Sprintf("%d", i)] = e
	}
	return out, nil
}

func (t *Unpack) String() string { return fmt.Sprintf("Unpack(%d)", t.ElemCount) }

// AugAssign computes target op= value and returns the new value, without
// touching any mutable storage itself — the caller (generated for a bare
// name target) is responsible for feeding the result back around.
//
// Grounded on tasks.py's AugAssignTask.
type AugAssign struct {
	Op Operator
}

func (t *AugAssign) InputPorts() []string  { return []string{"target", "value"} }
func (t *AugAssign) OutputPorts() []string { return []string{"value"} }

func (t *AugAssign) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	result, err := BinOp(inputs["target"], inputs["value"], t.Op)
	if err != nil {
		return nil, err
	}
	return map[string]value.Value{"value": result}, nil
}

func (t *AugAssign) String() string { return fmt.Sprintf("AugAssign(%s)", t.Op) }

// AugAttrAssign computes target.attribute op= value in place on a mutable
// Record and produces no outputs.
//
// Grounded on tasks.py's AugAttrAssignTask.
type AugAttrAssign struct {
	Op        Operator
	Attribute string
}

func (t *AugAttrAssign) InputPorts() []string  { return []string{"target", "value"} }
func (t *AugAttrAssign) OutputPorts() []string { return nil }

func (t *AugAttrAssign) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	rec := value.AsRecord(inputs["target"])
	if rec == nil {
		return nil, fmt.Errorf("task: AugAttrAssign target is not a record")
	}
	current, ok := rec.Get(t.Attribute)
	if !ok {
		return nil, fmt.Errorf("task: AugAttrAssign target has no attribute %q", t.Attribute)
	}
	updated, err := BinOp(current, inputs["value"], t.Op)
	if err != nil {
		return nil, err
	}
	rec.Set(t.Attribute, updated)
	return map[string]value.Value{}, nil
}

func (t *AugAttrAssign) String() string {
	return fmt.Sprintf("AugAttrAssign(%s, %s)", t.Op, t.Attribute)
}

// AugSubscriptAssign computes target[slice] op= value in place on a
// mutable list and produces no outputs.
//
// Grounded on tasks.py's AugSubscriptAssignTask. tasks.py there reads
// "slice" off the bare name "input" rather than the "inputs" parameter —
// a bug in the original that would raise NameError on every call; this
// port reads it off "inputs" like every other task, per the RaiseTask fix
// below.
type AugSubscriptAssign struct {
	Op Operator
}

func (t *AugSubscriptAssign) InputPorts() []string  { return []string{"target", "slice", "value"} }
func (t *AugSubscriptAssign) OutputPorts() []string { return nil }

func (t *AugSubscriptAssign) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	list := value.AsMutableList(inputs["target"])
	if list == nil {
		return nil, fmt.Errorf("task: AugSubscriptAssign target is not a mutable list")
	}
	idx, _ := inputs["slice"].AsBigFloat().Int64()
	current, err := list.Get(int(idx))
	if err != nil {
		return nil, err
	}
	updated, err := BinOp(current, inputs["value"], t.Op)
	if err != nil {
		return nil, err
	}
	if err := list.Set(int(idx), updated); err != nil {
		return nil, err
	}
	return map[string]value.Value{}, nil
}

func (t *AugSubscriptAssign) String() string { return fmt.Sprintf("AugSubscriptAssign(%s)", t.Op) }

// Raise surfaces its "type"/"inst"/"tback" inputs as a Go error rather
// than a Python 2 three-argument raise statement.
//
// Grounded on tasks.py's RaiseTask. tasks.py there reads "inst" off the
// bare name "input" rather than the "inputs" parameter — also fixed here,
// reading both off "inputs".
type Raise struct{}

func (t *Raise) InputPorts() []string  { return []string{"type", "inst", "tback"} }
func (t *Raise) OutputPorts() []string { return nil }

func (t *Raise) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	typ := inputs["type"]
	inst := inputs["inst"]
	if !value.IsNull(inst) {
		return nil, fmt.Errorf("%s: %s", typ.GoString(), inst.GoString())
	}
	return nil, fmt.Errorf("%s", typ.GoString())
}

func (t *Raise) String() string { return "Raise()" }
