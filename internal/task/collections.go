package task

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/pydron/pydron/internal/value"
)

func indexedPorts(prefix string, n int) []string {
	ports := make([]string, n)
	for i := range ports {
		ports[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return ports
}

// Dict builds a mutable Record from NumItems key/value input pairs.
//
// Grounded on tasks.py's DictTask. The original builds an immutable
// Python dict; since the source language's dicts support in-place
// mutation (__setitem__), the Go port materializes a value.Record so
// AttrAssign-style mutation on the result behaves correctly.
type Dict struct {
	NumItems int
}

func (t *Dict) InputPorts() []string {
	return append(indexedPorts("key_", t.NumItems), indexedPorts("value_", t.NumItems)...)
}
func (t *Dict) OutputPorts() []string { return []string{"value"} }

func (t *Dict) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	fields := make(map[string]value.Value, t.NumItems)
	for i := 0; i < t.NumItems; i++ {
		k := inputs[fmt.Sprintf("key_%d", i)]
		v := inputs[fmt.Sprintf("value_%d", i)]
		if k.Type().FriendlyName() != "string" {
			return nil, fmt.Errorf("task: Dict keys must be strings, got %s", k.Type().FriendlyName())
		}
		fields[k.AsString()] = v
	}
	return map[string]value.Value{"value": value.NewRecord(fields)}, nil
}

func (t *Dict) String() string { return fmt.Sprintf("Dict(%d)", t.NumItems) }

// Set builds an immutable set from NumItems "value_i" inputs.
//
// Grounded on tasks.py's SetTask.
type Set struct {
	NumItems int
}

func (t *Set) InputPorts() []string  { return indexedPorts("value_", t.NumItems) }
func (t *Set) OutputPorts() []string { return []string{"value"} }

func (t *Set) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	elems := make([]value.Value, t.NumItems)
	for i := 0; i < t.NumItems; i++ {
		elems[i] = inputs[fmt.Sprintf("value_%d", i)]
	}
	if t.NumItems == 0 {
		return map[string]value.Value{"value": cty.SetValEmpty(cty.DynamicPseudoType)}, nil
	}
	return map[string]value.Value{"value": cty.SetVal(elems)}, nil
}

func (t *Set) String() string { return fmt.Sprintf("Set(%d)", t.NumItems) }

// List builds a mutable list from NumItems "value_i" inputs.
//
// Grounded on tasks.py's ListTask. Materialized as a value.MutableList
// since the source language's lists support in-place item assignment.
type List struct {
	NumItems int
}

func (t *List) InputPorts() []string  { return indexedPorts("value_", t.NumItems) }
func (t *List) OutputPorts() []string { return []string{"value"} }

func (t *List) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	elems := make([]value.Value, t.NumItems)
	for i := 0; i < t.NumItems; i++ {
		elems[i] = inputs[fmt.Sprintf("value_%d", i)]
	}
	return map[string]value.Value{"value": value.NewMutableList(elems)}, nil
}

func (t *List) String() string { return fmt.Sprintf("List(%d)", t.NumItems) }

// Tuple builds an immutable tuple from NumItems "value_i" inputs.
//
// Grounded on tasks.py's TupleTask.
type Tuple struct {
	NumItems int
}

func (t *Tuple) InputPorts() []string  { return indexedPorts("value_", t.NumItems) }
func (t *Tuple) OutputPorts() []string { return []string{"value"} }

func (t *Tuple) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	elems := make([]value.Value, t.NumItems)
	for i := 0; i < t.NumItems; i++ {
		elems[i] = inputs[fmt.Sprintf("value_%d", i)]
	}
	return map[string]value.Value{"value": value.Tuple(elems)}, nil
}

func (t *Tuple) String() string { return fmt.Sprintf("Tuple(%d)", t.NumItems) }
