// Package value implements the tagged dynamic value model that flows along
// dataflow graph edges, together with the worker-local container and
// per-value transfer state machine described in the engine's value holder
// design.
//
// Runtime values are represented as github.com/zclconf/go-cty values
// rather than a hand-rolled variant type: cty.Value already distinguishes
// Null | Bool | Number | String(bytes) | List | Map | Set | Tuple, and its
// capsule type mechanism is exactly the "opaque handle" the design calls
// for truly unintrospectable values (callables, iterators, user opaque
// handles). Capsule values also happen to fail cty's own serialization
// helpers, which gives Callable/Iterator/Opaque values a free, correct
// pickle_supported=false without any special-casing in the container.
package value

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Value is the dynamic value type carried along graph edges.
type Value = cty.Value

// Null is the value used for Python's None.
var Null = cty.NullVal(cty.DynamicPseudoType)

// Bool, Int, Float, Str and Bytes construct tagged scalar values.
func Bool(b bool) Value   { return cty.BoolVal(b) }
func Int(i int64) Value   { return cty.NumberIntVal(i) }
func Float(f float64) Value { return cty.NumberFloatVal(f) }
func Str(s string) Value  { return cty.StringVal(s) }

// Bytes wraps a byte slice as a cty string value carrying raw bytes; the
// source language does not distinguish str/bytes at this layer, so this is
// a thin readability alias over Str.
func Bytes(b []byte) Value { return cty.StringVal(string(b)) }

// List, Tuple and Set build cty collection values from already-tagged
// elements. An empty slice yields the corresponding empty collection of
// dynamic element type.
func List(elems []Value) Value {
	if len(elems) == 0 {
		return cty.ListValEmpty(cty.DynamicPseudoType)
	}
	return cty.TupleVal(elems) // heterogeneous by default; see ListOf for homogeneous lists
}

// ListOf builds a homogeneous cty list, failing (panicking, as this is a
// task-catalog programming error rather than a runtime data error) if the
// elements do not share a type.
func ListOf(elems []Value) Value {
	if len(elems) == 0 {
		return cty.ListValEmpty(cty.DynamicPseudoType)
	}
	return cty.ListVal(elems)
}

func Tuple(elems []Value) Value {
	if len(elems) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(elems)
}

// Map builds a cty object value from named fields, used for both Python
// dict construction (string keys only, per the task catalog's DictTask)
// and for structured internal records.
func Map(fields map[string]Value) Value {
	if len(fields) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(fields)
}

// callableGoType, opaqueGoType and iteratorGoType are the reflect.Types
// capsule-wrapped by CallableType, OpaqueType and IteratorType below.
var (
	callableGoType = reflect.TypeOf(Callable{})
	opaqueGoType   = reflect.TypeOf(Opaque{})
	iteratorGoType = reflect.TypeOf(Iterator{})
)

// CallableType is the capsule type for FunctionDef-produced closures (see
// Callable).
var CallableType = cty.Capsule("callable", callableGoType)

// OpaqueType is the capsule type for runtime values that the engine must
// carry but never introspect, e.g. values produced by BuiltinCall for
// library objects with no cty representation.
var OpaqueType = cty.Capsule("opaque", opaqueGoType)

// IteratorType is the capsule type for the iterator handles produced by
// the Iter task; Next never mutates one but returns a new, advanced
// handle (see Iterator). Iterator
// values are always nosend: they fail cty serialization because Go
// reflect.Types behind a capsule are never introspectable, which is
// exactly the "never serialized" contract the task catalog requires of
// them.
var IteratorType = cty.Capsule("iterator", iteratorGoType)

// Callable is the payload of a CallableType value: a bound closure over a
// FunctionDef's body graph, produced at evaluation time and invoked by
// CallTask.
type Callable struct {
	Name       string
	ParamNames []string
	VarArg     string
	KwArg      string
	Defaults   []Value
	// BodyGraph is an opaque reference to the closure's body graph; it is
	// typed as interface{} here to avoid value importing graph, which
	// would create an import cycle (graph's Task interface evaluates to
	// value.Value). Concrete callers type-assert this back to *graph.Graph.
	BodyGraph interface{}
	// Scheduler is an opaque reference to whatever runs this closure's
	// body graph to completion, for the same import-cycle reason as
	// BodyGraph. Concrete callers type-assert this back to a concrete
	// scheduler interface (see package task's Scheduler).
	Scheduler interface{}
}

// NewCallable wraps a Callable as a tagged Value.
func NewCallable(c Callable) Value {
	return cty.CapsuleVal(CallableType, &c)
}

// AsCallable unwraps a CallableType value, panicking if v is not one —
// callers are expected to have checked Type() first, matching the
// teacher's convention of a hard failure on an engine-internal
// type-contract violation rather than a graceful error.
func AsCallable(v Value) *Callable {
	return v.EncapsulatedValue().(*Callable)
}

// Opaque is the payload of an OpaqueType value: a label plus an arbitrary
// Go value that the engine must ferry around without interpreting.
type Opaque struct {
	Label string
	Data  interface{}
}

func NewOpaque(label string, data interface{}) Value {
	return cty.CapsuleVal(OpaqueType, &Opaque{Label: label, Data: data})
}

func AsOpaque(v Value) *Opaque {
	return v.EncapsulatedValue().(*Opaque)
}

// IsNull reports whether v represents Python's None.
func IsNull(v Value) bool {
	return v.IsNull()
}

// Elements returns the elements of a list, set or tuple value in order, for
// tasks (Iter, DictTask/SetTask/ListTask construction helpers, In/NotIn) that
// need to walk a collection's contents rather than index into it.
func Elements(v Value) ([]Value, error) {
	ty := v.Type()
	if !ty.IsTupleType() && !ty.IsListType() && !ty.IsSetType() {
		return nil, fmt.Errorf("value: %s is not iterable", ty.FriendlyName())
	}
	return v.AsValueSlice(), nil
}

// Truthy applies Python's truthiness rule to v: None and the numeric/string/
// collection zero values are false, everything else (including capsule
// values, which carry no notion of emptiness) is true.
func Truthy(v Value) bool {
	if v.IsNull() {
		return false
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		return v.AsBigFloat().Sign() != 0
	case ty == cty.String:
		return v.AsString() != ""
	case ty.IsListType(), ty.IsTupleType(), ty.IsSetType(), ty.IsMapType(), ty.IsObjectType():
		return v.LengthInt() > 0
	default:
		return true
	}
}
