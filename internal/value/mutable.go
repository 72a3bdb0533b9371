package value

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Record and MutableList give AttrAssign/SubscriptAssign (and their
// augmented forms) something to mutate in place. Plain cty.Value is
// immutable by design, but the source language's objects are mutable and
// shared by reference: two holders of "the same" dict or list must observe
// each other's writes. Wrapping a Go map/slice behind a capsule, the same
// mechanism already used for Callable/Opaque/Iterator, gives exactly that
// reference semantics for free — no third-party container library models
// "mutable value with Python object identity" any better than a plain Go
// map or slice behind a pointer.
type Record struct {
	fields map[string]Value
}

var recordGoType = reflect.TypeOf(Record{})

// RecordType is the capsule type for mutable, string-keyed records
// standing in for Python dict-like objects and instances.
var RecordType = cty.Capsule("record", recordGoType)

// NewRecord creates a fresh mutable record seeded with fields.
func NewRecord(fields map[string]Value) Value {
	r := &Record{fields: make(map[string]Value, len(fields))}
	for k, v := range fields {
		r.fields[k] = v
	}
	return cty.CapsuleVal(RecordType, r)
}

// AsRecord returns v's underlying *Record, or nil if v does not hold one.
func AsRecord(v Value) *Record {
	if v.IsNull() || !v.Type().IsCapsuleType() {
		return nil
	}
	r, _ := v.EncapsulatedValue().(*Record)
	return r
}

// Get returns the named field.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Set assigns the named field, creating it if absent.
func (r *Record) Set(name string, v Value) {
	r.fields[name] = v
}

// Fields returns a snapshot copy of the record's current fields.
func (r *Record) Fields() map[string]Value {
	out := make(map[string]Value, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// MutableList is an ordered, index-addressable, in-place-mutable sequence
// standing in for Python list objects.
type MutableList struct {
	items []Value
}

var mutableListGoType = reflect.TypeOf(MutableList{})

// MutableListType is the capsule type for mutable lists.
var MutableListType = cty.Capsule("mutable_list", mutableListGoType)

// NewMutableList creates a fresh mutable list seeded with items.
func NewMutableList(items []Value) Value {
	l := &MutableList{items: append([]Value(nil), items...)}
	return cty.CapsuleVal(MutableListType, l)
}

// AsMutableList returns v's underlying *MutableList, or nil if v does not
// hold one.
func AsMutableList(v Value) *MutableList {
	if v.IsNull() || !v.Type().IsCapsuleType() {
		return nil
	}
	l, _ := v.EncapsulatedValue().(*MutableList)
	return l
}

// Len reports the number of items.
func (l *MutableList) Len() int { return len(l.items) }

// Get returns the item at index i.
func (l *MutableList) Get(i int) (Value, error) {
	if i < 0 || i >= len(l.items) {
		return Value{}, fmt.Errorf("value: list index %d out of range (len %d)", i, len(l.items))
	}
	return l.items[i], nil
}

// Set assigns the item at index i.
func (l *MutableList) Set(i int, v Value) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("value: list index %d out of range (len %d)", i, len(l.items))
	}
	l.items[i] = v
	return nil
}

// Items returns a snapshot copy of the list's current contents.
func (l *MutableList) Items() []Value {
	return append([]Value(nil), l.items...)
}
