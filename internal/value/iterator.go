package value

import (
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Iterator is the payload behind IteratorType: a snapshot of an iteration
// cursor over a materialized sequence of values.
//
// The source language's iterators are destructively mutated by next(); the
// engine models that as producing a fresh, immutable Iterator snapshot on
// every advance rather than mutating one in place, matching the task
// catalog's contract that Next returns both the next value and "the
// advanced iterator" as a new output rather than mutating its input.
type Iterator struct {
	items []Value
	pos   int
}

var iteratorStructType = reflect.TypeOf(Iterator{})

// NewIterator wraps items as a fresh iterator positioned before the first
// element.
func NewIterator(items []Value) Value {
	return cty.CapsuleVal(IteratorType, &Iterator{items: items})
}

// HasNext reports whether Next would yield another element.
func (it *Iterator) HasNext() bool {
	return it.pos < len(it.items)
}

// Next returns the next element and a new Iterator value snapshotting the
// advanced position. It panics if HasNext is false, matching the task
// catalog's contract that For/While only call Next after checking
// HasNext.
func (it *Iterator) Next() (Value, Value) {
	if !it.HasNext() {
		panic("value: Next called on an exhausted iterator")
	}
	elem := it.items[it.pos]
	advanced := &Iterator{items: it.items, pos: it.pos + 1}
	return elem, cty.CapsuleVal(IteratorType, advanced)
}

// AsIterator unwraps an IteratorType value.
func AsIterator(v Value) *Iterator {
	return v.EncapsulatedValue().(*Iterator)
}
