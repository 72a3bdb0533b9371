package task

import (
	"context"
	"errors"

	"github.com/pydron/pydron/internal/value"
)

// Iter materializes an iterable input into a stateful iterator handle.
//
// Grounded on tasks.py's IterTask.
type Iter struct{}

func (t *Iter) InputPorts() []string  { return []string{"iterable"} }
func (t *Iter) OutputPorts() []string { return []string{"value"} }

func (t *Iter) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	elems, err := value.Elements(inputs["iterable"])
	if err != nil {
		return nil, err
	}
	return map[string]value.Value{"value": value.NewIterator(elems)}, nil
}

func (t *Iter) String() string { return "Iter()" }

// ErrStopIteration is returned by Next when the iterator is exhausted.
var ErrStopIteration = errors.New("task: iterator exhausted")

// Next advances an iterator by one element, producing both the element and
// the advanced iterator handle — it cannot reuse CallTask because the
// advanced iterator must never be serialized (it is always nosend) while
// the element it yields may well be, and CallTask has no way to tag one
// output differently from another.
//
// Grounded on tasks.py's NextTask.
type Next struct{}

func (t *Next) InputPorts() []string  { return []string{"iterator"} }
func (t *Next) OutputPorts() []string { return []string{"iterator", "value"} }

func (t *Next) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	it := value.AsIterator(inputs["iterator"])
	if !it.HasNext() {
		return nil, ErrStopIteration
	}
	elem, advanced := it.Next()
	return map[string]value.Value{"value": elem, "iterator": advanced}, nil
}

func (t *Next) String() string { return "Next()" }
