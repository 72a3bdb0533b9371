package value

import "testing"

func TestIteratorAdvancesWithoutMutatingPriorSnapshot(t *testing.T) {
	v0 := NewIterator([]Value{Int(1), Int(2), Int(3)})
	it0 := AsIterator(v0)
	if !it0.HasNext() {
		t.Fatalf("fresh iterator should have a next element")
	}

	elem, v1 := it0.Next()
	if !elem.RawEquals(Int(1)) {
		t.Fatalf("first element = %v, want 1", elem)
	}

	// The original snapshot must still report the same position: Next
	// returns an advanced copy rather than mutating the receiver.
	if !it0.HasNext() {
		t.Fatalf("original iterator snapshot must be unaffected by Next")
	}

	it1 := AsIterator(v1)
	elem2, v2 := it1.Next()
	if !elem2.RawEquals(Int(2)) {
		t.Fatalf("second element = %v, want 2", elem2)
	}

	it2 := AsIterator(v2)
	_, v3 := it2.Next()
	it3 := AsIterator(v3)
	if it3.HasNext() {
		t.Fatalf("iterator should be exhausted after consuming all elements")
	}
}

func TestIteratorNextPanicsWhenExhausted(t *testing.T) {
	v := NewIterator(nil)
	it := AsIterator(v)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Next on an exhausted iterator to panic")
		}
	}()
	it.Next()
}
