package value

import (
	"testing"

	"github.com/zclconf/go-cty/cty"
)

func TestScalarConstructors(t *testing.T) {
	if !Bool(true).Equals(cty.True).True() {
		t.Fatalf("Bool(true) did not equal cty.True")
	}
	if got := Int(42); !got.RawEquals(cty.NumberIntVal(42)) {
		t.Fatalf("Int(42) = %v", got)
	}
	if got := Str("hi"); got.AsString() != "hi" {
		t.Fatalf("Str(\"hi\") = %v", got)
	}
	if !IsNull(Null) {
		t.Fatalf("Null should be null")
	}
}

func TestCallableRoundTrip(t *testing.T) {
	c := Callable{Name: "f", ParamNames: []string{"x", "y"}}
	v := NewCallable(c)
	if v.Type() != CallableType {
		t.Fatalf("NewCallable did not produce a CallableType value")
	}
	got := AsCallable(v)
	if got.Name != "f" || len(got.ParamNames) != 2 {
		t.Fatalf("AsCallable round-trip mismatch: %+v", got)
	}
}

func TestOpaqueRoundTrip(t *testing.T) {
	v := NewOpaque("file-handle", 7)
	got := AsOpaque(v)
	if got.Label != "file-handle" || got.Data.(int) != 7 {
		t.Fatalf("AsOpaque round-trip mismatch: %+v", got)
	}
}

func TestCapsuleValuesFailMsgpackSerialization(t *testing.T) {
	v := NewOpaque("unserializable", nil)
	c, err := NewFromValue(v, true, false)
	if err != nil {
		t.Fatalf("NewFromValue: %v", err)
	}
	if c.PickleSupported() {
		t.Fatalf("expected a capsule-typed value to report PickleSupported() == false")
	}
	if _, err := c.Cucumber(); err != ErrNotSerializable {
		t.Fatalf("expected ErrNotSerializable, got %v", err)
	}
}
