package task

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pydron/pydron/internal/value"
)

func TestBinOpArithmetic(t *testing.T) {
	cases := []struct {
		name        string
		left, right value.Value
		op          Operator
		want        value.Value
	}{
		{"int add", value.Int(2), value.Int(3), Add, value.Int(5)},
		{"int sub", value.Int(5), value.Int(3), Sub, value.Int(2)},
		{"int mult", value.Int(4), value.Int(3), Mult, value.Int(12)},
		{"float div", value.Int(7), value.Int(2), Div, value.Float(3.5)},
		{"floor div positive", value.Int(7), value.Int(2), FloorDiv, value.Int(3)},
		{"floor div negative", value.Int(-7), value.Int(2), FloorDiv, value.Int(-4)},
		{"mod positive", value.Int(7), value.Int(3), Mod, value.Int(1)},
		{"mod negative", value.Int(-7), value.Int(3), Mod, value.Int(2)},
		{"lshift", value.Int(1), value.Int(4), LShift, value.Int(16)},
		{"rshift", value.Int(16), value.Int(2), RShift, value.Int(4)},
		{"bitor", value.Int(0b0100), value.Int(0b0010), BitOr, value.Int(0b0110)},
		{"bitand", value.Int(0b0110), value.Int(0b0010), BitAnd, value.Int(0b0010)},
		{"bitxor", value.Int(0b0110), value.Int(0b0010), BitXor, value.Int(0b0100)},
		{"string concat", value.Str("foo"), value.Str("bar"), Add, value.Str("foobar")},
		{"lt", value.Int(1), value.Int(2), Lt, value.Bool(true)},
		{"gte false", value.Int(1), value.Int(2), GtE, value.Bool(false)},
		{"eq", value.Int(1), value.Int(1), Eq, value.Bool(true)},
		{"string eq", value.Str("a"), value.Str("a"), Eq, value.Bool(true)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := BinOp(c.left, c.right, c.op)
			if err != nil {
				t.Fatalf("BinOp: %v", err)
			}
			if !got.RawEquals(c.want) {
				t.Fatalf("BinOp(%v, %v, %s) = %s, want %s", c.left, c.right, c.op, got.GoString(), c.want.GoString())
			}
		})
	}
}

func TestBinOpDivisionByZero(t *testing.T) {
	if _, err := BinOp(value.Int(1), value.Int(0), Div); err == nil {
		t.Fatalf("expected division by zero error")
	}
}

func TestBinOpIn(t *testing.T) {
	list := value.List([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	got, err := BinOp(value.Int(2), list, In)
	if err != nil {
		t.Fatalf("BinOp In: %v", err)
	}
	if !got.True() {
		t.Fatalf("expected 2 in [1,2,3] to be true")
	}

	got, err = BinOp(value.Int(5), list, NotIn)
	if err != nil {
		t.Fatalf("BinOp NotIn: %v", err)
	}
	if !got.True() {
		t.Fatalf("expected 5 not in [1,2,3] to be true")
	}
}

func TestUnaryOp(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		op   UnaryOperator
		want value.Value
	}{
		{"not true", value.Bool(true), Not, value.Bool(false)},
		{"not zero", value.Int(0), Not, value.Bool(true)},
		{"usub", value.Int(5), USub, value.Int(-5)},
		{"uadd", value.Int(5), UAdd, value.Int(5)},
		{"invert", value.Int(0), Invert, value.Int(-1)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := UnaryOp(c.v, c.op)
			if err != nil {
				t.Fatalf("UnaryOp: %v", err)
			}
			if !got.RawEquals(c.want) {
				t.Fatalf("UnaryOp(%v, %s) = %s, want %s", c.v, c.op, got.GoString(), c.want.GoString())
			}
		})
	}
}

func TestBinOpRejectsMismatchedTypes(t *testing.T) {
	_, err := BinOp(value.Str("a"), value.Int(1), Add)
	if err == nil {
		t.Fatalf("expected an error mixing string and number operands")
	}
}

func TestBinOpCmpDiagnostic(t *testing.T) {
	// sanity check that go-cmp itself treats equal cty values as equal,
	// since tests elsewhere in this module lean on it for structural
	// comparison.
	a := value.Int(5)
	b := value.Int(5)
	if diff := cmp.Diff(a.GoString(), b.GoString()); diff != "" {
		t.Fatalf("unexpected diff (-want +got):\n%s", diff)
	}
}
