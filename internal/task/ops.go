package task

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"

	"github.com/pydron/pydron/internal/value"
)

// Operator identifies a binary operator by the same spelling Python's ast
// module uses for the corresponding node class.
//
// Grounded on utils.py's binop/augassign dispatch tables.
type Operator string

const (
	Add      Operator = "Add"
	Sub      Operator = "Sub"
	Mult     Operator = "Mult"
	Div      Operator = "Div"
	Mod      Operator = "Mod"
	Pow      Operator = "Pow"
	LShift   Operator = "LShift"
	RShift   Operator = "RShift"
	BitOr    Operator = "BitOr"
	BitXor   Operator = "BitXor"
	BitAnd   Operator = "BitAnd"
	FloorDiv Operator = "FloorDiv"

	Eq    Operator = "Eq"
	NotEq Operator = "NotEq"
	Lt    Operator = "Lt"
	LtE   Operator = "LtE"
	Gt    Operator = "Gt"
	GtE   Operator = "GtE"
	Is    Operator = "Is"
	IsNot Operator = "IsNot"
	In    Operator = "In"
	NotIn Operator = "NotIn"
)

// UnaryOperator identifies a unary operator, grounded on utils.py's unaryop.
type UnaryOperator string

const (
	Invert UnaryOperator = "Invert"
	Not    UnaryOperator = "Not"
	UAdd   UnaryOperator = "UAdd"
	USub   UnaryOperator = "USub"
)

func membership(left, right value.Value) (bool, error) {
	elems, err := value.Elements(right)
	if err != nil {
		return false, fmt.Errorf("task: right operand of 'in' is not iterable: %w", err)
	}
	for _, e := range elems {
		if e.RawEquals(left) {
			return true, nil
		}
	}
	return false, nil
}

// BinOp evaluates left op right, following Python operator semantics for
// the numeric and string types the dataflow language actually exposes.
//
// Grounded on utils.py's binop.
func BinOp(left, right value.Value, op Operator) (value.Value, error) {
	switch op {
	case Eq:
		return value.Bool(left.RawEquals(right)), nil
	case NotEq:
		return value.Bool(!left.RawEquals(right)), nil
	case Is:
		return value.Bool(left.RawEquals(right)), nil
	case IsNot:
		return value.Bool(!left.RawEquals(right)), nil
	case In:
		ok, err := membership(left, right)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(ok), nil
	case NotIn:
		ok, err := membership(left, right)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(!ok), nil
	}

	if left.Type() == cty.String && right.Type() == cty.String {
		switch op {
		case Add:
			return value.Str(left.AsString() + right.AsString()), nil
		case Eq, NotEq, Lt, LtE, Gt, GtE:
			return compareStrings(left.AsString(), right.AsString(), op)
		default:
			return value.Null, fmt.Errorf("task: unsupported operator %s on strings", op)
		}
	}

	if left.Type() != cty.Number || right.Type() != cty.Number {
		return value.Null, fmt.Errorf("task: operator %s requires numeric operands, got %s and %s", op, left.Type().FriendlyName(), right.Type().FriendlyName())
	}

	l, r := left.AsBigFloat(), right.AsBigFloat()

	switch op {
	case Lt, LtE, Gt, GtE:
		return compareNumbers(l, r, op)
	}

	isInt := l.IsInt() && r.IsInt()
	if isInt {
		switch op {
		case LShift, RShift, BitOr, BitXor, BitAnd, Mod, FloorDiv:
			li, _ := l.Int64()
			ri, _ := r.Int64()
			return intBinOp(li, ri, op)
		}
	}

	switch op {
	case Add:
		return cty.NumberVal(new(big.Float).Add(l, r)), nil
	case Sub:
		return cty.NumberVal(new(big.Float).Sub(l, r)), nil
	case Mult:
		return cty.NumberVal(new(big.Float).Mul(l, r)), nil
	case Div:
		if r.Sign() == 0 {
			return value.Null, fmt.Errorf("task: division by zero")
		}
		return cty.NumberVal(new(big.Float).Quo(l, r)), nil
	case Mod:
		lf, _ := l.Float64()
		rf, _ := r.Float64()
		if rf == 0 {
			return value.Null, fmt.Errorf("task: modulo by zero")
		}
		m := pymod(lf, rf)
		return value.Float(m), nil
	case FloorDiv:
		lf, _ := l.Float64()
		rf, _ := r.Float64()
		if rf == 0 {
			return value.Null, fmt.Errorf("task: division by zero")
		}
		return value.Float(pyfloordiv(lf, rf)), nil
	case Pow:
		lf, _ := l.Float64()
		rf, _ := r.Float64()
		p, err := pow(lf, rf)
		if err != nil {
			return value.Null, err
		}
		return value.Float(p), nil
	case LShift, RShift, BitOr, BitXor, BitAnd:
		return value.Null, fmt.Errorf("task: operator %s requires integer operands", op)
	default:
		return value.Null, fmt.Errorf("task: unsupported operator %s", op)
	}
}

func intBinOp(l, r int64, op Operator) (value.Value, error) {
	switch op {
	case LShift:
		return value.Int(l << uint(r)), nil
	case RShift:
		return value.Int(l >> uint(r)), nil
	case BitOr:
		return value.Int(l | r), nil
	case BitXor:
		return value.Int(l ^ r), nil
	case BitAnd:
		return value.Int(l & r), nil
	case Mod:
		if r == 0 {
			return value.Null, fmt.Errorf("task: modulo by zero")
		}
		m := l % r
		if m != 0 && (m < 0) != (r < 0) {
			m += r
		}
		return value.Int(m), nil
	case FloorDiv:
		if r == 0 {
			return value.Null, fmt.Errorf("task: division by zero")
		}
		q := l / r
		if (l%r != 0) && ((l < 0) != (r < 0)) {
			q--
		}
		return value.Int(q), nil
	}
	return value.Null, fmt.Errorf("task: unsupported integer operator %s", op)
}

func pymod(l, r float64) float64 {
	m := l - r*float64(int64(l/r))
	if m != 0 && (m < 0) != (r < 0) {
		m += r
	}
	return m
}

func pyfloordiv(l, r float64) float64 {
	q := l / r
	return float64(int64(q) - boolToInt(q < 0 && float64(int64(q)) != q))
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func pow(base, exp float64) (float64, error) {
	if exp == 0 {
		return 1, nil
	}
	if exp == float64(int64(exp)) && exp > 0 {
		result := 1.0
		for i := int64(0); i < int64(exp); i++ {
			result *= base
		}
		return result, nil
	}
	return 0, fmt.Errorf("task: Pow with a non-positive-integer exponent is not supported")
}

func compareNumbers(l, r *big.Float, op Operator) (value.Value, error) {
	c := l.Cmp(r)
	switch op {
	case Lt:
		return value.Bool(c < 0), nil
	case LtE:
		return value.Bool(c <= 0), nil
	case Gt:
		return value.Bool(c > 0), nil
	case GtE:
		return value.Bool(c >= 0), nil
	}
	return value.Null, fmt.Errorf("task: unsupported comparison operator %s", op)
}

func compareStrings(l, r string, op Operator) (value.Value, error) {
	switch op {
	case Eq:
		return value.Bool(l == r), nil
	case NotEq:
		return value.Bool(l != r), nil
	case Lt:
		return value.Bool(l < r), nil
	case LtE:
		return value.Bool(l <= r), nil
	case Gt:
		return value.Bool(l > r), nil
	case GtE:
		return value.Bool(l >= r), nil
	}
	return value.Null, fmt.Errorf("task: unsupported comparison operator %s", op)
}

// UnaryOp evaluates op v, following Python operator semantics.
//
// Grounded on utils.py's unaryop.
func UnaryOp(v value.Value, op UnaryOperator) (value.Value, error) {
	switch op {
	case Not:
		return value.Bool(!value.Truthy(v)), nil
	case UAdd:
		if v.Type() != cty.Number {
			return value.Null, fmt.Errorf("task: UAdd requires a numeric operand")
		}
		return v, nil
	case USub:
		if v.Type() != cty.Number {
			return value.Null, fmt.Errorf("task: USub requires a numeric operand")
		}
		f := v.AsBigFloat()
		return cty.NumberVal(new(big.Float).Neg(f)), nil
	case Invert:
		if v.Type() != cty.Number {
			return value.Null, fmt.Errorf("task: Invert requires an integer operand")
		}
		f := v.AsBigFloat()
		if !f.IsInt() {
			return value.Null, fmt.Errorf("task: Invert requires an integer operand")
		}
		i, _ := f.Int64()
		return value.Int(^i), nil
	default:
		return value.Null, fmt.Errorf("task: unsupported unary operator %s", op)
	}
}
