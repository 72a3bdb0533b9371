package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/value"
)

// BinOpTask applies a fixed binary operator to its "left" and "right"
// inputs.
//
// Grounded on tasks.py's BinOpTask.
type BinOpTask struct {
	Op Operator
}

func (t *BinOpTask) InputPorts() []string  { return []string{"left", "right"} }
func (t *BinOpTask) OutputPorts() []string { return []string{"value"} }

func (t *BinOpTask) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	result, err := BinOp(inputs["left"], inputs["right"], t.Op)
	if err != nil {
		return nil, err
	}
	return map[string]value.Value{"value": result}, nil
}

func (t *BinOpTask) String() string { return fmt.Sprintf("BinOp(%s)", t.Op) }

// UnaryOpTask applies a fixed unary operator to its "value" input.
//
// Grounded on tasks.py's UnaryOpTask.
type UnaryOpTask struct {
	Op UnaryOperator
}

func (t *UnaryOpTask) InputPorts() []string  { return []string{"value"} }
func (t *UnaryOpTask) OutputPorts() []string { return []string{"value"} }

func (t *UnaryOpTask) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	result, err := UnaryOp(inputs["value"], t.Op)
	if err != nil {
		return nil, err
	}
	return map[string]value.Value{"value": result}, nil
}

func (t *UnaryOpTask) String() string { return fmt.Sprintf("UnaryOp(%s)", t.Op) }
