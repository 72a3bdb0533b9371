package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/value"
)

// Const always evaluates to the same fixed value.
type Const struct {
	Value value.Value
}

// NewConst wraps v as a Const task.
func NewConst(v value.Value) *Const { return &Const{Value: v} }

func (c *Const) InputPorts() []string  { return nil }
func (c *Const) OutputPorts() []string { return []string{"value"} }

func (c *Const) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	return map[string]value.Value{"value": c.Value}, nil
}

func (c *Const) String() string {
	return fmt.Sprintf("Const(%s)", c.Value.GoString())
}
