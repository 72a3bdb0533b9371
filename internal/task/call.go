package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

// FunctionalBuiltins names the builtin callables assumed side-effect-free
// even without an explicit functional marker, letting CallTask relax
// their call site's syncpoint.
//
// Grounded on whitelist.py's functional_whitelist ({len, print} there;
// print is dropped here since it is observably side-effecting over a
// Writer in this port, unlike len).
var FunctionalBuiltins = map[string]bool{
	"len": true,
}

// Call invokes "func" (a value.Callable) with positional args, keyword
// args, and optionally a collected *args tuple and **kwargs record.
//
// Grounded on tasks.py's CallTask.
type Call struct {
	NumArgs      int
	Keywords     []string
	HasStarArgs  bool
	HasKwArgs    bool
}

func (t *Call) InputPorts() []string {
	ports := newPortSet("func")
	for i := 0; i < t.NumArgs; i++ {
		ports.add(fmt.Sprintf("arg_%d", i))
	}
	for i := range t.Keywords {
		ports.add(fmt.Sprintf("karg_%d", i))
	}
	if t.HasStarArgs {
		ports.add("starargs")
	}
	if t.HasKwArgs {
		ports.add("kwargs")
	}
	return ports.slice()
}

func (t *Call) OutputPorts() []string { return []string{"value"} }

func (t *Call) RefinerPorts() []string { return []string{"func"} }

func (t *Call) RefinerReducer() map[string]func(value.Value) value.Value {
	return map[string]func(value.Value) value.Value{
		"func": func(v value.Value) value.Value {
			return value.Bool(isFunctional(v))
		},
	}
}

func isFunctional(v value.Value) bool {
	c := value.AsCallable(v)
	if c == nil {
		return false
	}
	return FunctionalBuiltins[c.Name]
}

func (t *Call) Refine(g *graph.Graph, at tick.Tick, known map[string]value.Value) error {
	if value.Truthy(known["func"]) {
		return g.SetProperty(at, "syncpoint", false)
	}
	return nil
}

func (t *Call) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	c := value.AsCallable(inputs["func"])
	if c == nil {
		return nil, fmt.Errorf("task: Call target is not callable")
	}

	args := make([]value.Value, t.NumArgs)
	for i := 0; i < t.NumArgs; i++ {
		args[i] = inputs[fmt.Sprintf("arg_%d", i)]
	}
	if t.HasStarArgs {
		extra, err := value.Elements(inputs["starargs"])
		if err != nil {
			return nil, err
		}
		args = append(args, extra...)
	}

	kwargs := make(map[string]value.Value)
	if t.HasKwArgs {
		rec := value.AsRecord(inputs["kwargs"])
		if rec != nil {
			for k, v := range rec.Fields() {
				kwargs[k] = v
			}
		}
	}
	for i, k := range t.Keywords {
		if _, dup := kwargs[k]; dup {
			return nil, fmt.Errorf("task: specified keyword %q twice", k)
		}
		kwargs[k] = inputs[fmt.Sprintf("karg_%d", i)]
	}

	retval, err := Invoke(ctx, c, args, kwargs)
	if err != nil {
		return nil, err
	}
	return map[string]value.Value{"value": retval}, nil
}

func (t *Call) String() string {
	return fmt.Sprintf("Call(%d, %v, %v, %v)", t.NumArgs, t.Keywords, t.HasStarArgs, t.HasKwArgs)
}
