package task

import (
	"context"
	"fmt"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/value"
)

// FunctionDef evaluates to a Callable closing over Body, ready to be
// invoked by CallTask via Invoke.
//
// Grounded on tasks.py's FunctionDefTask.
type FunctionDef struct {
	Scheduler   Scheduler
	Name        string
	Params      []string
	VarArg      string
	KwArg       string
	NumDefaults int
	Body        *graph.Graph
}

func (t *FunctionDef) InputPorts() []string  { return indexedPorts("default_", t.NumDefaults) }
func (t *FunctionDef) OutputPorts() []string { return []string{"function"} }

func (t *FunctionDef) Subgraphs() []*graph.Graph { return []*graph.Graph{t.Body} }

func (t *FunctionDef) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	defaults := make([]value.Value, t.NumDefaults)
	for i := 0; i < t.NumDefaults; i++ {
		defaults[i] = inputs[fmt.Sprintf("default_%d", i)]
	}
	c := value.NewCallable(value.Callable{
		Name:       t.Name,
		ParamNames: append([]string(nil), t.Params...),
		VarArg:     t.VarArg,
		KwArg:      t.KwArg,
		Defaults:   defaults,
		BodyGraph:  t.Body,
		Scheduler:  t.Scheduler,
	})
	return map[string]value.Value{"function": c}, nil
}

func (t *FunctionDef) String() string {
	return fmt.Sprintf("FunctionDef(%s, %v, %s, %s, %d)", t.Name, t.Params, t.VarArg, t.KwArg, t.NumDefaults)
}

// Invoke binds positional args and keyword kwargs to a Callable's
// parameters, filling in *args/**kwargs and default values exactly as
// Python's calling convention would, then runs the bound body graph to
// completion via the Callable's Scheduler and returns "retval".
//
// Grounded on tasks.py's ScheduledCallable.__call__ and its nested
// calling_convention function.
func Invoke(ctx context.Context, c *value.Callable, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	calleeArgs := make([]value.Value, len(c.ParamNames))
	assigned := make([]bool, len(c.ParamNames))

	formalMatches := len(args)
	if formalMatches > len(c.ParamNames) {
		formalMatches = len(c.ParamNames)
	}
	for i := 0; i < formalMatches; i++ {
		calleeArgs[i] = args[i]
		assigned[i] = true
	}

	remaining := len(args) - formalMatches
	var calleeVarArg []value.Value
	if c.VarArg != "" {
		if remaining > 0 {
			calleeVarArg = append([]value.Value(nil), args[len(args)-remaining:]...)
		} else {
			calleeVarArg = []value.Value{}
		}
	} else if remaining > 0 {
		return value.Null, fmt.Errorf("task: passed %d arguments, callee %q expects %d", len(args), c.Name, len(c.ParamNames))
	}

	calleeKwArg := make(map[string]value.Value)
	for key, val := range kwargs {
		idx := indexOf(c.ParamNames, key)
		if idx < 0 {
			calleeKwArg[key] = val
			continue
		}
		if assigned[idx] {
			return value.Null, fmt.Errorf("task: parameter %q already assigned", key)
		}
		calleeArgs[idx] = val
		assigned[idx] = true
	}

	var kwArgValue map[string]value.Value
	if c.KwArg == "" {
		if len(calleeKwArg) > 0 {
			for k := range calleeKwArg {
				return value.Null, fmt.Errorf("task: no parameter named %q", k)
			}
		}
	} else {
		kwArgValue = calleeKwArg
	}

	numWithoutDefault := len(c.ParamNames) - len(c.Defaults)
	for i := range c.ParamNames {
		if assigned[i] {
			continue
		}
		if i >= numWithoutDefault {
			calleeArgs[i] = c.Defaults[i-numWithoutDefault]
			assigned[i] = true
		} else {
			return value.Null, fmt.Errorf("task: passed %d arguments, callee %q expects at least %d", len(args), c.Name, numWithoutDefault)
		}
	}

	inputs := make(map[string]value.Value, len(c.ParamNames)+2)
	for i, name := range c.ParamNames {
		inputs[name] = calleeArgs[i]
	}
	if c.VarArg != "" {
		inputs[c.VarArg] = value.Tuple(calleeVarArg)
	}
	if c.KwArg != "" {
		inputs[c.KwArg] = value.NewRecord(kwArgValue)
	}

	scheduler, _ := c.Scheduler.(Scheduler)
	if scheduler == nil {
		return value.Null, fmt.Errorf("task: callable %q has no scheduler bound", c.Name)
	}
	body, _ := c.BodyGraph.(*graph.Graph)
	if body == nil {
		return value.Null, fmt.Errorf("task: callable %q has no body graph bound", c.Name)
	}

	outputs, err := scheduler.ExecuteBlocking(ctx, body, inputs)
	if err != nil {
		return value.Null, err
	}
	retval, ok := outputs["retval"]
	if !ok {
		return value.Null, fmt.Errorf("task: callable %q produced no retval", c.Name)
	}
	return retval, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
