package task

import (
	"context"
	"testing"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/value"
)

// stubScheduler runs a body graph by just feeding back a fixed "retval",
// ignoring the graph entirely — sufficient to test Invoke's argument
// binding in isolation from the traverser.
type stubScheduler struct {
	gotInputs map[string]value.Value
	retval    value.Value
}

func (s *stubScheduler) ExecuteBlocking(ctx context.Context, g *graph.Graph, inputs map[string]value.Value) (map[string]value.Value, error) {
	s.gotInputs = inputs
	return map[string]value.Value{"retval": s.retval}, nil
}

func TestInvokeBindsPositionalArgs(t *testing.T) {
	sched := &stubScheduler{retval: value.Int(42)}
	c := &value.Callable{
		Name:       "f",
		ParamNames: []string{"a", "b"},
		BodyGraph:  graph.New(),
		Scheduler:  sched,
	}
	got, err := Invoke(context.Background(), c, []value.Value{value.Int(1), value.Int(2)}, nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !got.RawEquals(value.Int(42)) {
		t.Fatalf("retval = %v, want 42", got)
	}
	if !sched.gotInputs["a"].RawEquals(value.Int(1)) || !sched.gotInputs["b"].RawEquals(value.Int(2)) {
		t.Fatalf("unexpected bound inputs: %v", sched.gotInputs)
	}
}

func TestInvokeAppliesDefaults(t *testing.T) {
	sched := &stubScheduler{retval: value.Null}
	c := &value.Callable{
		Name:       "f",
		ParamNames: []string{"a", "b"},
		Defaults:   []value.Value{value.Int(7)},
		BodyGraph:  graph.New(),
		Scheduler:  sched,
	}
	_, err := Invoke(context.Background(), c, []value.Value{value.Int(1)}, nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !sched.gotInputs["b"].RawEquals(value.Int(7)) {
		t.Fatalf("default for b = %v, want 7", sched.gotInputs["b"])
	}
}

func TestInvokeBindsKeywordArgs(t *testing.T) {
	sched := &stubScheduler{retval: value.Null}
	c := &value.Callable{
		Name:       "f",
		ParamNames: []string{"a", "b"},
		BodyGraph:  graph.New(),
		Scheduler:  sched,
	}
	_, err := Invoke(context.Background(), c, nil, map[string]value.Value{"a": value.Int(1), "b": value.Int(2)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !sched.gotInputs["a"].RawEquals(value.Int(1)) || !sched.gotInputs["b"].RawEquals(value.Int(2)) {
		t.Fatalf("unexpected bound inputs: %v", sched.gotInputs)
	}
}

func TestInvokeCollectsVarArgs(t *testing.T) {
	sched := &stubScheduler{retval: value.Null}
	c := &value.Callable{
		Name:       "f",
		ParamNames: []string{"a"},
		VarArg:     "rest",
		BodyGraph:  graph.New(),
		Scheduler:  sched,
	}
	_, err := Invoke(context.Background(), c, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	elems, _ := value.Elements(sched.gotInputs["rest"])
	if len(elems) != 2 || !elems[0].RawEquals(value.Int(2)) || !elems[1].RawEquals(value.Int(3)) {
		t.Fatalf("rest = %v", elems)
	}
}

func TestInvokeTooManyArgsWithoutVarArgFails(t *testing.T) {
	sched := &stubScheduler{retval: value.Null}
	c := &value.Callable{
		Name:       "f",
		ParamNames: []string{"a"},
		BodyGraph:  graph.New(),
		Scheduler:  sched,
	}
	_, err := Invoke(context.Background(), c, []value.Value{value.Int(1), value.Int(2)}, nil)
	if err == nil {
		t.Fatalf("expected an error for too many positional arguments")
	}
}

func TestInvokeMissingRequiredArgFails(t *testing.T) {
	sched := &stubScheduler{retval: value.Null}
	c := &value.Callable{
		Name:       "f",
		ParamNames: []string{"a", "b"},
		BodyGraph:  graph.New(),
		Scheduler:  sched,
	}
	_, err := Invoke(context.Background(), c, []value.Value{value.Int(1)}, nil)
	if err == nil {
		t.Fatalf("expected an error for a missing required argument")
	}
}

func TestFunctionDefProducesCallable(t *testing.T) {
	body := graph.New()
	fd := &FunctionDef{Name: "f", Params: []string{"a"}, Body: body}
	out, err := fd.Evaluate(context.Background(), map[string]value.Value{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	c := value.AsCallable(out["function"])
	if c.Name != "f" || len(c.ParamNames) != 1 || c.ParamNames[0] != "a" {
		t.Fatalf("unexpected callable: %+v", c)
	}
}
