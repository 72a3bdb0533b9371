package task

import (
	"context"
	"testing"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

func TestCallInvokesFunctionWithPositionalArgs(t *testing.T) {
	sched := &stubScheduler{retval: value.Int(5)}
	c := value.NewCallable(value.Callable{
		Name:       "f",
		ParamNames: []string{"a", "b"},
		BodyGraph:  graph.New(),
		Scheduler:  sched,
	})

	call := &Call{NumArgs: 2}
	out, err := call.Evaluate(context.Background(), map[string]value.Value{
		"func": c, "arg_0": value.Int(1), "arg_1": value.Int(2),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !out["value"].RawEquals(value.Int(5)) {
		t.Fatalf("got %v, want 5", out["value"])
	}
	if !sched.gotInputs["a"].RawEquals(value.Int(1)) {
		t.Fatalf("a = %v, want 1", sched.gotInputs["a"])
	}
}

func TestCallMergesKeywordsAndKwargs(t *testing.T) {
	sched := &stubScheduler{retval: value.Null}
	c := value.NewCallable(value.Callable{
		Name:       "f",
		ParamNames: []string{},
		KwArg:      "kwargs",
		BodyGraph:  graph.New(),
		Scheduler:  sched,
	})

	call := &Call{Keywords: []string{"x"}, HasKwArgs: true}
	_, err := call.Evaluate(context.Background(), map[string]value.Value{
		"func":    c,
		"karg_0":  value.Int(1),
		"kwargs":  value.NewRecord(map[string]value.Value{"y": value.Int(2)}),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	rec := value.AsRecord(sched.gotInputs["kwargs"])
	vx, _ := rec.Get("x")
	vy, _ := rec.Get("y")
	if !vx.RawEquals(value.Int(1)) || !vy.RawEquals(value.Int(2)) {
		t.Fatalf("merged kwargs = %v", rec.Fields())
	}
}

func TestCallRefineSetsNonSyncpointForFunctionalCalls(t *testing.T) {
	g := graph.New()
	at := tick.Start.Increment(1)
	if err := g.AddTask(at, &Call{NumArgs: 1}, nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	call := &Call{NumArgs: 1}
	if err := call.Refine(g, at, map[string]value.Value{"func": value.Bool(true)}); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	props := g.GetProperties(at)
	if sp, ok := props["syncpoint"].(bool); !ok || sp {
		t.Fatalf("syncpoint property = %v, want false", props["syncpoint"])
	}
}

func TestIsFunctionalRecognizesWhitelistedBuiltins(t *testing.T) {
	lenCallable := value.NewCallable(value.Callable{Name: "len"})
	if !isFunctional(lenCallable) {
		t.Fatalf("expected len to be recognized as functional")
	}
	otherCallable := value.NewCallable(value.Callable{Name: "mutate"})
	if isFunctional(otherCallable) {
		t.Fatalf("expected mutate to not be functional")
	}
}
