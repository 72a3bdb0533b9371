package task

import (
	"context"
	"testing"

	"github.com/pydron/pydron/internal/value"
)

func TestAssignThenReadGlobalRoundTrips(t *testing.T) {
	ns := NewNamespace()
	assign := &AssignGlobal{Module: "mymod", Namespace: ns}
	if _, err := assign.Evaluate(context.Background(), map[string]value.Value{
		"var": value.Str("counter"), "value": value.Int(1),
	}); err != nil {
		t.Fatalf("AssignGlobal.Evaluate: %v", err)
	}

	read := &ReadGlobal{Module: "mymod", Namespace: ns}
	out, err := read.Evaluate(context.Background(), map[string]value.Value{"var": value.Str("counter")})
	if err != nil {
		t.Fatalf("ReadGlobal.Evaluate: %v", err)
	}
	if !out["value"].RawEquals(value.Int(1)) {
		t.Fatalf("got %v, want 1", out["value"])
	}
}

func TestReadGlobalFallsBackToBuiltins(t *testing.T) {
	ns := NewNamespace()
	ns.RegisterBuiltins(map[string]value.Value{"True": value.Bool(true)})

	read := &ReadGlobal{Module: "mymod", Namespace: ns}
	out, err := read.Evaluate(context.Background(), map[string]value.Value{"var": value.Str("True")})
	if err != nil {
		t.Fatalf("ReadGlobal.Evaluate: %v", err)
	}
	if !out["value"].True() {
		t.Fatalf("expected builtin fallback to resolve True")
	}
}

func TestReadGlobalUndefinedFails(t *testing.T) {
	ns := NewNamespace()
	read := &ReadGlobal{Module: "mymod", Namespace: ns}
	if _, err := read.Evaluate(context.Background(), map[string]value.Value{"var": value.Str("missing")}); err == nil {
		t.Fatalf("expected an error for an undefined global")
	}
}
