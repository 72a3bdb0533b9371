package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/pydron/pydron/internal/value"
)

// Namespace is a process-wide registry of module-scoped global variables,
// standing in for the attribute lookup tasks.py's ReadGlobal/AssignGlobal
// perform against imported Python modules. Each worker process holds one
// Namespace; ReadGlobal/AssignGlobal tasks are constructed with a pointer
// to it so that a write on one worker's AssignGlobal becomes visible to
// later ReadGlobal evaluations on the same worker, matching module-level
// variable semantics.
type Namespace struct {
	mu      sync.RWMutex
	modules map[string]map[string]value.Value
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{modules: make(map[string]map[string]value.Value)}
}

// Get looks up module.var, falling back to the builtins module ("") when
// the named module has no such variable — mirroring ReadGlobal's fallback
// to __builtin__.
func (n *Namespace) Get(module, v string) (value.Value, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if vars, ok := n.modules[module]; ok {
		if val, ok := vars[v]; ok {
			return val, true
		}
	}
	if vars, ok := n.modules[""]; ok {
		if val, ok := vars[v]; ok {
			return val, true
		}
	}
	return value.Value{}, false
}

// Set assigns module.var = val, creating the module's variable table if
// this is its first write.
func (n *Namespace) Set(module, v string, val value.Value) {
	n.mu.Lock()
	defer n.mu.Unlock()
	vars, ok := n.modules[module]
	if !ok {
		vars = make(map[string]value.Value)
		n.modules[module] = vars
	}
	vars[v] = val
}

// RegisterBuiltins seeds the builtin pseudo-module ("") used as ReadGlobal's
// fallback scope.
func (n *Namespace) RegisterBuiltins(builtins map[string]value.Value) {
	n.mu.Lock()
	defer n.mu.Unlock()
	vars := make(map[string]value.Value, len(builtins))
	for k, v := range builtins {
		vars[k] = v
	}
	n.modules[""] = vars
}

// ReadGlobal looks up a module-scoped variable named by its "var" input.
//
// Grounded on tasks.py's ReadGlobal.
type ReadGlobal struct {
	Module    string
	Namespace *Namespace
}

func (t *ReadGlobal) InputPorts() []string  { return []string{"var"} }
func (t *ReadGlobal) OutputPorts() []string { return []string{"value"} }

func (t *ReadGlobal) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	name := inputs["var"].AsString()
	v, ok := t.Namespace.Get(t.Module, name)
	if !ok {
		return nil, fmt.Errorf("task: global name %q is not defined in %q", name, t.Module)
	}
	return map[string]value.Value{"value": v}, nil
}

func (t *ReadGlobal) String() string { return fmt.Sprintf("ReadGlobal(%s)", t.Module) }

// AssignGlobal writes a module-scoped variable named by its "var" input.
//
// Grounded on tasks.py's AssignGlobal.
type AssignGlobal struct {
	Module    string
	Namespace *Namespace
}

func (t *AssignGlobal) InputPorts() []string  { return []string{"var", "value"} }
func (t *AssignGlobal) OutputPorts() []string { return []string{"value"} }

func (t *AssignGlobal) Evaluate(ctx context.Context, inputs map[string]value.Value) (map[string]value.Value, error) {
	name := inputs["var"].AsString()
	t.Namespace.Set(t.Module, name, inputs["value"])
	return map[string]value.Value{"value": value.Null}, nil
}

func (t *AssignGlobal) String() string { return fmt.Sprintf("AssignGlobal(%s)", t.Module) }
