package graph

import (
	"testing"

	"github.com/pydron/pydron/internal/tick"
)

// stubTask is a minimal Task used only to exercise graph structure; its
// identity for equality purposes is its Name field.
type stubTask struct {
	Name string
	In   []string
	Out  []string
}

func (s stubTask) InputPorts() []string  { return s.In }
func (s stubTask) OutputPorts() []string { return s.Out }

func constTask(name string) stubTask {
	return stubTask{Name: name, Out: []string{"value"}}
}

func binopTask(name string) stubTask {
	return stubTask{Name: name, In: []string{"left", "right"}, Out: []string{"value"}}
}

func TestBasicLifecycle(t *testing.T) {
	g := New()
	at := tick.Start.Increment(1)
	if err := g.AddTask(at, constTask("c"), nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := g.Connect(Endpoint{Tick: at, Port: "value"}, Endpoint{Tick: tick.Final, Port: "retval"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ins := g.InConnections(tick.Final)
	if len(ins) != 1 || !ins[0].Source.Equal(Endpoint{Tick: at, Port: "value"}) {
		t.Fatalf("unexpected in-connections: %+v", ins)
	}
	if err := g.RemoveTask(at); err == nil {
		t.Fatalf("expected RemoveTask to fail while connected")
	}
	if err := g.Disconnect(Endpoint{Tick: at, Port: "value"}, Endpoint{Tick: tick.Final, Port: "retval"}); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := g.RemoveTask(at); err != nil {
		t.Fatalf("RemoveTask after disconnect: %v", err)
	}
}

func TestAddAtStartOrFinalRejected(t *testing.T) {
	g := New()
	if err := g.AddTask(tick.Start, constTask("x"), nil); err == nil {
		t.Fatalf("expected AddTask at Start to fail")
	}
	if err := g.AddTask(tick.Final, constTask("x"), nil); err == nil {
		t.Fatalf("expected AddTask at Final to fail")
	}
}

func TestConnectFinalSourceOrStartDestRejected(t *testing.T) {
	g := New()
	at := tick.Start.Increment(1)
	if err := g.AddTask(at, constTask("c"), nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := g.Connect(Endpoint{Tick: tick.Final, Port: "x"}, Endpoint{Tick: at, Port: "left"}); err == nil {
		t.Fatalf("expected connect from Final to fail")
	}
	if err := g.Connect(Endpoint{Tick: at, Port: "value"}, Endpoint{Tick: tick.Start, Port: "x"}); err == nil {
		t.Fatalf("expected connect to Start to fail")
	}
}

func TestDuplicateDestinationPortRejected(t *testing.T) {
	g := New()
	a := tick.Start.Increment(1)
	b := tick.Start.Increment(2)
	c := tick.Start.Increment(3)
	for _, spec := range []struct {
		tk tick.Tick
		tk2 stubTask
	}{{a, constTask("a")}, {b, constTask("b")}, {c, binopTask("c")}} {
		if err := g.AddTask(spec.tk, spec.tk2, nil); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}
	if err := g.Connect(Endpoint{Tick: a, Port: "value"}, Endpoint{Tick: c, Port: "left"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := g.Connect(Endpoint{Tick: b, Port: "value"}, Endpoint{Tick: c, Port: "left"}); err == nil {
		t.Fatalf("expected duplicate destination port connect to fail")
	}
}

func TestFreeFanOutAllowed(t *testing.T) {
	g := New()
	a := tick.Start.Increment(1)
	b := tick.Start.Increment(2)
	c := tick.Start.Increment(3)
	if err := g.AddTask(a, constTask("a"), nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := g.AddTask(b, binopTask("b"), nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := g.AddTask(c, binopTask("c"), nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := g.Connect(Endpoint{Tick: a, Port: "value"}, Endpoint{Tick: b, Port: "left"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := g.Connect(Endpoint{Tick: a, Port: "value"}, Endpoint{Tick: c, Port: "left"}); err != nil {
		t.Fatalf("fan-out Connect: %v", err)
	}
	out := g.OutConnections(a)
	if len(out) != 2 {
		t.Fatalf("expected 2 outgoing connections, got %d", len(out))
	}
}

func TestPropertiesIgnoreUnderscorePrefixInEquality(t *testing.T) {
	a := MustBuild(
		T(tick.Start.Increment(1), constTask("c"), map[string]interface{}{"_bookkeeping": 1, "syncpoint": true}),
	)
	b := MustBuild(
		T(tick.Start.Increment(1), constTask("c"), map[string]interface{}{"_bookkeeping": 2, "syncpoint": true}),
	)
	if !Equal(a, b) {
		t.Fatalf("expected graphs to compare equal when only underscore-prefixed properties differ")
	}
}

func TestPropertiesAffectEquality(t *testing.T) {
	a := MustBuild(T(tick.Start.Increment(1), constTask("c"), map[string]interface{}{"syncpoint": true}))
	b := MustBuild(T(tick.Start.Increment(1), constTask("c"), map[string]interface{}{"syncpoint": false}))
	if Equal(a, b) {
		t.Fatalf("expected graphs to differ when a non-underscore property differs")
	}
}

type recordingObserver struct {
	events []string
}

func (r *recordingObserver) TaskAdded(t tick.Tick, task Task, properties map[string]interface{}) {
	r.events = append(r.events, "added:"+t.String())
}
func (r *recordingObserver) TaskRemoved(t tick.Tick) {
	r.events = append(r.events, "removed:"+t.String())
}
func (r *recordingObserver) Connected(source, dest Endpoint) {
	r.events = append(r.events, "connected:"+source.String()+"->"+dest.String())
}
func (r *recordingObserver) Disconnected(source, dest Endpoint) {
	r.events = append(r.events, "disconnected:"+source.String()+"->"+dest.String())
}
func (r *recordingObserver) TaskPropertyChanged(t tick.Tick, key string, value interface{}) {
	r.events = append(r.events, "propchanged:"+t.String()+"."+key)
}

func TestObserverFiresAfterChange(t *testing.T) {
	g := New()
	obs := &recordingObserver{}
	g.Subscribe(obs)

	at := tick.Start.Increment(1)
	if err := g.AddTask(at, constTask("c"), nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := g.SetProperty(at, "syncpoint", true); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	want := []string{"added:0,1", "propchanged:0,1.syncpoint"}
	if len(obs.events) != len(want) {
		t.Fatalf("events = %v, want %v", obs.events, want)
	}
	for i := range want {
		if obs.events[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, obs.events[i], want[i])
		}
	}
}
