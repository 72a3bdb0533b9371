package task

import (
	"sort"

	"github.com/pydron/pydron/internal/graph"
	"github.com/pydron/pydron/internal/tick"
)

// portSet is an unordered collection of port names, used while computing
// the dynamic input_ports()/output_ports() of control-flow tasks from
// their subgraphs' boundary connections.
type portSet map[string]struct{}

func newPortSet(names ...string) portSet {
	s := make(portSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s portSet) add(name string) { s[name] = struct{}{} }

func (s portSet) remove(name string) { delete(s, name) }

func (s portSet) union(others ...portSet) portSet {
	out := make(portSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, o := range others {
		for k := range o {
			out[k] = struct{}{}
		}
	}
	return out
}

// symmetricDifference returns the ports present in exactly one of a, b.
func symmetricDifference(a, b portSet) portSet {
	out := make(portSet)
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func (s portSet) slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// subgraphInputPorts returns the set of port names g's Start task feeds
// out to, i.e. the names the subgraph expects as inputs.
func subgraphInputPorts(g *graph.Graph) portSet {
	s := make(portSet)
	for _, c := range g.OutConnections(tick.Start) {
		s.add(c.Source.Port)
	}
	return s
}

// subgraphOutputPorts returns the set of port names g's Final task
// receives, i.e. the names the subgraph promises as outputs.
func subgraphOutputPorts(g *graph.Graph) portSet {
	s := make(portSet)
	for _, c := range g.InConnections(tick.Final) {
		s.add(c.Dest.Port)
	}
	return s
}
