package graph

import (
	"reflect"
	"strings"
)

// Equal reports whether a and b have the same structure: the same set of
// ticks, the same task at each (compared with reflect.DeepEqual, since
// Task implementations in this engine are plain value-ish structs), the
// same non-underscore-prefixed properties, and the same connections.
// Property keys starting with "_" are engine bookkeeping and excluded from
// comparison, matching the source's task-node equality.
//
// Graphs embedded as subgraphs inside tasks (If/For/While/FunctionDef) are
// not walked by this function: they are part of the task value and so are
// compared by reflect.DeepEqual with the task, underscore-prefixed
// properties included. visited records the (a, b) pair being compared and
// only ever holds the top-level pair.
func Equal(a, b *Graph) bool {
	return equalVisited(a, b, map[[2]*Graph]bool{})
}

func equalVisited(a, b *Graph, visited map[[2]*Graph]bool) bool {
	key := [2]*Graph{a, b}
	if visited[key] {
		return true
	}
	visited[key] = true

	if len(a.nodes) != len(b.nodes) {
		return false
	}
	for key, anode := range a.nodes {
		bnode, ok := b.nodes[key]
		if !ok {
			return false
		}
		if !taskNodesEqual(anode, bnode) {
			return false
		}
	}
	return true
}

func taskNodesEqual(a, b *taskNode) bool {
	if !reflect.DeepEqual(a.task, b.task) {
		return false
	}
	if !propsEqual(a.properties, b.properties) {
		return false
	}
	if len(a.inConnections) != len(b.inConnections) {
		return false
	}
	for port, conn := range a.inConnections {
		other, ok := b.inConnections[port]
		if !ok || !conn.Equal(other) {
			return false
		}
	}
	if len(a.outConnections) != len(b.outConnections) {
		return false
	}
	for destKey, conn := range a.outConnections {
		other, ok := b.outConnections[destKey]
		if !ok || !conn.Equal(other) {
			return false
		}
	}
	return true
}

func propsEqual(a, b map[string]interface{}) bool {
	af := filterUnderscore(a)
	bf := filterUnderscore(b)
	return reflect.DeepEqual(af, bf)
}

func filterUnderscore(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out
}

// Equal reports whether c and o connect the same source to the same dest.
func (c connection) Equal(o connection) bool {
	return c.source.Equal(o.source) && c.dest.Equal(o.dest)
}
