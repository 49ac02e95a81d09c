// Package workflow holds the status state machines of case and content
// entities as explicit transition tables.
package workflow

import (
	"fmt"
	"sort"

	apperrors "visadesk/pkg/errors"
)

// Machine is a transition table over a named-string status type
type Machine[S ~string] struct {
	kind    string
	initial S
	edges   map[S][]S
	states  []S
}

// New builds a machine. Every state must appear as a key of edges,
// terminal states with no targets.
func New[S ~string](kind string, initial S, edges map[S][]S) *Machine[S] {
	m := &Machine[S]{kind: kind, initial: initial, edges: edges}
	for s := range edges {
		m.states = append(m.states, s)
	}
	sort.Slice(m.states, func(i, j int) bool { return m.states[i] < m.states[j] })
	return m
}

// Kind names the entity kind the machine governs
func (m *Machine[S]) Kind() string { return m.kind }

// Initial is the status every new entity starts in
func (m *Machine[S]) Initial() S { return m.initial }

// States lists every known status in lexical order
func (m *Machine[S]) States() []S {
	out := make([]S, len(m.states))
	copy(out, m.states)
	return out
}

// Known reports whether s is a state of this machine
func (m *Machine[S]) Known(s S) bool {
	_, ok := m.edges[s]
	return ok
}

// Targets lists the statuses reachable in one step from s
func (m *Machine[S]) Targets(s S) []S {
	out := make([]S, len(m.edges[s]))
	copy(out, m.edges[s])
	return out
}

// Terminal reports whether s has no outgoing transitions
func (m *Machine[S]) Terminal(s S) bool {
	return m.Known(s) && len(m.edges[s]) == 0
}

// Allowed reports whether the graph has an edge from -> to
func (m *Machine[S]) Allowed(from, to S) bool {
	for _, t := range m.edges[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Check validates a requested move for entity id. It returns noop=true when
// the entity already sits in the requested status.
func (m *Machine[S]) Check(id any, from, to S) (noop bool, err error) {
	if !m.Known(to) {
		return false, apperrors.Validation(
			fmt.Sprintf("unknown %s status %q", m.kind, to),
			map[string]string{"status": "must be one of " + m.list()})
	}
	if from == to {
		return true, nil
	}
	if !m.Allowed(from, to) {
		return false, apperrors.IllegalTransition(m.kind, id, string(from), string(to))
	}
	return false, nil
}

func (m *Machine[S]) list() string {
	out := ""
	for i, s := range m.states {
		if i > 0 {
			out += ", "
		}
		out += string(s)
	}
	return out
}
