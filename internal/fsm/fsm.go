// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fsm provides a small, strict finite-state machine runner.
// Unknown (state, event) pairs are rejected without mutating state,
// which is what makes double-start and stop-after-stop races no-ops
// at the call site.
package fsm

import (
	"fmt"
	"sync"
)

// Transition describes a single edge in the machine.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

// Observer is notified synchronously after every successful transition.
type Observer[S ~string, E ~string] func(from, to S, event E)

// Machine is a strict FSM runner. A failed Fire is a guaranteed no-op.
type Machine[S ~string, E ~string] struct {
	mu        sync.Mutex
	state     S
	index     map[string]S
	observers []Observer[S, E]
}

func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]S, len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t.To
	}
	return &Machine[S, E]{state: initial, index: idx}, nil
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers an observer for successful transitions. Observers
// run on the goroutine that fired the event, after the state has been
// applied, so a dependent resource is never built before the transition
// that authorizes it is visible.
func (m *Machine[S, E]) Subscribe(obs Observer[S, E]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, obs)
}

// Fire attempts to apply an event atomically. On an invalid pair the
// current state is returned together with an error and nothing changes.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	from := m.state
	to, ok := m.index[key(from, event)]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("invalid transition: state=%s event=%s", from, event)
	}
	m.state = to
	observers := append([]Observer[S, E](nil), m.observers...)
	m.mu.Unlock()

	for _, obs := range observers {
		obs(from, to, event)
	}
	return to, nil
}

// Can reports whether event is legal in the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[key(m.state, event)]
	return ok
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
