package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string
type event string

const (
	stA state = "a"
	stB state = "b"
	stC state = "c"

	evGo   event = "go"
	evDone event = "done"
)

func newTestMachine(t *testing.T) *Machine[state, event] {
	t.Helper()
	m, err := New(stA, []Transition[state, event]{
		{From: stA, Event: evGo, To: stB},
		{From: stB, Event: evDone, To: stC},
	})
	require.NoError(t, err)
	return m
}

func TestFireAppliesKnownTransition(t *testing.T) {
	m := newTestMachine(t)

	to, err := m.Fire(evGo)
	require.NoError(t, err)
	assert.Equal(t, stB, to)
	assert.Equal(t, stB, m.State())
}

func TestFireInvalidPairIsNoOp(t *testing.T) {
	m := newTestMachine(t)

	to, err := m.Fire(evDone) // only valid from b
	assert.Error(t, err)
	assert.Equal(t, stA, to)
	assert.Equal(t, stA, m.State(), "failed transition must not mutate state")
}

func TestDuplicateTransitionRejected(t *testing.T) {
	_, err := New(stA, []Transition[state, event]{
		{From: stA, Event: evGo, To: stB},
		{From: stA, Event: evGo, To: stC},
	})
	assert.Error(t, err)
}

func TestObserversRunAfterStateApplied(t *testing.T) {
	m := newTestMachine(t)

	var seen []state
	m.Subscribe(func(from, to state, ev event) {
		// State must already be visible to the observer.
		assert.Equal(t, to, m.State())
		seen = append(seen, to)
	})

	_, err := m.Fire(evGo)
	require.NoError(t, err)
	_, err = m.Fire(evDone)
	require.NoError(t, err)

	assert.Equal(t, []state{stB, stC}, seen)
}

func TestObserverNotCalledOnFailedFire(t *testing.T) {
	m := newTestMachine(t)

	calls := 0
	m.Subscribe(func(from, to state, ev event) { calls++ })

	_, _ = m.Fire(evDone)
	assert.Zero(t, calls)
}

func TestCan(t *testing.T) {
	m := newTestMachine(t)
	assert.True(t, m.Can(evGo))
	assert.False(t, m.Can(evDone))
}
