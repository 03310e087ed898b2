// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import "github.com/ManuGH/recstudio/internal/fsm"

// State is the recording lifecycle state. One tagged state plus an
// explicit transition table replaces ad hoc boolean flags, so
// impossible combinations cannot be represented.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateRecording    State = "recording"
	StateStopping     State = "stopping"
	StateCompleted    State = "completed"
	StateError        State = "error"
)

// Event drives the lifecycle machine.
type Event string

const (
	EventStart          Event = "start"
	EventStreamsReady   Event = "streamsReady"
	EventRequestStop    Event = "requestStop"
	EventEncoderFlushed Event = "encoderFlushed"
	EventFault          Event = "fault"
	EventReset          Event = "reset"
)

// newLifecycle builds the session machine. Fault is legal from every
// non-terminal state; reset from every state.
func newLifecycle() *fsm.Machine[State, Event] {
	m, err := fsm.New(StateIdle, []fsm.Transition[State, Event]{
		{From: StateIdle, Event: EventStart, To: StateInitializing},
		{From: StateInitializing, Event: EventStreamsReady, To: StateRecording},
		{From: StateRecording, Event: EventRequestStop, To: StateStopping},
		{From: StateStopping, Event: EventEncoderFlushed, To: StateCompleted},

		{From: StateIdle, Event: EventFault, To: StateError},
		{From: StateInitializing, Event: EventFault, To: StateError},
		{From: StateRecording, Event: EventFault, To: StateError},
		{From: StateStopping, Event: EventFault, To: StateError},

		{From: StateIdle, Event: EventReset, To: StateIdle},
		{From: StateInitializing, Event: EventReset, To: StateIdle},
		{From: StateRecording, Event: EventReset, To: StateIdle},
		{From: StateStopping, Event: EventReset, To: StateIdle},
		{From: StateCompleted, Event: EventReset, To: StateIdle},
		{From: StateError, Event: EventReset, To: StateIdle},
	})
	if err != nil {
		// The table is static; a duplicate is a programming error.
		panic(err)
	}
	return m
}
