package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleHappyPath(t *testing.T) {
	m := newLifecycle()
	require.Equal(t, StateIdle, m.State())

	for _, step := range []struct {
		event Event
		want  State
	}{
		{EventStart, StateInitializing},
		{EventStreamsReady, StateRecording},
		{EventRequestStop, StateStopping},
		{EventEncoderFlushed, StateCompleted},
		{EventReset, StateIdle},
	} {
		got, err := m.Fire(step.event)
		require.NoError(t, err, "event %s", step.event)
		assert.Equal(t, step.want, got)
	}
}

func TestLifecycleRejectsShortcuts(t *testing.T) {
	m := newLifecycle()

	// No edge jumps idle straight into recording.
	_, err := m.Fire(EventStreamsReady)
	assert.Error(t, err)
	assert.Equal(t, StateIdle, m.State())

	// A stop without a recording is a no-op.
	_, err = m.Fire(EventRequestStop)
	assert.Error(t, err)
	assert.Equal(t, StateIdle, m.State())

	// Double start is rejected after the first succeeds.
	_, err = m.Fire(EventStart)
	require.NoError(t, err)
	_, err = m.Fire(EventStart)
	assert.Error(t, err)
	assert.Equal(t, StateInitializing, m.State())
}

func TestLifecycleFaultFromEveryActiveState(t *testing.T) {
	paths := map[string][]Event{
		"idle":         {},
		"initializing": {EventStart},
		"recording":    {EventStart, EventStreamsReady},
		"stopping":     {EventStart, EventStreamsReady, EventRequestStop},
	}
	for name, events := range paths {
		t.Run(name, func(t *testing.T) {
			m := newLifecycle()
			for _, ev := range events {
				_, err := m.Fire(ev)
				require.NoError(t, err)
			}
			got, err := m.Fire(EventFault)
			require.NoError(t, err)
			assert.Equal(t, StateError, got)

			// Error is terminal apart from reset.
			assert.False(t, m.Can(EventStart))
			assert.False(t, m.Can(EventFault))
			got, err = m.Fire(EventReset)
			require.NoError(t, err)
			assert.Equal(t, StateIdle, got)
		})
	}
}

func TestLifecycleCompletedOnlyResets(t *testing.T) {
	m := newLifecycle()
	for _, ev := range []Event{EventStart, EventStreamsReady, EventRequestStop, EventEncoderFlushed} {
		_, err := m.Fire(ev)
		require.NoError(t, err)
	}
	assert.False(t, m.Can(EventStart))
	assert.False(t, m.Can(EventRequestStop))
	assert.True(t, m.Can(EventReset))
}
