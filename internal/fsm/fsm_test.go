package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateSegmenting, next)

	next, err = Transition(next, EventSegmented)
	require.NoError(t, err)
	require.Equal(t, StateTranscribing, next)

	next, err = Transition(next, EventTranscribed)
	require.NoError(t, err)
	require.Equal(t, StatePostprocessing, next)

	next, err = Transition(next, EventFinish)
	require.NoError(t, err)
	require.Equal(t, StateDone, next)
	require.True(t, Terminal(next))

	next, err = Transition(next, EventReset)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailFromAnyStateGoesError(t *testing.T) {
	states := []State{StateIdle, StateSegmenting, StateTranscribing, StatePostprocessing, StateDone, StateError}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestTransitionCancelFromActiveStates(t *testing.T) {
	for _, state := range []State{StateSegmenting, StateTranscribing, StatePostprocessing} {
		next, err := Transition(state, EventCancel)
		require.NoError(t, err)
		require.Equal(t, StateCancelled, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "idle cannot segment", state: StateIdle, event: EventSegmented},
		{name: "idle cannot cancel", state: StateIdle, event: EventCancel},
		{name: "segmenting cannot finish", state: StateSegmenting, event: EventFinish},
		{name: "transcribing cannot restart", state: StateTranscribing, event: EventStart},
		{name: "postprocessing cannot transcribe again", state: StatePostprocessing, event: EventTranscribed},
		{name: "done cannot cancel", state: StateDone, event: EventCancel},
		{name: "cancelled cannot finish", state: StateCancelled, event: EventFinish},
		{name: "error requires reset", state: StateError, event: EventStart},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
			require.Equal(t, tc.state, next)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	_, err := Transition(State("paused"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
}

func TestTerminal(t *testing.T) {
	require.False(t, Terminal(StateIdle))
	require.False(t, Terminal(StateTranscribing))
	require.True(t, Terminal(StateCancelled))
	require.True(t, Terminal(StateError))
}
