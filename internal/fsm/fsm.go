// Package fsm defines the lifecycle of one transcription run.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle           State = "idle"
	StateSegmenting     State = "segmenting"
	StateTranscribing   State = "transcribing"
	StatePostprocessing State = "postprocessing"
	StateDone           State = "done"
	StateCancelled      State = "cancelled"
	StateError          State = "error"
)

const (
	EventStart       Event = "start"
	EventSegmented   Event = "segmented"
	EventTranscribed Event = "transcribed"
	EventFinish      Event = "finish"
	EventCancel      Event = "cancel"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// Terminal reports whether no further run events are expected in state.
func Terminal(state State) bool {
	switch state {
	case StateDone, StateCancelled, StateError:
		return true
	default:
		return false
	}
}

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateSegmenting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSegmenting:
		switch event {
		case EventSegmented:
			return StateTranscribing, nil
		case EventCancel:
			return StateCancelled, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventTranscribed:
			return StatePostprocessing, nil
		case EventCancel:
			return StateCancelled, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePostprocessing:
		switch event {
		case EventFinish:
			return StateDone, nil
		case EventCancel:
			return StateCancelled, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDone, StateCancelled, StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
