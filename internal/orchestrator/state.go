package orchestrator

import (
	"errors"
	"fmt"
)

// State is a step of one document's client-side pipeline.
type State string

const (
	StateIdle         State = "idle"
	StateExtracting   State = "extracting"
	StateQualityCheck State = "quality_check"
	StateOCRPending   State = "ocr_pending"
	StateUploading    State = "uploading"
	StateProcessing   State = "processing"
	StateBatching     State = "batching"
	StateDone         State = "done"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Terminal reports whether no further events are accepted.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Event drives a State change.
type Event string

const (
	EventSelect        Event = "select"         // file accepted
	EventExtracted     Event = "extracted"      // text layer read
	EventScanned       Event = "scanned"        // text layer too thin, OCR needed
	EventRemoteExtract Event = "remote_extract" // DOCX, extracted by the backend
	EventQualityPassed Event = "quality_passed"
	EventQualityFailed Event = "quality_failed"
	EventUseText       Event = "use_text"
	EventRunOCR        Event = "run_ocr"
	EventOCRDone       Event = "ocr_done"
	EventUploaded      Event = "uploaded"
	EventBatching      Event = "batching"
	EventCompleted     Event = "completed"
	EventCancel        Event = "cancel"
	EventFail          Event = "fail"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// transitions lists every (state, event) pair the pipeline accepts.
// EventFail is handled separately: it is valid from any non-terminal state.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventSelect: StateExtracting,
		EventCancel: StateCancelled,
	},
	StateExtracting: {
		EventExtracted:     StateQualityCheck,
		EventScanned:       StateOCRPending,
		EventRemoteExtract: StateUploading,
		EventOCRDone:       StateUploading,
		EventCancel:        StateCancelled,
	},
	StateQualityCheck: {
		EventQualityPassed: StateUploading,
		EventQualityFailed: StateOCRPending,
		EventCancel:        StateCancelled,
	},
	StateOCRPending: {
		EventUseText: StateUploading,
		EventRunOCR:  StateExtracting,
		EventCancel:  StateCancelled,
	},
	StateUploading: {
		EventUploaded: StateProcessing,
	},
	StateProcessing: {
		EventBatching:  StateBatching,
		EventCompleted: StateDone,
	},
	StateBatching: {
		EventCompleted: StateDone,
	},
}

// Transition returns the state reached from s on e. It has no side effects.
func Transition(s State, e Event) (State, error) {
	if s.Terminal() {
		return s, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s)
	}
	if e == EventFail {
		return StateFailed, nil
	}
	next, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return next, nil
}

// Phase is the coarse progress label shown to users.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseExtracting Phase = "extracting"
	PhaseUploading  Phase = "uploading"
	PhaseProcessing Phase = "processing"
	PhaseBatching   Phase = "batching"
)

// Phase maps a state onto its user-facing phase.
func (s State) Phase() Phase {
	switch s {
	case StateExtracting, StateQualityCheck, StateOCRPending:
		return PhaseExtracting
	case StateUploading:
		return PhaseUploading
	case StateProcessing:
		return PhaseProcessing
	case StateBatching:
		return PhaseBatching
	default:
		return PhaseIdle
	}
}
