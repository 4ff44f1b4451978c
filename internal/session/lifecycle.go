package session

import (
	"errors"
	"fmt"
)

type State int

const (
	StateCreated State = iota
	StateResumed
	StatePaused
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateResumed:
		return "resumed"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanDeliver reports whether a delivery may reach the consumer in this state.
func (s State) CanDeliver() bool {
	return s == StateCreated || s == StateResumed
}

var ErrInvalidTransition = errors.New("invalid session state transition")

type TransitionError struct {
	SessionID string
	From      State
	To        State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid session state transition for %s: %s -> %s", e.SessionID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// transition validates from -> to. Same-state transitions are no-ops, not errors.
func transition(id string, from, to State) (bool, error) {
	if from == to {
		return false, nil
	}
	switch {
	case from == StateDestroyed:
		return false, &TransitionError{SessionID: id, From: from, To: to}
	case to == StateDestroyed:
		return true, nil
	case to == StateResumed:
		return true, nil
	case to == StatePaused && from == StateResumed:
		return true, nil
	}
	return false, &TransitionError{SessionID: id, From: from, To: to}
}
