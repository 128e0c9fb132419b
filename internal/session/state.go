package session

import (
	"errors"
	"fmt"
)

// State is the session's position in its linear lifecycle.
type State int

const (
	AwaitingStage State = iota
	Viewing
	Redirected
)

func (s State) String() string {
	switch s {
	case AwaitingStage:
		return "awaiting_stage"
	case Viewing:
		return "viewing"
	case Redirected:
		return "redirected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s State) bool {
	return s == Redirected
}

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrClosed            = errors.New("session timer closed")
)

// TransitionError reports a rejected transition.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func isAllowedTransition(from, to State) bool {
	switch from {
	case AwaitingStage:
		return to == Viewing
	case Viewing:
		return to == Redirected
	default:
		return false
	}
}
