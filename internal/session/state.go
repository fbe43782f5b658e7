package session

import (
	"errors"
	"fmt"
)

// State is the authentication state of a session.
type State int

const (
	// StateUnknown is the state before the stored token has been probed.
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInvalidTransition is returned for state changes outside the allowed set.
var ErrInvalidTransition = errors.New("invalid session transition")

var allowedTransitions = map[State][]State{
	StateUnknown:         {StateAuthenticated, StateUnauthenticated},
	StateAuthenticated:   {StateUnauthenticated},
	StateUnauthenticated: {StateAuthenticated},
}

func canTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
