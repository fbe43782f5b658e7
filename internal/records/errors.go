package records

import (
	"errors"
	"fmt"

	"github.com/tagging-ai/tagboard/internal/backend"
)

// Kind classifies a store failure.
type Kind int

const (
	KindBackend Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindInFlight
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindInFlight:
		return "in_flight"
	}
	return "backend"
}

var (
	// ErrEmptyText rejects blank analyze input before any network call.
	ErrEmptyText = errors.New("text is empty")
	// ErrNotCSV rejects batch uploads that are not .csv files.
	ErrNotCSV = errors.New("not a CSV file")
	// ErrInFlight rejects a second mutation of a record already being mutated.
	ErrInFlight = errors.New("operation already in progress")
	// ErrUnknownRecord rejects mutations of ids missing from a loaded store
	// before any network call.
	ErrUnknownRecord = errors.New("unknown record")
)

// Error is the only error type returned by Store operations. Message is
// short and safe to show to the user.
type Error struct {
	Op      string
	ID      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuth reports whether err requires the user to log in again.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuth
}

// UserMessage returns the message to display for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return backend.UserMessage(err)
}

func validation(op string, err error, msg string) *Error {
	return &Error{Op: op, Kind: KindValidation, Message: msg, Err: err}
}

// classify wraps a backend failure.
func classify(op, id string, err error) *Error {
	e := &Error{Op: op, ID: id, Kind: KindBackend, Message: backend.UserMessage(err), Err: err}
	switch {
	case errors.Is(err, backend.ErrNoToken), errors.Is(err, backend.ErrUnauthorized):
		e.Kind = KindAuth
		e.Message = "Session expired, please log in again"
	case errors.Is(err, backend.ErrNotFound):
		e.Kind = KindNotFound
	}
	return e
}
