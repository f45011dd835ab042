package timeparse

import (
	"errors"
	"fmt"
)

// Kind classifies a ParseFailure.
type Kind int

const (
	// MalformedInput means the "text - date/time" shape was not respected.
	MalformedInput Kind = iota + 1
	// Unrecognized means the date/time phrase did not resolve to an instant.
	Unrecognized
)

func (k Kind) String() string {
	switch k {
	case MalformedInput:
		return "malformed_input"
	case Unrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrMalformedInput = errors.New(`expected "text - date/time"`)
	ErrUnrecognized   = errors.New("date/time not recognized")
)

// ParseFailure is returned by Normalize. It is always recoverable: the user
// is asked to try again.
type ParseFailure struct {
	Kind  Kind
	Input string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("timeparse: %v: %q", e.Unwrap(), e.Input)
}

// Unwrap maps the failure onto its sentinel so callers can use errors.Is.
func (e *ParseFailure) Unwrap() error {
	if e.Kind == MalformedInput {
		return ErrMalformedInput
	}
	return ErrUnrecognized
}
