package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrNilState is returned when a machine is built without an initial state.
	ErrNilState = errors.New("state is nil")
	// ErrNilNextState is returned when a state's HandleMessage returns a nil
	// next state without an error.
	ErrNilNextState = errors.New("state returned a nil next state")
	// ErrNilResolver is returned by FromName when no resolver is supplied.
	ErrNilResolver = errors.New("resolver is nil")
	// ErrNilFactory is returned when a resolver hands back a nil factory or the
	// factory builds a nil state.
	ErrNilFactory = errors.New("factory is nil or built a nil state")
)

// StateError wraps an error with state context.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with transition context.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("transition from %s: %v", e.From, e.Err)
	}

	return fmt.Sprintf("transition %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{
		State: state,
		Err:   err,
	}
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, to string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		From: from,
		To:   to,
		Err:  err,
	}
}
