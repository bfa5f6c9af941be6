package eventbus

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyEventName  = errors.New("event name is required")
	ErrEmptySubscriber = errors.New("subscriber name is required")
	ErrNilHandler      = errors.New("handler is nil")
	ErrBusClosed       = errors.New("event bus is closed")
	ErrHandlerPanic    = errors.New("handler panicked")
)

// PanicError carries the value a handler panicked with.
type PanicError struct {
	Event      string
	Subscriber string
	Value      any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: subscriber %q on %q: %v", ErrHandlerPanic, e.Subscriber, e.Event, e.Value)
}

func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic //nolint:errorlint
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// FormatError renders an error the way event.handler.failed reports it:
// "<Go type>: <message>".
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	return fmt.Sprintf("%T: %s", err, err.Error())
}
