// Package states ships the built-in states and the "builtin" pack, and
// exposes both under the symbol module "flexiflow.states".
package states

import (
	"context"

	"github.com/amp-labs/flexiflow/statemachine"
)

// Message types understood by the built-in states.
const (
	MsgStart    = "start"
	MsgConfirm  = "confirm"
	MsgCancel   = "cancel"
	MsgComplete = "complete"
	MsgError    = "error"
	MsgReset    = "reset"
)

// InitialState waits for a start message.
type InitialState struct{}

func (s *InitialState) HandleMessage(
	_ context.Context,
	msg statemachine.Message,
	_ statemachine.Owner,
) (bool, statemachine.State, error) {
	if msg.Type() == MsgStart {
		return true, &AwaitingConfirmation{}, nil
	}

	return false, s, nil
}

// AwaitingConfirmation waits for the caller to confirm or cancel.
type AwaitingConfirmation struct{}

func (s *AwaitingConfirmation) HandleMessage(
	_ context.Context,
	msg statemachine.Message,
	_ statemachine.Owner,
) (bool, statemachine.State, error) {
	switch msg.Type() {
	case MsgConfirm:
		return true, &Processing{}, nil
	case MsgCancel:
		return true, &InitialState{}, nil
	default:
		return false, s, nil
	}
}

// Processing runs until the work completes or fails.
type Processing struct{}

func (s *Processing) HandleMessage(
	_ context.Context,
	msg statemachine.Message,
	_ statemachine.Owner,
) (bool, statemachine.State, error) {
	switch msg.Type() {
	case MsgComplete:
		return true, &Completed{}, nil
	case MsgError:
		return true, &ErrorState{}, nil
	default:
		return false, s, nil
	}
}

// Completed is terminal until reset.
type Completed struct{}

func (s *Completed) HandleMessage(
	_ context.Context,
	msg statemachine.Message,
	_ statemachine.Owner,
) (bool, statemachine.State, error) {
	if msg.Type() == MsgReset {
		return true, &InitialState{}, nil
	}

	return false, s, nil
}

// ErrorState is entered when processing fails; reset starts over.
type ErrorState struct{}

func (s *ErrorState) HandleMessage(
	_ context.Context,
	msg statemachine.Message,
	_ statemachine.Owner,
) (bool, statemachine.State, error) {
	if msg.Type() == MsgReset {
		return true, &InitialState{}, nil
	}

	return false, s, nil
}

func NewInitialState() statemachine.State         { return &InitialState{} }
func NewAwaitingConfirmation() statemachine.State { return &AwaitingConfirmation{} }
func NewProcessing() statemachine.State           { return &Processing{} }
func NewCompleted() statemachine.State            { return &Completed{} }
func NewErrorState() statemachine.State           { return &ErrorState{} }
