package flowtest

import (
	"context"

	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/symbols"
)

// FixtureModule is the symbol module the fixtures are registered under.
const FixtureModule = "tests.fixtures"

// FixtureInitial never transitions.
type FixtureInitial struct{}

func (s *FixtureInitial) HandleMessage(
	context.Context,
	statemachine.Message,
	statemachine.Owner,
) (bool, statemachine.State, error) {
	return false, s, nil
}

// AnotherFixtureState moves to FixtureInitial on "advance".
type AnotherFixtureState struct{}

func (s *AnotherFixtureState) HandleMessage(
	_ context.Context,
	msg statemachine.Message,
	_ statemachine.Owner,
) (bool, statemachine.State, error) {
	if msg.Type() == "advance" {
		return true, &FixtureInitial{}, nil
	}

	return false, s, nil
}

// NotAState is registered to exercise "not a factory" errors.
type NotAState struct{}

// RegisterFixtures adds the fixtures to table under FixtureModule.
func RegisterFixtures(table *symbols.Table) {
	table.Register(FixtureModule, "FixtureInitial",
		statemachine.Factory(func() statemachine.State { return &FixtureInitial{} }))
	table.Register(FixtureModule, "AnotherFixtureState",
		statemachine.Factory(func() statemachine.State { return &AnotherFixtureState{} }))
	table.Register(FixtureModule, "NotAState", NotAState{})
}

// StubOwner is a minimal statemachine.Owner.
type StubOwner struct {
	OwnerName  string
	OwnerRules []statemachine.Rule
}

func (o StubOwner) Name() string               { return o.OwnerName }
func (o StubOwner) Rules() []statemachine.Rule { return o.OwnerRules }
