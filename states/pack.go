package states

import (
	"github.com/amp-labs/flexiflow/statepack"
	"github.com/amp-labs/flexiflow/symbols"
)

const (
	// ModulePath is the symbol module the built-ins are registered under.
	ModulePath = "flexiflow.states"

	// PackName is the name of the built-in pack.
	PackName = "builtin"
)

// BuiltinPack returns a fresh copy of the built-in pack.
func BuiltinPack() *statepack.Pack {
	return &statepack.Pack{
		PackName: PackName,
		States: []statepack.Provision{
			{Key: "InitialState", Spec: statepack.Spec(NewInitialState, "Waiting for a start message")},
			{Key: "AwaitingConfirmation", Spec: statepack.Spec(NewAwaitingConfirmation, "Waiting for confirm or cancel")},
			{Key: "Processing", Spec: statepack.Spec(NewProcessing, "Work in progress")},
			{Key: "Completed", Spec: statepack.Spec(NewCompleted, "Work finished")},
			{Key: "ErrorState", Spec: statepack.Spec(NewErrorState, "Work failed")},
		},
		Declarations: []statepack.TransitionSpec{
			{From: "InitialState", OnMessage: MsgStart, To: "AwaitingConfirmation"},
			{From: "AwaitingConfirmation", OnMessage: MsgConfirm, To: "Processing"},
			{From: "AwaitingConfirmation", OnMessage: MsgCancel, To: "InitialState"},
			{From: "Processing", OnMessage: MsgComplete, To: "Completed"},
			{From: "Processing", OnMessage: MsgError, To: "ErrorState"},
			{From: "Completed", OnMessage: MsgReset, To: "InitialState"},
			{From: "ErrorState", OnMessage: MsgReset, To: "InitialState"},
		},
	}
}

// Register exposes the built-in factories and pack in table under ModulePath.
func Register(table *symbols.Table) {
	table.RegisterModule(ModulePath, func() (map[string]any, error) {
		out := map[string]any{
			"BuiltinPack": func() statepack.StatePack { return BuiltinPack() },
		}

		for _, p := range BuiltinPack().Provides() {
			out[p.Key] = p.Spec.Factory
		}

		return out, nil
	})
}

func init() { //nolint:gochecknoinits
	Register(symbols.Default())
}
