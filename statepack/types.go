// Package statepack composes named collections of states ("packs"), checks
// them for key collisions and missing dependencies, and answers questions
// about the result. Nothing here is consulted while messages are dispatched.
package statepack

import (
	"fmt"
	"sort"

	"github.com/amp-labs/flexiflow/statemachine"
)

// StateSpec binds a registry key to the factory that builds the state.
type StateSpec struct {
	Factory     statemachine.Factory
	Description string
}

// Spec is a shorthand for building a StateSpec.
func Spec(factory statemachine.Factory, description ...string) StateSpec {
	spec := StateSpec{Factory: factory}
	if len(description) > 0 {
		spec.Description = description[0]
	}

	return spec
}

// StateName returns the name of the state the factory builds.
func (s StateSpec) StateName() string {
	if s.Factory == nil {
		return "<nil>"
	}

	return statemachine.StateName(s.Factory())
}

func (s StateSpec) String() string {
	if s.Description != "" {
		return fmt.Sprintf("StateSpec(%s, %q)", s.StateName(), s.Description)
	}

	return fmt.Sprintf("StateSpec(%s)", s.StateName())
}

// TransitionSpec documents a transition a pack claims can happen. The machine
// never checks runtime transitions against it.
type TransitionSpec struct {
	From        string
	OnMessage   string
	To          string
	Guard       string
	Description string
}

func (t TransitionSpec) String() string {
	if t.Guard != "" {
		return fmt.Sprintf("TransitionSpec(%q --[%s]--> %q, guard=%q)", t.From, t.OnMessage, t.To, t.Guard)
	}

	return fmt.Sprintf("TransitionSpec(%q --[%s]--> %q)", t.From, t.OnMessage, t.To)
}

// Edge converts the declaration into the form the machine's verifier uses.
func (t TransitionSpec) Edge() statemachine.Edge {
	return statemachine.Edge{From: t.From, OnMessage: t.OnMessage, To: t.To}
}

// Provision is one key a pack provides.
type Provision struct {
	Key  string
	Spec StateSpec
}

// StatePack is a named bundle of state declarations.
type StatePack interface {
	Name() string
	Provides() []Provision
	Transitions() []TransitionSpec
	DependsOn() []string
}

// Pack is a StatePack described by value.
type Pack struct {
	PackName     string
	States       []Provision
	Declarations []TransitionSpec
	Requires     []string
}

var _ StatePack = (*Pack)(nil)

func (p *Pack) Name() string { return p.PackName }

func (p *Pack) Provides() []Provision {
	out := make([]Provision, len(p.States))
	copy(out, p.States)

	return out
}

func (p *Pack) Transitions() []TransitionSpec {
	out := make([]TransitionSpec, len(p.Declarations))
	copy(out, p.Declarations)

	return out
}

func (p *Pack) DependsOn() []string {
	out := make([]string, len(p.Requires))
	copy(out, p.Requires)
	sort.Strings(out)

	return out
}

// MappingPackName is the name every MappingPack reports.
const MappingPackName = "mapping"

// MappingPack adapts a plain key to factory table. It declares no
// transitions and no dependencies.
type MappingPack struct {
	states map[string]statemachine.Factory
}

var _ StatePack = (*MappingPack)(nil)

// NewMappingPack wraps states. The map is copied.
func NewMappingPack(states map[string]statemachine.Factory) *MappingPack {
	m := make(map[string]statemachine.Factory, len(states))
	for k, v := range states {
		m[k] = v
	}

	return &MappingPack{states: m}
}

func (m *MappingPack) Name() string { return MappingPackName }

// Provides returns the states in key order.
func (m *MappingPack) Provides() []Provision {
	keys := make([]string, 0, len(m.states))
	for k := range m.states {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]Provision, 0, len(keys))
	for _, k := range keys {
		out = append(out, Provision{Key: k, Spec: StateSpec{Factory: m.states[k]}})
	}

	return out
}

func (m *MappingPack) Transitions() []TransitionSpec { return nil }

func (m *MappingPack) DependsOn() []string { return nil }
