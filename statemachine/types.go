package statemachine

import (
	"context"
	"reflect"
)

// Message is an inbound record handed to a component. The machine only looks
// at the "type" field, and only for observability.
type Message map[string]any

// Type returns the message's "type" field, or "" if absent or not a string.
func (m Message) Type() string {
	if m == nil {
		return ""
	}

	t, _ := m["type"].(string)

	return t
}

// Rule is an opaque rule record attached to a component.
type Rule = map[string]any

// Owner is the component a state is handling a message for. States may read
// from it during HandleMessage but must not keep it.
type Owner interface {
	Name() string
	Rules() []Rule
}

// State decides what happens when a message arrives. It returns whether a
// transition occurred and the state that becomes current. Returning the
// receiver with false means "stay".
type State interface {
	HandleMessage(ctx context.Context, msg Message, owner Owner) (bool, State, error)
}

// Named is implemented by states that want a name other than their Go type name.
type Named interface {
	Name() string
}

// Factory constructs a fresh State. It is what registries and symbol tables
// hand out for a state name.
type Factory func() State

// Resolver turns a state name into a Factory.
type Resolver interface {
	Resolve(name string) (Factory, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (Factory, error)

// Resolve calls f(name).
func (f ResolverFunc) Resolve(name string) (Factory, error) {
	return f(name)
}

// StateName returns the state's Name() if it has one, or its concrete type
// name with pointer indirection removed.
func StateName(s State) string {
	if s == nil {
		return ""
	}

	if n, ok := s.(Named); ok {
		return n.Name()
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Name() != "" {
		return t.Name()
	}

	return t.String()
}

// HandlerFunc is the signature of a state's decision function.
type HandlerFunc func(ctx context.Context, msg Message, owner Owner) (bool, State, error)

type funcState struct {
	name string
	fn   HandlerFunc
}

func (f *funcState) Name() string { return f.name }

func (f *funcState) HandleMessage(ctx context.Context, msg Message, owner Owner) (bool, State, error) {
	return f.fn(ctx, msg, owner)
}

// Func builds a named State from a function. A nil fn never transitions.
func Func(name string, fn HandlerFunc) State {
	s := &funcState{name: name}

	if fn == nil {
		s.fn = func(context.Context, Message, Owner) (bool, State, error) {
			return false, s, nil
		}
	} else {
		s.fn = fn
	}

	return s
}
