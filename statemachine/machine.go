// Package statemachine holds the state interface and the Machine that
// dispatches messages to the current state.
package statemachine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Machine owns exactly one current state. HandleMessage is the only place the
// current state changes. A Machine does no locking: callers serialize
// HandleMessage per machine.
type Machine struct {
	current  State
	logger   Logger
	verifier *Verifier
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger replaces the default dispatch logger. A nil logger disables
// dispatch logging.
func WithLogger(l Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithVerifier attaches a verifier that is told about every transition.
func WithVerifier(v *Verifier) Option {
	return func(m *Machine) {
		m.verifier = v
	}
}

// New creates a machine whose current state is initial.
func New(initial State, opts ...Option) (*Machine, error) {
	if initial == nil {
		return nil, ErrNilState
	}

	m := &Machine{
		current: initial,
		logger:  NewDefaultLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// FromName resolves name through resolver, instantiates the state and builds
// a machine around it.
func FromName(name string, resolver Resolver, opts ...Option) (*Machine, error) {
	if resolver == nil {
		return nil, WrapStateError(name, ErrNilResolver)
	}

	factory, err := resolver.Resolve(name)
	if err != nil {
		return nil, WrapStateError(name, err)
	}

	if factory == nil {
		return nil, WrapStateError(name, ErrNilFactory)
	}

	initial := factory()
	if initial == nil {
		return nil, WrapStateError(name, ErrNilFactory)
	}

	return New(initial, opts...)
}

// Current returns the current state instance.
func (m *Machine) Current() State {
	return m.current
}

// CurrentName returns the name of the current state.
func (m *Machine) CurrentName() string {
	return StateName(m.current)
}

// HandleMessage asks the current state to handle msg. On success the returned
// state becomes current whether or not a transition was reported. Errors from
// the state are returned as-is and leave the current state untouched.
func (m *Machine) HandleMessage(ctx context.Context, msg Message, owner Owner) (transitioned bool, next State, err error) {
	from := m.CurrentName()

	ctx, span := startDispatchSpan(ctx, from, msg)

	defer func() {
		span.SetAttributes(attribute.Bool("transitioned", transitioned))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "completed")
		}

		span.End()
	}()

	start := time.Now()
	transitioned, next, err = m.current.HandleMessage(ctx, msg, owner)
	elapsed := time.Since(start)

	dispatchDuration.WithLabelValues(sanitizeState(from)).Observe(elapsed.Seconds())

	if err == nil && next == nil {
		err = WrapTransitionError(from, "", ErrNilNextState)
	}

	if m.logger != nil {
		m.logger.MessageDispatched(ctx, from, msg, elapsed, err)
	}

	if err != nil {
		dispatchTotal.WithLabelValues(sanitizeState(from), outcomeError).Inc()

		return false, m.current, err
	}

	dispatchTotal.WithLabelValues(sanitizeState(from), outcomeSuccess).Inc()

	m.current = next

	if transitioned {
		to := StateName(next)

		transitionsTotal.WithLabelValues(sanitizeState(from), sanitizeState(to)).Inc()

		if m.logger != nil {
			m.logger.TransitionExecuted(ctx, from, to)
		}

		if m.verifier != nil {
			m.verifier.Observe(ctx, from, msg.Type(), to)
		}
	}

	return transitioned, next, nil
}
