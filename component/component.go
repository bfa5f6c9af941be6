// Package component ties a state machine to an event bus. A Component
// announces each inbound message, lets its machine decide, and announces
// transitions.
package component

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/amp-labs/flexiflow/eventbus"
	"github.com/amp-labs/flexiflow/logger"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ErrEmptyName  = errors.New("component name is required")
	ErrNilMachine = errors.New("component state machine is nil")
)

var messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flexiflow_component_messages_total",
	Help: "Total number of messages handled by components, by component and whether a transition occurred",
}, []string{"component", "transitioned"})

// LogSink receives one line per transition.
type LogSink interface {
	Infof(format string, args ...any)
}

// SlogSink adapts a slog.Logger to LogSink.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) Infof(format string, args ...any) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}

	l.Info(fmt.Sprintf(format, args...))
}

// Component is a named unit driven by a state machine.
type Component struct {
	name    string
	machine *statemachine.Machine
	sink    LogSink
	bus     *eventbus.Bus

	rulesMu sync.RWMutex
	rules   []statemachine.Rule
}

var _ statemachine.Owner = (*Component)(nil)

// Option configures a Component.
type Option func(*Component)

// WithBus attaches an event bus.
func WithBus(bus *eventbus.Bus) Option {
	return func(c *Component) {
		c.bus = bus
	}
}

// WithLogSink attaches a sink that is told about every transition.
func WithLogSink(sink LogSink) Option {
	return func(c *Component) {
		c.sink = sink
	}
}

// WithRules sets the initial rule list.
func WithRules(rules ...statemachine.Rule) Option {
	return func(c *Component) {
		c.rules = append(c.rules, rules...)
	}
}

// New creates a component.
func New(name string, machine *statemachine.Machine, opts ...Option) (*Component, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	if machine == nil {
		return nil, ErrNilMachine
	}

	c := &Component{
		name:    name,
		machine: machine,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Component) Name() string { return c.name }

// Machine returns the component's state machine.
func (c *Component) Machine() *statemachine.Machine { return c.machine }

// Bus returns the attached bus, or nil.
func (c *Component) Bus() *eventbus.Bus { return c.bus }

// CurrentState returns the name of the machine's current state.
func (c *Component) CurrentState() string { return c.machine.CurrentName() }

// Rules returns a copy of the rule list.
func (c *Component) Rules() []statemachine.Rule {
	c.rulesMu.RLock()
	defer c.rulesMu.RUnlock()

	out := make([]statemachine.Rule, len(c.rules))
	copy(out, c.rules)

	return out
}

// AddRule appends one rule.
func (c *Component) AddRule(rule statemachine.Rule) {
	c.rulesMu.Lock()
	defer c.rulesMu.Unlock()

	c.rules = append(c.rules, rule)
}

// UpdateRules appends rules in order. Existing rules are kept as they are.
func (c *Component) UpdateRules(rules []statemachine.Rule) {
	c.rulesMu.Lock()
	defer c.rulesMu.Unlock()

	c.rules = append(c.rules, rules...)
}

// HandleMessage runs one message through the component:
//
//  1. publish component.message.received
//  2. dispatch to the state machine
//  3. on a transition, tell the log sink and publish state.changed
//
// Errors from the state are returned unchanged. Bus failures never stop a
// message; they are logged. Calls must not overlap for the same component.
func (c *Component) HandleMessage(ctx context.Context, msg statemachine.Message) error {
	ctx = logger.With(ctx, "component", c.name, "message_id", uuid.NewString())

	fromState := c.machine.CurrentName()

	if c.bus != nil {
		c.publish(ctx, eventbus.EventMessageReceived, eventbus.Data{
			"component": c.name,
			"message":   msg,
		})
	}

	transitioned, next, err := c.machine.HandleMessage(ctx, msg, c)
	if err != nil {
		return err
	}

	messagesTotal.WithLabelValues(c.name, strconv.FormatBool(transitioned)).Inc()

	if !transitioned {
		return nil
	}

	toState := statemachine.StateName(next)

	if c.sink != nil {
		c.sink.Infof("%s transitioned to %s", c.name, toState)
	}

	if c.bus != nil {
		c.publish(ctx, eventbus.EventStateChanged, eventbus.Data{
			"component":  c.name,
			"from_state": fromState,
			"to_state":   toState,
		})
	}

	return nil
}

func (c *Component) publish(ctx context.Context, event string, data eventbus.Data) {
	if err := c.bus.Publish(ctx, event, data); err != nil {
		logger.Get(ctx).WarnContext(ctx, "Failed to publish component event",
			"event", event,
			"error", err,
		)
	}
}
