// Package engine hosts a set of named components on one event bus. It
// serializes messages per component, which components themselves do not do.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/amp-labs/flexiflow/component"
	"github.com/amp-labs/flexiflow/config"
	"github.com/amp-labs/flexiflow/eventbus"
	"github.com/amp-labs/flexiflow/logger"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/statepack"
	"github.com/amp-labs/flexiflow/symbols"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

var (
	ErrDuplicateComponent = errors.New("component already registered")
	ErrUnknownComponent   = errors.New("unknown component")
	ErrEngineClosed       = errors.New("engine is closed")
	ErrNilComponent       = errors.New("component is nil")
	ErrNilConfig          = errors.New("component config is nil")
)

type entry struct {
	mu       sync.Mutex
	comp     *component.Component
	catalog  *statepack.Catalog
	verifier *statemachine.Verifier
}

// Engine owns a bus and the components attached to it.
type Engine struct {
	id      string
	bus     *eventbus.Bus
	ownsBus bool
	table   *symbols.Table
	sink    component.LogSink

	settings config.Settings

	mu      sync.RWMutex
	entries map[string]*entry

	handled *atomic.Uint64
	failed  *atomic.Uint64
	closed  *atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus uses an existing bus. The engine will not close it.
func WithBus(bus *eventbus.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithSymbols sets the symbol table used to resolve references in configs.
func WithSymbols(table *symbols.Table) Option {
	return func(e *Engine) {
		e.table = table
	}
}

// WithSettings applies environment settings: the bus worker count and whether
// built components verify their transitions.
func WithSettings(settings config.Settings) Option {
	return func(e *Engine) {
		e.settings = settings
	}
}

// WithLogSink gives every component built by the engine this sink.
func WithLogSink(sink component.LogSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		id:       uuid.NewString(),
		settings: config.Settings{BusWorkers: config.DefaultBusWorkers},
		entries:  make(map[string]*entry),
		handled:  atomic.NewUint64(0),
		failed:   atomic.NewUint64(0),
		closed:   atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.table == nil {
		e.table = symbols.Default()
	}

	if e.bus == nil {
		e.bus = eventbus.New(eventbus.WithMaxConcurrency(e.settings.BusWorkers))
		e.ownsBus = true
	}

	return e
}

// ID identifies this engine instance in logs.
func (e *Engine) ID() string { return e.id }

// Bus returns the engine's event bus.
func (e *Engine) Bus() *eventbus.Bus { return e.bus }

// AddComponent registers an already constructed component.
func (e *Engine) AddComponent(ctx context.Context, comp *component.Component) error {
	if comp == nil {
		return ErrNilComponent
	}

	return e.add(ctx, &entry{comp: comp})
}

// add registers ent and publishes engine.component.registered.
func (e *Engine) add(ctx context.Context, ent *entry) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	name := ent.comp.Name()

	e.mu.Lock()

	if _, exists := e.entries[name]; exists {
		e.mu.Unlock()

		return fmt.Errorf("%w: %q", ErrDuplicateComponent, name)
	}

	e.entries[name] = ent

	e.mu.Unlock()

	if err := e.bus.Publish(ctx, eventbus.EventComponentRegistered, eventbus.Data{"component": name}); err != nil {
		logger.Get(ctx).WarnContext(ctx, "Failed to publish component registration",
			"component", name,
			"engine_id", e.id,
			"error", err,
		)
	}

	return nil
}

func (e *Engine) lookup(name string) (*entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ent, ok := e.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}

	return ent, nil
}

// Component returns a registered component.
func (e *Engine) Component(name string) (*component.Component, error) {
	ent, err := e.lookup(name)
	if err != nil {
		return nil, err
	}

	return ent.comp, nil
}

// Components lists the registered component names in sorted order.
func (e *Engine) Components() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.entries))
	for name := range e.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Catalog returns the catalog a component was built from. Components added
// with AddComponent have none.
func (e *Engine) Catalog(name string) (*statepack.Catalog, bool) {
	ent, err := e.lookup(name)
	if err != nil || ent.catalog == nil {
		return nil, false
	}

	return ent.catalog, true
}

// Verifier returns the transition verifier of a component built with
// verification on.
func (e *Engine) Verifier(name string) (*statemachine.Verifier, bool) {
	ent, err := e.lookup(name)
	if err != nil || ent.verifier == nil {
		return nil, false
	}

	return ent.verifier, true
}

// HandleMessage delivers msg to the named component. Messages for the same
// component are handled one at a time; different components run in parallel.
func (e *Engine) HandleMessage(ctx context.Context, name string, msg statemachine.Message) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	ent, err := e.lookup(name)
	if err != nil {
		return err
	}

	ctx = logger.With(ctx, "engine_id", e.id)

	ent.mu.Lock()
	defer ent.mu.Unlock()

	e.handled.Inc()

	err = ent.comp.HandleMessage(ctx, msg)
	if err != nil {
		e.failed.Inc()

		return err
	}

	return nil
}

// UpdateRules appends rules to the named component. The update waits for a
// message in flight on that component to finish.
func (e *Engine) UpdateRules(ctx context.Context, name string, rules []statemachine.Rule) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	ent, err := e.lookup(name)
	if err != nil {
		return err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	ent.comp.UpdateRules(rules)

	logger.Get(ctx).InfoContext(ctx, "Rules updated",
		"component", name,
		"added", len(rules),
		"engine_id", e.id,
	)

	return nil
}

// Stats is a snapshot of engine counters.
type Stats struct {
	ID         string `json:"id"`
	Components int    `json:"components"`
	Handled    uint64 `json:"handled"`
	Failed     uint64 `json:"failed"`
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	n := len(e.entries)
	e.mu.RUnlock()

	return Stats{
		ID:         e.id,
		Components: n,
		Handled:    e.handled.Load(),
		Failed:     e.failed.Load(),
	}
}

// Close rejects further messages and closes the bus if the engine created it.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}

	if e.ownsBus {
		e.bus.Close()
	}
}
