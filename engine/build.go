package engine

import (
	"context"
	"fmt"

	"github.com/amp-labs/flexiflow/component"
	"github.com/amp-labs/flexiflow/config"
	"github.com/amp-labs/flexiflow/logger"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/statepack"
	"github.com/amp-labs/flexiflow/states"
)

// BuildCatalog assembles the state catalog for a component config. Listed
// packs are loaded by reference; with none listed the builtin pack is used.
// A states mapping becomes one more pack.
func (e *Engine) BuildCatalog(ctx context.Context, cfg *config.Component) (*statepack.Catalog, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	registry := statepack.NewRegistry(statepack.WithSymbols(e.table))

	if len(cfg.Packs) == 0 {
		if err := registry.Register(states.BuiltinPack()); err != nil {
			return nil, err
		}
	}

	for _, ref := range cfg.Packs {
		pack, err := statepack.LoadPack(e.table, ref)
		if err != nil {
			return nil, fmt.Errorf("component %q: pack %q: %w", cfg.Name, ref, err)
		}

		if err := registry.Register(pack); err != nil {
			return nil, err
		}
	}

	if len(cfg.States) > 0 {
		mapping, err := statepack.LoadMapping(e.table, cfg.States)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", cfg.Name, err)
		}

		if err := registry.Register(mapping); err != nil {
			return nil, err
		}
	}

	catalog, err := registry.Build()
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", cfg.Name, err)
	}

	logger.Get(ctx).DebugContext(ctx, "Built state catalog",
		"component", cfg.Name,
		"packs", catalog.Packs(),
		"states", catalog.Len(),
	)

	return catalog, nil
}

// BuildComponent builds a component from cfg, attaches it to the engine's bus
// and registers it.
func (e *Engine) BuildComponent(ctx context.Context, cfg *config.Component) (*component.Component, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	catalog, err := e.BuildCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		machineOpts []statemachine.Option
		verifier    *statemachine.Verifier
	)

	if e.settings.VerifyTransitions {
		verifier = statemachine.NewVerifier(catalog.Edges())
		machineOpts = append(machineOpts, statemachine.WithVerifier(verifier))
	}

	initial := cfg.InitialState
	if initial == "" {
		initial = config.DefaultInitialState
	}

	machine, err := statemachine.FromName(initial, catalog, machineOpts...)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", cfg.Name, err)
	}

	compOpts := []component.Option{
		component.WithBus(e.bus),
		component.WithRules(cfg.Rules...),
	}

	if e.sink != nil {
		compOpts = append(compOpts, component.WithLogSink(e.sink))
	}

	comp, err := component.New(cfg.Name, machine, compOpts...)
	if err != nil {
		return nil, err
	}

	if err := e.add(ctx, &entry{comp: comp, catalog: catalog, verifier: verifier}); err != nil {
		return nil, err
	}

	logger.Get(ctx).InfoContext(ctx, "Component built",
		"component", cfg.Name,
		"initial_state", machine.CurrentName(),
		"engine_id", e.id,
	)

	return comp, nil
}
