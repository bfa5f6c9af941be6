package statepack

import (
	"fmt"

	"github.com/amp-labs/flexiflow/errors"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/symbols"
)

// LoadPack resolves a "module:Symbol" reference to a StatePack. The symbol may
// be a StatePack or a func() StatePack.
func LoadPack(table *symbols.Table, ref string) (StatePack, error) {
	if table == nil {
		table = symbols.Default()
	}

	value, err := table.Resolve(ref)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case StatePack:
		return v, nil
	case func() StatePack:
		if pack := v(); pack != nil {
			return pack, nil
		}
	}

	return nil, fmt.Errorf("%w: %q resolved to %T", ErrNotAPack, ref, value)
}

// LoadMapping resolves each value of states (a "module:Symbol" reference) and
// wraps the result in a MappingPack. Every failure is reported, keyed by the
// registry key it belongs to.
func LoadMapping(table *symbols.Table, states map[string]string) (*MappingPack, error) {
	if table == nil {
		table = symbols.Default()
	}

	factories := make(map[string]statemachine.Factory, len(states))

	var problems errors.Collection

	for _, key := range sortedKeys(states) {
		ref := states[key]

		value, err := table.Resolve(ref)
		if err == nil {
			factories[key], err = AsFactory(ref, value)
		}

		if err != nil {
			problems.Add(fmt.Errorf("state %q: %w", key, err))
		}
	}

	if problems.HasError() {
		return nil, problems.GetError()
	}

	return NewMappingPack(factories), nil
}
