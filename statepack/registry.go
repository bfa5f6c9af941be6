package statepack

import (
	"sort"
	"sync"

	"github.com/amp-labs/flexiflow/errors"
	"github.com/amp-labs/flexiflow/symbols"
)

// Registry collects packs and validates them together.
type Registry struct {
	mu      sync.Mutex
	packs   []StatePack
	symbols *symbols.Table
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSymbols sets the table used to resolve dotted references. Defaults to
// symbols.Default().
func WithSymbols(table *symbols.Table) RegistryOption {
	return func(r *Registry) {
		r.symbols = table
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{symbols: symbols.Default()}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a pack to the set. Validation happens in Build.
func (r *Registry) Register(pack StatePack) error {
	if pack == nil {
		return ErrNilPack
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.packs = append(r.packs, pack)

	return nil
}

// Packs returns the registered packs in registration order.
func (r *Registry) Packs() []StatePack {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StatePack, len(r.packs))
	copy(out, r.packs)

	return out
}

// Build validates the registered packs and returns their combined catalog.
// Every collision and unmet dependency is reported, in key order, so the
// result does not depend on registration order.
func (r *Registry) Build() (*Catalog, error) {
	packs := r.Packs()

	providers := make(map[string][]string)
	specs := make(map[string]StateSpec)

	var transitions []TransitionSpec

	for _, pack := range packs {
		for _, p := range pack.Provides() {
			providers[p.Key] = append(providers[p.Key], pack.Name())
			specs[p.Key] = p.Spec
		}

		transitions = append(transitions, pack.Transitions()...)
	}

	var problems errors.Collection

	for _, key := range sortedKeys(providers) {
		names := providers[key]
		if len(names) < 2 { //nolint:mnd
			continue
		}

		distinct := distinctSorted(names)

		dup := &DuplicateStateError{Key: key, First: distinct[0], Second: distinct[0], Packs: distinct}
		if len(distinct) > 1 {
			dup.Second = distinct[1]
		}

		problems.Add(dup)
	}

	var missing []*MissingDependencyError

	for _, pack := range packs {
		for _, dep := range pack.DependsOn() {
			if _, ok := providers[dep]; !ok {
				missing = append(missing, &MissingDependencyError{Key: dep, Pack: pack.Name()})
			}
		}
	}

	sort.Slice(missing, func(i, j int) bool {
		if missing[i].Key != missing[j].Key {
			return missing[i].Key < missing[j].Key
		}

		return missing[i].Pack < missing[j].Pack
	})

	for _, m := range missing {
		problems.Add(m)
	}

	if problems.HasError() {
		return nil, problems.GetError()
	}

	attribution := make(map[string]string, len(providers))
	for key, names := range providers {
		attribution[key] = names[0]
	}

	return &Catalog{
		specs:       specs,
		attribution: attribution,
		transitions: transitions,
		packs:       packNames(packs),
		symbols:     r.symbols,
	}, nil
}

func distinctSorted(names []string) []string {
	seen := make(map[string]bool, len(names))

	out := make([]string, 0, len(names))

	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	sort.Strings(out)

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func packNames(packs []StatePack) []string {
	out := make([]string, len(packs))
	for i, p := range packs {
		out[i] = p.Name()
	}

	return out
}
