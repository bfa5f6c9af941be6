package statepack

import (
	"fmt"
	"sort"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/symbols"
)

// Catalog is the validated union of a set of packs. It is read-only.
type Catalog struct {
	specs       map[string]StateSpec
	attribution map[string]string
	transitions []TransitionSpec
	packs       []string
	symbols     *symbols.Table
}

var _ statemachine.Resolver = (*Catalog)(nil)

// Keys returns every provided key in sorted order.
func (c *Catalog) Keys() []string {
	return sortedKeys(c.specs)
}

// Len returns the number of provided keys.
func (c *Catalog) Len() int {
	return len(c.specs)
}

// Packs returns the pack names in registration order.
func (c *Catalog) Packs() []string {
	out := make([]string, len(c.packs))
	copy(out, c.packs)

	return out
}

// Lookup returns the spec registered under key.
func (c *Catalog) Lookup(key string) (StateSpec, bool) {
	spec, ok := c.specs[key]

	return spec, ok
}

// Attribution returns the name of the pack that provides key, or "".
func (c *Catalog) Attribution(key string) string {
	return c.attribution[key]
}

// Transitions returns every declared transition, in pack registration order
// and then declaration order.
func (c *Catalog) Transitions() []TransitionSpec {
	out := make([]TransitionSpec, len(c.transitions))
	copy(out, c.transitions)

	return out
}

// Edges returns the declared transitions in the form a statemachine.Verifier
// takes.
func (c *Catalog) Edges() []statemachine.Edge {
	out := make([]statemachine.Edge, len(c.transitions))
	for i, t := range c.transitions {
		out[i] = t.Edge()
	}

	return out
}

// Resolve turns a state name into a factory. Registry keys win; otherwise a
// "module:Symbol" reference is looked up in the symbol table.
func (c *Catalog) Resolve(name string) (statemachine.Factory, error) {
	if spec, ok := c.specs[name]; ok {
		if spec.Factory == nil {
			return nil, fmt.Errorf("%w: registry key %q has no factory", ErrNotAFactory, name)
		}

		return spec.Factory, nil
	}

	if !symbols.IsReference(name) {
		return nil, fmt.Errorf("%w: %q is neither a registry key nor a 'module.path:SymbolName' reference",
			ErrUnknownState, name)
	}

	table := c.symbols
	if table == nil {
		table = symbols.Default()
	}

	value, err := table.Resolve(name)
	if err != nil {
		return nil, err
	}

	return AsFactory(name, value)
}

// AsFactory converts a resolved symbol into a factory.
func AsFactory(ref string, value any) (statemachine.Factory, error) {
	switch v := value.(type) {
	case statemachine.Factory:
		if v != nil {
			return v, nil
		}
	case func() statemachine.State:
		if v != nil {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: %q resolved to %T", ErrNotAFactory, ref, value)
}

// Explanation describes one provided key.
type Explanation struct {
	Key         string `json:"key"`
	Pack        string `json:"pack"`
	StateName   string `json:"state"`
	Description string `json:"description,omitempty"`
}

// Explain describes every provided key, ordered naturally by pack and then key.
func (c *Catalog) Explain() []Explanation {
	out := make([]Explanation, 0, len(c.specs))

	for key, spec := range c.specs {
		out = append(out, Explanation{
			Key:         key,
			Pack:        c.attribution[key],
			StateName:   spec.StateName(),
			Description: spec.Description,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Pack != out[j].Pack {
			return natsort.Compare(out[i].Pack, out[j].Pack)
		}

		return natsort.Compare(out[i].Key, out[j].Key)
	})

	return out
}

// ExplainText renders Explain as one line per key, grouped by pack.
func (c *Catalog) ExplainText() string {
	var sb strings.Builder

	currentPack := ""

	for i, e := range c.Explain() {
		if i == 0 || e.Pack != currentPack {
			currentPack = e.Pack
			sb.WriteString(fmt.Sprintf("[%s]\n", currentPack))
		}

		sb.WriteString(fmt.Sprintf("  %s -> %s", e.Key, e.StateName))

		if e.Description != "" {
			sb.WriteString(": " + e.Description)
		}

		sb.WriteString("\n")
	}

	return sb.String()
}
