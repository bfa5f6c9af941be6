// Package symbols resolves "module.path:Symbol" references to values that
// were registered with a Table at startup. It lets configuration name state
// implementations without a compile-time dependency on their package.
package symbols

import (
	"sort"
	"strings"
	"sync"
)

// Loader produces the symbols exported by a module. It is invoked at most
// once per Table; the result (or error) is cached.
type Loader func() (map[string]any, error)

type module struct {
	once    sync.Once
	mu      sync.RWMutex
	loader  Loader
	symbols map[string]any
	err     error
}

func (m *module) load() error {
	m.once.Do(func() {
		m.mu.RLock()
		loader := m.loader
		m.mu.RUnlock()

		if loader == nil {
			return
		}

		loaded, err := loader()

		m.mu.Lock()
		defer m.mu.Unlock()

		if err != nil {
			m.err = err

			return
		}

		for name, value := range loaded {
			if _, exists := m.symbols[name]; !exists {
				m.symbols[name] = value
			}
		}
	})

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.err
}

func (m *module) lookup(symbol string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.symbols[symbol]

	return value, ok
}

// Table maps module paths to the symbols they expose.
type Table struct {
	mu      sync.RWMutex
	modules map[string]*module
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{
		modules: make(map[string]*module),
	}
}

var defaultTable = NewTable() //nolint:gochecknoglobals

// Default returns the process-wide table. Packages that ship states register
// into it from init functions.
func Default() *Table {
	return defaultTable
}

// Register exposes value as module:symbol. Registering the same pair twice
// replaces the earlier value.
func (t *Table) Register(modulePath, symbol string, value any) {
	mod := t.module(strings.TrimSpace(modulePath))

	mod.mu.Lock()
	defer mod.mu.Unlock()

	mod.symbols[strings.TrimSpace(symbol)] = value
}

// RegisterModule attaches a lazy loader to a module path. Symbols registered
// directly with Register take precedence over loader output.
func (t *Table) RegisterModule(modulePath string, loader Loader) {
	modulePath = strings.TrimSpace(modulePath)

	t.mu.Lock()
	defer t.mu.Unlock()

	mod, ok := t.modules[modulePath]
	if !ok {
		t.modules[modulePath] = &module{loader: loader, symbols: make(map[string]any)}

		return
	}

	mod.mu.Lock()
	mod.loader = loader
	mod.mu.Unlock()
}

func (t *Table) module(modulePath string) *module {
	t.mu.Lock()
	defer t.mu.Unlock()

	mod, ok := t.modules[modulePath]
	if !ok {
		mod = &module{symbols: make(map[string]any)}
		t.modules[modulePath] = mod
	}

	return mod
}

// Modules lists the registered module paths in sorted order.
func (t *Table) Modules() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.modules))
	for name := range t.modules {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// Resolve looks up a "module.path:Symbol" reference. The returned value is
// handed back exactly as registered; callers decide how to use it.
func (t *Table) Resolve(ref string) (any, error) {
	modulePath, symbol, err := Split(ref)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	mod, ok := t.modules[modulePath]
	t.mu.RUnlock()

	if !ok {
		return nil, &ModuleResolutionError{Module: modulePath, Ref: ref, Err: ErrModuleNotFound}
	}

	err = mod.load()
	if err != nil {
		return nil, &ModuleResolutionError{Module: modulePath, Ref: ref, Err: err}
	}

	value, ok := mod.lookup(symbol)
	if !ok {
		return nil, &SymbolNotFoundError{Module: modulePath, Symbol: symbol, Ref: ref}
	}

	return value, nil
}

// Resolve looks up ref in the default table.
func Resolve(ref string) (any, error) {
	return defaultTable.Resolve(ref)
}

// Split breaks a reference into its trimmed module path and symbol name.
func Split(ref string) (string, string, error) {
	modulePath, symbol, found := strings.Cut(ref, ":")
	if !found {
		return "", "", &ReferenceError{Ref: ref, Err: ErrInvalidReferenceFormat}
	}

	modulePath = strings.TrimSpace(modulePath)
	symbol = strings.TrimSpace(symbol)

	if modulePath == "" || symbol == "" {
		return "", "", &ReferenceError{Ref: ref, Err: ErrInvalidReferenceFormat}
	}

	return modulePath, symbol, nil
}

// IsReference reports whether name looks like a module:symbol reference
// rather than a plain registry key.
func IsReference(name string) bool {
	return strings.Contains(name, ":")
}
