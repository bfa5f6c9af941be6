package symbols

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReferenceFormat indicates a reference that is not "module.path:Symbol".
	ErrInvalidReferenceFormat = errors.New("invalid reference format")
	// ErrModuleNotFound indicates that no module is registered under the path.
	ErrModuleNotFound = errors.New("module not found")
	// ErrSymbolNotFound indicates that the module does not expose the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// ReferenceError reports a malformed reference string.
type ReferenceError struct {
	Ref string
	Err error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%v: %q, expected format 'module.path:SymbolName'", e.Err, e.Ref)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// ModuleResolutionError reports a module that could not be located or loaded.
type ModuleResolutionError struct {
	Module string
	Ref    string
	Err    error
}

func (e *ModuleResolutionError) Error() string {
	return fmt.Sprintf("failed to load module %q from %q: %v", e.Module, e.Ref, e.Err)
}

func (e *ModuleResolutionError) Unwrap() error {
	return e.Err
}

// SymbolNotFoundError reports a module that loaded but lacks the symbol.
type SymbolNotFoundError struct {
	Module string
	Symbol string
	Ref    string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("module %q has no symbol %q (from %q)", e.Module, e.Symbol, e.Ref)
}

func (e *SymbolNotFoundError) Is(target error) bool {
	return target == ErrSymbolNotFound
}
