package statepack

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateState matches every *DuplicateStateError.
	ErrDuplicateState = errors.New("duplicate state key")
	// ErrMissingDependency matches every *MissingDependencyError.
	ErrMissingDependency = errors.New("missing state dependency")
	// ErrUnknownState is returned when a plain name is not a registry key.
	ErrUnknownState = errors.New("unknown state")
	// ErrNotAFactory is returned when a symbol does not build states.
	ErrNotAFactory = errors.New("symbol is not a state factory")
	// ErrNotAPack is returned when a symbol is not a StatePack.
	ErrNotAPack = errors.New("symbol is not a state pack")
	// ErrNilPack is returned when a nil pack is registered.
	ErrNilPack = errors.New("pack is nil")
)

// DuplicateStateError reports a key provided more than once. First and
// Second are the two lowest distinct pack names in sorted order; Packs lists
// all of them. When a single pack lists the key twice, First and Second are
// both that pack.
type DuplicateStateError struct {
	Key    string
	First  string
	Second string
	Packs  []string
}

func (e *DuplicateStateError) Error() string {
	if e.First == e.Second {
		return fmt.Sprintf("state key %q is provided more than once by pack %q", e.Key, e.First)
	}

	return fmt.Sprintf("state key %q is provided by both pack %q and pack %q", e.Key, e.First, e.Second)
}

func (e *DuplicateStateError) Is(target error) bool {
	return target == ErrDuplicateState //nolint:errorlint
}

// MissingDependencyError reports a key a pack depends on that no pack provides.
type MissingDependencyError struct {
	Key  string
	Pack string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("pack %q depends on state key %q, which no registered pack provides", e.Pack, e.Key)
}

func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency //nolint:errorlint
}
