package statepack_test

import (
	stderrors "errors"
	"testing"

	"github.com/amp-labs/flexiflow/errors"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/statepack"
	"github.com/amp-labs/flexiflow/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pack(name string, keys []string, deps ...string) *statepack.Pack {
	p := &statepack.Pack{PackName: name, Requires: deps}
	for _, k := range keys {
		p.States = append(p.States, statepack.Provision{Key: k, Spec: statepack.Spec(newDummy, name+" "+k)})
	}

	return p
}

func build(t *testing.T, packs ...statepack.StatePack) (*statepack.Catalog, error) {
	t.Helper()

	registry := statepack.NewRegistry(statepack.WithSymbols(symbols.NewTable()))
	for _, p := range packs {
		require.NoError(t, registry.Register(p))
	}

	return registry.Build()
}

func TestBuildUnion(t *testing.T) {
	t.Parallel()

	catalog, err := build(t,
		pack("a", []string{"One", "Two"}),
		pack("b", []string{"Three"}, "One"),
		statepack.NewMappingPack(map[string]statemachine.Factory{"Four": newOther}),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"Four", "One", "Three", "Two"}, catalog.Keys())
	assert.Equal(t, 4, catalog.Len())
	assert.Equal(t, "a", catalog.Attribution("One"))
	assert.Equal(t, "b", catalog.Attribution("Three"))
	assert.Equal(t, "mapping", catalog.Attribution("Four"))
	assert.Empty(t, catalog.Attribution("Nope"))
	assert.Equal(t, []string{"a", "b", "mapping"}, catalog.Packs())

	spec, ok := catalog.Lookup("Two")
	require.True(t, ok)
	assert.Equal(t, "a Two", spec.Description)
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	catalog, err := build(t)
	require.NoError(t, err)
	assert.Empty(t, catalog.Keys())
}

func TestRegisterNil(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, statepack.NewRegistry().Register(nil), statepack.ErrNilPack)
}

func TestDuplicateIsOrderIndependent(t *testing.T) {
	t.Parallel()

	first := pack("zeta", []string{"Shared", "OnlyZeta"})
	second := pack("alpha", []string{"Shared"})

	for _, order := range [][]statepack.StatePack{{first, second}, {second, first}} {
		_, err := build(t, order...)
		require.ErrorIs(t, err, statepack.ErrDuplicateState)

		var dup *statepack.DuplicateStateError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "Shared", dup.Key)
		assert.Equal(t, "alpha", dup.First)
		assert.Equal(t, "zeta", dup.Second)
		assert.Contains(t, err.Error(), `"alpha"`)
		assert.Contains(t, err.Error(), `"zeta"`)
	}
}

func TestDuplicateWithinOnePack(t *testing.T) {
	t.Parallel()

	_, err := build(t, pack("solo", []string{"X", "X"}))
	require.ErrorIs(t, err, statepack.ErrDuplicateState)

	var dup *statepack.DuplicateStateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, []string{"solo"}, dup.Packs)
	assert.EqualError(t, dup, `state key "X" is provided more than once by pack "solo"`)

	_, err = build(t, pack("solo", []string{"X", "X"}), pack("other", []string{"X"}))
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, []string{"other", "solo"}, dup.Packs)
	assert.EqualError(t, dup, `state key "X" is provided by both pack "other" and pack "solo"`)
}

func TestDuplicateComparesKeysNotStates(t *testing.T) {
	t.Parallel()

	a := &statepack.Pack{PackName: "a", States: []statepack.Provision{{Key: "X", Spec: statepack.Spec(newDummy)}}}
	b := &statepack.Pack{PackName: "b", States: []statepack.Provision{{Key: "X", Spec: statepack.Spec(newOther)}}}

	_, err := build(t, a, b)
	require.ErrorIs(t, err, statepack.ErrDuplicateState)
}

func TestMissingDependency(t *testing.T) {
	t.Parallel()

	_, err := build(t, pack("needs", []string{"A"}, "ErrorState"))
	require.ErrorIs(t, err, statepack.ErrMissingDependency)

	var missing *statepack.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "ErrorState", missing.Key)
	assert.Equal(t, "needs", missing.Pack)
}

func TestOwnKeySatisfiesDependency(t *testing.T) {
	t.Parallel()

	_, err := build(t, pack("self", []string{"A", "B"}, "B"))
	require.NoError(t, err)
}

func TestAllProblemsReported(t *testing.T) {
	t.Parallel()

	packs := []statepack.StatePack{
		pack("p1", []string{"A", "B"}, "Missing2"),
		pack("p2", []string{"A", "B"}, "Missing1"),
	}

	var messages [][]string

	for _, order := range [][]statepack.StatePack{packs, {packs[1], packs[0]}} {
		_, err := build(t, order...)
		require.Error(t, err)

		problems := errors.Flatten(err)
		require.Len(t, problems, 4)

		var keys []string

		for _, p := range problems {
			var dup *statepack.DuplicateStateError
			var missing *statepack.MissingDependencyError

			switch {
			case stderrors.As(p, &dup):
				keys = append(keys, "dup:"+dup.Key)
			case stderrors.As(p, &missing):
				keys = append(keys, "missing:"+missing.Key+"@"+missing.Pack)
			}
		}

		messages = append(messages, keys)
	}

	assert.Equal(t, []string{"dup:A", "dup:B", "missing:Missing1@p2", "missing:Missing2@p1"}, messages[0])
	assert.Equal(t, messages[0], messages[1])
}
