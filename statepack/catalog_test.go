package statepack_test

import (
	"strings"
	"testing"

	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/statepack"
	"github.com/amp-labs/flexiflow/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureTable() *symbols.Table {
	table := symbols.NewTable()
	table.Register("tests.fixtures", "FixtureInitial", statemachine.Factory(newDummy))
	table.Register("tests.fixtures", "RawFunc", newOther)
	table.Register("tests.fixtures", "NotAState", "just a string")
	table.Register("tests.fixtures", "Pack", statepack.Pack{})
	table.Register("tests.fixtures", "SessionPack", &statepack.Pack{
		PackName: "session",
		States:   []statepack.Provision{{Key: "Idle", Spec: statepack.Spec(newDummy)}},
	})
	table.Register("tests.fixtures", "PackFunc", func() statepack.StatePack {
		return statepack.NewMappingPack(nil)
	})

	return table
}

func TestCatalogResolve(t *testing.T) {
	t.Parallel()

	registry := statepack.NewRegistry(statepack.WithSymbols(fixtureTable()))
	require.NoError(t, registry.Register(pack("p", []string{"Known"})))

	catalog, err := registry.Build()
	require.NoError(t, err)

	tests := []struct {
		name      string
		ref       string
		wantState string
		wantErr   error
	}{
		{name: "registry key", ref: "Known", wantState: "dummyState"},
		{name: "factory symbol", ref: "tests.fixtures:FixtureInitial", wantState: "dummyState"},
		{name: "plain func symbol", ref: "tests.fixtures: RawFunc", wantState: "otherState"},
		{name: "not a factory", ref: "tests.fixtures:NotAState", wantErr: statepack.ErrNotAFactory},
		{name: "unknown key", ref: "Unknown", wantErr: statepack.ErrUnknownState},
		{name: "unknown module", ref: "nowhere:Thing", wantErr: symbols.ErrModuleNotFound},
		{name: "unknown symbol", ref: "tests.fixtures:Missing", wantErr: symbols.ErrSymbolNotFound},
		{name: "bad reference", ref: "tests.fixtures:", wantErr: symbols.ErrInvalidReferenceFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			factory, err := catalog.Resolve(tt.ref)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), strings.TrimSpace(tt.ref))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantState, statemachine.StateName(factory()))
		})
	}
}

func TestCatalogBuildsMachines(t *testing.T) {
	t.Parallel()

	catalog, err := build(t, pack("p", []string{"Start"}))
	require.NoError(t, err)

	machine, err := statemachine.FromName("Start", catalog)
	require.NoError(t, err)
	assert.Equal(t, "dummyState", machine.CurrentName())
}

func TestExplain(t *testing.T) {
	t.Parallel()

	catalog, err := build(t,
		pack("pack10", []string{"B"}),
		pack("pack2", []string{"Z", "A"}),
		&statepack.Pack{PackName: "pack2b", States: []statepack.Provision{
			{Key: "Item10", Spec: statepack.Spec(newOther)},
			{Key: "Item9", Spec: statepack.Spec(newOther)},
		}},
	)
	require.NoError(t, err)

	explained := catalog.Explain()
	require.Len(t, explained, 5)

	order := make([]string, len(explained))
	for i, e := range explained {
		order[i] = e.Pack + "/" + e.Key
	}

	assert.Equal(t, []string{"pack2/A", "pack2/Z", "pack2b/Item9", "pack2b/Item10", "pack10/B"}, order)
	assert.Equal(t, "pack2 A", explained[0].Description)
	assert.Equal(t, "dummyState", explained[0].StateName)

	text := catalog.ExplainText()
	assert.Contains(t, text, "[pack2]\n  A -> dummyState: pack2 A\n")
	assert.Contains(t, text, "[pack2b]\n  Item9 -> otherState\n")
	assert.Equal(t, 3, strings.Count(text, "["))
}

func TestTransitionsAndEdges(t *testing.T) {
	t.Parallel()

	first := pack("first", []string{"A", "B"})
	first.Declarations = []statepack.TransitionSpec{{From: "A", OnMessage: "go", To: "B"}}

	second := pack("second", []string{"C"})
	second.Declarations = []statepack.TransitionSpec{{From: "B", OnMessage: "next", To: "C", Guard: "ok"}}

	catalog, err := build(t, first, second)
	require.NoError(t, err)

	transitions := catalog.Transitions()
	require.Len(t, transitions, 2)
	assert.Equal(t, "A", transitions[0].From)
	assert.Equal(t, "ok", transitions[1].Guard)

	assert.Equal(t, []statemachine.Edge{
		{From: "A", OnMessage: "go", To: "B"},
		{From: "B", OnMessage: "next", To: "C"},
	}, catalog.Edges())
}

func TestLoadPack(t *testing.T) {
	t.Parallel()

	table := fixtureTable()

	loaded, err := statepack.LoadPack(table, "tests.fixtures:SessionPack")
	require.NoError(t, err)
	assert.Equal(t, "session", loaded.Name())

	loaded, err = statepack.LoadPack(table, "tests.fixtures:PackFunc")
	require.NoError(t, err)
	assert.Equal(t, "mapping", loaded.Name())

	_, err = statepack.LoadPack(table, "tests.fixtures:NotAState")
	require.ErrorIs(t, err, statepack.ErrNotAPack)

	// Pack has pointer receivers, so a value is not a StatePack.
	_, err = statepack.LoadPack(table, "tests.fixtures:Pack")
	require.ErrorIs(t, err, statepack.ErrNotAPack)
}

func TestLoadMapping(t *testing.T) {
	t.Parallel()

	table := fixtureTable()

	mapping, err := statepack.LoadMapping(table, map[string]string{
		"Custom": "tests.fixtures:FixtureInitial",
		"Other":  "tests.fixtures:RawFunc",
	})
	require.NoError(t, err)
	require.Len(t, mapping.Provides(), 2)
	assert.Equal(t, "Custom", mapping.Provides()[0].Key)

	_, err = statepack.LoadMapping(table, map[string]string{
		"Bad":    "tests.fixtures:NotAState",
		"Broken": "no-colon",
	})
	require.ErrorIs(t, err, statepack.ErrNotAFactory)
	require.ErrorIs(t, err, symbols.ErrInvalidReferenceFormat)
	assert.Contains(t, err.Error(), `state "Bad"`)
	assert.Contains(t, err.Error(), `state "Broken"`)
}
