package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amp-labs/flexiflow/component"
	"github.com/amp-labs/flexiflow/config"
	"github.com/amp-labs/flexiflow/engine"
	"github.com/amp-labs/flexiflow/server"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/states"
	"github.com/amp-labs/flexiflow/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()

	table := symbols.NewTable()
	states.Register(table)

	eng := engine.New(engine.WithSymbols(table))
	t.Cleanup(eng.Close)

	_, err := eng.BuildComponent(t.Context(), &config.Component{
		Name:  "orders",
		Rules: []statemachine.Rule{{"rule1": "..."}},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(eng).Handler())
	t.Cleanup(srv.Close)

	return srv, eng
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(data)
}

func TestPostMessage(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/components/orders/messages", `{"type":"start"}`)
	require.Equal(t, http.StatusOK, status, body)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, map[string]any{
		"component":    "orders",
		"from_state":   "InitialState",
		"to_state":     "AwaitingConfirmation",
		"transitioned": true,
	}, resp)

	status, body = do(t, http.MethodPost, srv.URL+"/components/orders/messages", `{"type":"start"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"transitioned":false`)
}

func TestPostMessageErrors(t *testing.T) {
	t.Parallel()

	srv, eng := newServer(t)

	failing := statemachine.Func("Failing", func(context.Context, statemachine.Message, statemachine.Owner) (bool, statemachine.State, error) {
		return false, nil, assert.AnError
	})

	machine, err := statemachine.New(failing)
	require.NoError(t, err)

	comp, err := component.New("failing", machine)
	require.NoError(t, err)
	require.NoError(t, eng.AddComponent(t.Context(), comp))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{name: "unknown component", path: "/components/nope/messages", body: `{}`, status: http.StatusNotFound},
		{name: "bad body", path: "/components/orders/messages", body: `{"type":`, status: http.StatusBadRequest},
		{name: "state error", path: "/components/failing/messages", body: `{"type":"x"}`, status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, body := do(t, http.MethodPost, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, status, body)
			assert.Contains(t, body, `"error"`)
		})
	}
}

func TestGetComponent(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/components/orders", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{
		"name": "orders",
		"state": "InitialState",
		"rules": [{"rule1": "..."}],
		"packs": ["builtin"]
	}`, body)

	status, _ = do(t, http.MethodGet, srv.URL+"/components/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPostRules(t *testing.T) {
	t.Parallel()

	srv, eng := newServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/components/orders/rules", "rules:\n  - rule2: \"...\"\n")
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `{
		"name": "orders",
		"state": "InitialState",
		"rules": [{"rule1": "..."}, {"rule2": "..."}],
		"packs": ["builtin"]
	}`, body)

	status, body = do(t, http.MethodPost, srv.URL+"/components/orders/rules", `{"rules": [{"rule3": "json"}]}`)
	require.Equal(t, http.StatusOK, status, body)

	comp, err := eng.Component("orders")
	require.NoError(t, err)
	assert.Len(t, comp.Rules(), 3)

	status, _ = do(t, http.MethodPost, srv.URL+"/components/orders/rules", "rules: [")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/components/nope/rules", "rules: []")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListComponents(t *testing.T) {
	t.Parallel()

	srv, eng := newServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/components", "")
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Components []string     `json:"components"`
		Stats      engine.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, []string{"orders"}, resp.Components)
	assert.Equal(t, eng.ID(), resp.Stats.ID)
}

func TestExplainAndDiagram(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/explain/orders", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `{"key":"AwaitingConfirmation","pack":"builtin","state":"AwaitingConfirmation"`)

	status, body = do(t, http.MethodGet, srv.URL+"/explain/orders?format=text", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(body, "[builtin]\n"), body)

	status, body = do(t, http.MethodGet, srv.URL+"/diagram/orders", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(body, "stateDiagram-v2\n"), body)
	assert.Contains(t, body, "    InitialState --> AwaitingConfirmation : start\n")
	assert.Contains(t, body, "    class InitialState highlighted\n")

	status, _ = do(t, http.MethodGet, srv.URL+"/explain/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t)

	_, _ = do(t, http.MethodPost, srv.URL+"/components/orders/messages", `{"type":"start"}`)

	status, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "flexiflow_component_messages_total")
}
