// Package server exposes an engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"io"
	"net/http"
	"time"

	"github.com/amp-labs/flexiflow/component"
	"github.com/amp-labs/flexiflow/config"
	"github.com/amp-labs/flexiflow/engine"
	"github.com/amp-labs/flexiflow/logger"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/statepack"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	maxBodyBytes      = 1 << 20
)

// Server serves the engine's components.
type Server struct {
	engine *engine.Engine
	router chi.Router
}

// New builds the router.
func New(eng *engine.Engine) *Server {
	s := &Server{engine: eng}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/explain/{name}", s.explain)
	r.Get("/diagram/{name}", s.diagram)

	r.Route("/components", func(r chi.Router) {
		r.Get("/", s.listComponents)
		r.Get("/{name}", s.getComponent)
		r.Post("/{name}/messages", s.postMessage)
		r.Post("/{name}/rules", s.postRules)
	})

	s.router = r

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Get(ctx).InfoContext(ctx, "HTTP server listening", "addr", addr)

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type componentResponse struct {
	Name  string              `json:"name"`
	State string              `json:"state"`
	Rules []statemachine.Rule `json:"rules"`
	Packs []string            `json:"packs,omitempty"`
}

type listResponse struct {
	Components []string     `json:"components"`
	Stats      engine.Stats `json:"stats"`
}

type messageResponse struct {
	Component    string `json:"component"`
	FromState    string `json:"from_state"`
	ToState      string `json:"to_state"`
	Transitioned bool   `json:"transitioned"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Get(r.Context()).WarnContext(r.Context(), "Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int

	switch {
	case errors.Is(err, engine.ErrUnknownComponent):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrEngineClosed):
		status = http.StatusServiceUnavailable
	default:
		// Anything else came out of a state: the request was understood but
		// the component refused it.
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

func (s *Server) listComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, listResponse{
		Components: s.engine.Components(),
		Stats:      s.engine.Stats(),
	})
}

func (s *Server) describe(comp *component.Component) componentResponse {
	resp := componentResponse{
		Name:  comp.Name(),
		State: comp.CurrentState(),
		Rules: comp.Rules(),
	}

	if catalog, ok := s.engine.Catalog(comp.Name()); ok {
		resp.Packs = catalog.Packs()
	}

	return resp
}

func (s *Server) getComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	comp, err := s.engine.Component(name)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, s.describe(comp))
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	comp, err := s.engine.Component(name)
	if err != nil {
		writeError(w, r, err)

		return
	}

	var msg statemachine.Message

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid message body: " + err.Error()})

		return
	}

	ctx := logger.With(r.Context(), "request_id", middleware.GetReqID(r.Context()))

	from := comp.CurrentState()

	if err := s.engine.HandleMessage(ctx, name, msg); err != nil {
		writeError(w, r, err)

		return
	}

	to := comp.CurrentState()

	writeJSON(w, r, http.StatusOK, messageResponse{
		Component:    name,
		FromState:    from,
		ToState:      to,
		Transitioned: from != to,
	})
}

// postRules appends the rules in a YAML or JSON rules document to a
// component.
func (s *Server) postRules(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	comp, err := s.engine.Component(name)
	if err != nil {
		writeError(w, r, err)

		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid rules body: " + err.Error()})

		return
	}

	rules, err := config.ParseRules(body)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid rules body: " + err.Error()})

		return
	}

	ctx := logger.With(r.Context(), "request_id", middleware.GetReqID(r.Context()))

	if err := s.engine.UpdateRules(ctx, name, rules); err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, s.describe(comp))
}

func (s *Server) catalog(w http.ResponseWriter, r *http.Request) (*statepack.Catalog, bool) {
	name := chi.URLParam(r, "name")

	if _, err := s.engine.Component(name); err != nil {
		writeError(w, r, err)

		return nil, false
	}

	catalog, ok := s.engine.Catalog(name)
	if !ok {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("component %q has no state catalog", name)})

		return nil, false
	}

	return catalog, true
}

func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	catalog, ok := s.catalog(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(catalog.ExplainText()))

		return
	}

	writeJSON(w, r, http.StatusOK, catalog.Explain())
}

func (s *Server) diagram(w http.ResponseWriter, r *http.Request) {
	catalog, ok := s.catalog(w, r)
	if !ok {
		return
	}

	opts := statepack.DefaultDiagramOptions()
	opts.Fenced = false

	if comp, err := s.engine.Component(chi.URLParam(r, "name")); err == nil {
		opts.HighlightPath = []string{comp.CurrentState()}
	}

	out, err := statepack.Mermaid(catalog, opts)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: err.Error()})

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}
