// Package shutdown coordinates graceful process shutdown: a context that is
// cancelled on SIGINT/SIGTERM and an ordered list of cleanup hooks.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Hook releases one resource. It receives a context bounding how long
// cleanup may take.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Coordinator owns the shutdown signal and the registered hooks.
type Coordinator struct {
	mu      sync.Mutex
	hooks   []namedHook
	trigger chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// New creates a coordinator. A nil logger means slog.Default().
func New(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		trigger: make(chan struct{}),
		logger:  logger,
	}
}

// BeforeShutdown registers a hook. Hooks run in reverse registration order,
// so resources are released the way deferred calls would release them.
func (c *Coordinator) BeforeShutdown(name string, hook Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hooks = append(c.hooks, namedHook{name: name, fn: hook})
}

// Trigger starts shutdown programmatically. It is safe to call more than once.
func (c *Coordinator) Trigger() {
	c.once.Do(func() {
		close(c.trigger)
	})
}

// SetupHandler returns a context that is cancelled on SIGINT, SIGTERM or
// Trigger. The hooks are not run; call Run once the context is done.
func (c *Coordinator) SetupHandler(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		defer cancel()

		select {
		case sig := <-signals:
			c.logger.Warn("Received " + sig.String() + ", shutting down...")
		case <-c.trigger:
			c.logger.Info("Shutdown requested")
		case <-ctx.Done():
		}
	}()

	return ctx
}

// Run calls every hook once, newest first, and returns their joined errors.
// Hooks registered after Run has started are not called by it.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	var errs []error

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]

		if err := h.fn(ctx); err != nil {
			c.logger.Error("Shutdown hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))

			continue
		}

		c.logger.Debug("Shutdown hook finished", "hook", h.name)
	}

	return errors.Join(errs...)
}
