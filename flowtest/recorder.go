// Package flowtest provides testing utilities for components wired to an
// event bus: an event recorder and fixture states.
package flowtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/flexiflow/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecorderName is the subscriber name the recorder uses.
const RecorderName = "flowtest.recorder"

// Record is one observed event.
type Record struct {
	Timestamp time.Time
	Event     string
	Data      eventbus.Data
}

// Recorder subscribes to events and keeps everything it sees in arrival order.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Attach subscribes the recorder to each event. Without events it listens to
// every event flexiflow publishes itself.
func (r *Recorder) Attach(bus *eventbus.Bus, events ...string) error {
	if len(events) == 0 {
		events = []string{
			eventbus.EventComponentRegistered,
			eventbus.EventMessageReceived,
			eventbus.EventStateChanged,
			eventbus.EventHandlerFailed,
		}
	}

	for _, event := range events {
		err := bus.Subscribe(event, RecorderName, r.handler(event))
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Recorder) handler(event string) eventbus.Handler {
	return func(_ context.Context, data eventbus.Data) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.records = append(r.records, Record{
			Timestamp: time.Now(),
			Event:     event,
			Data:      data,
		})

		return nil
	}
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, len(r.records))
	copy(out, r.records)

	return out
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	records := r.Records()

	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Event
	}

	return out
}

// Of returns the payloads recorded for one event.
func (r *Recorder) Of(event string) []eventbus.Data {
	var out []eventbus.Data

	for _, rec := range r.Records() {
		if rec.Event == event {
			out = append(out, rec.Data)
		}
	}

	return out
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil
}

// RequireEvents fails the test unless exactly these events were recorded, in order.
func (r *Recorder) RequireEvents(t *testing.T, events ...string) {
	t.Helper()

	if len(events) == 0 {
		require.Empty(t, r.Names())

		return
	}

	require.Equal(t, events, r.Names())
}

// AssertTransition checks that a state.changed event was recorded for
// component from one state to another.
func (r *Recorder) AssertTransition(t *testing.T, component, from, to string) bool {
	t.Helper()

	for _, data := range r.Of(eventbus.EventStateChanged) {
		if data["component"] == component && data["from_state"] == from && data["to_state"] == to {
			return true
		}
	}

	return assert.Fail(t, "transition not recorded",
		"component %q: %s -> %s; recorded: %v", component, from, to, r.Of(eventbus.EventStateChanged))
}
