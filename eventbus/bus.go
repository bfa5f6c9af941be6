// Package eventbus is an in-process publish/subscribe bus with named
// subscribers, priority ordering, sequential or concurrent delivery, and
// per-publish failure policies.
//
// A bus is an ordinary value: construct one per component graph and pass it
// to whatever needs it. There is no package-level bus.
package eventbus

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/flexiflow/logger"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"
)

type subscription struct {
	event      string
	subscriber string
	handler    Handler
	priority   int
	seq        uint64
}

// Bus dispatches events to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]*subscription
	seq  *atomic.Uint64

	poolOnce       sync.Once
	pool           pond.Pool
	ownsPool       bool
	maxConcurrency int

	logger          *slog.Logger
	defaultPriority int
	closed          *atomic.Bool
}

// New creates a bus. Without WithPool the bus creates its own worker pool
// the first time a concurrent publish needs it and stops it in Close.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:            make(map[string][]*subscription),
		seq:             atomic.NewUint64(0),
		ownsPool:        true,
		maxConcurrency:  DefaultMaxConcurrency,
		defaultPriority: DefaultPriority,
		closed:          atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *Bus) log(ctx context.Context) *slog.Logger {
	if b.logger != nil {
		return b.logger
	}

	return logger.Get(ctx)
}

func (b *Bus) workers() pond.Pool { //nolint:ireturn
	b.poolOnce.Do(func() {
		if b.pool == nil {
			b.pool = pond.NewPool(b.maxConcurrency)
			b.ownsPool = true
		}
	})

	return b.pool
}

// Subscribe registers handler for event under the subscriber name. Subscribing
// an existing (event, subscriber) pair replaces its handler and priority; the
// subscription keeps its original place among equal priorities.
func (b *Bus) Subscribe(event, subscriber string, handler Handler, opts ...SubscribeOption) error {
	switch {
	case event == "":
		return ErrEmptyEventName
	case subscriber == "":
		return ErrEmptySubscriber
	case handler == nil:
		return ErrNilHandler
	}

	sub := &subscription{
		event:      event,
		subscriber: subscriber,
		handler:    handler,
		priority:   b.defaultPriority,
	}

	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[event]
	next := make([]*subscription, 0, len(current)+1)
	replaced := false

	for _, existing := range current {
		if existing.subscriber == subscriber {
			sub.seq = existing.seq
			next = append(next, sub)
			replaced = true

			continue
		}

		next = append(next, existing)
	}

	if !replaced {
		sub.seq = b.seq.Inc()
		next = append(next, sub)
	}

	sort.SliceStable(next, func(i, j int) bool {
		if next[i].priority != next[j].priority {
			return next[i].priority < next[j].priority
		}

		return next[i].seq < next[j].seq
	})

	// Publishers hold snapshots of the old slice, so it is never modified in place.
	b.subs[event] = next

	return nil
}

// Unsubscribe removes a subscription. It reports whether one was removed.
func (b *Bus) Unsubscribe(event, subscriber string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[event]
	next := make([]*subscription, 0, len(current))

	for _, existing := range current {
		if existing.subscriber != subscriber {
			next = append(next, existing)
		}
	}

	if len(next) == len(current) {
		return false
	}

	if len(next) == 0 {
		delete(b.subs, event)
	} else {
		b.subs[event] = next
	}

	return true
}

// Subscribers lists the subscriber names for event in delivery order.
func (b *Bus) Subscribers(event string) []string {
	snapshot := b.snapshot(event)

	out := make([]string, len(snapshot))
	for i, s := range snapshot {
		out[i] = s.subscriber
	}

	return out
}

// Events lists every event that has at least one subscriber, sorted.
func (b *Bus) Events() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.subs))
	for event := range b.subs {
		out = append(out, event)
	}

	sort.Strings(out)

	return out
}

func (b *Bus) snapshot(event string) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.subs[event]
}

// Publish delivers data to every handler subscribed to event when the call
// starts, and returns once all of them have finished. Defaults are
// sequential delivery and the Continue policy.
//
// Under Continue, each failure is reported as an event.handler.failed event
// and Publish returns nil. Under Raise, no failure event is emitted: a
// sequential publish stops at the first failure and returns it; a concurrent
// publish lets every handler finish and returns the failure of the
// earliest-ordered subscriber.
func (b *Bus) Publish(ctx context.Context, event string, data Data, opts ...PublishOption) (err error) {
	if b.closed.Load() {
		return ErrBusClosed
	}

	options := publishOptions{delivery: Sequential, onError: Continue}
	for _, opt := range opts {
		opt(&options)
	}

	snapshot := b.snapshot(event)

	eventsPublishedTotal.WithLabelValues(event).Inc()

	ctx, span := startPublishSpan(ctx, event, options, len(snapshot))

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "delivered")
		}

		span.End()
	}()

	if len(snapshot) == 0 {
		return nil
	}

	if options.delivery == Concurrent {
		return b.publishConcurrent(ctx, event, data, snapshot, options.onError)
	}

	return b.publishSequential(ctx, event, data, snapshot, options.onError)
}

func (b *Bus) publishSequential(
	ctx context.Context,
	event string,
	data Data,
	snapshot []*subscription,
	policy ErrorPolicy,
) error {
	for _, sub := range snapshot {
		err := b.invoke(ctx, sub, data)
		if err == nil {
			continue
		}

		if policy == Raise {
			handlerFailuresTotal.WithLabelValues(event, sub.subscriber).Inc()

			return err
		}

		b.reportFailure(ctx, sub, err)
	}

	return nil
}

func (b *Bus) publishConcurrent(
	ctx context.Context,
	event string,
	data Data,
	snapshot []*subscription,
	policy ErrorPolicy,
) error {
	pool := b.workers()
	if pool == nil {
		// Close won the race with this publish before any pool was created.
		return ErrBusClosed
	}

	results := make([]error, len(snapshot))
	tasks := make([]pond.Task, len(snapshot))

	for i, sub := range snapshot {
		tasks[i] = pool.Submit(func() {
			results[i] = b.invoke(ctx, sub, data)
		})
	}

	for i, task := range tasks {
		// invoke recovers panics, so a task error means the pool refused the task.
		if err := task.Wait(); err != nil && results[i] == nil {
			results[i] = err
		}
	}

	for i, err := range results {
		if err == nil {
			continue
		}

		if policy == Raise {
			handlerFailuresTotal.WithLabelValues(event, snapshot[i].subscriber).Inc()

			return err
		}

		b.reportFailure(ctx, snapshot[i], err)
	}

	return nil
}

// invoke runs one handler, turning panics into *PanicError.
func (b *Bus) invoke(ctx context.Context, sub *subscription, data Data) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Event: sub.event, Subscriber: sub.subscriber, Value: r}
		}

		handlerDuration.WithLabelValues(sub.event).Observe(time.Since(start).Seconds())
	}()

	return sub.handler(ctx, data)
}

// reportFailure handles a failure under the Continue policy. Failures of
// event.handler.failed handlers are only logged, which bounds recursion at
// one level.
func (b *Bus) reportFailure(ctx context.Context, sub *subscription, err error) {
	handlerFailuresTotal.WithLabelValues(sub.event, sub.subscriber).Inc()

	if sub.event == EventHandlerFailed {
		b.log(ctx).WarnContext(ctx, "Failure handler failed, dropping error",
			"subscriber", sub.subscriber,
			"error", err,
		)

		return
	}

	b.log(ctx).WarnContext(ctx, "Event handler failed",
		"event", sub.event,
		"subscriber", sub.subscriber,
		"error", err,
	)

	failure := Data{
		"event_name":     sub.event,
		"component_name": sub.subscriber,
		"exception":      FormatError(err),
	}

	handlers := b.snapshot(EventHandlerFailed)

	eventsPublishedTotal.WithLabelValues(EventHandlerFailed).Inc()

	for _, h := range handlers {
		if herr := b.invoke(ctx, h, failure); herr != nil {
			b.reportFailure(ctx, h, herr)
		}
	}
}

// Close stops the bus's own pool, waiting for running handlers. Publish fails
// with ErrBusClosed afterwards. A pool passed in with WithPool is left running.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}

	b.poolOnce.Do(func() {})

	if b.ownsPool && b.pool != nil {
		b.pool.StopAndWait()
	}
}
