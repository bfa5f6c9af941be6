package eventbus

import (
	"log/slog"

	"github.com/alitto/pond/v2"
)

// Option configures a Bus.
type Option func(*Bus)

// WithPool runs concurrent deliveries on pool. The bus does not stop a pool it
// was given.
func WithPool(pool pond.Pool) Option {
	return func(b *Bus) {
		b.pool = pool
		b.ownsPool = false
	}
}

// WithMaxConcurrency sets the size of the pool the bus creates for itself.
// Ignored when WithPool is used.
func WithMaxConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxConcurrency = n
		}
	}
}

// WithLogger makes the bus log to l instead of the context logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// WithDefaultPriority changes the priority used when Subscribe is not given one.
func WithDefaultPriority(p int) Option {
	return func(b *Bus) {
		b.defaultPriority = p
	}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscription)

// WithPriority sets the subscription's priority. Lower runs first.
func WithPriority(p int) SubscribeOption {
	return func(s *subscription) {
		s.priority = p
	}
}

type publishOptions struct {
	delivery Delivery
	onError  ErrorPolicy
}

// PublishOption configures a single publish.
type PublishOption func(*publishOptions)

// WithDelivery selects sequential or concurrent delivery.
func WithDelivery(d Delivery) PublishOption {
	return func(o *publishOptions) {
		o.delivery = d
	}
}

// WithOnError selects the failure policy.
func WithOnError(p ErrorPolicy) PublishOption {
	return func(o *publishOptions) {
		o.onError = p
	}
}
