package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentDeliveryAfterClose(t *testing.T) {
	t.Parallel()

	var called bool

	snapshot := []*subscription{{
		event:      "evt",
		subscriber: "a",
		handler: func(context.Context, Data) error {
			called = true

			return nil
		},
	}}

	for _, policy := range []ErrorPolicy{Continue, Raise} {
		bus := New()

		// Close before any concurrent publish has created the pool, as happens
		// when Close lands between Publish's closed check and delivery.
		bus.Close()

		var err error

		assert.NotPanics(t, func() {
			err = bus.publishConcurrent(t.Context(), "evt", nil, snapshot, policy)
		})
		require.ErrorIs(t, err, ErrBusClosed)
	}

	assert.False(t, called)
}
