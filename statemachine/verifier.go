package statemachine

import (
	"context"
	"fmt"
	"sync"

	"github.com/amp-labs/flexiflow/logger"
)

// Edge is a declared or observed transition. An empty OnMessage in a declared
// edge matches any message type.
type Edge struct {
	From      string
	OnMessage string
	To        string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s --[%s]--> %s", e.From, e.OnMessage, e.To)
}

// Verifier compares observed transitions against declared ones. It only
// records and logs; it never changes what the machine does.
type Verifier struct {
	mu         sync.Mutex
	declared   []Edge
	undeclared []Edge
}

// NewVerifier creates a verifier for the given declared edges.
func NewVerifier(declared []Edge) *Verifier {
	d := make([]Edge, len(declared))
	copy(d, declared)

	return &Verifier{declared: d}
}

// Covers reports whether a declared edge matches the observed one.
func (v *Verifier) Covers(observed Edge) bool {
	for _, d := range v.declared {
		if d.From != observed.From || d.To != observed.To {
			continue
		}

		if d.OnMessage == "" || d.OnMessage == observed.OnMessage {
			return true
		}
	}

	return false
}

// Observe records a transition. Undeclared transitions are logged at warn level.
func (v *Verifier) Observe(ctx context.Context, from, onMessage, to string) {
	edge := Edge{From: from, OnMessage: onMessage, To: to}

	if v.Covers(edge) {
		return
	}

	v.mu.Lock()
	v.undeclared = append(v.undeclared, edge)
	v.mu.Unlock()

	logger.Get(ctx).WarnContext(ctx, "Undeclared transition observed",
		"from", from,
		"message_type", onMessage,
		"to", to,
	)
}

// Undeclared returns the transitions observed so far that no declaration covers.
func (v *Verifier) Undeclared() []Edge {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Edge, len(v.undeclared))
	copy(out, v.undeclared)

	return out
}
