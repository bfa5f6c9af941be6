package statepack

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNilCatalog is returned when Mermaid is called without a catalog.
var ErrNilCatalog = errors.New("catalog cannot be nil")

// DiagramOptions configures Mermaid output.
type DiagramOptions struct {
	// Initial adds a [*] --> Initial edge when set.
	Initial string

	// Finals are states that get a --> [*] edge.
	Finals []string

	// ShowMessages labels edges with the triggering message type.
	ShowMessages bool

	// ShowGuards appends guard names to edge labels.
	ShowGuards bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right).
	Direction string

	// HighlightPath highlights states, e.g. the ones a component visited.
	HighlightPath []string

	// Fenced wraps the diagram in a ```mermaid code block.
	Fenced bool
}

// DefaultDiagramOptions returns the options used by the CLI.
func DefaultDiagramOptions() DiagramOptions {
	return DiagramOptions{
		ShowMessages: true,
		ShowGuards:   true,
		Direction:    "TD",
		Fenced:       true,
	}
}

// Mermaid renders the catalog's declared transitions as a Mermaid state
// diagram. Provided keys without transitions still appear as nodes.
func Mermaid(catalog *Catalog, opts DiagramOptions) (string, error) {
	if catalog == nil {
		return "", ErrNilCatalog
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	sb.WriteString(fmt.Sprintf("stateDiagram-v2\n    direction %s\n", direction))

	if opts.Initial != "" {
		sb.WriteString(fmt.Sprintf("    [*] --> %s\n", nodeID(opts.Initial)))
	}

	highlight := make(map[string]bool, len(opts.HighlightPath))
	for _, s := range opts.HighlightPath {
		highlight[s] = true
	}

	final := make(map[string]bool, len(opts.Finals))
	for _, s := range opts.Finals {
		final[s] = true
	}

	seen := make(map[string]bool)

	for _, t := range catalog.Transitions() {
		seen[t.From] = true
		seen[t.To] = true

		sb.WriteString(fmt.Sprintf("    %s --> %s%s\n", nodeID(t.From), nodeID(t.To), edgeLabel(t, opts)))
	}

	for _, key := range catalog.Keys() {
		if !seen[key] {
			sb.WriteString(fmt.Sprintf("    %s\n", nodeID(key)))
		}
	}

	for _, s := range opts.Finals {
		sb.WriteString(fmt.Sprintf("    %s --> [*]\n", nodeID(s)))
	}

	var classes strings.Builder

	for _, key := range catalog.Keys() {
		switch {
		case highlight[key]:
			classes.WriteString(fmt.Sprintf("    class %s highlighted\n", nodeID(key)))
		case final[key]:
			classes.WriteString(fmt.Sprintf("    class %s finalState\n", nodeID(key)))
		}
	}

	if classes.Len() > 0 {
		sb.WriteString("\n")
		sb.WriteString("    classDef finalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
		sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")
		sb.WriteString(classes.String())
	}

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

func edgeLabel(t TransitionSpec, opts DiagramOptions) string {
	var parts []string

	if opts.ShowMessages && t.OnMessage != "" {
		parts = append(parts, t.OnMessage)
	}

	if opts.ShowGuards && t.Guard != "" {
		parts = append(parts, "["+t.Guard+"]")
	}

	if len(parts) == 0 {
		return ""
	}

	return " : " + strings.Join(parts, " ")
}

// nodeID makes a key safe to use as a Mermaid state id.
func nodeID(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
