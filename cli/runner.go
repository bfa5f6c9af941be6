package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/amp-labs/flexiflow/config"
	"github.com/amp-labs/flexiflow/engine"
	"github.com/amp-labs/flexiflow/statemachine"
)

const (
	ChoiceCustom    = "[custom message]"
	ChoiceLoadRules = "[load rules]"
	ChoiceQuit      = "[quit]"
)

// Runner lets an operator drive one component by hand.
type Runner struct {
	Engine    *engine.Engine
	Component string
	Prompter  Prompter
	Out       io.Writer
	Width     int
}

// Choices lists the message types declared from the component's current
// state, followed by the custom, load rules and quit entries.
func (r *Runner) Choices() ([]string, error) {
	comp, err := r.Engine.Component(r.Component)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	var messages []string

	if catalog, ok := r.Engine.Catalog(r.Component); ok {
		current := comp.CurrentState()

		for _, tr := range catalog.Transitions() {
			if tr.From == current && tr.OnMessage != "" && !seen[tr.OnMessage] {
				seen[tr.OnMessage] = true
				messages = append(messages, tr.OnMessage)
			}
		}
	}

	sort.Strings(messages)

	return append(messages, ChoiceCustom, ChoiceLoadRules, ChoiceQuit), nil
}

// Run loops until the operator quits or interrupts. Errors returned by states
// are printed and the loop goes on.
func (r *Runner) Run(ctx context.Context) error {
	comp, err := r.Engine.Component(r.Component)
	if err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		_, _ = fmt.Fprint(r.Out, Panel(fmt.Sprintf("%s\nstate: %s", comp.Name(), comp.CurrentState()), r.Width, AlignCenter))

		choices, err := r.Choices()
		if err != nil {
			return err
		}

		choice, err := r.Prompter.Choose("Message", choices)
		if err != nil {
			if IsInterrupt(err) {
				return nil
			}

			return err
		}

		switch choice {
		case ChoiceQuit:
			return nil
		case ChoiceLoadRules:
			path, err := r.Prompter.Text("Rules file")
			if err != nil {
				if IsInterrupt(err) {
					return nil
				}

				return err
			}

			r.loadRules(ctx, path)

			continue
		case ChoiceCustom:
			choice, err = r.Prompter.Text("Message type")
			if err != nil {
				if IsInterrupt(err) {
					return nil
				}

				return err
			}
		}

		r.send(ctx, comp.CurrentState(), choice)
	}
}

func (r *Runner) send(ctx context.Context, from, msgType string) {
	err := r.Engine.HandleMessage(ctx, r.Component, statemachine.Message{"type": msgType})
	if err != nil {
		_, _ = fmt.Fprintf(r.Out, "error: %v\n", err)

		return
	}

	comp, err := r.Engine.Component(r.Component)
	if err != nil {
		return
	}

	if to := comp.CurrentState(); to != from {
		_, _ = fmt.Fprintf(r.Out, "%s --[%s]--> %s\n", from, msgType, to)
	} else {
		_, _ = fmt.Fprintf(r.Out, "%s: %q ignored\n", from, msgType)
	}

	_, _ = fmt.Fprint(r.Out, Divider(r.Width))
}

// loadRules appends the rules in a rules file to the component.
func (r *Runner) loadRules(ctx context.Context, path string) {
	rules, err := config.LoadRules(path)
	if err == nil {
		err = r.Engine.UpdateRules(ctx, r.Component, rules)
	}

	if err != nil {
		_, _ = fmt.Fprintf(r.Out, "error: %v\n", err)

		return
	}

	_, _ = fmt.Fprintf(r.Out, "loaded %d rule(s) from %s\n", len(rules), path)
	_, _ = fmt.Fprint(r.Out, Divider(r.Width))
}
