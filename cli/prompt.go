// Package cli holds the terminal pieces of the flexiflow binary: boxed
// status panels, promptui prompts and the interactive message runner.
package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

var ErrEmptyInput = errors.New("you must enter something")

// Prompter asks the operator for input.
type Prompter interface {
	// Choose shows items and returns the one picked.
	Choose(label string, items []string) (string, error)
	// Text reads a non-empty line.
	Text(label string) (string, error)
}

// TerminalPrompter prompts with promptui.
type TerminalPrompter struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// NewTerminalPrompter prompts on the process's stdin and stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{Stdin: os.Stdin, Stdout: os.Stdout}
}

func (p *TerminalPrompter) Choose(label string, items []string) (string, error) {
	sel := &promptui.Select{
		Label: label,
		Items: items,
		Size:  len(items),
		Searcher: func(input string, index int) bool {
			return input != "" && strings.HasPrefix(items[index], input)
		},
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	}

	_, value, err := sel.Run()

	return value, err
}

func (p *TerminalPrompter) Text(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return ErrEmptyInput
			}

			return nil
		},
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	}

	return prompt.Run()
}

// Confirm asks a yes/no question. An abort counts as "no".
func (p *TerminalPrompter) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.Stdin,
		Stdout:    p.Stdout,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// IsInterrupt reports whether err means the operator left the prompt with
// Ctrl-C or Ctrl-D.
func IsInterrupt(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}
