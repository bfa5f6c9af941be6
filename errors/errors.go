// Package errors holds error helpers shared by the flexiflow packages.
package errors

import "errors"

// Collection accumulates errors so that validation code can report every
// problem it finds instead of stopping at the first one. It is not safe for
// concurrent use.
type Collection struct {
	errors []error
}

// Add appends an error to the collection. Nil errors are ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// Clear removes all errors from the collection.
func (c *Collection) Clear() {
	c.errors = nil
}

// HasError returns true if the collection contains at least one error.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// Len returns the number of collected errors.
func (c *Collection) Len() int {
	return len(c.errors)
}

// Errors returns a copy of the collected errors in insertion order.
func (c *Collection) Errors() []error {
	out := make([]error, len(c.errors))
	copy(out, c.errors)

	return out
}

// GetError returns nil for an empty collection, the error itself when there
// is exactly one, and an errors.Join of all of them otherwise.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}

// Flatten expands joined errors (anything with Unwrap() []error) into their
// members. Other errors are returned as a single-element slice.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}

	joined, ok := err.(interface{ Unwrap() []error }) //nolint:errorlint
	if !ok {
		return []error{err}
	}

	var out []error
	for _, inner := range joined.Unwrap() {
		out = append(out, Flatten(inner)...)
	}

	return out
}
