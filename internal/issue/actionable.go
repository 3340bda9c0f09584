// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

type (
	// ActionableError says which operation failed, on what, and what the user
	// can do about it. Its Error text is the one-line form printed by default;
	// Format adds the suggestions and, in verbose mode, the cause chain.
	ActionableError struct {
		// Operation is a verb phrase completing "failed to ...".
		Operation string
		// Resource is the path or entity involved, if any.
		Resource    string
		Suggestions []string
		Cause       error
		// Issue links a catalog entry rendered by Guide. Zero means none.
		Issue Id
	}

	// ErrorContext accumulates the fields of an ActionableError:
	//
	//	return issue.NewErrorContext().
	//		WithOperation("read addon manifest").
	//		WithResource(path).
	//		WithIssue(issue.ManifestNotFoundId).
	//		Wrap(err).
	//		BuildError()
	ErrorContext struct {
		draft ActionableError
	}
)

// NewActionableError returns an error for operation with no further context.
func NewActionableError(operation string) *ActionableError {
	return &ActionableError{Operation: operation}
}

func NewErrorContext() *ErrorContext { return &ErrorContext{} }

func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error { return e.Cause }

func (e *ActionableError) HasSuggestions() bool { return len(e.Suggestions) > 0 }

// Format renders the error for a terminal. Suggestions follow the message as
// a bullet list; verbose output ends with the numbered cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if e.HasSuggestions() {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • " + s)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for depth, err := 1, e.Cause; err != nil; depth, err = depth+1, errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", depth, err)
		}
	}

	return b.String()
}

// Guide renders the linked catalog entry with the given glamour style. It
// returns "" when no known entry is linked.
func (e *ActionableError) Guide(stylePath string) (string, error) {
	entry := Get(e.Issue)
	if entry == nil {
		return "", nil
	}
	return entry.Render(stylePath)
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.draft.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.draft.Resource = res
	return c
}

// WithSuggestion appends a hint; hints print in the order added.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.draft.Suggestions = append(c.draft.Suggestions, sug)
	return c
}

func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.draft.Issue = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.draft.Cause = err
	return c
}

// Build returns a copy of the accumulated error, or nil when no operation
// was set. The context stays reusable after Build.
func (c *ErrorContext) Build() *ActionableError {
	if c.draft.Operation == "" {
		return nil
	}
	ae := c.draft
	ae.Suggestions = slices.Clone(c.draft.Suggestions)
	return &ae
}

// BuildError is Build for return statements: it yields an untyped nil
// instead of a nil *ActionableError.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
