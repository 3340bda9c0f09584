// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

type (
	// Problem is one schema violation, located by a field path relative to
	// the document root.
	Problem struct {
		Path    string
		Message string
	}

	// SchemaError lists the problems CUE reported for a document. It unwraps
	// to the original CUE error.
	SchemaError struct {
		File     string
		Problems []Problem
		Err      error
	}
)

// String renders the problem as "path: message".
func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// Error implements the error interface. A single problem stays on one line:
//
//	addon.json: id: invalid value "" (out of bound !="")
//
// Several problems are listed one per indented line.
func (e *SchemaError) Error() string {
	switch len(e.Problems) {
	case 0:
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	case 1:
		return e.File + ": " + e.Problems[0].String()
	}
	var b strings.Builder
	b.WriteString(e.File)
	b.WriteString(": validation failed:")
	for _, p := range e.Problems {
		b.WriteString("\n  ")
		b.WriteString(p.String())
	}
	return b.String()
}

// Unwrap returns the CUE error.
func (e *SchemaError) Unwrap() error { return e.Err }

// FormatError converts a CUE error into a *SchemaError named after filename.
// Any other error is wrapped with the file name and keeps its chain.
func FormatError(err error, filename string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsType[cueerrors.Error](err); !ok {
		return fmt.Errorf("%s: %w", filename, err)
	}

	schemaErr := &SchemaError{File: filename, Err: err}
	for _, e := range cueerrors.Errors(err) {
		p := problemOf(e)
		// CUE reports a conflict once per conjunct.
		if !slices.Contains(schemaErr.Problems, p) {
			schemaErr.Problems = append(schemaErr.Problems, p)
		}
	}
	return schemaErr
}

func problemOf(e cueerrors.Error) Problem {
	raw := cueerrors.Path(e)
	msg := e.Error()
	if len(raw) > 0 {
		if rest, ok := strings.CutPrefix(msg, strings.Join(raw, ".")); ok {
			msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		}
	}
	return Problem{Path: fieldPath(raw), Message: msg}
}

// fieldPath renders a CUE path such as ["#Config", "build", "prune", "0"] as
// "build.prune[0]". Definition selectors are schema names, not document
// fields, and are dropped.
func fieldPath(parts []string) string {
	var b strings.Builder
	for _, part := range parts {
		switch {
		case strings.HasPrefix(part, "#"):
			continue
		case b.Len() > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case b.Len() > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && !strings.HasPrefix(s, "+")
}
