// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue/ast"
	cuejson "cuelang.org/go/encoding/json"
)

// ErrInvalidJSON is wrapped by every error for a document that is not a
// single well-formed JSON value.
var ErrInvalidJSON = errors.New("invalid JSON")

// extractJSON parses data as exactly one JSON value and returns it as a CUE
// expression. Duplicate object keys are collapsed to their last value before
// CUE sees them, since CUE would otherwise unify the two values.
func extractJSON(data []byte, filename string) (ast.Expr, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return nil, fmt.Errorf("%s: %w: %w", filename, ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w: unexpected data after the top-level value", filename, ErrInvalidJSON)
	}

	canonical, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", filename, ErrInvalidJSON, err)
	}
	expr, err := cuejson.Extract(filename, canonical)
	if err != nil {
		return nil, FormatError(err, filename)
	}
	return expr, nil
}
