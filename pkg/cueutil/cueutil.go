// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize caps documents at 1 MiB. Manifests and config files are
// a few hundred bytes; anything near the cap is a mistake.
const DefaultMaxFileSize int64 = 1 << 20

type (
	// Option adjusts Unify and Decode.
	Option func(*settings)

	settings struct {
		maxSize  int64
		concrete bool
		json     bool
		filename string
	}
)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(size int64) Option { return func(s *settings) { s.maxSize = size } }

// WithConcrete controls whether every field must be concrete after
// unification. It defaults to true; config files, where all fields are
// optional, pass false.
func WithConcrete(concrete bool) Option { return func(s *settings) { s.concrete = concrete } }

// WithJSON makes the document strict JSON instead of CUE source. Comments,
// unquoted labels, expressions and trailing data are rejected, and a key that
// repeats within an object takes its last value.
func WithJSON() Option { return func(s *settings) { s.json = true } }

// WithFilename names the document in error messages.
func WithFilename(name string) Option { return func(s *settings) { s.filename = name } }

func newSettings(opts []Option) settings {
	s := settings{maxSize: DefaultMaxFileSize, concrete: true}
	for _, opt := range opts {
		opt(&s)
	}
	if s.filename == "" {
		s.filename = "<input>"
	}
	return s
}

// Unify checks data against the definition named by definition (e.g.
// "#Manifest") in schema and returns the unified value.
func Unify(schema, data []byte, definition string, opts ...Option) (cue.Value, error) {
	return unify(newSettings(opts), schema, data, definition)
}

// Decode is Unify followed by decoding the unified value into a new T.
func Decode[T any](schema, data []byte, definition string, opts ...Option) (*T, error) {
	s := newSettings(opts)
	unified, err := unify(s, schema, data, definition)
	if err != nil {
		return nil, err
	}

	out := new(T)
	if err := unified.Decode(out); err != nil {
		return nil, FormatError(err, s.filename)
	}
	return out, nil
}

func unify(s settings, schema, data []byte, definition string) (cue.Value, error) {
	if err := CheckFileSize(data, s.maxSize, s.filename); err != nil {
		return cue.Value{}, err
	}

	// Both values must come from the same context to unify.
	ctx := cuecontext.New()

	def := ctx.CompileBytes(schema).LookupPath(cue.ParsePath(definition))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s: %w", definition, err)
	}

	var doc cue.Value
	if s.json {
		expr, err := extractJSON(data, s.filename)
		if err != nil {
			return cue.Value{}, err
		}
		doc = ctx.BuildExpr(expr)
	} else {
		doc = ctx.CompileBytes(data, cue.Filename(s.filename))
	}
	if err := doc.Err(); err != nil {
		return cue.Value{}, FormatError(err, s.filename)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(s.concrete)); err != nil {
		return cue.Value{}, FormatError(err, s.filename)
	}
	return unified, nil
}

// CheckFileSize rejects data larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if size := int64(len(data)); size > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, size, maxSize)
	}
	return nil
}
