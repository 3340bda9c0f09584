// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidFilesystemPath is wrapped by every PathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath is a user-supplied path, absolute or relative to the
	// working directory.
	FilesystemPath string

	// PathError reports why a FilesystemPath cannot be used.
	PathError struct {
		Value  FilesystemPath
		Reason string
	}
)

func (p FilesystemPath) String() string { return string(p) }

// Validate rejects blank paths and paths containing NUL bytes, which no
// platform accepts.
func (p FilesystemPath) Validate() error {
	switch {
	case strings.TrimSpace(string(p)) == "":
		return &PathError{Value: p, Reason: "must not be blank"}
	case strings.ContainsRune(string(p), 0):
		return &PathError{Value: p, Reason: "must not contain NUL bytes"}
	}
	return nil
}

// Clean returns the lexically shortest equivalent path.
func (p FilesystemPath) Clean() FilesystemPath {
	return FilesystemPath(filepath.Clean(string(p)))
}

// Abs resolves the path against the working directory.
func (p FilesystemPath) Abs() (FilesystemPath, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", string(p), err)
	}
	return FilesystemPath(abs), nil
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q %s", string(e.Value), e.Reason)
}

func (e *PathError) Unwrap() error { return ErrInvalidFilesystemPath }
