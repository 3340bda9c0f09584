// SPDX-License-Identifier: MPL-2.0

// Package scratch manages the temporary staging directory of a build.
//
// A Dir is acquired once per build and must be released on every exit path:
//
//	dir, err := scratch.Acquire("", logger)
//	if err != nil {
//		return err
//	}
//	defer dir.Release()
package scratch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Pattern is the os.MkdirTemp pattern for scratch directories.
const Pattern = "addonpack-*"

// ErrReleased is returned when a released Dir is used.
var ErrReleased = errors.New("scratch directory already released")

// Dir is a uniquely named temporary directory owned by one build.
type Dir struct {
	path   string
	logger *log.Logger
}

// Acquire creates a new scratch directory under base (os.TempDir() when
// empty). A nil logger discards output.
func Acquire(base string, logger *log.Logger) (*Dir, error) {
	path, err := os.MkdirTemp(base, Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger.Debug("acquired scratch directory", "path", path)
	return &Dir{path: path, logger: logger}, nil
}

// Path returns the scratch root, or "" once released.
func (d *Dir) Path() string {
	return d.path
}

// Join returns a path inside the scratch root. It does not create anything.
func (d *Dir) Join(elem ...string) (string, error) {
	if d.path == "" {
		return "", ErrReleased
	}
	return filepath.Join(append([]string{d.path}, elem...)...), nil
}

// Release removes the scratch directory and everything in it. It is safe to
// call more than once.
func (d *Dir) Release() error {
	if d.path == "" {
		return nil
	}
	path := d.path
	d.path = ""
	if err := os.RemoveAll(path); err != nil {
		d.logger.Warn("failed to remove scratch directory", "path", path, "err", err)
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}
	d.logger.Debug("released scratch directory", "path", path)
	return nil
}
