// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nak-tools/addonpack/pkg/types"
)

var (
	// ErrUsage is wrapped by UsageError.
	ErrUsage = errors.New("usage error")
	// ErrNotFound is wrapped by NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrManifest is wrapped by ManifestError.
	ErrManifest = errors.New("manifest error")
	// ErrIO is wrapped by IOError.
	ErrIO = errors.New("i/o error")
	// ErrSymlinkCycle is returned when a symlinked directory in the source
	// links back to a directory that contains it.
	ErrSymlinkCycle = errors.New("symlink cycle")
)

type (
	// UsageError reports bad invocation arguments: wrong argument count or
	// an unusable version token.
	UsageError struct {
		Reason string
		// Usage is the one-line invocation synopsis, when known.
		Usage string
		Err   error
	}

	// NotFoundError reports a missing source or output directory, or a path
	// that is not a directory.
	NotFoundError struct {
		Path string
		Err  error
	}

	// ManifestError reports a manifest that is missing, unreadable,
	// unparseable, or without a usable id.
	ManifestError struct {
		Path string
		Err  error
	}

	// IOError reports a filesystem or hook failure after preflight succeeded.
	// Op names the pipeline step: "stage", "hook", "prune", "compress", "move"
	// or "cleanup".
	IOError struct {
		Op   string
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

// Unwrap returns ErrUsage and the cause.
func (e *UsageError) Unwrap() []error { return unwrapWith(ErrUsage, e.Err) }

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Path + ": not found"
}

// Unwrap returns ErrNotFound and the cause.
func (e *NotFoundError) Unwrap() []error { return unwrapWith(ErrNotFound, e.Err) }

// Error implements the error interface. The path is omitted when the cause
// already names it, which manifest loading errors do.
func (e *ManifestError) Error() string {
	if e.Err == nil {
		return "manifest " + e.Path
	}
	msg := e.Err.Error()
	if e.Path != "" && strings.Contains(msg, e.Path) {
		return msg
	}
	return fmt.Sprintf("manifest %s: %s", e.Path, msg)
}

// Unwrap returns ErrManifest and the cause.
func (e *ManifestError) Unwrap() []error { return unwrapWith(ErrManifest, e.Err) }

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns ErrIO and the cause.
func (e *IOError) Unwrap() []error { return unwrapWith(ErrIO, e.Err) }

func unwrapWith(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}

// ExitCodeFor maps an error to the process exit code: success for nil,
// ExitIOFailure for IOError, and ExitInvalidInput for everything else.
func ExitCodeFor(err error) types.ExitCode {
	switch {
	case err == nil:
		return types.ExitSuccess
	case errors.Is(err, ErrIO):
		return types.ExitIOFailure
	default:
		return types.ExitInvalidInput
	}
}
