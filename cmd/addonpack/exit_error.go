// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"

	"github.com/nak-tools/addonpack/internal/builder"
	"github.com/nak-tools/addonpack/pkg/types"
)

// ExitError pins the exit code for a failure whose cause alone would map
// to a different code, such as an install conflict wrapping an IOError.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitCode prefers an explicit ExitError and falls back to the builder
// error taxonomy.
func exitCode(err error) types.ExitCode {
	if exitErr, ok := errors.AsType[*ExitError](err); ok {
		return exitErr.Code
	}
	return builder.ExitCodeFor(err)
}
