// SPDX-License-Identifier: MPL-2.0

// Package hook runs the optional pre-archive script inside the staged addon
// tree. Scripts are interpreted by mvdan.cc/sh, so they behave the same on
// every host and need no system shell.
package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrHookFailed is wrapped by errors returned when a hook script exits non-zero.
var ErrHookFailed = errors.New("hook failed")

type (
	// Script is shell source for a hook.
	Script string

	// Env holds the variables exported to a hook on top of the process
	// environment.
	Env struct {
		AddonID  string
		Version  string
		StageDir string
		Source   string
	}

	// ExitError reports a hook's non-zero exit status.
	ExitError struct {
		Status uint8
	}
)

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("hook exited with status %d", e.Status)
}

// Unwrap returns ErrHookFailed for errors.Is() compatibility.
func (e *ExitError) Unwrap() error { return ErrHookFailed }

// IsEmpty reports whether there is nothing to run.
func (s Script) IsEmpty() bool {
	return strings.TrimSpace(string(s)) == ""
}

// Validate parses the script without running it.
func (s Script) Validate() error {
	if _, err := s.parse(); err != nil {
		return err
	}
	return nil
}

func (s Script) parse() (*syntax.File, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(string(s)), "pre_archive")
	if err != nil {
		return nil, fmt.Errorf("hook syntax error: %w", err)
	}
	return prog, nil
}

// Run executes the script with env.StageDir as working directory. stdout and
// stderr may be nil.
func (s Script) Run(ctx context.Context, env Env, stdout, stderr io.Writer) error {
	if s.IsEmpty() {
		return nil
	}

	prog, err := s.parse()
	if err != nil {
		return err
	}

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	runner, err := interp.New(
		interp.Dir(env.StageDir),
		interp.Env(expand.ListEnviron(env.environ()...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Status: uint8(status)}
		}
		return fmt.Errorf("hook execution failed: %w", err)
	}
	return nil
}

func (e Env) environ() []string {
	return append(os.Environ(),
		"ADDON_ID="+e.AddonID,
		"ADDON_VERSION="+e.Version,
		"ADDON_STAGE_DIR="+e.StageDir,
		"ADDON_SOURCE_DIR="+e.Source,
	)
}
