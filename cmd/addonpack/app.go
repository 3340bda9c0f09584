// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/nak-tools/addonpack/internal/builder"
	"github.com/nak-tools/addonpack/internal/config"
	"github.com/nak-tools/addonpack/pkg/types"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches configuration, output streams and the
	// HTTP client through it.
	App struct {
		Config     config.Provider
		HTTPClient *http.Client
		stdout     io.Writer
		stderr     io.Writer
		getenv     func(string) string

		// Global flag values, bound by newRootCommand.
		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     config.Provider
		HTTPClient *http.Client
		Stdout     io.Writer
		Stderr     io.Writer
		// Getenv looks up environment variables; tests pin SOURCE_DATE_EPOCH with it.
		Getenv func(string) string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}

	return &App{
		Config:     deps.Config,
		HTTPClient: deps.HTTPClient,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		getenv:     deps.Getenv,
	}
}

// loadConfig loads configuration honoring --config. A configured ui.verbose
// turns on verbose output when the flag was not given.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		File: types.FilesystemPath(a.configPath),
	})
	if err != nil {
		return nil, &ExitError{Code: types.ExitInvalidInput, Err: err}
	}
	if cfg.UI.Verbose {
		a.verbose = true
	}
	return cfg, nil
}

// logger returns the progress logger. Only warnings are shown unless
// verbose output is enabled.
func (a *App) logger() *log.Logger {
	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// newBuilder creates a Builder from the build section of cfg. Hook output
// goes to stderr so stdout carries only command results.
func (a *App) newBuilder(cfg *config.Config) (*builder.Builder, error) {
	opts := builder.DefaultOptions()
	opts.ManifestName = cfg.Build.ManifestName.String()
	opts.CompressionLevel = int(cfg.Build.CompressionLevel)
	opts.Prune = cfg.Build.Prune
	opts.PreArchive = cfg.Build.Hooks.PreArchive
	opts.HookStdout = a.stderr
	opts.HookStderr = a.stderr
	opts.Logger = a.logger()
	return builder.New(opts)
}
