// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/nak-tools/addonpack/pkg/types"
)

type (
	// Provider loads configuration. The CLI depends on this interface so tests
	// can hand it a fixed Config.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	// LoadOptions selects where configuration is read from. Zero values mean
	// the platform defaults.
	LoadOptions struct {
		// File is read exclusively when set; it must exist.
		File types.FilesystemPath
		// Dir replaces the platform configuration directory.
		Dir types.FilesystemPath
		// SearchDir is checked for a LocalConfigFileName when Dir has none. Empty
		// means the working directory.
		SearchDir types.FilesystemPath
	}

	// OptionError names the LoadOptions field holding an unusable path.
	OptionError struct {
		Field string
		Err   error
	}

	cueProvider struct{}
)

// NewProvider returns the provider backed by CUE files merged through Viper.
func NewProvider() Provider { return cueProvider{} }

func (cueProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}

// Validate reports every set field whose path is unusable, joined.
func (o LoadOptions) Validate() error {
	fields := []struct {
		name string
		path types.FilesystemPath
	}{
		{"File", o.File},
		{"Dir", o.Dir},
		{"SearchDir", o.SearchDir},
	}

	var errs []error
	for _, f := range fields {
		if f.path == "" {
			continue
		}
		if err := f.path.Validate(); err != nil {
			errs = append(errs, &OptionError{Field: f.name, Err: err})
		}
	}
	return errors.Join(errs...)
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("load option %s: %v", e.Field, e.Err)
}

func (e *OptionError) Unwrap() error { return e.Err }
