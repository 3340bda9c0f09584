// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nak-tools/addonpack/internal/hook"
	"github.com/nak-tools/addonpack/internal/prune"
	"github.com/nak-tools/addonpack/pkg/addon"
)

const (
	// MinCompressionLevel selects the deflate library default.
	MinCompressionLevel CompressionLevel = -1
	// MaxCompressionLevel selects the best (slowest) deflate compression.
	MaxCompressionLevel CompressionLevel = 9
)

var (
	// ErrInvalidCompressionLevel is returned when a CompressionLevel is outside -1..9.
	ErrInvalidCompressionLevel = errors.New("invalid compression level")
	// ErrInvalidManifestName is returned when a ManifestName is not a bare file name.
	ErrInvalidManifestName = errors.New("invalid manifest name")
	// ErrInvalidBuildConfig is the sentinel error wrapped by InvalidBuildConfigError.
	ErrInvalidBuildConfig = errors.New("invalid build config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// CompressionLevel is a deflate level, -1 through 9.
	CompressionLevel int

	// InvalidCompressionLevelError is returned when a CompressionLevel is out of range.
	// It wraps ErrInvalidCompressionLevel for errors.Is() compatibility.
	InvalidCompressionLevelError struct {
		Value CompressionLevel
	}

	// ManifestName is the file name of the addon manifest inside a source directory.
	ManifestName string

	// InvalidManifestNameError is returned when a ManifestName is empty or contains
	// a path separator.
	InvalidManifestNameError struct {
		Value ManifestName
	}

	// InvalidBuildConfigError collects field-level errors from BuildConfig.
	InvalidBuildConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError collects field-level errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Build   BuildConfig   `json:"build" mapstructure:"build"`
		Install InstallConfig `json:"install" mapstructure:"install"`
		UI      UIConfig      `json:"ui" mapstructure:"ui"`

		// Source is the file the configuration was loaded from, empty for defaults.
		Source string `json:"-" mapstructure:"-"`
	}

	// BuildConfig configures archive builds.
	BuildConfig struct {
		ManifestName     ManifestName     `json:"manifest_name" mapstructure:"manifest_name"`
		OutputDir        string           `json:"output_dir" mapstructure:"output_dir"`
		CompressionLevel CompressionLevel `json:"compression_level" mapstructure:"compression_level"`
		// Prune lists dockerignore-style patterns removed from the staged copy.
		Prune []string    `json:"prune" mapstructure:"prune"`
		Hooks HooksConfig `json:"hooks" mapstructure:"hooks"`
	}

	// HooksConfig holds optional build hook scripts.
	HooksConfig struct {
		PreArchive hook.Script `json:"pre_archive" mapstructure:"pre_archive"`
	}

	// InstallConfig configures archive installation.
	InstallConfig struct {
		// AddonsDir receives installed addons. Empty means <config dir>/addons.
		AddonsDir string `json:"addons_dir" mapstructure:"addons_dir"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			ManifestName:     ManifestName(addon.ManifestFileName),
			OutputDir:        "",
			CompressionLevel: MinCompressionLevel,
			Prune:            append([]string(nil), prune.DefaultPatterns...),
		},
		Install: InstallConfig{AddonsDir: ""},
		UI:      UIConfig{Verbose: false},
	}
}

// Validate checks constraints that the CUE schema cannot express.
func (c Config) Validate() error {
	var errs []error
	if err := c.Build.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// AddonsDir returns the install target directory, falling back to
// <config dir>/addons when none is configured.
func (c Config) AddonsDir() (string, error) {
	if c.Install.AddonsDir != "" {
		return c.Install.AddonsDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "addons"), nil
}

// Validate checks the manifest name, compression level, prune patterns and hook syntax.
func (c BuildConfig) Validate() error {
	var errs []error
	if err := c.ManifestName.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.CompressionLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := prune.New(c.Prune); err != nil {
		errs = append(errs, fmt.Errorf("build.prune: %w", err))
	}
	if err := c.Hooks.PreArchive.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("build.hooks.pre_archive: %w", err))
	}
	if len(errs) > 0 {
		return &InvalidBuildConfigError{FieldErrors: errs}
	}
	return nil
}

// Validate returns an error if the level is outside -1..9.
func (l CompressionLevel) Validate() error {
	if l < MinCompressionLevel || l > MaxCompressionLevel {
		return &InvalidCompressionLevelError{Value: l}
	}
	return nil
}

// String returns the manifest file name.
func (n ManifestName) String() string { return string(n) }

// Validate returns an error if the name is empty or not a bare file name.
func (n ManifestName) Validate() error {
	s := string(n)
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return &InvalidManifestNameError{Value: n}
	}
	return nil
}

// Error implements the error interface for InvalidCompressionLevelError.
func (e *InvalidCompressionLevelError) Error() string {
	return fmt.Sprintf("invalid compression level %d (must be between %d and %d)",
		e.Value, MinCompressionLevel, MaxCompressionLevel)
}

// Unwrap returns ErrInvalidCompressionLevel for errors.Is() compatibility.
func (e *InvalidCompressionLevelError) Unwrap() error { return ErrInvalidCompressionLevel }

// Error implements the error interface for InvalidManifestNameError.
func (e *InvalidManifestNameError) Error() string {
	return fmt.Sprintf("invalid manifest name %q: must be a file name without path separators", e.Value)
}

// Unwrap returns ErrInvalidManifestName for errors.Is() compatibility.
func (e *InvalidManifestNameError) Unwrap() error { return ErrInvalidManifestName }

// Error implements the error interface for InvalidBuildConfigError.
func (e *InvalidBuildConfigError) Error() string {
	return joinFieldErrors("invalid build config", e.FieldErrors)
}

// Unwrap returns the sentinel and the field errors so errors.Is reaches both.
func (e *InvalidBuildConfigError) Unwrap() []error {
	return append([]error{ErrInvalidBuildConfig}, e.FieldErrors...)
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return joinFieldErrors("invalid config", e.FieldErrors)
}

// Unwrap returns the sentinel and the field errors so errors.Is reaches both.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

func joinFieldErrors(prefix string, errs []error) string {
	if len(errs) == 1 {
		return prefix + ": " + errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %d field errors: %s", prefix, len(errs), strings.Join(msgs, "; "))
}
