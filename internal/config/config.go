// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nak-tools/addonpack/internal/issue"
	"github.com/nak-tools/addonpack/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "addonpack"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFileName is the project-local config file looked up in the
	// working directory. It is hidden and app-specific so that a CUE
	// project's own config.cue is never picked up.
	LocalConfigFileName = "." + AppName + "." + ConfigFileExt
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the addonpack configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FilePath returns the config file path inside dir, or inside ConfigDir when dir is empty.
func FilePath(dir string) (string, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("build.manifest_name", defaults.Build.ManifestName.String())
	v.SetDefault("build.output_dir", defaults.Build.OutputDir)
	v.SetDefault("build.compression_level", int(defaults.Build.CompressionLevel))
	v.SetDefault("build.prune", defaults.Build.Prune)
	v.SetDefault("build.hooks.pre_archive", string(defaults.Build.Hooks.PreArchive))
	v.SetDefault("install.addons_dir", defaults.Install.AddonsDir)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	// An explicit --config path is used exclusively.
	if opts.File != "" {
		path := opts.File.String()
		if !fileExists(path) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'addonpack config init' to create a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, loadError(path, err)
		}
		resolvedPath = path
	} else {
		cuePath, err := FilePath(opts.Dir.String())
		if err != nil {
			return nil, err
		}

		localCuePath := filepath.Join(opts.SearchDir.String(), LocalConfigFileName)
		for _, candidate := range []string{cuePath, localCuePath} {
			if !fileExists(candidate) {
				continue
			}
			if err := loadCUEIntoViper(v, candidate); err != nil {
				return nil, loadError(candidate, err)
			}
			resolvedPath = candidate
			break
		}
		// No config file means defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = resolvedPath

	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Prune patterns use .dockerignore syntax, for example \"**/*.pyc\"").
			WithSuggestion("The pre-archive hook must be a valid POSIX shell script").
			Wrap(err).
			BuildError()
	}

	return &cfg, nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithIssue(issue.ConfigLoadFailedId).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("See 'addonpack config --help' for configuration options").
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper checks a CUE file against #Config and merges it into v.
// The file decodes to a map rather than a Config so Viper keeps its defaults
// for keys the file leaves out.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Unify(configSchema, data, "#Config",
		cueutil.WithConcrete(false),
		cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir (ConfigDir when
// empty) unless one already exists. It returns the file path and whether it
// was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgPath, err := FilePath(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// addonpack configuration file\n\n")

	sb.WriteString("build: {\n")
	fmt.Fprintf(&sb, "\tmanifest_name: %q\n", cfg.Build.ManifestName)
	if cfg.Build.OutputDir != "" {
		fmt.Fprintf(&sb, "\toutput_dir: %q\n", cfg.Build.OutputDir)
	}
	fmt.Fprintf(&sb, "\tcompression_level: %d\n", cfg.Build.CompressionLevel)
	sb.WriteString("\tprune: [\n")
	for _, pattern := range cfg.Build.Prune {
		fmt.Fprintf(&sb, "\t\t%q,\n", pattern)
	}
	sb.WriteString("\t]\n")
	if !cfg.Build.Hooks.PreArchive.IsEmpty() {
		sb.WriteString("\thooks: {\n")
		fmt.Fprintf(&sb, "\t\tpre_archive: %q\n", string(cfg.Build.Hooks.PreArchive))
		sb.WriteString("\t}\n")
	}
	sb.WriteString("}\n")

	if cfg.Install.AddonsDir != "" {
		sb.WriteString("\ninstall: {\n")
		fmt.Fprintf(&sb, "\taddons_dir: %q\n", cfg.Install.AddonsDir)
		sb.WriteString("}\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
