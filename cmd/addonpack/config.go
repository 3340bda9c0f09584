// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/nak-tools/addonpack/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `addonpack config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage addonpack configuration",
		Long: `Manage addonpack configuration.

Configuration is stored in:
  - Linux: ~/.config/addonpack/config.cue
  - macOS: ~/Library/Application Support/addonpack/config.cue
  - Windows: %APPDATA%\addonpack\config.cue

A .addonpack.cue in the working directory is used when none exists there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	out := app.stdout
	keyStyle := KeyStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	source := SubtitleStyle.Render("(using defaults)")
	if cfg.Source != "" {
		source = cfg.Source
	}
	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), source)
	fmt.Fprintln(out)

	outputDir := cfg.Build.OutputDir
	if outputDir == "" {
		outputDir = "(working directory)"
	}
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("build"))
	fmt.Fprintf(out, "  manifest_name: %s\n", valueStyle.Render(cfg.Build.ManifestName.String()))
	fmt.Fprintf(out, "  output_dir: %s\n", valueStyle.Render(outputDir))
	fmt.Fprintf(out, "  compression_level: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Build.CompressionLevel)))
	fmt.Fprintf(out, "  prune: %s\n", valueStyle.Render(strings.Join(cfg.Build.Prune, ", ")))
	if cfg.Build.Hooks.PreArchive.IsEmpty() {
		fmt.Fprintf(out, "  hooks.pre_archive: %s\n", SubtitleStyle.Render("(none)"))
	} else {
		fmt.Fprintf(out, "  hooks.pre_archive: %s\n", valueStyle.Render(string(cfg.Build.Hooks.PreArchive)))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("install"))
	if addonsDir, dirErr := cfg.AddonsDir(); dirErr == nil {
		fmt.Fprintf(out, "  addons_dir: %s\n", valueStyle.Render(addonsDir))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(out, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig("")
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	cfgPath, err := config.FilePath("")
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", cfgPath)
	return nil
}
