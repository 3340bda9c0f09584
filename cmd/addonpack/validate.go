// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/nak-tools/addonpack/internal/builder"
	"github.com/nak-tools/addonpack/pkg/addon"

	"github.com/spf13/cobra"
)

func newValidateCommand(app *App) *cobra.Command {
	var strictVersion bool

	validateCmd := &cobra.Command{
		Use:   "validate <addon-dir> [version]",
		Short: "Check an addon directory without building it",
		Long: `Check an addon directory without building it.

Runs the same checks as build before anything is copied: the directory must
exist and hold a manifest with a usable id. When a version is given it is
checked too and the archive name is printed. Nothing is written to disk.`,
		Args: rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			return runValidate(cmd, app, args[0], version, strictVersion)
		},
	}
	validateCmd.Flags().BoolVar(&strictVersion, "strict-version", false, "require a MAJOR.MINOR.PATCH version")

	return validateCmd
}

func runValidate(cmd *cobra.Command, app *App, sourceDir, version string, strictVersion bool) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	b, err := app.newBuilder(cfg)
	if err != nil {
		return err
	}

	var (
		manifest    *addon.Manifest
		archiveName string
	)
	if version == "" {
		if _, manifest, err = b.LoadManifest(sourceDir); err != nil {
			return err
		}
	} else {
		// The output directory is irrelevant here; pin it to the source so a
		// missing working directory cannot fail the check.
		plan, prepErr := b.Prepare(builder.Request{
			SourceDir:     sourceDir,
			Version:       version,
			OutputDir:     sourceDir,
			StrictVersion: strictVersion,
		})
		if prepErr != nil {
			return prepErr
		}
		manifest, archiveName = plan.Manifest, plan.ArchiveName
	}

	fmt.Fprintf(app.stdout, "%s %s is a valid addon\n", SuccessStyle.Render("✓"), KeyStyle.Render(manifest.ID.String()))
	fmt.Fprintf(app.stdout, "  manifest: %s\n", manifest.FilePath)
	if manifest.Name != "" {
		fmt.Fprintf(app.stdout, "  name:     %s\n", manifest.Name)
	}
	if manifest.Version != "" {
		fmt.Fprintf(app.stdout, "  version:  %s\n", manifest.Version)
	}
	if archiveName != "" {
		fmt.Fprintf(app.stdout, "  archive:  %s\n", archiveName)
	}
	return nil
}
