// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/nak-tools/addonpack/internal/builder"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// buildFlags holds the flags shared by the root command and `build`.
type buildFlags struct {
	outputDir     string
	strictVersion bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "directory receiving the archive (default is the working directory)")
	cmd.Flags().BoolVar(&f.strictVersion, "strict-version", false, "require a MAJOR.MINOR.PATCH version")
}

func newBuildCommand(app *App) *cobra.Command {
	var flags buildFlags

	buildCmd := &cobra.Command{
		Use:   "build <addon-dir> <version>",
		Short: "Build <id>-<version>.zip from an addon directory",
		Long: `Build <id>-<version>.zip from an addon directory.

The addon id is read from addon.json. The directory is copied to a scratch
location, __pycache__ directories and *.pyc/*.pyo files are removed, and the
remaining tree is compressed with members relative to the addon root.

When SOURCE_DATE_EPOCH is set, every member carries that timestamp so
repeated builds of the same tree are byte-identical.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, app, flags, args[0], args[1])
		},
	}
	flags.register(buildCmd)

	return buildCmd
}

func runBuild(cmd *cobra.Command, app *App, flags buildFlags, sourceDir, version string) error {
	ctx := cmd.Context()

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	modTime, err := builder.SourceDateEpoch(app.getenv(builder.SourceDateEpochEnv))
	if err != nil {
		return err
	}

	b, err := app.newBuilder(cfg)
	if err != nil {
		return err
	}

	outputDir := flags.outputDir
	if outputDir == "" {
		outputDir = cfg.Build.OutputDir
	}

	res, err := b.Build(ctx, builder.Request{
		SourceDir:     sourceDir,
		Version:       version,
		OutputDir:     outputDir,
		StrictVersion: flags.strictVersion,
		ModTime:       modTime,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, res.ArchivePath)
	fmt.Fprintf(app.stderr, "%s Created %s (%s, %d members, %d pruned)\n",
		SuccessStyle.Render("✓"),
		KeyStyle.Render(filepath.Base(res.ArchivePath)),
		humanize.Bytes(uint64(res.Size)),
		len(res.Members),
		len(res.Pruned),
	)
	return nil
}
