// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nak-tools/addonpack/internal/builder"
	"github.com/nak-tools/addonpack/internal/issue"
	"github.com/nak-tools/addonpack/pkg/archive"
	"github.com/nak-tools/addonpack/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type installFlags struct {
	addonsDir string
	overwrite bool
}

func newInstallCommand(app *App) *cobra.Command {
	var flags installFlags

	installCmd := &cobra.Command{
		Use:   "install <archive.zip|URL>",
		Short: "Unpack an addon archive into the addons directory",
		Long: `Unpack an addon archive into the addons directory.

The archive's own manifest decides the target: <addons-dir>/<id>/. Archives
may be local files or http(s) URLs, which are fetched with a single GET.
Members that would land outside the target directory are rejected.

The addons directory defaults to install.addons_dir from the configuration,
then to the addons/ folder inside the configuration directory.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), app, flags, args[0])
		},
	}
	installCmd.Flags().StringVar(&flags.addonsDir, "addons-dir", "", "directory holding installed addons")
	installCmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "replace an already installed addon")

	return installCmd
}

func runInstall(ctx context.Context, app *App, flags installFlags, source string) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	logger := app.logger()

	addonsDir := flags.addonsDir
	if addonsDir == "" {
		if addonsDir, err = cfg.AddonsDir(); err != nil {
			return &builder.IOError{Op: "resolve addons directory", Err: err}
		}
	}

	path := source
	if archive.IsURL(source) {
		logger.Debug("downloading archive", "url", source)
		path, err = archive.Download(ctx, app.HTTPClient, source)
		if err != nil {
			return &builder.IOError{Op: "download", Path: source, Err: err}
		}
		defer removeDownload(path, logger)
	}

	report, err := readArchive(path, cfg.Build.ManifestName.String())
	if err != nil {
		return err
	}
	if report.Manifest == nil {
		return &builder.ManifestError{
			Path: source,
			Err:  fmt.Errorf("no %s at the archive root", cfg.Build.ManifestName),
		}
	}
	id := report.Manifest.ID.String()
	dest := filepath.Join(addonsDir, id)

	if _, statErr := os.Stat(dest); statErr == nil && !flags.overwrite {
		return &ExitError{
			Code: types.ExitInvalidInput,
			Err: issue.NewErrorContext().
				WithOperation("install addon").
				WithResource(dest).
				WithIssue(issue.InstallConflictId).
				WithSuggestion("Pass --overwrite to replace the installed copy").
				Wrap(fs.ErrExist).
				Build(),
		}
	}

	if err := os.MkdirAll(addonsDir, 0o755); err != nil {
		return &builder.IOError{Op: "install", Path: addonsDir, Err: err}
	}

	// Unpack next to the target and swap it in, so an interrupted install
	// never leaves a half-populated addon directory behind.
	staging, err := os.MkdirTemp(addonsDir, "."+id+".partial-*")
	if err != nil {
		return &builder.IOError{Op: "install", Path: addonsDir, Err: err}
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			logger.Warn("failed to remove staging directory", "path", staging, "err", rmErr)
		}
	}()

	extracted, err := archive.Extract(ctx, path, staging)
	if err != nil {
		if errors.Is(err, archive.ErrUnsafePath) {
			return &builder.UsageError{Reason: "refusing to install " + source, Err: err}
		}
		return &builder.IOError{Op: "extract", Path: source, Err: err}
	}

	if err := os.RemoveAll(dest); err != nil {
		return &builder.IOError{Op: "install", Path: dest, Err: err}
	}
	if err := os.Rename(staging, dest); err != nil {
		return &builder.IOError{Op: "install", Path: dest, Err: err}
	}
	logger.Debug("installed addon", "addon", id, "members", len(extracted))

	fmt.Fprintln(app.stdout, dest)
	fmt.Fprintf(app.stderr, "%s Installed %s (%d members)\n",
		SuccessStyle.Render("✓"), KeyStyle.Render(report.Manifest.Title()), len(extracted))
	return nil
}

func removeDownload(path string, logger *log.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove downloaded archive", "path", path, "err", err)
	}
}
