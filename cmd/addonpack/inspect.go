// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nak-tools/addonpack/internal/builder"
	"github.com/nak-tools/addonpack/pkg/addon"
	"github.com/nak-tools/addonpack/pkg/archive"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatTOML = "toml"
)

// inspectReport is the machine-readable form of `addonpack inspect`.
type inspectReport struct {
	Archive  string          `json:"archive" toml:"archive"`
	Size     int64           `json:"size" toml:"size"`
	Manifest *addon.Manifest `json:"manifest,omitempty" toml:"manifest,omitempty"`
	Members  []archive.Entry `json:"members" toml:"members"`
}

func newInspectCommand(app *App) *cobra.Command {
	var format string

	inspectCmd := &cobra.Command{
		Use:   "inspect <archive.zip>",
		Short: "List the members and manifest of an addon archive",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, app, args[0], format)
		},
	}
	inspectCmd.Flags().StringVarP(&format, "format", "f", outputFormatText, "output format: text, json or toml")

	return inspectCmd
}

func runInspect(cmd *cobra.Command, app *App, path, format string) error {
	switch format {
	case outputFormatText, outputFormatJSON, outputFormatTOML:
	default:
		return &builder.UsageError{Reason: fmt.Sprintf("unknown format %q", format), Usage: cmd.UseLine()}
	}

	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	report, err := readArchive(path, cfg.Build.ManifestName.String())
	if err != nil {
		return err
	}

	switch format {
	case outputFormatJSON:
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		_, err = fmt.Fprintln(app.stdout, string(payload))
		return err
	case outputFormatTOML:
		payload, err := toml.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		_, err = app.stdout.Write(payload)
		return err
	default:
		writeInspectText(app.stdout, report)
		return nil
	}
}

// readArchive lists the archive at path and decodes the manifest stored at
// its root, if any. A missing manifest is not an error.
func readArchive(path, manifestName string) (*inspectReport, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &builder.NotFoundError{Path: path, Err: fs.ErrNotExist}
	case err != nil:
		return nil, &builder.NotFoundError{Path: path, Err: err}
	case info.IsDir():
		return nil, &builder.NotFoundError{Path: path, Err: errors.New("is a directory, expected a zip archive")}
	}

	entries, err := archive.List(path)
	if err != nil {
		return nil, &builder.IOError{Op: "read archive", Path: path, Err: err}
	}
	report := &inspectReport{Archive: path, Size: info.Size(), Members: entries}

	if manifestName == "" {
		manifestName = addon.ManifestFileName
	}
	data, err := archive.ReadMember(path, manifestName)
	switch {
	case errors.Is(err, archive.ErrMemberNotFound):
		return report, nil
	case err != nil:
		return nil, &builder.IOError{Op: "read archive", Path: path, Err: err}
	}

	manifest, err := addon.Parse(data, filepath.ToSlash(filepath.Join(filepath.Base(path), manifestName)))
	if err != nil {
		return nil, &builder.ManifestError{Path: path + ":" + manifestName, Err: err}
	}
	report.Manifest = manifest
	return report, nil
}

func writeInspectText(w io.Writer, report *inspectReport) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Archive:"), KeyStyle.Render(report.Archive))
	fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Size:"), humanize.Bytes(uint64(report.Size)))
	if report.Manifest != nil {
		fmt.Fprintf(w, "%s %s (%s)\n", SubtitleStyle.Render("Addon:"), report.Manifest.ID, report.Manifest.Title())
	} else {
		fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Addon:"), WarningStyle.Render("(no manifest at archive root)"))
	}
	fmt.Fprintln(w)

	var total uint64
	for _, e := range report.Members {
		size := "-"
		if !e.IsDir {
			size = humanize.Bytes(e.Size)
			total += e.Size
		}
		fmt.Fprintf(w, "  %-10s %9s  %s\n", e.Mode, size, e.Name)
	}
	fmt.Fprintf(w, "\n%d members, %s uncompressed\n", len(report.Members), humanize.Bytes(total))
}
