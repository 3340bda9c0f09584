// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nak-tools/addonpack/pkg/addon"
)

var errNotDir = errors.New("not a directory")

type (
	// Request describes one build.
	Request struct {
		// SourceDir is the addon directory holding the manifest.
		SourceDir string
		// Version is used verbatim in the archive name.
		Version string
		// OutputDir receives the archive. Empty means the working directory.
		OutputDir string
		// StrictVersion additionally requires MAJOR.MINOR.PATCH.
		StrictVersion bool
		// ModTime, when non-zero, is stamped on every archive member.
		ModTime time.Time
	}

	// Plan is the outcome of preflight validation. Producing a Plan touches
	// nothing on disk.
	Plan struct {
		SourceDir   string
		Manifest    *addon.Manifest
		Version     addon.Version
		ArchiveName string
		OutputDir   string
		// OutputPath is OutputDir joined with ArchiveName.
		OutputPath string
	}
)

// Prepare validates req without acquiring any resources. It checks the
// version token, that the source and output directories exist, and that the
// manifest parses and declares a usable id.
func (b *Builder) Prepare(req Request) (*Plan, error) {
	version := addon.Version(req.Version)
	validate := version.Validate
	if req.StrictVersion {
		validate = version.ValidateStrict
	}
	if err := validate(); err != nil {
		return nil, &UsageError{Reason: "invalid version", Err: err}
	}

	sourceDir, manifest, err := b.LoadManifest(req.SourceDir)
	if err != nil {
		return nil, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		if outputDir, err = os.Getwd(); err != nil {
			return nil, &IOError{Op: "resolve output directory", Err: err}
		}
	}
	outputDir, err = requireDir(outputDir)
	if err != nil {
		return nil, err
	}

	name := addon.ArchiveName(manifest.ID, version)
	return &Plan{
		SourceDir:   sourceDir,
		Manifest:    manifest,
		Version:     version,
		ArchiveName: name,
		OutputDir:   outputDir,
		OutputPath:  filepath.Join(outputDir, name),
	}, nil
}

// LoadManifest checks that sourceDir is a directory and reads its manifest.
// It returns the absolute source directory alongside the manifest.
func (b *Builder) LoadManifest(sourceDir string) (string, *addon.Manifest, error) {
	dir, err := requireDir(sourceDir)
	if err != nil {
		return "", nil, err
	}
	manifest, err := addon.Load(dir, b.opts.ManifestName)
	if err != nil {
		return "", nil, &ManifestError{Path: filepath.Join(dir, b.manifestName()), Err: err}
	}
	return dir, manifest, nil
}

func (b *Builder) manifestName() string {
	if b.opts.ManifestName == "" {
		return addon.ManifestFileName
	}
	return b.opts.ManifestName
}

// requireDir returns the absolute form of path after checking that it names
// an existing directory.
func requireDir(path string) (string, error) {
	if path == "" {
		return "", &NotFoundError{Path: path, Err: errors.New("empty path")}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &NotFoundError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", &NotFoundError{Path: path, Err: fs.ErrNotExist}
	case err != nil:
		return "", &NotFoundError{Path: path, Err: err}
	case !info.IsDir():
		return "", &NotFoundError{Path: path, Err: errNotDir}
	}
	return abs, nil
}
