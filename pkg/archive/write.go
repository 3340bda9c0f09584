// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// WriteOptions controls how WriteDir encodes members.
type WriteOptions struct {
	// Level is the deflate level (-1 for the library default, 0-9 otherwise).
	Level int
	// ModTime, when non-zero, replaces every member's modification time so
	// the archive bytes depend only on content.
	ModTime time.Time
}

// DefaultWriteOptions returns options using the default deflate level and
// the files' own modification times.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Level: flate.DefaultCompression}
}

// WriteDir archives the contents of root into a new zip file at dest and
// returns the member names in the order they were written. root itself is not
// a member. On failure dest is removed.
func WriteDir(ctx context.Context, root, dest string, opts WriteOptions) (members []string, err error) {
	if opts.Level < flate.HuffmanOnly || opts.Level > flate.BestCompression {
		return nil, fmt.Errorf("invalid compression level %d", opts.Level)
	}

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dest) // best-effort; the caller only sees complete archives
		}
	}()
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, opts.Level)
	})
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to finalize archive: %w", closeErr)
		}
	}()

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("failed to get relative path: %w", relErr)
		}
		if rel == "." {
			return nil
		}

		name, addErr := addEntry(zw, path, filepath.ToSlash(rel), d, opts)
		if addErr != nil {
			return addErr
		}
		members = append(members, name)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to archive %s: %w", root, walkErr)
	}

	return members, nil
}

func addEntry(zw *zip.Writer, path, name string, d fs.DirEntry, opts WriteOptions) (string, error) {
	info, err := d.Info()
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %w", err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		// Archive the link target; consumers extract plain files.
		if info, err = os.Stat(path); err != nil {
			return "", fmt.Errorf("failed to resolve symlink %s: %w", name, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("symlinked directory %s is not supported", name)
		}
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return "", fmt.Errorf("failed to create header for %s: %w", name, err)
	}
	header.Name = name
	if !opts.ModTime.IsZero() {
		header.Modified = opts.ModTime
	}

	if info.IsDir() {
		header.Name += "/"
		header.Method = zip.Store
		if _, err := zw.CreateHeader(header); err != nil {
			return "", fmt.Errorf("failed to create directory entry %s: %w", header.Name, err)
		}
		return header.Name, nil
	}

	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return "", fmt.Errorf("failed to create entry %s: %w", name, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return name, nil
}
