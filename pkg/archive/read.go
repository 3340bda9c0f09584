// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrMemberNotFound is returned by ReadMember when the archive has no
	// member with the requested name.
	ErrMemberNotFound = errors.New("archive member not found")
	// ErrUnsafePath is returned when a member name would escape the
	// extraction directory.
	ErrUnsafePath = errors.New("unsafe path in archive")
)

// Entry describes one archive member.
type Entry struct {
	Name           string      `json:"name" toml:"name"`
	Size           uint64      `json:"size" toml:"size"`
	CompressedSize uint64      `json:"compressed_size" toml:"compressed_size"`
	Mode           os.FileMode `json:"mode" toml:"mode"`
	Modified       time.Time   `json:"modified" toml:"modified"`
	IsDir          bool        `json:"is_dir" toml:"is_dir"`
	Method         string      `json:"method" toml:"method"`
}

// List returns the members of the archive at src in stored order.
func List(src string) (entries []Entry, err error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	entries = make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, Entry{
			Name:           f.Name,
			Size:           f.UncompressedSize64,
			CompressedSize: f.CompressedSize64,
			Mode:           f.Mode(),
			Modified:       f.Modified,
			IsDir:          f.FileInfo().IsDir(),
			Method:         methodName(f.Method),
		})
	}
	return entries, nil
}

// ReadMember returns the contents of the member called name.
func ReadMember(src, name string) (data []byte, err error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, openErr := f.Open()
		if openErr != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, openErr)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, name)
}

// Extract unpacks every member of src below destDir, creating destDir when
// needed, and returns the extracted member names.
func Extract(ctx context.Context, src, destDir string) (extracted []string, err error) {
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination directory: %w", err)
	}
	if err = os.MkdirAll(absDest, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, f := range r.File {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return extracted, ctxErr
		}

		target, pathErr := safeJoin(absDest, f.Name)
		if pathErr != nil {
			return extracted, pathErr
		}

		if f.FileInfo().IsDir() {
			if mkdirErr := os.MkdirAll(target, 0o755); mkdirErr != nil {
				return extracted, fmt.Errorf("failed to create directory: %w", mkdirErr)
			}
			extracted = append(extracted, f.Name)
			continue
		}

		if mkdirErr := os.MkdirAll(filepath.Dir(target), 0o755); mkdirErr != nil {
			return extracted, fmt.Errorf("failed to create parent directory: %w", mkdirErr)
		}
		if extractErr := extractFile(f, target); extractErr != nil {
			return extracted, fmt.Errorf("failed to extract %s: %w", f.Name, extractErr)
		}
		extracted = append(extracted, f.Name)
	}

	return extracted, nil
}

// safeJoin resolves a member name below root, rejecting absolute names and
// names with ".." elements.
func safeJoin(root, name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if slashed == "" || path.IsAbs(slashed) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	for _, elem := range strings.Split(slashed, "/") {
		if elem == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
		}
	}
	return filepath.Join(root, filepath.FromSlash(slashed)), nil
}

func extractFile(f *zip.File, dest string) (err error) {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: archives come from the user's own builds or URLs they chose
	_, err = io.Copy(out, rc)
	return err
}

func methodName(method uint16) string {
	switch method {
	case zip.Store:
		return "store"
	case zip.Deflate:
		return "deflate"
	default:
		return fmt.Sprintf("method-%d", method)
	}
}
