// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"slices"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ZipMembers returns the sorted member names of the archive at path.
func ZipMembers(t testing.TB, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive %s: %v", path, err)
	}
	defer MustClose(t, r)

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	slices.Sort(names)
	return names
}

// ZipContents maps each regular file member of the archive at path to its content.
func ZipContents(t testing.TB, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive %s: %v", path, err)
	}
	defer MustClose(t, r)

	contents := make(map[string]string, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open member %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		MustClose(t, rc)
		if err != nil {
			t.Fatalf("failed to read member %s: %v", f.Name, err)
		}
		contents[f.Name] = string(data)
	}
	return contents
}
