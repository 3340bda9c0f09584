// SPDX-License-Identifier: MPL-2.0

package addon

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/nak-tools/addonpack/pkg/cueutil"
)

// ManifestFileName is the fixed name of the manifest inside an addon directory.
const ManifestFileName = "addon.json"

//go:embed manifest_schema.cue
var manifestSchema []byte

var (
	// ErrManifestNotFound is returned when the addon directory has no manifest.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrInvalidManifest is returned when the manifest cannot be parsed or
	// fails schema validation.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrInvalidAddonID is the sentinel error wrapped by InvalidAddonIDError.
	ErrInvalidAddonID = errors.New("invalid addon id")
)

type (
	// ID is the addon identifier declared by the manifest.
	ID string

	// InvalidAddonIDError is returned when an ID cannot be used as a single
	// path element.
	InvalidAddonIDError struct {
		Value  ID
		Reason string
	}

	// Manifest is the decoded addon.json.
	Manifest struct {
		ID          ID     `json:"id" toml:"id"`
		Name        string `json:"name,omitempty" toml:"name,omitempty"`
		Version     string `json:"version,omitempty" toml:"version,omitempty"`
		Description string `json:"description,omitempty" toml:"description,omitempty"`
		Author      string `json:"author,omitempty" toml:"author,omitempty"`
		Homepage    string `json:"homepage,omitempty" toml:"homepage,omitempty"`

		// FilePath is where the manifest was read from; empty for manifests
		// parsed from memory.
		FilePath string `json:"-" toml:"-"`
	}

	// InvalidManifestError carries the parse or validation failure for a
	// manifest file. It wraps ErrInvalidManifest.
	InvalidManifestError struct {
		Path  string
		Cause error
	}
)

// String returns the identifier as a string.
func (id ID) String() string { return string(id) }

// Validate checks that the id is non-empty and safe to use as a file name.
func (id ID) Validate() error {
	s := string(id)
	switch {
	case strings.TrimSpace(s) == "":
		return &InvalidAddonIDError{Value: id, Reason: "must not be empty"}
	case strings.ContainsFunc(s, unicode.IsControl):
		return &InvalidAddonIDError{Value: id, Reason: "must not contain control characters"}
	case strings.ContainsAny(s, `/\`):
		return &InvalidAddonIDError{Value: id, Reason: "must not contain path separators"}
	case s == "." || s == "..":
		return &InvalidAddonIDError{Value: id, Reason: "must not be a relative path element"}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidAddonIDError) Error() string {
	return fmt.Sprintf("invalid addon id %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidAddonID for errors.Is() compatibility.
func (e *InvalidAddonIDError) Unwrap() error { return ErrInvalidAddonID }

// Error implements the error interface. Cause already names the file.
func (e *InvalidManifestError) Error() string {
	return "invalid manifest: " + e.Cause.Error()
}

// Unwrap returns both ErrInvalidManifest and the underlying cause.
func (e *InvalidManifestError) Unwrap() []error {
	return []error{ErrInvalidManifest, e.Cause}
}

// Validate checks the fields the schema cannot express.
func (m *Manifest) Validate() error {
	return m.ID.Validate()
}

// Title returns the display name, falling back to the id.
func (m *Manifest) Title() string {
	if m.Name != "" {
		return m.Name
	}
	return string(m.ID)
}

// Parse decodes and validates manifest bytes, which must be strict JSON. filename is used in error
// messages only.
func Parse(data []byte, filename string) (*Manifest, error) {
	if filename == "" {
		filename = ManifestFileName
	}

	m, err := cueutil.Decode[Manifest](manifestSchema, data, "#Manifest",
		cueutil.WithJSON(),
		cueutil.WithFilename(filename))
	if err != nil {
		return nil, &InvalidManifestError{Path: filename, Cause: err}
	}
	if err := m.Validate(); err != nil {
		return nil, &InvalidManifestError{Path: filename, Cause: fmt.Errorf("%s: %w", filename, err)}
	}
	m.FilePath = filename
	return m, nil
}

// Load reads the manifest named name (ManifestFileName when empty) from dir.
func Load(dir, name string) (*Manifest, error) {
	if name == "" {
		name = ManifestFileName
	}
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(data, path)
}
