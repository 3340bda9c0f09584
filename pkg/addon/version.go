// SPDX-License-Identifier: MPL-2.0

package addon

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version")

type (
	// Version is the release token placed in the archive name. It is opaque:
	// the default rules only keep it usable inside a file name.
	Version string

	// InvalidVersionError is returned when a Version cannot be used.
	InvalidVersionError struct {
		Value  Version
		Reason string
	}
)

// String returns the version token.
func (v Version) String() string { return string(v) }

// Validate checks that the token is non-empty and contains neither path
// separators nor whitespace.
func (v Version) Validate() error {
	s := string(v)
	switch {
	case s == "":
		return &InvalidVersionError{Value: v, Reason: "must not be empty"}
	case strings.ContainsAny(s, `/\`):
		return &InvalidVersionError{Value: v, Reason: "must not contain path separators"}
	case strings.IndexFunc(s, unicode.IsSpace) >= 0:
		return &InvalidVersionError{Value: v, Reason: "must not contain whitespace"}
	}
	return nil
}

// ValidateStrict additionally requires semantic-version shape (1.2.3, v1.2.3-rc.1).
func (v Version) ValidateStrict() error {
	if err := v.Validate(); err != nil {
		return err
	}
	if !IsSemVer(string(v)) {
		return &InvalidVersionError{Value: v, Reason: "must be a semantic version (MAJOR.MINOR.PATCH)"}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidVersion for errors.Is() compatibility.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// IsSemVer reports whether s is a full MAJOR.MINOR.PATCH semantic version,
// optionally with a leading v and prerelease or build suffixes.
func IsSemVer(s string) bool {
	norm := s
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return false
	}
	// semver also accepts the v1 and v1.2 shorthands.
	core, _, _ := strings.Cut(norm, "+")
	core, _, _ = strings.Cut(core, "-")
	return strings.Count(core, ".") == 2
}

// ArchiveName returns the archive file name for an addon release:
// "<id>-<version>.zip", with both parts used verbatim.
func ArchiveName(id ID, version Version) string {
	return string(id) + "-" + string(version) + ".zip"
}
