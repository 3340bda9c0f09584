// SPDX-License-Identifier: MPL-2.0

// Package addon models the addon manifest (addon.json) and the naming rules
// for distributable archives.
//
// A manifest is JSON validated against the embedded CUE schema
// (manifest_schema.cue). Only the id field is required; it names the archive
// and the directory the addon is installed into, so it must be usable as a
// single path element.
package addon
