// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/addonpack/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/addonpack/config.cue on macOS,
// %APPDATA%\addonpack\config.cue on Windows), falling back to ./.addonpack.cue. The file is
// validated against an embedded CUE schema (config_schema.cue) and merged over defaults.
// Prune patterns and the pre-archive hook are additionally checked by compiling them.
package config
