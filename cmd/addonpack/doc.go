// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the addonpack command tree.
//
// The root command builds an archive directly (`addonpack <addon-dir>
// <version>`); validate, inspect, install and config are subcommands. Errors
// from internal/builder are turned into actionable messages here and mapped
// to exit codes: 1 for usage, missing directories and manifest problems, 2
// for I/O failures after preflight.
package cmd
