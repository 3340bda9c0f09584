// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of common addonpack problems.
//
// ActionableError carries the failed operation, the resource involved, suggestions, and
// optionally an Id into the catalog. Catalog entries are Markdown documents rendered
// for the terminal with glamour.
package issue
