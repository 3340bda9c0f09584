// SPDX-License-Identifier: MPL-2.0

// Package testutil holds fixtures shared by addonpack tests: addon trees
// written from maps, archive member listings, and an isolated user config
// directory.
package testutil
