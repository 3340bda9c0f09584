// SPDX-License-Identifier: MPL-2.0

// Package builder turns an addon directory into <id>-<version>.zip.
//
// A build runs in two phases. Prepare checks the version token, the source
// and output directories and the manifest without touching the disk. Build
// then stages a scratch copy, runs the optional pre-archive hook, prunes
// Python bytecode caches, compresses the stage and moves the archive into
// the output directory. The scratch directory is released on every path.
//
// Failures are reported as UsageError, NotFoundError, ManifestError or
// IOError; ExitCodeFor maps them to process exit codes.
package builder
