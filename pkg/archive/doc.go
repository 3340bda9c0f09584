// SPDX-License-Identifier: MPL-2.0

// Package archive reads and writes addon zip archives.
//
// Archives are written with github.com/klauspost/compress (a drop-in
// archive/zip replacement with a faster deflate). Members are stored relative
// to the directory being archived, never under a wrapper directory, and are
// written in lexical order so that repeated runs over the same tree produce
// the same member list.
package archive
