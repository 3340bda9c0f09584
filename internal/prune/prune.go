// SPDX-License-Identifier: MPL-2.0

// Package prune removes build-cache artifacts from a staged addon tree.
//
// Patterns use .dockerignore syntax (github.com/moby/patternmatcher) and are
// matched against slash-separated paths relative to the tree root, so
// "**/__pycache__" matches a cache directory at any depth and "!keep.pyc"
// re-includes a file.
package prune

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/moby/patternmatcher"
)

// DefaultPatterns removes Python bytecode caches.
var DefaultPatterns = []string{
	"**/__pycache__",
	"**/*.pyc",
	"**/*.pyo",
}

// Pruner deletes every path under a root matching its patterns.
type Pruner struct {
	patterns []string
	matcher  *patternmatcher.PatternMatcher
}

// New compiles patterns. An empty list prunes nothing.
func New(patterns []string) (*Pruner, error) {
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid prune pattern: %w", err)
	}
	return &Pruner{patterns: slices.Clone(patterns), matcher: pm}, nil
}

// Patterns returns the compiled patterns.
func (p *Pruner) Patterns() []string {
	return slices.Clone(p.patterns)
}

// Prune removes matching files and directories below root and returns their
// slash-separated relative paths (directories end in "/"). A tree without
// matches is not an error.
//
// When the patterns contain "!" exclusions, matched directories are walked
// instead of removed wholesale and are only deleted if nothing re-included
// remains inside them.
func (p *Pruner) Prune(ctx context.Context, root string) ([]string, error) {
	var (
		removed     []string
		matchedDirs []string
		// Match results of walked directories, keyed by relative path, so
		// each entry is matched against its parent's result.
		dirInfo = map[string]patternmatcher.MatchInfo{}
	)
	if len(p.patterns) == 0 {
		return removed, nil
	}
	exclusions := p.matcher.Exclusions()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		match, info, err := p.matcher.MatchesUsingParentResults(rel, dirInfo[filepath.Dir(rel)])
		if err != nil {
			return fmt.Errorf("match %s: %w", rel, err)
		}
		if d.IsDir() {
			dirInfo[rel] = info
		}
		if !match {
			return nil
		}

		name := filepath.ToSlash(rel)
		switch {
		case d.IsDir() && exclusions:
			matchedDirs = append(matchedDirs, path)
			return nil
		case d.IsDir():
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", name, err)
			}
			removed = append(removed, name+"/")
			return filepath.SkipDir
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed = append(removed, name)
		return nil
	})
	if err != nil {
		return removed, err
	}

	// Deepest first so emptied parents can go too.
	for i := len(matchedDirs) - 1; i >= 0; i-- {
		dir := matchedDirs[i]
		entries, readErr := os.ReadDir(dir)
		if readErr != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		rel, _ := filepath.Rel(root, dir)
		removed = append(removed, filepath.ToSlash(rel)+"/")
	}

	slices.Sort(removed)
	return removed, nil
}
