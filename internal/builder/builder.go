// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/nak-tools/addonpack/internal/hook"
	"github.com/nak-tools/addonpack/internal/prune"
	"github.com/nak-tools/addonpack/internal/scratch"
	"github.com/nak-tools/addonpack/pkg/addon"
	"github.com/nak-tools/addonpack/pkg/archive"

	"github.com/charmbracelet/log"
	"github.com/u-root/u-root/pkg/cp"
)

const stageDirName = "stage"

type (
	// Options configures a Builder. Start from DefaultOptions; a zero
	// CompressionLevel means "store only".
	Options struct {
		// ManifestName is the manifest file inside the source directory.
		ManifestName string
		// ScratchBase is where scratch directories are created; empty means os.TempDir().
		ScratchBase string
		// CompressionLevel is the deflate level, -1 through 9.
		CompressionLevel int
		// Prune lists dockerignore-style patterns. Nil means prune.DefaultPatterns;
		// an empty non-nil slice prunes nothing.
		Prune []string
		// PreArchive runs inside the staged copy before pruning.
		PreArchive hook.Script
		// HookStdout and HookStderr receive hook output; nil discards it.
		HookStdout io.Writer
		HookStderr io.Writer
		// Logger receives step-by-step progress; nil discards it.
		Logger *log.Logger
	}

	// Builder produces addon archives.
	Builder struct {
		opts   Options
		pruner *prune.Pruner
		logger *log.Logger
	}

	// Result describes a finished build.
	Result struct {
		// ArchivePath is the absolute path of the archive in the output directory.
		ArchivePath string
		Manifest    *addon.Manifest
		// Members lists archive entries in write order.
		Members []string
		// Pruned lists what was removed from the staged copy.
		Pruned []string
		// Size is the archive size in bytes.
		Size int64
	}
)

// DefaultOptions uses addon.json, the default prune patterns and the
// library's default deflate level.
func DefaultOptions() Options {
	return Options{
		ManifestName:     addon.ManifestFileName,
		CompressionLevel: archive.DefaultWriteOptions().Level,
	}
}

// New returns a Builder for opts.
func New(opts Options) (*Builder, error) {
	if opts.CompressionLevel < -1 || opts.CompressionLevel > 9 {
		return nil, &UsageError{Reason: fmt.Sprintf("invalid compression level %d", opts.CompressionLevel)}
	}

	patterns := opts.Prune
	if patterns == nil {
		patterns = prune.DefaultPatterns
	}
	pruner, err := prune.New(patterns)
	if err != nil {
		return nil, &UsageError{Reason: "invalid prune patterns", Err: err}
	}

	if err := opts.PreArchive.Validate(); err != nil {
		return nil, &UsageError{Reason: "invalid pre-archive hook", Err: err}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Builder{opts: opts, pruner: pruner, logger: logger}, nil
}

// Build validates req, stages a scratch copy of the source directory, runs
// the pre-archive hook, prunes build caches, compresses the stage into
// <id>-<version>.zip and moves it into the output directory. The scratch
// directory is removed on every path, including cancellation. Errors belong
// to the UsageError, NotFoundError, ManifestError and IOError taxonomy.
func (b *Builder) Build(ctx context.Context, req Request) (res *Result, err error) {
	plan, err := b.Prepare(req)
	if err != nil {
		return nil, err
	}
	logger := b.logger.With("addon", plan.Manifest.ID)
	logger.Debug("preflight passed", "source", plan.SourceDir, "archive", plan.ArchiveName)

	dir, err := scratch.Acquire(b.opts.ScratchBase, b.logger)
	if err != nil {
		return nil, &IOError{Op: "acquire scratch", Err: err}
	}
	defer func() {
		if releaseErr := dir.Release(); releaseErr != nil && err == nil {
			res, err = nil, &IOError{Op: "cleanup", Err: releaseErr}
		}
	}()

	stage, err := dir.Join(stageDirName)
	if err != nil {
		return nil, &IOError{Op: "stage", Err: err}
	}
	if err := stageCopy(ctx, plan.SourceDir, stage); err != nil {
		return nil, &IOError{Op: "stage", Path: plan.SourceDir, Err: err}
	}
	logger.Debug("staged sources", "scratch", dir.Path())

	if !b.opts.PreArchive.IsEmpty() {
		env := hook.Env{
			AddonID:  plan.Manifest.ID.String(),
			Version:  plan.Version.String(),
			StageDir: stage,
			Source:   plan.SourceDir,
		}
		if err := b.opts.PreArchive.Run(ctx, env, b.opts.HookStdout, b.opts.HookStderr); err != nil {
			return nil, &IOError{Op: "hook", Err: err}
		}
		logger.Debug("pre-archive hook finished")
	}

	pruned, err := b.pruner.Prune(ctx, stage)
	if err != nil {
		return nil, &IOError{Op: "prune", Path: stage, Err: err}
	}
	logger.Debug("pruned build artifacts", "pruned", len(pruned))

	tmpArchive, err := dir.Join(plan.ArchiveName)
	if err != nil {
		return nil, &IOError{Op: "compress", Err: err}
	}
	members, err := archive.WriteDir(ctx, stage, tmpArchive, archive.WriteOptions{
		Level:   b.opts.CompressionLevel,
		ModTime: req.ModTime,
	})
	if err != nil {
		return nil, &IOError{Op: "compress", Path: tmpArchive, Err: err}
	}
	logger.Debug("compressed stage", "members", len(members))

	if err := ctx.Err(); err != nil {
		return nil, &IOError{Op: "move", Err: err}
	}
	if err := moveFile(tmpArchive, plan.OutputPath, logger); err != nil {
		return nil, &IOError{Op: "move", Path: plan.OutputPath, Err: err}
	}

	info, err := os.Stat(plan.OutputPath)
	if err != nil {
		return nil, &IOError{Op: "move", Path: plan.OutputPath, Err: err}
	}
	logger.Info("archive created", "archive", plan.OutputPath, "members", len(members), "pruned", len(pruned))

	return &Result{
		ArchivePath: plan.OutputPath,
		Manifest:    plan.Manifest,
		Members:     members,
		Pruned:      pruned,
		Size:        info.Size(),
	}, nil
}

// stageCopy copies the contents of src into dst, which must not exist yet.
// Symlinks are followed: a linked file is staged as a regular file and a
// linked directory as a copy of its contents. A dangling link fails the copy.
// Cancellation is checked before each entry.
func stageCopy(ctx context.Context, src, dst string) error {
	if err := stageTree(ctx, src, dst, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return errors.Join(ctxErr, err)
		}
		return err
	}
	return nil
}

// stageTree copies one directory. ancestors holds the resolved directories
// already being copied on this chain of links; reaching one again is a cycle.
func stageTree(ctx context.Context, src, dst string, ancestors []string) error {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return err
	}
	if slices.Contains(ancestors, resolved) {
		return fmt.Errorf("%w: %s links back to %s", ErrSymlinkCycle, src, resolved)
	}
	ancestors = append(ancestors, resolved)

	// cp walks with Lstat and never descends into a linked directory, so
	// those are collected here and copied after the walk.
	type linkedDir struct{ from, to string }
	var linked []linkedDir

	opts := cp.Options{
		PreCallback: func(from, to string, fi os.FileInfo) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !fi.IsDir() || from == resolved {
				return nil
			}
			li, err := os.Lstat(from)
			if err != nil {
				return err
			}
			if li.Mode()&os.ModeSymlink != 0 {
				linked = append(linked, linkedDir{from: from, to: to})
				return cp.ErrSkip
			}
			return nil
		},
	}
	if err := opts.CopyTree(resolved, dst); err != nil {
		return err
	}

	for _, l := range linked {
		if err := stageTree(ctx, l.from, l.to, ancestors); err != nil {
			return err
		}
	}
	return nil
}
