// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// moveFile renames src to dst. When rename fails (typically EXDEV because the
// scratch directory lives on another filesystem) the file is copied into a
// temporary sibling of dst and renamed over it, so dst is either absent, the
// previous file, or the complete new file.
func moveFile(src, dst string, logger *log.Logger) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	logger.Debug("rename failed, copying instead", "err", renameErr)

	if err := copyReplace(src, dst); err != nil {
		return fmt.Errorf("%w (after rename failed: %v)", err, renameErr)
	}
	if err := os.Remove(src); err != nil {
		logger.Warn("failed to remove staged archive", "path", src, "err", err)
	}
	return nil
}

func copyReplace(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".partial-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}
