// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// MaxDownloadSize caps archives fetched by Download at 512 MiB.
const MaxDownloadSize int64 = 512 << 20

// ErrDownloadTooLarge is returned when a response body exceeds MaxDownloadSize.
var ErrDownloadTooLarge = errors.New("download exceeds maximum archive size")

// IsURL reports whether source names an http or https resource rather than
// a local file.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download streams the archive at rawURL into a new temporary file and
// returns its path; the caller owns the file. No file is left behind when
// an error is returned.
func Download(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "addonpack")

	resp, err := client.Do(req) //nolint:gosec // URL is supplied by the user
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status: %s", resp.Status)
	}
	if resp.ContentLength > MaxDownloadSize {
		return "", fmt.Errorf("%w: %d bytes", ErrDownloadTooLarge, resp.ContentLength)
	}

	tmp, err := os.CreateTemp("", "addonpack-download-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	n, copyErr := io.Copy(tmp, io.LimitReader(resp.Body, MaxDownloadSize+1))
	closeErr := tmp.Close()
	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to save download: %w", copyErr)
	case n > MaxDownloadSize:
		err = ErrDownloadTooLarge
	case closeErr != nil:
		err = fmt.Errorf("failed to save download: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
