package pan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// downloadBufferSize is the copy buffer for streaming downloads (1 MiB).
const downloadBufferSize = 1024 * 1024

// DownloadOptions tunes a single Download call.
type DownloadOptions struct {
	// Progress, when non-nil, receives downloaded bytes as they are written.
	Progress io.Writer
}

// DownloadLink resolves the short-lived direct download URL for a remote
// file. The dlink in the payload expires after a few hours.
func (c *Client) DownloadLink(ctx context.Context, remotePath string) (*DownloadLinkResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	q.Set("path", remotePath)

	var out DownloadLinkResponse
	if err := c.getJSON(ctx, endpointFile+"?method=download", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Download resolves the direct link for remotePath and streams the body to
// localPath, creating parent directories as needed.
//
// Transport failures and non-200 statuses surface as errors. A failure in
// the middle of the stream leaves the truncated file on disk — callers that
// care should download to a temporary path and rename.
func (c *Client) Download(ctx context.Context, remotePath, localPath string, opts DownloadOptions) error {
	link, err := c.DownloadLink(ctx, remotePath)
	if err != nil {
		return err
	}

	if !link.OK() || link.Dlink == "" {
		return fmt.Errorf("pan: resolving link for %s (errno %d): %w", remotePath, link.Errno, ErrNoDownloadLink)
	}

	c.logger.Info("downloading file",
		slog.String("remote_path", remotePath),
		slog.String("local_path", localPath),
	)

	// The dlink is pre-authenticated; it is fetched directly, outside the
	// API base URL. The URL itself is never logged.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.Dlink, http.NoBody)
	if err != nil {
		return fmt.Errorf("pan: creating download request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pan: downloading %s: %w", remotePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pan: downloading %s: unexpected status %d", remotePath, resp.StatusCode)
	}

	return writeStream(localPath, resp.Body, opts.Progress)
}

// writeStream creates localPath (and its parent directories) and copies the
// body into it in fixed-size reads.
func writeStream(localPath string, body io.Reader, progress io.Writer) error {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return fmt.Errorf("pan: resolving %s: %w", localPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("pan: creating directory for %s: %w", localPath, err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("pan: creating %s: %w", localPath, err)
	}

	var dst io.Writer = f
	if progress != nil {
		dst = io.MultiWriter(f, progress)
	}

	buf := make([]byte, downloadBufferSize)

	_, copyErr := io.CopyBuffer(dst, body, buf)

	if closeErr := f.Close(); copyErr == nil && closeErr != nil {
		return fmt.Errorf("pan: closing %s: %w", localPath, closeErr)
	}

	if copyErr != nil {
		// The partial file is intentionally left in place.
		return fmt.Errorf("pan: streaming to %s: %w", localPath, copyErr)
	}

	return nil
}
