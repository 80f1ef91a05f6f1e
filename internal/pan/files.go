package pan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

// Listing defaults matching the server's own.
const (
	defaultListOrder = "name"
	defaultListLimit = 1000
)

// ListOptions tunes a directory listing.
type ListOptions struct {
	// Order is the sort key: "name", "time", or "size". Defaults to "name".
	Order string
	// Desc sorts in descending order.
	Desc bool
	// Start is the pagination offset.
	Start int
	// Limit caps the number of entries returned. Defaults to 1000.
	Limit int
}

// PathPair describes one source/destination entry of a batch move or copy.
type PathPair struct {
	Path string `json:"path"`
	Dest string `json:"dest"`
}

// renameEntry is the wire shape of a rename batch entry.
type renameEntry struct {
	Path    string `json:"path"`
	NewName string `json:"newname"`
}

// List returns the entries of a remote directory. An empty dir lists the
// root.
func (c *Client) List(ctx context.Context, dir string, opts ListOptions) (*ListResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	if dir == "" {
		dir = "/"
	}

	order := opts.Order
	if order == "" {
		order = defaultListOrder
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q.Set("dir", dir)
	q.Set("order", order)
	q.Set("desc", boolFlag(opts.Desc))
	q.Set("start", strconv.Itoa(opts.Start))
	q.Set("limit", strconv.Itoa(limit))

	var out ListResponse
	if err := c.getJSON(ctx, endpointFile+"?method=list", q, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("listed directory",
		slog.String("dir", dir),
		slog.Int("entries", len(out.List)),
	)

	return &out, nil
}

// Search finds files by keyword under dir, optionally recursing into
// subdirectories.
func (c *Client) Search(ctx context.Context, keyword, dir string, recursive bool) (*SearchResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	if dir == "" {
		dir = "/"
	}

	q.Set("key", keyword)
	q.Set("dir", dir)
	q.Set("recursion", boolFlag(recursive))

	var out SearchResponse
	if err := c.getJSON(ctx, endpointFile+"?method=search", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// FileMetas fetches metadata for a remote path, including a download link
// when the server grants one.
func (c *Client) FileMetas(ctx context.Context, path string) (*FileMetasResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	q.Set("path", path)
	q.Set("dlink", "1")

	var out FileMetasResponse
	if err := c.getJSON(ctx, endpointMultimedia+"?method=filemetas", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Mkdir creates a remote directory.
func (c *Client) Mkdir(ctx context.Context, path string) (*FileResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{"path": {path}}

	var out FileResponse
	if err := c.postForm(ctx, endpointFile+"?method=create", q, form, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Delete removes files or directories in one batch.
func (c *Client) Delete(ctx context.Context, paths []string) (*FileManagerResponse, error) {
	return c.fileManager(ctx, "delete", paths)
}

// Rename renames a single file or directory.
func (c *Client) Rename(ctx context.Context, path, newName string) (*FileManagerResponse, error) {
	return c.fileManager(ctx, "rename", []renameEntry{{Path: path, NewName: newName}})
}

// Move relocates files or directories in one batch.
func (c *Client) Move(ctx context.Context, pairs []PathPair) (*FileManagerResponse, error) {
	return c.fileManager(ctx, "move", pairs)
}

// Copy duplicates files or directories in one batch.
func (c *Client) Copy(ctx context.Context, pairs []PathPair) (*FileManagerResponse, error) {
	return c.fileManager(ctx, "copy", pairs)
}

// fileManager issues a filemanager batch. The operation rides in the URL's
// opera selector and the batch description goes as a JSON filelist form
// field. Per-path outcomes come back in the payload's info array.
func (c *Client) fileManager(ctx context.Context, opera string, filelist any) (*FileManagerResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(filelist)
	if err != nil {
		return nil, fmt.Errorf("pan: encoding filelist: %w", err)
	}

	form := url.Values{"filelist": {string(encoded)}}

	c.logger.Debug("file manager batch",
		slog.String("opera", opera),
	)

	var out FileManagerResponse
	if err := c.postForm(ctx, endpointFile+"?method=filemanager&opera="+opera, q, form, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// boolFlag renders a bool as the API's 0/1 convention.
func boolFlag(b bool) string {
	if b {
		return "1"
	}

	return "0"
}
