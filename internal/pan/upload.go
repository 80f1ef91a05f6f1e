package pan

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
)

// ChunkSize is the fixed chunk size for multi-part uploads (4 MiB). Files at
// or below this size take the direct single-request path.
const ChunkSize = 4 * 1024 * 1024

// hashBufferSize is the read size used when hashing the whole file. The file
// is streamed, never loaded into memory.
const hashBufferSize = 4096

// OnDup selects the server-side policy for an existing remote path.
type OnDup string

const (
	// OnDupOverwrite replaces the existing file.
	OnDupOverwrite OnDup = "overwrite"
	// OnDupNewCopy keeps the existing file and stores a renamed copy.
	OnDupNewCopy OnDup = "newcopy"
)

// UploadOptions tunes a single Upload call.
type UploadOptions struct {
	// OnDup defaults to OnDupOverwrite.
	OnDup OnDup

	// Progress, when non-nil, receives file bytes as they are staged for
	// sending. The CLI wires a progress bar here.
	Progress io.Writer
}

// transferPlan is the immutable per-call decision of how a file is uploaded.
type transferPlan struct {
	localPath  string
	remotePath string
	size       int64
	chunked    bool
	ondup      OnDup
}

// Upload stores a local file at remotePath. Files up to 4 MiB go up in a
// single multipart request; larger files take the chunked path (precreate,
// sequential 4 MiB chunks, finalize with the ordered chunk hash list).
//
// The returned payload carries the server's verdict in all cases: a vendor
// failure anywhere in the pipeline surfaces as a payload with non-zero
// errno, not as a Go error. Go errors are reserved for local preconditions
// (missing file, missing token) and transport failures.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string, opts UploadOptions) (*FileResponse, error) {
	// Token precondition first, mirroring the gated-call contract: without a
	// token nothing touches the network or the filesystem plan.
	if _, err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	plan, err := planUpload(localPath, remotePath, opts.OnDup)
	if err != nil {
		return nil, err
	}

	c.logger.Info("uploading file",
		slog.String("local_path", plan.localPath),
		slog.String("remote_path", plan.remotePath),
		slog.Int64("size", plan.size),
		slog.Bool("chunked", plan.chunked),
	)

	if plan.chunked {
		return c.uploadChunked(ctx, plan, opts.Progress)
	}

	return c.uploadDirect(ctx, plan, opts.Progress)
}

// planUpload validates the local file and picks the upload strategy.
func planUpload(localPath, remotePath string, ondup OnDup) (*transferPlan, error) {
	if ondup == "" {
		ondup = OnDupOverwrite
	}

	fi, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("pan: stat %s: %w", localPath, err)
	}

	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("pan: %s: %w", localPath, ErrNotRegularFile)
	}

	return &transferPlan{
		localPath:  localPath,
		remotePath: remotePath,
		size:       fi.Size(),
		chunked:    fi.Size() > ChunkSize,
		ondup:      ondup,
	}, nil
}

// uploadDirect sends the whole file in one multipart request.
func (c *Client) uploadDirect(ctx context.Context, plan *transferPlan, progress io.Writer) (*FileResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	q.Set("path", plan.remotePath)
	q.Set("ondup", string(plan.ondup))

	f, err := os.Open(plan.localPath)
	if err != nil {
		return nil, fmt.Errorf("pan: opening %s: %w", plan.localPath, err)
	}
	defer f.Close()

	var src io.Reader = f
	if progress != nil {
		src = io.TeeReader(f, progress)
	}

	var out FileResponse
	if err := c.postFile(ctx, endpointFile+"?method=upload", q, src, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// uploadChunked drives the precreate / chunk / finalize sequence. Chunks are
// read and sent strictly in order; the finalize call's block list must match
// that order or the server assembles a corrupt file.
func (c *Client) uploadChunked(ctx context.Context, plan *transferPlan, progress io.Writer) (*FileResponse, error) {
	contentMD5, err := fileMD5(plan.localPath)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("hashed file for upload",
		slog.String("local_path", plan.localPath),
		slog.String("md5", contentMD5),
	)

	pre, err := c.precreate(ctx, plan)
	if err != nil {
		return nil, err
	}

	if !pre.OK() {
		return &FileResponse{Result: pre.Result}, nil
	}

	if pre.UploadID == "" {
		return nil, ErrNoUploadID
	}

	f, err := os.Open(plan.localPath)
	if err != nil {
		return nil, fmt.Errorf("pan: opening %s: %w", plan.localPath, err)
	}
	defer f.Close()

	var blockList []string

	buf := make([]byte, ChunkSize)

	for seq := 0; ; seq++ {
		n, readErr := io.ReadFull(f, buf)
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("pan: reading chunk %d of %s: %w", seq, plan.localPath, readErr)
		}

		chunk := buf[:n]

		res, err := c.uploadChunk(ctx, plan, pre.UploadID, seq, chunk, progress)
		if err != nil {
			return nil, err
		}

		// First vendor failure aborts the whole upload. No retry, no resume.
		if !res.OK() {
			c.logger.Warn("chunk rejected, aborting upload",
				slog.Int("partseq", seq),
				slog.Int("errno", res.Errno),
			)

			return &FileResponse{Result: res.Result}, nil
		}

		sum := md5.Sum(chunk) //nolint:gosec // MD5 is the vendor's integrity contract
		blockList = append(blockList, hex.EncodeToString(sum[:]))

		if errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
	}

	return c.createFile(ctx, plan, pre.UploadID, blockList)
}

// precreate registers the upload and obtains the session identifier.
// The block list is empty at this stage; chunk hashes follow in the
// finalize call.
func (c *Client) precreate(ctx context.Context, plan *transferPlan) (*PrecreateResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"path":       {plan.remotePath},
		"size":       {strconv.FormatInt(plan.size, 10)},
		"isdir":      {"0"},
		"autoinit":   {"1"},
		"rtype":      {"3"},
		"block_list": {"[]"},
		"ondup":      {string(plan.ondup)},
	}

	var out PrecreateResponse
	if err := c.postForm(ctx, endpointFile+"?method=precreate", q, form, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// uploadChunk sends one chunk under its zero-based sequence index.
func (c *Client) uploadChunk(
	ctx context.Context, plan *transferPlan, uploadID string, seq int, chunk []byte, progress io.Writer,
) (*ChunkResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	q.Set("path", plan.remotePath)
	q.Set("uploadid", uploadID)
	q.Set("partseq", strconv.Itoa(seq))

	var src io.Reader = bytes.NewReader(chunk)
	if progress != nil {
		src = io.TeeReader(src, progress)
	}

	c.logger.Debug("uploading chunk",
		slog.Int("partseq", seq),
		slog.Int("length", len(chunk)),
	)

	var out ChunkResponse
	if err := c.postFile(ctx, endpointFile+"?method=upload", q, src, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// createFile finalizes the upload session with the ordered chunk hash list.
func (c *Client) createFile(
	ctx context.Context, plan *transferPlan, uploadID string, blockList []string,
) (*FileResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	blocks, err := json.Marshal(blockList)
	if err != nil {
		return nil, fmt.Errorf("pan: encoding block list: %w", err)
	}

	form := url.Values{
		"path":       {plan.remotePath},
		"size":       {strconv.FormatInt(plan.size, 10)},
		"isdir":      {"0"},
		"uploadid":   {uploadID},
		"block_list": {string(blocks)},
		"ondup":      {string(plan.ondup)},
	}

	c.logger.Debug("finalizing upload",
		slog.String("remote_path", plan.remotePath),
		slog.Int("blocks", len(blockList)),
	)

	var out FileResponse
	if err := c.postForm(ctx, endpointFile+"?method=create", q, form, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// fileMD5 computes the file's MD5 by streaming it in fixed-size reads.
func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("pan: opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // MD5 is the vendor's integrity contract

	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("pan: hashing %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
