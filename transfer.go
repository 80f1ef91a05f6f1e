package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/baidupan-go/baidupan-go/internal/pan"
)

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path> [remote-path]",
		Short: "Upload a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPut,
	}

	cmd.Flags().Bool("newcopy", false, "keep both copies when the remote path already exists")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote-path> [local-path]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

// transferBar returns a byte progress bar writing to stderr, or nil when
// quiet mode suppresses it.
func transferBar(size int64, description string) io.Writer {
	if flagQuiet {
		return nil
	}

	return progressbar.DefaultBytes(size, description)
}

func runPut(cmd *cobra.Command, args []string) error {
	localPath := args[0]

	fi, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stating local file: %w", err)
	}

	if fi.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", localPath)
	}

	// Default remote path is root + local filename.
	remotePath := "/" + filepath.Base(localPath)
	if len(args) > 1 {
		remotePath = normalizeRemotePath(args[1])
	}

	newcopy, err := cmd.Flags().GetBool("newcopy")
	if err != nil {
		return err
	}

	opts := pan.UploadOptions{Progress: transferBar(fi.Size(), "uploading")}
	if newcopy {
		opts.OnDup = pan.OnDupNewCopy
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.Upload(cmd.Context(), localPath, remotePath, opts)
	if err != nil {
		return fmt.Errorf("uploading %q: %w", remotePath, err)
	}

	if !resp.OK() {
		return vendorErr("put", resp.Result)
	}

	statusf("Uploaded %s (%s)\n", resp.Path, formatSize(fi.Size()))

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	remotePath := normalizeRemotePath(args[0])

	localPath := filepath.Base(remotePath)
	if len(args) > 1 {
		localPath = args[1]
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	ctx := cmd.Context()

	// Stat first so the progress bar knows the total size.
	var size int64

	if metas, metaErr := s.client.FileMetas(ctx, remotePath); metaErr == nil && metas.OK() && len(metas.List) > 0 {
		size = metas.List[0].Size
	}

	opts := pan.DownloadOptions{Progress: transferBar(size, "downloading")}

	if err := s.client.Download(ctx, remotePath, localPath, opts); err != nil {
		return fmt.Errorf("downloading %q: %w", remotePath, err)
	}

	fi, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat after download: %w", err)
	}

	statusf("Downloaded %s (%s)\n", localPath, formatSize(fi.Size()))

	return nil
}
