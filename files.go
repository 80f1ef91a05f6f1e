package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baidupan-go/baidupan-go/internal/pan"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and directories",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}

	cmd.Flags().String("order", "name", "sort key: name, time, or size")
	cmd.Flags().Bool("desc", false, "sort in descending order")

	return cmd
}

func newFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <keyword> [path]",
		Short: "Search files by keyword",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runFind,
	}

	cmd.Flags().BoolP("recursive", "r", false, "search subdirectories")

	return cmd
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Display file metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runStat,
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a remote directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete remote files or directories",
		Long: `Delete remote files or directories in one batch.
Directory deletion is recursive — all contents will be deleted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRm,
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <path> <dest-dir>",
		Short: "Move a remote file or directory",
		Args:  cobra.ExactArgs(2),
		RunE:  runMv,
	}
}

func newCpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <path> <dest-dir>",
		Short: "Copy a remote file or directory",
		Args:  cobra.ExactArgs(2),
		RunE:  runCp,
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename a remote file or directory",
		Args:  cobra.ExactArgs(2),
		RunE:  runRename,
	}
}

// normalizeRemotePath ensures a leading slash; the server rejects relative
// paths.
func normalizeRemotePath(path string) string {
	if path == "" {
		return "/"
	}

	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}

	return path
}

// lsJSONItem is the JSON output schema for a single entry in ls/find output.
type lsJSONItem struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	IsDir      bool   `json:"is_dir"`
	ModifiedAt int64  `json:"modified_at"`
	FsID       uint64 `json:"fs_id"`
}

func printEntriesJSON(entries []pan.FileInfo) error {
	out := make([]lsJSONItem, 0, len(entries))
	for i := range entries {
		out = append(out, lsJSONItem{
			Path:       entries[i].Path,
			Name:       entries[i].ServerFilename,
			Size:       entries[i].Size,
			IsDir:      entries[i].IsDir == 1,
			ModifiedAt: entries[i].ServerMtime,
			FsID:       entries[i].FsID,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printEntriesTable(entries []pan.FileInfo) {
	// Sort: directories first, then alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir > entries[j].IsDir
		}

		return entries[i].ServerFilename < entries[j].ServerFilename
	})

	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := make([][]string, 0, len(entries))

	for i := range entries {
		name := entries[i].ServerFilename
		size := formatSize(entries[i].Size)

		if entries[i].IsDir == 1 {
			name += "/"
			size = "-"
		}

		rows = append(rows, []string{name, size, formatUnixTime(entries[i].ServerMtime)})
	}

	printTable(os.Stdout, headers, rows)
}

func runLs(cmd *cobra.Command, args []string) error {
	dir := "/"
	if len(args) > 0 {
		dir = normalizeRemotePath(args[0])
	}

	order, err := cmd.Flags().GetString("order")
	if err != nil {
		return err
	}

	desc, err := cmd.Flags().GetBool("desc")
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.List(cmd.Context(), dir, pan.ListOptions{Order: order, Desc: desc})
	if err != nil {
		return fmt.Errorf("listing %q: %w", dir, err)
	}

	if !resp.OK() {
		return vendorErr("ls", resp.Result)
	}

	if flagJSON {
		return printEntriesJSON(resp.List)
	}

	printEntriesTable(resp.List)

	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	keyword := args[0]

	dir := "/"
	if len(args) > 1 {
		dir = normalizeRemotePath(args[1])
	}

	recursive, err := cmd.Flags().GetBool("recursive")
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.Search(cmd.Context(), keyword, dir, recursive)
	if err != nil {
		return fmt.Errorf("searching for %q: %w", keyword, err)
	}

	if !resp.OK() {
		return vendorErr("find", resp.Result)
	}

	if flagJSON {
		return printEntriesJSON(resp.List)
	}

	printEntriesTable(resp.List)

	return nil
}

// statJSONOutput is the JSON output schema for the stat command.
type statJSONOutput struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	IsDir      bool   `json:"is_dir"`
	MD5        string `json:"md5,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	ModifiedAt int64  `json:"modified_at"`
	FsID       uint64 `json:"fs_id"`
}

func runStat(cmd *cobra.Command, args []string) error {
	path := normalizeRemotePath(args[0])

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.FileMetas(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("stating %q: %w", path, err)
	}

	if !resp.OK() {
		return vendorErr("stat", resp.Result)
	}

	if len(resp.List) == 0 {
		return fmt.Errorf("no metadata returned for %q", path)
	}

	info := resp.List[0]

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(statJSONOutput{
			Path:       info.Path,
			Size:       info.Size,
			IsDir:      info.IsDir == 1,
			MD5:        info.MD5,
			CreatedAt:  info.ServerCtime,
			ModifiedAt: info.ServerMtime,
			FsID:       info.FsID,
		})
	}

	itemType := "file"
	if info.IsDir == 1 {
		itemType = "directory"
	}

	fmt.Printf("Path:     %s\n", info.Path)
	fmt.Printf("Type:     %s\n", itemType)
	fmt.Printf("Size:     %s (%d bytes)\n", formatSize(info.Size), info.Size)
	fmt.Printf("Modified: %s\n", formatUnixTime(info.ServerMtime))
	fmt.Printf("FS ID:    %d\n", info.FsID)

	if info.MD5 != "" {
		fmt.Printf("MD5:      %s\n", info.MD5)
	}

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	path := normalizeRemotePath(args[0])

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.Mkdir(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}

	if !resp.OK() {
		return vendorErr("mkdir", resp.Result)
	}

	statusf("Created %s\n", path)

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	paths := make([]string, len(args))
	for i, a := range args {
		paths[i] = normalizeRemotePath(a)
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.Delete(cmd.Context(), paths)
	if err != nil {
		return fmt.Errorf("deleting: %w", err)
	}

	return reportBatch("rm", resp, "Deleted")
}

func runMv(cmd *cobra.Command, args []string) error {
	pair := pan.PathPair{Path: normalizeRemotePath(args[0]), Dest: normalizeRemotePath(args[1])}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.Move(cmd.Context(), []pan.PathPair{pair})
	if err != nil {
		return fmt.Errorf("moving %q: %w", pair.Path, err)
	}

	return reportBatch("mv", resp, "Moved")
}

func runCp(cmd *cobra.Command, args []string) error {
	pair := pan.PathPair{Path: normalizeRemotePath(args[0]), Dest: normalizeRemotePath(args[1])}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.Copy(cmd.Context(), []pan.PathPair{pair})
	if err != nil {
		return fmt.Errorf("copying %q: %w", pair.Path, err)
	}

	return reportBatch("cp", resp, "Copied")
}

func runRename(cmd *cobra.Command, args []string) error {
	path := normalizeRemotePath(args[0])
	newName := args[1]

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.Rename(cmd.Context(), path, newName)
	if err != nil {
		return fmt.Errorf("renaming %q: %w", path, err)
	}

	return reportBatch("rename", resp, "Renamed")
}

// reportBatch turns a filemanager response into user output, surfacing
// per-path failures individually.
func reportBatch(op string, resp *pan.FileManagerResponse, verb string) error {
	if !resp.OK() {
		return vendorErr(op, resp.Result)
	}

	var failed int

	for _, entry := range resp.Info {
		if entry.Errno != 0 {
			failed++

			fmt.Fprintf(os.Stderr, "%s: %s failed with server errno %d\n", op, entry.Path, entry.Errno)

			continue
		}

		statusf("%s %s\n", verb, entry.Path)
	}

	if failed > 0 {
		return fmt.Errorf("%s: %d of %d paths failed", op, failed, len(resp.Info))
	}

	return nil
}
