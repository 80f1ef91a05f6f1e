package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/baidupan-go/baidupan-go/internal/pan"
)

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Manage share links",
	}

	cmd.AddCommand(newShareCreateCmd())
	cmd.AddCommand(newShareListCmd())
	cmd.AddCommand(newShareCancelCmd())

	return cmd
}

func newShareCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <path>...",
		Short: "Create a share link for one or more remote paths",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runShareCreate,
	}

	cmd.Flags().Int("days", 0, "validity in days (0 = never expires)")
	cmd.Flags().String("password", "", "extraction password for the link")
	cmd.Flags().String("description", "", "description attached to the share")

	return cmd
}

func newShareListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List existing share links",
		Args:  cobra.NoArgs,
		RunE:  runShareList,
	}

	cmd.Flags().Int("start", 0, "pagination offset")
	cmd.Flags().Int("limit", 0, "page size (default 100)")

	return cmd
}

func newShareCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <share-id>...",
		Short: "Revoke share links",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runShareCancel,
	}
}

// shareJSONOutput is the JSON output schema for share creation.
type shareJSONOutput struct {
	ShareID int64  `json:"share_id"`
	Link    string `json:"link"`
	Period  int    `json:"period"`
}

func runShareCreate(cmd *cobra.Command, args []string) error {
	paths := make([]string, len(args))
	for i, a := range args {
		paths[i] = normalizeRemotePath(a)
	}

	days, err := cmd.Flags().GetInt("days")
	if err != nil {
		return err
	}

	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return err
	}

	description, err := cmd.Flags().GetString("description")
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.CreateShare(cmd.Context(), paths, pan.ShareOptions{
		ValidityDays: days,
		Password:     password,
		Description:  description,
	})
	if err != nil {
		return fmt.Errorf("creating share: %w", err)
	}

	if !resp.OK() {
		return vendorErr("share create", resp.Result)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(shareJSONOutput{ShareID: resp.ShareID, Link: resp.Link, Period: resp.Period})
	}

	fmt.Printf("Link:     %s\n", resp.Link)
	fmt.Printf("Share ID: %d\n", resp.ShareID)

	if password != "" {
		fmt.Printf("Password: %s\n", password)
	}

	return nil
}

func runShareList(cmd *cobra.Command, _ []string) error {
	start, err := cmd.Flags().GetInt("start")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.ListShares(cmd.Context(), start, limit)
	if err != nil {
		return fmt.Errorf("listing shares: %w", err)
	}

	if !resp.OK() {
		return vendorErr("share list", resp.Result)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(resp.List)
	}

	headers := []string{"SHARE ID", "PATH", "LINK"}
	rows := make([][]string, 0, len(resp.List))

	for _, rec := range resp.List {
		rows = append(rows, []string{strconv.FormatInt(rec.ShareID, 10), rec.TypicalPath, rec.Link})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}

func runShareCancel(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	resp, err := s.client.CancelShare(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("cancelling shares: %w", err)
	}

	if !resp.OK() {
		return vendorErr("share cancel", resp.Result)
	}

	statusf("Cancelled %d share link(s)\n", len(args))

	return nil
}
