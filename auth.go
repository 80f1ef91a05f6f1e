package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baidupan-go/baidupan-go/internal/pan"
	"github.com/baidupan-go/baidupan-go/internal/tokenfile"
)

// oobRedirectURI is the out-of-band redirect target: the authorization code
// is shown to the user in the browser instead of being delivered to a
// callback server.
const oobRedirectURI = "oob"

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize this machine with a Baidu account",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show storage usage",
		Args:  cobra.NoArgs,
		RunE:  runQuota,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	if resolvedCfg.AppKey == "" || resolvedCfg.SecretKey == "" {
		return errors.New("app_key and secret_key must be configured before login")
	}

	creds := pan.NewCredentials(resolvedCfg.AppKey, resolvedCfg.SecretKey)
	client := newPanClient(creds, logger)

	fmt.Println("Open this URL in your browser and authorize the application:")
	fmt.Println()
	fmt.Println("  " + client.AuthorizeURL(oobRedirectURI, ""))
	fmt.Println()
	fmt.Print("Paste the authorization code here: ")

	reader := bufio.NewReader(os.Stdin)

	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("empty authorization code")
	}

	ctx := cmd.Context()

	if _, err := client.ExchangeCode(ctx, code, oobRedirectURI); err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	// Persist the token before anything else: the identity lookup below is
	// best-effort and must not be able to lose a successful login.
	if err := tokenfile.Save(resolvedCfg.TokenFile, creds.Token(), nil); err != nil {
		return err
	}

	if name := cacheAccountMeta(ctx, client, resolvedCfg.TokenFile, logger); name != "" {
		statusf("Logged in as %s\n", name)
	} else {
		statusf("Logged in\n")
	}

	return nil
}

// cacheAccountMeta fetches the account identity and merges it into the
// already-saved token file so whoami works offline. Failures are logged and
// swallowed; the token on disk stays intact. Returns the netdisk name when
// the lookup succeeds.
func cacheAccountMeta(ctx context.Context, client *pan.Client, tokenPath string, logger *slog.Logger) string {
	info, err := client.UserInfo(ctx)
	if err != nil || !info.OK() {
		logger.Warn("could not fetch account info after login")

		return ""
	}

	meta := map[string]string{
		"baidu_name":   info.BaiduName,
		"netdisk_name": info.NetdiskName,
		"uk":           strconv.FormatInt(info.UK, 10),
		"vip_type":     strconv.Itoa(info.VipType),
	}

	if err := tokenfile.LoadAndMergeMeta(tokenPath, meta); err != nil {
		logger.Warn("could not cache account info", slog.String("error", err.Error()))
	}

	return info.NetdiskName
}

func runLogout(_ *cobra.Command, _ []string) error {
	err := os.Remove(resolvedCfg.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		statusf("Not logged in\n")
		return nil
	}

	if err != nil {
		return fmt.Errorf("removing token file: %w", err)
	}

	statusf("Logged out\n")

	return nil
}

// whoamiJSONOutput is the JSON output schema for the whoami command.
type whoamiJSONOutput struct {
	BaiduName   string `json:"baidu_name"`
	NetdiskName string `json:"netdisk_name"`
	UK          int64  `json:"uk"`
	VipType     int    `json:"vip_type"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	info, err := s.client.UserInfo(cmd.Context())
	if err != nil {
		return err
	}

	if !info.OK() {
		return vendorErr("whoami", info.Result)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(whoamiJSONOutput{
			BaiduName:   info.BaiduName,
			NetdiskName: info.NetdiskName,
			UK:          info.UK,
			VipType:     info.VipType,
		})
	}

	fmt.Printf("Netdisk name: %s\n", info.NetdiskName)
	fmt.Printf("Baidu name:   %s\n", info.BaiduName)
	fmt.Printf("UK:           %d\n", info.UK)
	fmt.Printf("VIP type:     %d\n", info.VipType)

	return nil
}

// quotaJSONOutput is the JSON output schema for the quota command.
type quotaJSONOutput struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

func runQuota(cmd *cobra.Command, _ []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.persistTokens()

	q, err := s.client.Quota(cmd.Context())
	if err != nil {
		return err
	}

	if !q.OK() {
		return vendorErr("quota", q.Result)
	}

	free := q.Free
	if free == 0 && q.Total > q.Used {
		free = q.Total - q.Used
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(quotaJSONOutput{Total: q.Total, Used: q.Used, Free: free})
	}

	fmt.Printf("Total: %s\n", formatSize(q.Total))
	fmt.Printf("Used:  %s\n", formatSize(q.Used))
	fmt.Printf("Free:  %s\n", formatSize(free))

	return nil
}
