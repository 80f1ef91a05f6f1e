package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/baidupan-go/baidupan-go/internal/config"
	"github.com/baidupan-go/baidupan-go/internal/pan"
	"github.com/baidupan-go/baidupan-go/internal/tokenfile"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Config

// httpClientTimeout is the fallback timeout for HTTP requests when the
// config does not set one. Prevents hung connections from blocking CLI
// commands indefinitely.
const httpClientTimeout = 30 * time.Second

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "baidupan-go",
		Short:   "Baidu Netdisk CLI client",
		Long:    "A command-line client for Baidu Netdisk: transfers, file management, and sharing.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newQuotaCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newCpCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newShareCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores the result in resolvedCfg for use by subcommands.
func loadConfig() error {
	cfg, err := config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{
		ConfigPath: flagConfigPath,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. Format "auto" picks
// text on a TTY and JSON otherwise.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// CLI flags override config (highest priority).
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	format := "auto"
	if resolvedCfg != nil && resolvedCfg.Logging.LogFormat != "" {
		format = resolvedCfg.Logging.LogFormat
	}

	opts := &slog.HandlerOptions{Level: level}

	useText := format == "text" || (format == "auto" && isatty.IsTerminal(os.Stderr.Fd()))
	if useText {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// defaultHTTPClient returns an HTTP client with the configured timeout.
func defaultHTTPClient() *http.Client {
	timeout := httpClientTimeout

	if resolvedCfg != nil && resolvedCfg.Network.Timeout != "" {
		if d, err := time.ParseDuration(resolvedCfg.Network.Timeout); err == nil {
			timeout = d
		}
	}

	return &http.Client{Timeout: timeout}
}

// newPanClient builds an API client from the resolved config, applying the
// configured User-Agent override.
func newPanClient(creds *pan.Credentials, logger *slog.Logger) *pan.Client {
	client := pan.NewClient("", "", defaultHTTPClient(), creds, logger)

	if resolvedCfg != nil && resolvedCfg.Network.UserAgent != "" {
		client.SetUserAgent(resolvedCfg.Network.UserAgent)
	}

	return client
}

// session bundles the API client with everything commands need to run and
// to persist refreshed tokens afterwards.
type session struct {
	client *pan.Client
	creds  *pan.Credentials
	logger *slog.Logger
}

// newSession builds an authenticated API session from the resolved config
// and the saved token file. Fails with a login hint when no token exists.
func newSession() (*session, error) {
	logger := buildLogger()

	if resolvedCfg.AppKey == "" || resolvedCfg.SecretKey == "" {
		return nil, fmt.Errorf("app_key and secret_key are not configured — set them in %s or via %s/%s",
			config.DefaultConfigPath(), config.EnvAppKey, config.EnvSecretKey)
	}

	tok, _, err := tokenfile.Load(resolvedCfg.TokenFile)
	if err != nil {
		return nil, err
	}

	if tok == nil {
		return nil, fmt.Errorf("not logged in — run 'baidupan-go login' first")
	}

	creds := pan.NewCredentials(resolvedCfg.AppKey, resolvedCfg.SecretKey)
	creds.ApplyToken(tok)

	return &session{client: newPanClient(creds, logger), creds: creds, logger: logger}, nil
}

// persistTokens writes the session's tokens back to disk. Auto-refresh can
// rotate them during any command, so commands call this on the way out.
func (s *session) persistTokens() {
	meta, err := tokenfile.ReadMeta(resolvedCfg.TokenFile)
	if err != nil {
		s.logger.Warn("failed to read token metadata", slog.String("error", err.Error()))
	}

	if err := tokenfile.Save(resolvedCfg.TokenFile, s.creds.Token(), meta); err != nil {
		s.logger.Warn("failed to save tokens", slog.String("error", err.Error()))
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
