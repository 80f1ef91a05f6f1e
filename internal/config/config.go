// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for baidupan-go. It supports a
// three-layer override chain (defaults -> config file -> environment) with
// strict unknown-key rejection.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	// AppKey and SecretKey identify the registered application. Both are
	// required before any authorization flow can run.
	AppKey    string `toml:"app_key"`
	SecretKey string `toml:"secret_key"`

	// TokenFile overrides the default token file location.
	TokenFile string `toml:"token_file"`

	Logging LoggingConfig `toml:"logging"`
	Network NetworkConfig `toml:"network"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`
	// LogFormat is "auto" (text on a TTY, JSON otherwise), "text", or "json".
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	// Timeout bounds each request, parsed as a Go duration string.
	Timeout string `toml:"timeout"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `toml:"user_agent"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
}
