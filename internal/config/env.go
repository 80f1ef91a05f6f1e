package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "BAIDUPAN_GO_CONFIG"
	EnvAppKey    = "BAIDUPAN_GO_APP_KEY"
	EnvSecretKey = "BAIDUPAN_GO_SECRET_KEY"
	EnvTokenFile = "BAIDUPAN_GO_TOKEN_FILE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // BAIDUPAN_GO_CONFIG: override config file path
	AppKey     string // BAIDUPAN_GO_APP_KEY: application key
	SecretKey  string // BAIDUPAN_GO_SECRET_KEY: application secret
	TokenFile  string // BAIDUPAN_GO_TOKEN_FILE: token file path
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		AppKey:     os.Getenv(EnvAppKey),
		SecretKey:  os.Getenv(EnvSecretKey),
		TokenFile:  os.Getenv(EnvTokenFile),
	}
}
