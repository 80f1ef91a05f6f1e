package config

// Default values for configuration options. These represent the base layer
// of the override chain and work without any config file.
const (
	defaultLogLevel  = "info"
	defaultLogFormat = "auto"
	defaultTimeout   = "30s"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Network: NetworkConfig{
			Timeout: defaultTimeout,
		},
	}
}
