package config

import (
	"errors"
	"fmt"
	"time"
)

// Valid values for enumerated settings.
var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}
)

// Validate checks a Config for invalid values. App credentials are not
// required here: commands that need them check at call time so read-only
// commands keep working without a configured app.
func Validate(cfg *Config) error {
	var errs []error

	if !validLogLevels[cfg.Logging.LogLevel] {
		errs = append(errs, fmt.Errorf("invalid log_level %q (valid: debug, info, warn, error)", cfg.Logging.LogLevel))
	}

	if !validLogFormats[cfg.Logging.LogFormat] {
		errs = append(errs, fmt.Errorf("invalid log_format %q (valid: auto, text, json)", cfg.Logging.LogFormat))
	}

	if cfg.Network.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Network.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("invalid network timeout %q: %w", cfg.Network.Timeout, err))
		}
	}

	return errors.Join(errs...)
}
