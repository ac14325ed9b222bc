package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid values and returns all errors found.
// Dangerous values that would break the run are clamped or reset to defaults.
// Validation errors are meant to be logged as warnings, not to abort startup.
func (c *Config) Validate() []error {
	var errs []error
	def := Default()

	if strings.TrimSpace(c.CacheFile) == "" {
		errs = append(errs, fmt.Errorf("cache_file is empty, using default %q", def.CacheFile))
		c.CacheFile = def.CacheFile
	}

	// Clamp the timeout to a sane range; the external package-manager call
	// is the only bounded operation in the run.
	if c.CommandTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("command_timeout_seconds %d is below minimum 1, clamping", c.CommandTimeoutSeconds))
		c.CommandTimeoutSeconds = 1
	} else if c.CommandTimeoutSeconds > 3600 {
		errs = append(errs, fmt.Errorf("command_timeout_seconds %d exceeds maximum 3600, clamping", c.CommandTimeoutSeconds))
		c.CommandTimeoutSeconds = 3600
	}

	if len(c.ListCommand) == 0 {
		errs = append(errs, fmt.Errorf("list_command is empty, using default"))
		c.ListCommand = def.ListCommand
	}

	if len(c.InfoCommand) == 0 {
		errs = append(errs, fmt.Errorf("info_command is empty, using default"))
		c.InfoCommand = def.InfoCommand
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return errs
}
