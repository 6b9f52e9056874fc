package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-ups/pkg/ups"
)

// Config holds settings shared by all commands
type Config struct {
	SourceCheck  string `mapstructure:"source_check"`
	OutputFormat string `mapstructure:"output_format"`
	Concurrency  int    `mapstructure:"concurrency"`
	Overwrite    bool   `mapstructure:"overwrite"`
	NoColor      bool   `mapstructure:"no_color"`

	// Patch archives: resolve entries below the archive's top-level folder
	StripParentDir bool `mapstructure:"strip_parent_dir"`

	// Largest output apply will allocate, e.g. "512MiB"
	MaxTargetSize string `mapstructure:"max_target_size"`

	// Default command timeout, zero for none
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration using Viper. When configFile is empty the
// ups-config file is searched for in the usual locations; a missing file is
// not an error. Environment variables prefixed with UPS_ override the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ups-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.go-ups")
		v.AddConfigPath("/etc/go-ups")
	}

	// Set defaults
	v.SetDefault("source_check", ups.SourceCheckStrict.String())
	v.SetDefault("output_format", "table")
	v.SetDefault("concurrency", runtime.NumCPU())
	v.SetDefault("overwrite", false)
	v.SetDefault("no_color", false)
	v.SetDefault("strip_parent_dir", true)
	v.SetDefault("max_target_size", humanize.IBytes(ups.DefaultMaxTargetSize))
	v.SetDefault("timeout", time.Duration(0))

	// Allow environment variables
	v.SetEnvPrefix("UPS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks that enumerated settings hold known values
func (c *Config) Validate() error {
	if _, err := ups.ParseSourceCheck(c.SourceCheck); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.OutputFormat {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("invalid config: unsupported output format %q (valid: table, json, yaml)", c.OutputFormat)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid config: concurrency must be at least 1, got %d", c.Concurrency)
	}
	if _, err := ParseSize(c.MaxTargetSize); err != nil {
		return fmt.Errorf("invalid config: max_target_size: %w", err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid config: timeout cannot be negative, got %v", c.Timeout)
	}
	return nil
}

// MaxTargetSizeBytes returns the parsed max_target_size setting
func (c *Config) MaxTargetSizeBytes() uint64 {
	n, _ := ParseSize(c.MaxTargetSize)
	return n
}

// ParseSize parses a human readable size such as "64MiB" or "1 GB". An
// empty string yields zero.
func ParseSize(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}

// SourceCheckMode returns the parsed source check setting
func (c *Config) SourceCheckMode() ups.SourceCheck {
	mode, _ := ups.ParseSourceCheck(c.SourceCheck)
	return mode
}
