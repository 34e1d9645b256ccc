package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/gitter-badger/ocl/internal/gpu"
	"github.com/gitter-badger/ocl/internal/logging"
)

// Config represents the application configuration
type Config struct {
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Buffer  BufferConfig  `mapstructure:"buffer"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type RuntimeConfig struct {
	Backend          string `mapstructure:"backend"`
	Platform         int    `mapstructure:"platform"`
	Device           int    `mapstructure:"device"`
	Library          string `mapstructure:"library"`
	MemBaseAddrAlign int64  `mapstructure:"mem_base_addr_align"`
	PoolMaxBytes     int64  `mapstructure:"pool_max_bytes"`
}

type BufferConfig struct {
	// ZeroFill is "default", "device" or "host_write"
	ZeroFill string `mapstructure:"zero_fill"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Backend:          "host",
			Platform:         0,
			Device:           0,
			Library:          "",
			MemBaseAddrAlign: 1,
			PoolMaxBytes:     256 * 1024 * 1024,
		},
		Buffer: BufferConfig{
			ZeroFill: "default",
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "",
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith loads configuration through v, which may already carry bound
// command line flags.
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	// Set defaults
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	// Config file setup
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".oclmem"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Environment variables
	v.SetEnvPrefix("OCLMEM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand paths
	cfg.ExpandPaths()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validBackends := []string{string(gpu.BackendHost), string(gpu.BackendOpenCL)}
	if !contains(validBackends, c.Runtime.Backend) {
		return fmt.Errorf("runtime.backend must be one of: %v", validBackends)
	}

	if c.Runtime.Platform < 0 || c.Runtime.Device < 0 {
		return errors.New("runtime.platform and runtime.device must not be negative")
	}

	if a := c.Runtime.MemBaseAddrAlign; a < 1 || a&(a-1) != 0 {
		return errors.New("runtime.mem_base_addr_align must be a power of two")
	}

	if c.Runtime.PoolMaxBytes < 0 {
		return errors.New("runtime.pool_max_bytes must not be negative")
	}

	validFill := []string{"default", "device", "host_write"}
	if !contains(validFill, c.Buffer.ZeroFill) {
		return fmt.Errorf("buffer.zero_fill must be one of: %v", validFill)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// ExpandPaths expands ~ and environment variables in paths
func (c *Config) ExpandPaths() {
	c.Runtime.Library = expandPath(c.Runtime.Library)
	c.Logging.File = expandPath(c.Logging.File)
}

// RuntimeOptions converts the runtime section to gpu.Options
func (c *Config) RuntimeOptions() gpu.Options {
	return gpu.Options{
		Backend:          gpu.Backend(c.Runtime.Backend),
		Platform:         c.Runtime.Platform,
		Device:           c.Runtime.Device,
		Library:          c.Runtime.Library,
		MemBaseAddrAlign: c.Runtime.MemBaseAddrAlign,
		PoolMaxBytes:     c.Runtime.PoolMaxBytes,
	}
}

// LoggingOptions converts the logging section to logging.Config
func (c *Config) LoggingOptions() logging.Config {
	return logging.Config{
		Level:   c.Logging.Level,
		File:    c.Logging.File,
		Console: c.Logging.Console,
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("runtime.backend", cfg.Runtime.Backend)
	v.SetDefault("runtime.platform", cfg.Runtime.Platform)
	v.SetDefault("runtime.device", cfg.Runtime.Device)
	v.SetDefault("runtime.library", cfg.Runtime.Library)
	v.SetDefault("runtime.mem_base_addr_align", cfg.Runtime.MemBaseAddrAlign)
	v.SetDefault("runtime.pool_max_bytes", cfg.Runtime.PoolMaxBytes)

	v.SetDefault("buffer.zero_fill", cfg.Buffer.ZeroFill)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
