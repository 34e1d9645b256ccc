package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gitter-badger/ocl/internal/gpu"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Runtime.Backend != "host" {
		t.Errorf("Expected host backend, got %q", cfg.Runtime.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
runtime:
  backend: opencl
  device: 1
  mem_base_addr_align: 128
buffer:
  zero_fill: host_write
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Runtime.Backend != "opencl" || cfg.Runtime.Device != 1 {
		t.Errorf("Runtime section not loaded: %+v", cfg.Runtime)
	}
	if cfg.Buffer.ZeroFill != "host_write" {
		t.Errorf("Expected host_write, got %q", cfg.Buffer.ZeroFill)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %q", cfg.Logging.Level)
	}
	// Unset keys keep their defaults
	if cfg.Runtime.PoolMaxBytes != DefaultConfig().Runtime.PoolMaxBytes {
		t.Errorf("Expected default pool size, got %d", cfg.Runtime.PoolMaxBytes)
	}

	opts := cfg.RuntimeOptions()
	if opts.Backend != gpu.BackendOpenCL || opts.MemBaseAddrAlign != 128 {
		t.Errorf("RuntimeOptions = %+v", opts)
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("OCLMEM_BUFFER_ZERO_FILL", "device")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Buffer.ZeroFill != "device" {
		t.Errorf("Expected env override to device, got %q", cfg.Buffer.ZeroFill)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"bad backend", func(c *Config) { c.Runtime.Backend = "cuda" }, "runtime.backend"},
		{"negative device", func(c *Config) { c.Runtime.Device = -1 }, "runtime.platform"},
		{"align not power of two", func(c *Config) { c.Runtime.MemBaseAddrAlign = 24 }, "mem_base_addr_align"},
		{"negative pool", func(c *Config) { c.Runtime.PoolMaxBytes = -1 }, "pool_max_bytes"},
		{"bad zero fill", func(c *Config) { c.Buffer.ZeroFill = "never" }, "buffer.zero_fill"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Error %q does not mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestExpandPaths(t *testing.T) {
	t.Setenv("OCLMEM_TEST_DIR", "/tmp/oclmem")

	cfg := DefaultConfig()
	cfg.Logging.File = "$OCLMEM_TEST_DIR/oclmem.log"
	cfg.ExpandPaths()

	if cfg.Logging.File != "/tmp/oclmem/oclmem.log" {
		t.Errorf("Expected expanded path, got %q", cfg.Logging.File)
	}
}
