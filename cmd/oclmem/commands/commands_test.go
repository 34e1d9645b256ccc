package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gitter-badger/ocl/internal/buffer"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "oclmem v"+Version) {
		t.Errorf("Unexpected version output: %q", out)
	}
}

func TestInfoCommand(t *testing.T) {
	out, err := executeCommand(t, "info", "--backend", "host")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"Host (", "Sub-buffer align", "1.2", "Host pool"} {
		if !strings.Contains(out, want) {
			t.Errorf("info output missing %q:\n%s", want, out)
		}
	}
}

func TestBenchCommand(t *testing.T) {
	out, err := executeCommand(t, "bench", "--backend", "host", "--queues", "3", "--len", "1024", "--iters", "2")
	if err != nil {
		t.Fatalf("bench failed: %v", err)
	}
	if !strings.Contains(out, "Throughput") {
		t.Errorf("bench output missing throughput:\n%s", out)
	}

	if _, err := executeCommand(t, "bench", "--queues", "0"); err == nil {
		t.Error("Expected error for zero queues")
	}
}

func TestConfigFlags(t *testing.T) {
	prev := buffer.DefaultZeroFill()
	t.Cleanup(func() { buffer.SetDefaultZeroFill(prev) })

	if _, err := executeCommand(t, "version", "--zero-fill", "host_write"); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if got := buffer.DefaultZeroFill(); got != buffer.ZeroFillHostWrite {
		t.Errorf("Expected host_write zero fill, got %s", got)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"bad backend", []string{"info", "--backend", "cuda"}},
		{"bad zero fill", []string{"version", "--zero-fill", "never"}},
		{"bad log level", []string{"version", "--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := executeCommand(t, tt.args...); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"bash completion", []string{"completion", "bash"}, false},
		{"zsh completion", []string{"completion", "zsh"}, false},
		{"fish completion", []string{"completion", "fish"}, false},
		{"powershell completion", []string{"completion", "powershell"}, false},
		{"invalid shell", []string{"completion", "invalid"}, true},
		{"no shell specified", []string{"completion"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
