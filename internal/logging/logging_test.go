package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
	}

	for _, tt := range tests {
		if err := Init(Config{Level: tt.level}); err != nil {
			t.Fatalf("Init(%q) failed: %v", tt.level, err)
		}
		if got := Get().GetLevel(); got != tt.want {
			t.Errorf("Init(%q): level = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "oclmem.log")

	entry := WithComponent("test")
	if err := Init(Config{Level: "info", File: path}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Init(Config{Level: "info", Console: true})

	entry.Info("queue created")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "queue created") {
		t.Errorf("Log file missing message: %q", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("Log file missing component field: %q", out)
	}
}

func TestGetReturnsSameLogger(t *testing.T) {
	if Get() != Get() {
		t.Error("Get returned different loggers")
	}
}
