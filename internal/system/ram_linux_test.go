package system

import (
	"strings"
	"testing"
)

func TestParseMeminfo(t *testing.T) {
	input := `MemTotal:       16384000 kB
MemFree:         1024000 kB
MemAvailable:    8192000 kB
Buffers:          200000 kB
`
	info, err := parseMeminfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseMeminfo failed: %v", err)
	}
	if info.TotalBytes != 16384000*1024 {
		t.Errorf("TotalBytes = %d", info.TotalBytes)
	}
	if info.AvailableBytes != 8192000*1024 {
		t.Errorf("AvailableBytes = %d", info.AvailableBytes)
	}

	if _, err := parseMeminfo(strings.NewReader("MemFree: 10 kB\n")); err == nil {
		t.Error("Expected error without MemTotal")
	}
}
