package system

import (
	"testing"
)

func TestGetRAMInfo(t *testing.T) {
	info, err := GetRAMInfo()
	if err != nil {
		t.Skipf("RAM probe unavailable: %v", err)
	}

	if info.TotalBytes <= 0 {
		t.Errorf("Expected positive total bytes, got %d", info.TotalBytes)
	}

	if info.AvailableBytes < 0 {
		t.Errorf("Expected non-negative available bytes, got %d", info.AvailableBytes)
	}

	if info.AvailableBytes > info.TotalBytes {
		t.Errorf("Available bytes (%d) cannot exceed total bytes (%d)",
			info.AvailableBytes, info.TotalBytes)
	}
	if info.UsedBytes != info.TotalBytes-info.AvailableBytes {
		t.Errorf("Used bytes %d inconsistent with total %d and available %d",
			info.UsedBytes, info.TotalBytes, info.AvailableBytes)
	}
}

func TestNewRAMInfoClampsAvailable(t *testing.T) {
	info := newRAMInfo(100, 150)
	if info.AvailableBytes != 100 || info.UsedBytes != 0 {
		t.Errorf("Expected available clamped to total, got %+v", info)
	}
}

func TestFitsInRAM(t *testing.T) {
	if !FitsInRAM(1) {
		t.Error("Expected a single byte to fit")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{1536 * 1024 * 1024, "1.5 GiB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %s; want %s", tt.bytes, result, tt.expected)
		}
	}
}
