package system

import (
	"fmt"
)

// RAMInfo describes host memory. The host runtime reports TotalBytes as its
// global memory size.
type RAMInfo struct {
	TotalBytes     int64
	AvailableBytes int64
	UsedBytes      int64
}

func newRAMInfo(total, available int64) *RAMInfo {
	if available > total {
		available = total
	}
	return &RAMInfo{
		TotalBytes:     total,
		AvailableBytes: available,
		UsedBytes:      total - available,
	}
}

// GetRAMInfo returns information about system RAM
func GetRAMInfo() (*RAMInfo, error) {
	return getRAMInfo()
}

// GetTotalRAM returns total RAM in bytes
func GetTotalRAM() (int64, error) {
	info, err := GetRAMInfo()
	if err != nil {
		return 0, err
	}
	return info.TotalBytes, nil
}

// GetAvailableRAM returns available RAM in bytes
func GetAvailableRAM() (int64, error) {
	info, err := GetRAMInfo()
	if err != nil {
		return 0, err
	}
	return info.AvailableBytes, nil
}

// FitsInRAM reports whether size bytes can be allocated without exceeding
// available memory.
func FitsInRAM(size int64) bool {
	available, err := GetAvailableRAM()
	if err != nil {
		return true
	}
	return size <= available
}

// FormatBytes formats bytes as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
