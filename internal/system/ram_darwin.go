package system

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

func getRAMInfo() (*RAMInfo, error) {
	totalOutput, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get total memory: %w", err)
	}

	totalBytes, err := strconv.ParseInt(strings.TrimSpace(string(totalOutput)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total memory: %w", err)
	}

	vmOutput, err := exec.Command("vm_stat").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get vm_stat: %w", err)
	}

	return newRAMInfo(totalBytes, parseVMStat(string(vmOutput))), nil
}

// parseVMStat returns free plus inactive memory from vm_stat output.
func parseVMStat(out string) int64 {
	var freePages, inactivePages int64
	pageSize := int64(4096)

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		switch {
		case strings.HasPrefix(line, "Pages free:") && len(fields) >= 3:
			freePages, _ = strconv.ParseInt(strings.TrimSuffix(fields[2], "."), 10, 64)
		case strings.HasPrefix(line, "Pages inactive:") && len(fields) >= 3:
			inactivePages, _ = strconv.ParseInt(strings.TrimSuffix(fields[2], "."), 10, 64)
		case strings.Contains(line, "page size of") && len(fields) >= 8:
			// "Mach Virtual Memory Statistics: (page size of 16384 bytes)"
			pageSize, _ = strconv.ParseInt(fields[7], 10, 64)
		}
	}

	return (freePages + inactivePages) * pageSize
}
