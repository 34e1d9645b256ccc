package system

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

func getRAMInfo() (*RAMInfo, error) {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return nil, fmt.Errorf("failed to open /proc/meminfo: %w", err)
	}
	defer file.Close()

	return parseMeminfo(file)
}

// parseMeminfo reads MemTotal and MemAvailable (in KiB) from /proc/meminfo
// formatted input.
func parseMeminfo(r io.Reader) (*RAMInfo, error) {
	var totalKB, availableKB int64
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}

		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			totalKB = value
		case "MemAvailable":
			availableKB = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read /proc/meminfo: %w", err)
	}
	if totalKB == 0 {
		return nil, fmt.Errorf("could not determine total RAM")
	}

	return newRAMInfo(totalKB*1024, availableKB*1024), nil
}
