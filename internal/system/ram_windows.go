package system

import (
	"fmt"
	"syscall"
	"unsafe"
)

// memoryStatusEx mirrors MEMORYSTATUSEX.
type memoryStatusEx struct {
	length               uint32
	memoryLoad           uint32
	totalPhys            uint64
	availPhys            uint64
	totalPageFile        uint64
	availPageFile        uint64
	totalVirtual         uint64
	availVirtual         uint64
	availExtendedVirtual uint64
}

func getRAMInfo() (*RAMInfo, error) {
	kernel32, err := syscall.LoadDLL("kernel32.dll")
	if err != nil {
		return nil, fmt.Errorf("failed to load kernel32.dll: %w", err)
	}
	defer kernel32.Release()

	proc, err := kernel32.FindProc("GlobalMemoryStatusEx")
	if err != nil {
		return nil, fmt.Errorf("failed to find GlobalMemoryStatusEx: %w", err)
	}

	status := memoryStatusEx{}
	status.length = uint32(unsafe.Sizeof(status))
	if ret, _, err := proc.Call(uintptr(unsafe.Pointer(&status))); ret == 0 {
		return nil, fmt.Errorf("GlobalMemoryStatusEx failed: %w", err)
	}

	return newRAMInfo(int64(status.totalPhys), int64(status.availPhys)), nil
}
