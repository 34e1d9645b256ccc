//go:build !linux && !darwin && !windows

package system

import "errors"

func getRAMInfo() (*RAMInfo, error) {
	return nil, errors.New("RAM probe not supported on this platform")
}
