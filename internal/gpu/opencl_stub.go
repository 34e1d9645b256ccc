//go:build !linux && !darwin

package gpu

// NewOpenCLRuntime is unavailable on this platform.
func NewOpenCLRuntime(library string, platform, device int) (Runtime, error) {
	return nil, ErrOpenCLUnavailable
}
