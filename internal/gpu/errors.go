package gpu

import "errors"

// Errors reported by runtimes. The OpenCL runtime reports its own status
// codes as CLError values; the host runtime uses these sentinels so callers
// can match either with errors.Is.
var (
	ErrInvalidQueue              = errors.New("invalid command queue")
	ErrInvalidMemObject          = errors.New("invalid memory object")
	ErrInvalidEvent              = errors.New("invalid event")
	ErrInvalidValue              = errors.New("invalid value")
	ErrInvalidBufferSize         = errors.New("invalid buffer size")
	ErrInvalidHostPtr            = errors.New("invalid host pointer")
	ErrMisalignedSubBufferOffset = errors.New("misaligned sub-buffer offset")
	ErrInvalidGLObject           = errors.New("invalid GL object")
	ErrGLNotAcquired             = errors.New("GL object not acquired")
	ErrGLAlreadyAcquired         = errors.New("GL object already acquired")
	ErrWaitListFailed            = errors.New("event in wait list failed")
	ErrVersionTooLow             = errors.New("device version too low")
	ErrAlreadyUnmapped           = errors.New("mapped view already unmapped")
	ErrNoMapOrigin               = errors.New("mapped view has no originating queue")
	ErrOpenCLUnavailable         = errors.New("OpenCL runtime unavailable")
)
