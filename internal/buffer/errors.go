package buffer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOperation is returned by Enq and EnqMap when no operation kind
	// was selected.
	ErrNoOperation = errors.New("no operation specified: use Read, Write, Copy, Fill, etc. before Enq")

	// ErrUseEnqMap is returned by Enq for map commands.
	ErrUseEnqMap = errors.New("map commands must be enqueued with EnqMap")

	// ErrUseEnq is returned by EnqMap for non-map commands.
	ErrUseEnq = errors.New("non-map commands must be enqueued with Enq")

	ErrOffsetOutOfRange    = errors.New("offset out of range")
	ErrLengthExceedsBuffer = errors.New("data length exceeds buffer length")
	ErrDataLength          = errors.New("initial data length does not match buffer length")

	ErrRectCopyArgs    = errors.New("rectangular copies take no destination offset or length")
	ErrRectFill        = errors.New("rectangular fill is not a valid operation, use the linear shape")
	ErrRectMap         = errors.New("rectangular map is not a valid operation, use the linear shape")
	ErrRectCopyToImage = errors.New("rectangular copy to image is not a valid operation, use the linear shape")

	ErrSubBufferOrigin = errors.New("sub-buffer origin is outside the source buffer")
	ErrSubBufferRegion = errors.New("sub-buffer region exceeds the source buffer")

	// ErrNoReleasePolicy is returned when a mapping has neither a deferred
	// release nor an originating queue to release through.
	ErrNoReleasePolicy = errors.New("mapped memory has no release policy")
	ErrAlreadyReleased = errors.New("mapped memory already released")
)

// checkLen verifies that dataLen elements starting at offset fit in a
// buffer of memLen elements. The offset must lie strictly inside the
// buffer, so an empty buffer accepts no transfer at all.
func checkLen(memLen, dataLen, offset int) error {
	if offset < 0 || offset >= memLen {
		return fmt.Errorf("%w: offset %d, buffer length %d", ErrOffsetOutOfRange, offset, memLen)
	}
	if dataLen < 0 || dataLen > memLen-offset {
		return fmt.Errorf("%w: %d elements at offset %d, buffer length %d",
			ErrLengthExceedsBuffer, dataLen, offset, memLen)
	}
	return nil
}
