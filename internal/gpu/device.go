package gpu

import (
	"fmt"
	"runtime"
	"unsafe"
)

// Runtime is the native compute runtime: it owns a device and a context and
// executes the memory commands submitted to its queues.
//
// Handles (queues, memory objects, events) are runtime-native ids. Sizes and
// offsets are in bytes. Every enqueue call takes the ids of the events to
// wait on and, when enew is non-nil, stores a new event id there that the
// caller must release.
type Runtime interface {
	// Name returns a human-readable device name
	Name() string

	// Type returns the device type
	Type() DeviceType

	// Version returns the device's supported OpenCL version
	Version() DeviceVersion

	// MemBaseAddrAlign returns the required sub-buffer origin alignment in bytes
	MemBaseAddrAlign() int64

	// GlobalMemSize returns the device memory size in bytes
	GlobalMemSize() int64

	CreateQueue(props QueueProps) (uintptr, error)
	ReleaseQueue(q uintptr) error
	Finish(q uintptr) error

	CreateBuffer(flags MemFlags, size int64, host []byte) (uintptr, error)
	CreateSubBuffer(parent uintptr, flags MemFlags, region BufferRegion) (uintptr, error)
	CreateImage(flags MemFlags, format ImageFormat, desc ImageDesc) (uintptr, error)
	CreateFromGLBuffer(flags MemFlags, glObject uint32) (uintptr, error)
	RetainMem(m uintptr) error
	ReleaseMem(m uintptr) error
	MemInfo(m uintptr, kind MemInfo) (uint64, error)

	EnqueueReadBuffer(q, m uintptr, block bool, offset int64, dst []byte, wait []uintptr, enew *uintptr) error
	EnqueueReadBufferRect(q, m uintptr, block bool, r Rect, dst []byte, wait []uintptr, enew *uintptr) error
	EnqueueWriteBuffer(q, m uintptr, block bool, offset int64, src []byte, wait []uintptr, enew *uintptr) error
	EnqueueWriteBufferRect(q, m uintptr, block bool, r Rect, src []byte, wait []uintptr, enew *uintptr) error
	EnqueueCopyBuffer(q, src, dst uintptr, srcOffset, dstOffset, size int64, wait []uintptr, enew *uintptr) error
	EnqueueCopyBufferRect(q, src, dst uintptr, r Rect, wait []uintptr, enew *uintptr) error
	EnqueueFillBuffer(q, m uintptr, pattern []byte, offset, size int64, wait []uintptr, enew *uintptr) error
	EnqueueCopyBufferToImage(q, src, img uintptr, srcOffset int64, dstOrigin, region [3]int64, wait []uintptr, enew *uintptr) error
	EnqueueReadImage(q, img uintptr, block bool, origin, region [3]int64, rowPitch, slicePitch int64, dst []byte, wait []uintptr, enew *uintptr) error
	EnqueueMapBuffer(q, m uintptr, block bool, flags MapFlags, offset, size int64, wait []uintptr, enew *uintptr) (unsafe.Pointer, error)
	EnqueueUnmapMemObject(q, m uintptr, ptr unsafe.Pointer, wait []uintptr, enew *uintptr) error
	EnqueueAcquireGLObjects(q uintptr, mems []uintptr, wait []uintptr, enew *uintptr) error
	EnqueueReleaseGLObjects(q uintptr, mems []uintptr, wait []uintptr, enew *uintptr) error

	WaitForEvents(events []uintptr) error
	EventComplete(ev uintptr) (bool, error)
	RetainEvent(ev uintptr) error
	ReleaseEvent(ev uintptr) error

	// Close releases the context and all associated resources
	Close() error
}

// DeviceType represents the type of compute device
type DeviceType int

const (
	DeviceTypeCPU DeviceType = iota
	DeviceTypeGPU
)

func (dt DeviceType) String() string {
	switch dt {
	case DeviceTypeCPU:
		return "CPU"
	case DeviceTypeGPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// DeviceVersion is an OpenCL major/minor version.
type DeviceVersion struct {
	Major, Minor int
}

// AtLeast reports whether v is the same as or newer than major.minor.
func (v DeviceVersion) AtLeast(major, minor int) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

func (v DeviceVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// BufferRegion locates a sub-buffer within its parent, in bytes.
type BufferRegion struct {
	Origin int64
	Size   int64
}

// Rect holds the parameters of a rectangular transfer. For reads and writes
// the Src fields describe the buffer and the Dst fields describe host memory;
// for copies Src is the source buffer and Dst the destination.
//
// Origin[0], Region[0] and all pitches are in bytes; Origin[1] and Origin[2]
// count rows and slices. A zero pitch means tightly packed.
type Rect struct {
	SrcOrigin     [3]int64
	DstOrigin     [3]int64
	Region        [3]int64
	SrcRowPitch   int64
	SrcSlicePitch int64
	DstRowPitch   int64
	DstSlicePitch int64
}

// ImageFormat is an OpenCL image format.
type ImageFormat struct {
	ChannelOrder uint32
	ChannelType  uint32
}

// Common channel orders and types.
const (
	ChannelOrderR    uint32 = 0x10B0
	ChannelOrderRG   uint32 = 0x10B2
	ChannelOrderRGBA uint32 = 0x10B5

	ChannelTypeUnormInt8   uint32 = 0x10D2
	ChannelTypeSignedInt32 uint32 = 0x10D9
	ChannelTypeUint8       uint32 = 0x10DA
	ChannelTypeUint32      uint32 = 0x10DC
	ChannelTypeFloat       uint32 = 0x10DE
)

// PixelSize returns the size of one pixel in bytes, or 0 for unknown formats.
func (f ImageFormat) PixelSize() int64 {
	var channels, size int64
	switch f.ChannelOrder {
	case ChannelOrderR:
		channels = 1
	case ChannelOrderRG:
		channels = 2
	case ChannelOrderRGBA:
		channels = 4
	}
	switch f.ChannelType {
	case ChannelTypeUnormInt8, ChannelTypeUint8:
		size = 1
	case ChannelTypeSignedInt32, ChannelTypeUint32, ChannelTypeFloat:
		size = 4
	}
	return channels * size
}

// ImageDesc describes image dimensions. Depth is ignored for 2D images.
type ImageDesc struct {
	Type   MemObjectType
	Width  int64
	Height int64
	Depth  int64
}

// Backend selects a Runtime implementation.
type Backend string

const (
	BackendHost   Backend = "host"
	BackendOpenCL Backend = "opencl"
)

// Options configures OpenRuntime.
type Options struct {
	Backend Backend

	// OpenCL selection
	Platform int
	Device   int
	Library  string

	// Host runtime
	MemBaseAddrAlign int64
	PoolMaxBytes     int64
}

// OpenRuntime opens the runtime selected by opts.
func OpenRuntime(opts Options) (Runtime, error) {
	switch opts.Backend {
	case "", BackendHost:
		return NewHostRuntime(HostOptions{
			MemBaseAddrAlign: opts.MemBaseAddrAlign,
			PoolMaxBytes:     opts.PoolMaxBytes,
		}), nil
	case BackendOpenCL:
		return NewOpenCLRuntime(opts.Library, opts.Platform, opts.Device)
	default:
		return nil, fmt.Errorf("unknown runtime backend: %q", opts.Backend)
	}
}

// GetDefaultRuntime returns the default runtime for the current system.
// An OpenCL GPU is used when one is found, otherwise the host runtime.
func GetDefaultRuntime() (Runtime, error) {
	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		rt, err := NewOpenCLRuntime("", 0, 0)
		if err == nil {
			return rt, nil
		}
		// Fall back to the host runtime if OpenCL is missing
	}
	return GetRuntime(DeviceTypeCPU)
}

// GetRuntime returns a runtime for the specified device type
func GetRuntime(dtype DeviceType) (Runtime, error) {
	switch dtype {
	case DeviceTypeCPU:
		return NewHostRuntime(HostOptions{}), nil
	case DeviceTypeGPU:
		return NewOpenCLRuntime("", 0, 0)
	default:
		return nil, fmt.Errorf("unknown device type: %v", dtype)
	}
}
