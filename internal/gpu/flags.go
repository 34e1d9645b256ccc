package gpu

import (
	"fmt"
	"strings"
)

// MemFlags describes how a memory object is allocated and accessed.
// Values match the OpenCL bit field.
type MemFlags uint64

const (
	MemReadWrite     MemFlags = 1 << 0
	MemWriteOnly     MemFlags = 1 << 1
	MemReadOnly      MemFlags = 1 << 2
	MemUseHostPtr    MemFlags = 1 << 3
	MemAllocHostPtr  MemFlags = 1 << 4
	MemCopyHostPtr   MemFlags = 1 << 5
	MemHostWriteOnly MemFlags = 1 << 7
	MemHostReadOnly  MemFlags = 1 << 8
	MemHostNoAccess  MemFlags = 1 << 9
)

var memFlagNames = []struct {
	flag MemFlags
	name string
}{
	{MemReadWrite, "READ_WRITE"},
	{MemWriteOnly, "WRITE_ONLY"},
	{MemReadOnly, "READ_ONLY"},
	{MemUseHostPtr, "USE_HOST_PTR"},
	{MemAllocHostPtr, "ALLOC_HOST_PTR"},
	{MemCopyHostPtr, "COPY_HOST_PTR"},
	{MemHostWriteOnly, "HOST_WRITE_ONLY"},
	{MemHostReadOnly, "HOST_READ_ONLY"},
	{MemHostNoAccess, "HOST_NO_ACCESS"},
}

// Has reports whether all bits in other are set.
func (f MemFlags) Has(other MemFlags) bool { return f&other == other }

func (f MemFlags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	for _, fn := range memFlagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// MapFlags selects the access requested by a map command.
type MapFlags uint64

const (
	MapRead                  MapFlags = 1 << 0
	MapWrite                 MapFlags = 1 << 1
	MapWriteInvalidateRegion MapFlags = 1 << 2
)

func (f MapFlags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	if f&MapRead != 0 {
		parts = append(parts, "READ")
	}
	if f&MapWrite != 0 {
		parts = append(parts, "WRITE")
	}
	if f&MapWriteInvalidateRegion != 0 {
		parts = append(parts, "WRITE_INVALIDATE_REGION")
	}
	return strings.Join(parts, "|")
}

// QueueProps are command queue properties.
type QueueProps uint64

const (
	QueueOutOfOrderExec QueueProps = 1 << 0
	QueueProfiling      QueueProps = 1 << 1
)

// MemObjectType identifies the kind of a memory object.
type MemObjectType uint32

const (
	MemObjectBuffer  MemObjectType = 0x10F0
	MemObjectImage2D MemObjectType = 0x10F1
	MemObjectImage3D MemObjectType = 0x10F2
)

func (t MemObjectType) String() string {
	switch t {
	case MemObjectBuffer:
		return "Buffer"
	case MemObjectImage2D:
		return "Image2D"
	case MemObjectImage3D:
		return "Image3D"
	default:
		return fmt.Sprintf("MemObjectType(%#x)", uint32(t))
	}
}

// MemInfo selects a memory object property to query.
type MemInfo uint32

const (
	MemInfoType                MemInfo = 0x1100
	MemInfoFlags               MemInfo = 0x1101
	MemInfoSize                MemInfo = 0x1102
	MemInfoHostPtr             MemInfo = 0x1103
	MemInfoMapCount            MemInfo = 0x1104
	MemInfoReferenceCount      MemInfo = 0x1105
	MemInfoContext             MemInfo = 0x1106
	MemInfoAssociatedMemobject MemInfo = 0x1107
	MemInfoOffset              MemInfo = 0x1108
)

// AllMemInfo lists every MemInfo kind in display order.
var AllMemInfo = []MemInfo{
	MemInfoType, MemInfoFlags, MemInfoSize, MemInfoHostPtr, MemInfoMapCount,
	MemInfoReferenceCount, MemInfoContext, MemInfoAssociatedMemobject, MemInfoOffset,
}

func (k MemInfo) String() string {
	switch k {
	case MemInfoType:
		return "Type"
	case MemInfoFlags:
		return "Flags"
	case MemInfoSize:
		return "Size"
	case MemInfoHostPtr:
		return "HostPtr"
	case MemInfoMapCount:
		return "MapCount"
	case MemInfoReferenceCount:
		return "ReferenceCount"
	case MemInfoContext:
		return "Context"
	case MemInfoAssociatedMemobject:
		return "AssociatedMemobject"
	case MemInfoOffset:
		return "Offset"
	default:
		return fmt.Sprintf("MemInfo(%#x)", uint32(k))
	}
}

// MemInfoResult is the answer to a MemInfo query. Every property fits in a
// uint64; handles and pointers are reported as addresses.
type MemInfoResult struct {
	Kind  MemInfo
	Value uint64
	Err   error
}

func (r MemInfoResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("error: %v", r.Err)
	}
	switch r.Kind {
	case MemInfoType:
		return MemObjectType(r.Value).String()
	case MemInfoFlags:
		return MemFlags(r.Value).String()
	case MemInfoHostPtr, MemInfoContext, MemInfoAssociatedMemobject:
		if r.Value == 0 {
			return "none"
		}
		return fmt.Sprintf("%#x", r.Value)
	default:
		return fmt.Sprintf("%d", r.Value)
	}
}
