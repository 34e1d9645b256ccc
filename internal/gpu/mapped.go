package gpu

import (
	"sync"
	"unsafe"
)

// MappedView is a host-visible window onto device memory produced by a map
// command. It stays valid until unmapped.
type MappedView struct {
	ptr  unsafe.Pointer
	size int64

	// Queue and memory object that produced the mapping, if known.
	originQueue Queue
	originMem   Mem

	mu       sync.Mutex
	unmapped bool
}

// NewMappedView wraps a raw mapping of size bytes at ptr. The view has no
// origin, so it can only be unmapped through Unmap.
func NewMappedView(ptr unsafe.Pointer, size int64) *MappedView {
	return &MappedView{ptr: ptr, size: size}
}

// Ptr returns the start of the mapped region.
func (v *MappedView) Ptr() unsafe.Pointer { return v.ptr }

// Len returns the mapped size in bytes.
func (v *MappedView) Len() int64 { return v.size }

// Bytes returns the mapped region as a byte slice.
func (v *MappedView) Bytes() []byte {
	if v.ptr == nil || v.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(v.ptr), v.size)
}

// HasOrigin reports whether the view knows the queue that mapped it.
func (v *MappedView) HasOrigin() bool { return v.originQueue.h != nil }

// IsUnmapped reports whether the view has been unmapped.
func (v *MappedView) IsUnmapped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unmapped
}

// Unmap submits an unmap of the view's region of m on q.
func (v *MappedView) Unmap(q Queue, m Mem, wait WaitList, enew *Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmapped {
		return ErrAlreadyUnmapped
	}

	slot := eventSlot(enew)
	if err := q.h.rt.EnqueueUnmapMemObject(q.h.id, m.id, v.ptr, eventIDs(wait), slot); err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)

	v.unmapped = true
	v.releaseOrigin()
	return nil
}

// UnmapOrigin unmaps the view through the queue and memory object that
// produced it.
func (v *MappedView) UnmapOrigin(wait WaitList, enew *Event) error {
	if !v.HasOrigin() {
		if v.IsUnmapped() {
			return ErrAlreadyUnmapped
		}
		return ErrNoMapOrigin
	}
	return v.Unmap(v.originQueue, v.originMem, wait, enew)
}

func (v *MappedView) releaseOrigin() {
	if v.originQueue.h != nil {
		_ = v.originQueue.Release()
	}
	_ = v.originMem.Release()
}
