package gpu

import "fmt"

// The Enqueue* functions submit one command to a queue. wait lists the
// events the command waits on; enew, when non-nil, receives the command's
// completion event (any event already held there is released first).

// eventSlot returns the id destination for enew.
func eventSlot(enew *Event) *uintptr {
	if enew == nil {
		return nil
	}
	return new(uintptr)
}

// fillEvent stores a newly created event in enew.
func fillEvent(rt Runtime, enew *Event, id *uintptr) {
	if enew == nil || id == nil || *id == 0 {
		return
	}
	_ = enew.Release()
	*enew = Event{rt: rt, id: *id}
}

// EnqueueReadBuffer reads len(dst) bytes at offset into dst.
func EnqueueReadBuffer(q Queue, m Mem, block bool, offset int64, dst []byte, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueReadBuffer(q.h.id, m.id, block, offset, dst, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueReadBufferRect reads a rectangular region into dst.
func EnqueueReadBufferRect(q Queue, m Mem, block bool, r Rect, dst []byte, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueReadBufferRect(q.h.id, m.id, block, r, dst, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueWriteBuffer writes src at offset.
func EnqueueWriteBuffer(q Queue, m Mem, block bool, offset int64, src []byte, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueWriteBuffer(q.h.id, m.id, block, offset, src, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueWriteBufferRect writes a rectangular region from src.
func EnqueueWriteBufferRect(q Queue, m Mem, block bool, r Rect, src []byte, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueWriteBufferRect(q.h.id, m.id, block, r, src, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueCopyBuffer copies size bytes between buffers.
func EnqueueCopyBuffer(q Queue, src, dst Mem, srcOffset, dstOffset, size int64, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueCopyBuffer(q.h.id, src.id, dst.id, srcOffset, dstOffset, size, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueCopyBufferRect copies a rectangular region between buffers.
func EnqueueCopyBufferRect(q Queue, src, dst Mem, r Rect, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueCopyBufferRect(q.h.id, src.id, dst.id, r, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueFillBuffer repeats pattern over size bytes at offset. Fill commands
// need an OpenCL 1.2 device.
func EnqueueFillBuffer(q Queue, m Mem, pattern []byte, offset, size int64, wait WaitList, enew *Event) error {
	if v := q.DeviceVersion(); !v.AtLeast(1, 2) {
		return fmt.Errorf("fill requires OpenCL 1.2, device is %s: %w", v, ErrVersionTooLow)
	}
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueFillBuffer(q.h.id, m.id, pattern, offset, size, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueCopyBufferToImage copies tightly packed pixels from a buffer into
// region of an image. dstOrigin and region are in pixels.
func EnqueueCopyBufferToImage(q Queue, src, img Mem, srcOffset int64, dstOrigin, region [3]int64, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueCopyBufferToImage(q.h.id, src.id, img.id, srcOffset, dstOrigin, region, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueReadImage reads region of an image into dst.
func EnqueueReadImage(q Queue, img Mem, block bool, origin, region [3]int64, rowPitch, slicePitch int64, dst []byte, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueReadImage(q.h.id, img.id, block, origin, region, rowPitch, slicePitch, dst, eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueMapBuffer maps size bytes at offset into host memory. The returned
// view remembers q and m so it can be unmapped through them.
func EnqueueMapBuffer(q Queue, m Mem, block bool, flags MapFlags, offset, size int64, wait WaitList, enew *Event) (*MappedView, error) {
	slot := eventSlot(enew)
	ptr, err := q.h.rt.EnqueueMapBuffer(q.h.id, m.id, block, flags, offset, size, eventIDs(wait), slot)
	if err != nil {
		return nil, err
	}
	fillEvent(q.h.rt, enew, slot)

	view := NewMappedView(ptr, size)
	view.originQueue = q.Clone()
	if view.originMem, err = m.Clone(); err != nil {
		view.originQueue.Release()
		return nil, fmt.Errorf("retaining mapped memory object: %w", err)
	}
	return view, nil
}

// EnqueueUnmapMemObject unmaps a region previously returned by a map.
func EnqueueUnmapMemObject(q Queue, m Mem, view *MappedView, wait WaitList, enew *Event) error {
	return view.Unmap(q, m, wait, enew)
}

// EnqueueAcquireGLObjects acquires GL-shared memory objects.
func EnqueueAcquireGLObjects(q Queue, mems []Mem, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueAcquireGLObjects(q.h.id, memIDs(mems), eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

// EnqueueReleaseGLObjects releases GL-shared memory objects.
func EnqueueReleaseGLObjects(q Queue, mems []Mem, wait WaitList, enew *Event) error {
	slot := eventSlot(enew)
	err := q.h.rt.EnqueueReleaseGLObjects(q.h.id, memIDs(mems), eventIDs(wait), slot)
	if err != nil {
		return err
	}
	fillEvent(q.h.rt, enew, slot)
	return nil
}

func memIDs(mems []Mem) []uintptr {
	ids := make([]uintptr, len(mems))
	for i, m := range mems {
		ids[i] = m.id
	}
	return ids
}
