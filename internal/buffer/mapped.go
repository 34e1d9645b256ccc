package buffer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/gitter-badger/ocl/internal/gpu"
)

// deferredRelease holds the exact parameters of a release requested ahead
// of time with DeferRelease. It owns a reference to the queue, the memory
// object and every wait event.
type deferredRelease struct {
	queue gpu.Queue
	mem   gpu.Mem
	wait  *gpu.EventList
	enew  *gpu.Event
}

func (d *deferredRelease) waitList() gpu.WaitList {
	if d.wait == nil {
		return nil
	}
	return d.wait
}

// retainWaitList copies wl into a list holding its own event references.
func retainWaitList(wl gpu.WaitList) (*gpu.EventList, error) {
	if wl == nil {
		return nil, nil
	}
	owned := gpu.NewEventList()
	for _, e := range wl.WaitEvents() {
		ev, err := e.Clone()
		if err != nil {
			_ = owned.Release()
			return nil, err
		}
		owned.Push(ev)
	}
	return owned, nil
}

// MappedMem is host-visible access to a mapped region of a buffer. It is
// released exactly once: explicitly with Release, or implicitly with Close.
// If neither is called a finalizer runs Close, so the MappedMem must stay
// reachable for as long as the slice from Slice is in use.
type MappedMem[T Prm] struct {
	view *gpu.MappedView
	len  int

	mu       sync.Mutex
	deferred *deferredRelease
	released bool
}

// WrapMapped wraps view with no deferred release. Release then unmaps
// through the queue and memory object that produced the view.
func WrapMapped[T Prm](view *gpu.MappedView) *MappedMem[T] {
	m := &MappedMem[T]{
		view: view,
		len:  int(view.Len()) / sizeOf[T](),
	}
	runtime.SetFinalizer(m, func(m *MappedMem[T]) { m.Close() })
	return m
}

// Slice returns the mapped elements. It is only valid until release, and
// only while m is reachable; see With.
func (m *MappedMem[T]) Slice() []T {
	if m.view.Ptr() == nil || m.len == 0 {
		return nil
	}
	return unsafe.Slice((*T)(m.view.Ptr()), m.len)
}

// With calls fn with the mapped elements and keeps m alive until fn
// returns. It returns ErrAlreadyReleased if the mapping has been released.
func (m *MappedMem[T]) With(fn func([]T)) error {
	if m.IsReleased() {
		return ErrAlreadyReleased
	}
	fn(m.Slice())
	runtime.KeepAlive(m)
	return nil
}

// Len returns the number of mapped elements.
func (m *MappedMem[T]) Len() int { return m.len }

// IsReleased reports whether the mapping has been released.
func (m *MappedMem[T]) IsReleased() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// DeferRelease fixes the queue, memory object, wait list and completion
// event slot the eventual release will use. wait should include the event
// that signals the map has completed. The events are retained, so the
// caller may release its own references right away. Calling it again
// replaces the previous parameters.
func (m *MappedMem[T]) DeferRelease(queue gpu.Queue, mem gpu.Mem, wait gpu.WaitList, enew *gpu.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrAlreadyReleased
	}

	memRef, err := mem.Clone()
	if err != nil {
		return fmt.Errorf("retaining memory object for deferred release: %w", err)
	}
	owned, err := retainWaitList(wait)
	if err != nil {
		_ = memRef.Release()
		return fmt.Errorf("retaining wait list for deferred release: %w", err)
	}
	m.dropDeferredLocked()
	m.deferred = &deferredRelease{
		queue: queue.Clone(),
		mem:   memRef,
		wait:  owned,
		enew:  enew,
	}
	return nil
}

// UpdateDeferredReleaseParams replaces the wait list and completion event
// slot of a deferred release. A nil argument leaves that parameter as it
// is. It panics if DeferRelease was never called, the mapping has already
// been released, or an event in wait cannot be retained.
func (m *MappedMem[T]) UpdateDeferredReleaseParams(wait gpu.WaitList, enew *gpu.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		panic("buffer.MappedMem.UpdateDeferredReleaseParams: mapping already released")
	}
	if m.deferred == nil {
		panic("buffer.MappedMem.UpdateDeferredReleaseParams: no deferred release, call DeferRelease first")
	}
	if wait != nil {
		owned, err := retainWaitList(wait)
		if err != nil {
			panic(fmt.Sprintf("buffer.MappedMem.UpdateDeferredReleaseParams: %v", err))
		}
		if m.deferred.wait != nil {
			_ = m.deferred.wait.Release()
		}
		m.deferred.wait = owned
	}
	if enew != nil {
		m.deferred.enew = enew
	}
}

// DeferredReleaseParams returns the parameters captured by DeferRelease.
// ok is false if no release has been deferred.
func (m *MappedMem[T]) DeferredReleaseParams() (wait gpu.WaitList, enew *gpu.Event, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deferred == nil {
		return nil, nil, false
	}
	return m.deferred.waitList(), m.deferred.enew, true
}

// Release unmaps the region. A deferred release submits the unmap with the
// captured parameters; otherwise the unmap goes through the queue that
// mapped the region. Releasing twice returns ErrAlreadyReleased.
func (m *MappedMem[T]) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrAlreadyReleased
	}

	var err error
	if d := m.deferred; d != nil {
		err = m.view.Unmap(d.queue, d.mem, d.waitList(), d.enew)
	} else {
		err = m.view.UnmapOrigin(nil, nil)
		if errors.Is(err, gpu.ErrNoMapOrigin) {
			return ErrNoReleasePolicy
		}
	}
	if err != nil {
		return err
	}

	m.released = true
	m.dropDeferredLocked()
	runtime.SetFinalizer(m, nil)
	return nil
}

// Close releases the mapping if it has not been released yet. A failure to
// unmap leaves host memory in an unknown state, so Close panics instead of
// returning an error.
func (m *MappedMem[T]) Close() {
	err := m.Release()
	switch {
	case err == nil, errors.Is(err, ErrAlreadyReleased):
		return
	case errors.Is(err, ErrNoReleasePolicy):
		log.WithField("len", m.len).Warn("Mapped memory has no release policy, leaving it mapped")
		return
	}
	log.WithError(err).Error("Failed to release mapped memory")
	panic(fmt.Sprintf("buffer.MappedMem.Close: release failed: %v", err))
}

func (m *MappedMem[T]) dropDeferredLocked() {
	if m.deferred == nil {
		return
	}
	if m.deferred.wait != nil {
		_ = m.deferred.wait.Release()
	}
	_ = m.deferred.mem.Release()
	_ = m.deferred.queue.Release()
	m.deferred = nil
}
