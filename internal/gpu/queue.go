package gpu

import (
	"fmt"
	"sync/atomic"
)

// Queue is a shared handle to a command queue. Clone returns another holder
// of the same queue; the runtime queue is released when the last holder
// calls Release. Plain assignment copies the holder without counting it.
type Queue struct {
	h *queueHandle
}

type queueHandle struct {
	rt   Runtime
	id   uintptr
	refs atomic.Int32
}

// NewQueue creates a command queue on rt.
func NewQueue(rt Runtime, props QueueProps) (Queue, error) {
	id, err := rt.CreateQueue(props)
	if err != nil {
		return Queue{}, fmt.Errorf("creating command queue: %w", err)
	}
	h := &queueHandle{rt: rt, id: id}
	h.refs.Store(1)
	return Queue{h: h}, nil
}

// IsValid reports whether q refers to a live queue.
func (q Queue) IsValid() bool { return q.h != nil && q.h.refs.Load() > 0 }

// Runtime returns the runtime that owns the queue.
func (q Queue) Runtime() Runtime { return q.h.rt }

// ID returns the runtime-native queue id.
func (q Queue) ID() uintptr { return q.h.id }

// DeviceVersion returns the version of the queue's device.
func (q Queue) DeviceVersion() DeviceVersion { return q.h.rt.Version() }

// Clone returns a new holder of the same queue.
func (q Queue) Clone() Queue {
	q.h.refs.Add(1)
	return Queue{h: q.h}
}

// Finish blocks until every command submitted to q has completed.
func (q Queue) Finish() error {
	return q.h.rt.Finish(q.h.id)
}

// Release drops this holder.
func (q *Queue) Release() error {
	if q.h == nil {
		return nil
	}
	h := q.h
	q.h = nil
	if h.refs.Add(-1) == 0 {
		return h.rt.ReleaseQueue(h.id)
	}
	return nil
}
