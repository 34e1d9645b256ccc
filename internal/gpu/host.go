package gpu

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/gitter-badger/ocl/internal/logging"
	"github.com/gitter-badger/ocl/internal/system"
)

// HostOptions configures a HostRuntime.
type HostOptions struct {
	// MemBaseAddrAlign is the sub-buffer origin alignment in bytes (default 1)
	MemBaseAddrAlign int64

	// PoolMaxBytes caps the storage kept for reuse (0 = unlimited)
	PoolMaxBytes int64

	// Version reported to callers (default 1.2)
	Version DeviceVersion

	// QueueDepth is the number of commands a queue buffers before
	// submission blocks (default 256)
	QueueDepth int

	// DirtyReuse leaves recycled storage uncleared, so new objects may
	// start with the contents of released ones
	DirtyReuse bool
}

// HostRuntime executes commands against host memory. Every queue is an
// in-order worker goroutine; commands wait on their wait lists, run, then
// complete their event. It implements Runtime.
type HostRuntime struct {
	opts HostOptions
	name string
	pool *BufferPool
	log  *logrus.Entry

	// dataMu serializes access to object storage across queues
	dataMu sync.Mutex

	mu     sync.Mutex
	nextID uintptr
	nextGL uint32
	queues map[uintptr]*hostQueue
	mems   map[uintptr]*hostMem
	events map[uintptr]*hostEvent
	gl     map[uint32]*hostGL
	closed bool
}

type hostQueue struct {
	id    uintptr
	props QueueProps
	cmds  chan *hostCmd
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

type hostMem struct {
	id     uintptr
	typ    MemObjectType
	flags  MemFlags
	data   []byte
	slab   []byte // pool storage owned by this object
	offset int64
	parent *hostMem
	refs   int32

	maps     map[uintptr]int
	mapCount int32

	gl    *hostGL
	image *hostImage
}

type hostImage struct {
	format     ImageFormat
	desc       ImageDesc
	pixel      int64
	rowPitch   int64
	slicePitch int64
}

type hostGL struct {
	name     uint32
	data     []byte
	acquired bool
}

type hostEvent struct {
	id   uintptr
	done chan struct{}
	err  error
	refs int32
}

type hostCmd struct {
	name string
	wait []*hostEvent
	mems []*hostMem
	ev   *hostEvent
	run  func() error
}

// NewHostRuntime creates a host runtime.
func NewHostRuntime(opts HostOptions) *HostRuntime {
	if opts.MemBaseAddrAlign <= 0 {
		opts.MemBaseAddrAlign = 1
	}
	if opts.Version == (DeviceVersion{}) {
		opts.Version = DeviceVersion{Major: 1, Minor: 2}
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 256
	}

	r := &HostRuntime{
		opts:   opts,
		name:   fmt.Sprintf("Host (%s)", runtime.GOARCH),
		pool:   NewBufferPool(opts.PoolMaxBytes),
		log:    logging.WithComponent("host-runtime"),
		queues: make(map[uintptr]*hostQueue),
		mems:   make(map[uintptr]*hostMem),
		events: make(map[uintptr]*hostEvent),
		gl:     make(map[uint32]*hostGL),
	}
	r.pool.SetDirtyReuse(opts.DirtyReuse)
	r.log.WithFields(logrus.Fields{
		"align":   opts.MemBaseAddrAlign,
		"version": opts.Version,
	}).Debug("host runtime created")
	return r
}

func (r *HostRuntime) Name() string           { return r.name }
func (r *HostRuntime) Type() DeviceType       { return DeviceTypeCPU }
func (r *HostRuntime) Version() DeviceVersion { return r.opts.Version }

func (r *HostRuntime) MemBaseAddrAlign() int64 { return r.opts.MemBaseAddrAlign }

func (r *HostRuntime) GlobalMemSize() int64 {
	total, err := system.GetTotalRAM()
	if err != nil {
		return 0
	}
	return total
}

// PoolStats returns storage pool statistics
func (r *HostRuntime) PoolStats() PoolStats {
	return r.pool.Stats()
}

// newIDLocked returns the next handle id. Callers hold r.mu.
func (r *HostRuntime) newIDLocked() uintptr {
	r.nextID++
	return r.nextID
}

// Queues

func (r *HostRuntime) CreateQueue(props QueueProps) (uintptr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrInvalidQueue
	}

	hq := &hostQueue{
		id:    r.newIDLocked(),
		props: props,
		cmds:  make(chan *hostCmd, r.opts.QueueDepth),
		done:  make(chan struct{}),
	}
	r.queues[hq.id] = hq
	go r.runQueue(hq)

	r.log.WithField("queue", hq.id).Debug("queue created")
	return hq.id, nil
}

func (r *HostRuntime) ReleaseQueue(q uintptr) error {
	r.mu.Lock()
	hq, ok := r.queues[q]
	if ok {
		delete(r.queues, q)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %#x", ErrInvalidQueue, q)
	}

	hq.close()
	r.log.WithField("queue", q).Debug("queue released")
	return nil
}

func (r *HostRuntime) Finish(q uintptr) error {
	return r.submit(q, "finish", nil, nil, nil, true, nil, func() error { return nil })
}

func (hq *hostQueue) push(cmd *hostCmd) error {
	hq.mu.Lock()
	defer hq.mu.Unlock()
	if hq.closed {
		return fmt.Errorf("%w: %#x", ErrInvalidQueue, hq.id)
	}
	hq.cmds <- cmd
	return nil
}

func (hq *hostQueue) close() {
	hq.mu.Lock()
	if !hq.closed {
		hq.closed = true
		close(hq.cmds)
	}
	hq.mu.Unlock()
}

// runQueue executes the commands of hq in submission order.
func (r *HostRuntime) runQueue(hq *hostQueue) {
	defer close(hq.done)
	for cmd := range hq.cmds {
		err := cmd.waitDeps()
		if err == nil {
			r.dataMu.Lock()
			err = cmd.run()
			r.dataMu.Unlock()
		}
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"queue":   hq.id,
				"command": cmd.name,
			}).WithError(err).Debug("command failed")
		}
		r.complete(cmd, err)
	}
}

func (c *hostCmd) waitDeps() error {
	for _, e := range c.wait {
		<-e.done
		if e.err != nil {
			return fmt.Errorf("%w: %v", ErrWaitListFailed, e.err)
		}
	}
	return nil
}

// complete signals the command's event and drops the references the
// command held.
func (r *HostRuntime) complete(cmd *hostCmd, err error) {
	cmd.ev.err = err
	close(cmd.ev.done)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range cmd.mems {
		r.releaseMemLocked(m)
	}
	for _, e := range cmd.wait {
		r.releaseEventLocked(e)
	}
	r.releaseEventLocked(cmd.ev)
}

// submit queues run on q. validate is called with the resolved memory
// objects while r.mu is held, before any reference is taken; errors it
// returns are reported synchronously like runtime argument errors.
func (r *HostRuntime) submit(q uintptr, name string, memIDs []uintptr, wait []uintptr, enew *uintptr,
	block bool, validate func(ms []*hostMem) error, run func() error) error {
	r.mu.Lock()
	hq, ok := r.queues[q]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %#x", ErrInvalidQueue, q)
	}

	ms := make([]*hostMem, len(memIDs))
	for i, id := range memIDs {
		m, ok := r.mems[id]
		if !ok {
			r.mu.Unlock()
			return fmt.Errorf("%w: %#x", ErrInvalidMemObject, id)
		}
		ms[i] = m
	}
	waits := make([]*hostEvent, len(wait))
	for i, id := range wait {
		e, ok := r.events[id]
		if !ok {
			r.mu.Unlock()
			return fmt.Errorf("%w: %#x", ErrInvalidEvent, id)
		}
		waits[i] = e
	}
	if validate != nil {
		if err := validate(ms); err != nil {
			r.mu.Unlock()
			return err
		}
	}

	for _, m := range ms {
		m.refs++
	}
	for _, e := range waits {
		e.refs++
	}
	ev := r.newEventLocked()
	if enew != nil {
		ev.refs++
	}
	if block {
		ev.refs++
	}
	r.mu.Unlock()

	cmd := &hostCmd{name: name, wait: waits, mems: ms, ev: ev, run: run}
	if err := hq.push(cmd); err != nil {
		r.complete(cmd, err)
		r.mu.Lock()
		if enew != nil {
			r.releaseEventLocked(ev)
		}
		if block {
			r.releaseEventLocked(ev)
		}
		r.mu.Unlock()
		return err
	}
	if enew != nil {
		*enew = ev.id
	}

	if block {
		<-ev.done
		err := ev.err
		r.mu.Lock()
		r.releaseEventLocked(ev)
		r.mu.Unlock()
		return err
	}
	return nil
}

// Memory objects

func validateMemFlags(flags MemFlags) error {
	n := 0
	for _, f := range []MemFlags{MemReadWrite, MemWriteOnly, MemReadOnly} {
		if flags&f != 0 {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("conflicting access flags %s: %w", flags, ErrInvalidValue)
	}
	if flags.Has(MemUseHostPtr) && flags&(MemAllocHostPtr|MemCopyHostPtr) != 0 {
		return fmt.Errorf("USE_HOST_PTR combined with %s: %w", flags, ErrInvalidValue)
	}
	return nil
}

func (r *HostRuntime) CreateBuffer(flags MemFlags, size int64, host []byte) (uintptr, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBufferSize, size)
	}
	if err := validateMemFlags(flags); err != nil {
		return 0, err
	}
	wantsHost := flags&(MemUseHostPtr|MemCopyHostPtr) != 0
	if wantsHost != (host != nil) {
		return 0, fmt.Errorf("host data must be given exactly when USE_HOST_PTR or COPY_HOST_PTR is set: %w", ErrInvalidHostPtr)
	}
	if host != nil && int64(len(host)) < size {
		return 0, fmt.Errorf("host data of %d bytes for buffer of %d: %w", len(host), size, ErrInvalidHostPtr)
	}

	m := &hostMem{typ: MemObjectBuffer, flags: flags, refs: 1}
	if flags.Has(MemUseHostPtr) {
		m.data = host[:size]
	} else {
		m.slab = r.pool.Allocate(size)
		m.data = m.slab
		if flags.Has(MemCopyHostPtr) {
			copy(m.data, host)
		}
	}

	r.mu.Lock()
	m.id = r.newIDLocked()
	r.mems[m.id] = m
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"mem": m.id, "size": size, "flags": flags}).Debug("buffer created")
	return m.id, nil
}

func (r *HostRuntime) CreateSubBuffer(parent uintptr, flags MemFlags, region BufferRegion) (uintptr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.mems[parent]
	if !ok || p.typ != MemObjectBuffer || p.parent != nil {
		return 0, fmt.Errorf("%w: %#x is not a buffer", ErrInvalidMemObject, parent)
	}
	if flags == 0 {
		flags = p.flags &^ (MemUseHostPtr | MemAllocHostPtr | MemCopyHostPtr)
	}
	if flags&(MemUseHostPtr|MemAllocHostPtr|MemCopyHostPtr) != 0 {
		return 0, fmt.Errorf("host pointer flags on a sub-buffer: %w", ErrInvalidValue)
	}
	if err := validateMemFlags(flags); err != nil {
		return 0, err
	}
	if region.Size <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBufferSize, region.Size)
	}
	if region.Origin < 0 || region.Origin+region.Size > int64(len(p.data)) {
		return 0, fmt.Errorf("region %+v outside buffer of %d bytes: %w", region, len(p.data), ErrInvalidValue)
	}
	if region.Origin%r.opts.MemBaseAddrAlign != 0 {
		return 0, fmt.Errorf("origin %d not a multiple of %d: %w",
			region.Origin, r.opts.MemBaseAddrAlign, ErrMisalignedSubBufferOffset)
	}

	m := &hostMem{
		id:     r.newIDLocked(),
		typ:    MemObjectBuffer,
		flags:  flags,
		data:   p.data[region.Origin : region.Origin+region.Size],
		offset: region.Origin,
		parent: p,
		refs:   1,
		gl:     p.gl,
	}
	p.refs++
	r.mems[m.id] = m
	return m.id, nil
}

func (r *HostRuntime) CreateImage(flags MemFlags, format ImageFormat, desc ImageDesc) (uintptr, error) {
	if err := validateMemFlags(flags); err != nil {
		return 0, err
	}
	pixel := format.PixelSize()
	if pixel == 0 {
		return 0, fmt.Errorf("unsupported image format %+v: %w", format, ErrInvalidValue)
	}
	switch desc.Type {
	case MemObjectImage2D:
		desc.Depth = 1
	case MemObjectImage3D:
	default:
		return 0, fmt.Errorf("image type %s: %w", desc.Type, ErrInvalidValue)
	}
	if desc.Width <= 0 || desc.Height <= 0 || desc.Depth <= 0 {
		return 0, fmt.Errorf("image size %dx%dx%d: %w", desc.Width, desc.Height, desc.Depth, ErrInvalidValue)
	}

	img := &hostImage{format: format, desc: desc, pixel: pixel}
	img.rowPitch = desc.Width * pixel
	img.slicePitch = img.rowPitch * desc.Height

	m := &hostMem{typ: desc.Type, flags: flags, refs: 1, image: img}
	m.slab = r.pool.Allocate(img.slicePitch * desc.Depth)
	m.data = m.slab

	r.mu.Lock()
	m.id = r.newIDLocked()
	r.mems[m.id] = m
	r.mu.Unlock()
	return m.id, nil
}

// NewGLBuffer registers a simulated GL buffer object of size bytes and
// returns its GL name.
func (r *HostRuntime) NewGLBuffer(size int64) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextGL++
	r.gl[r.nextGL] = &hostGL{name: r.nextGL, data: make([]byte, size)}
	return r.nextGL
}

func (r *HostRuntime) CreateFromGLBuffer(flags MemFlags, glObject uint32) (uintptr, error) {
	if err := validateMemFlags(flags); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.gl[glObject]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidGLObject, glObject)
	}
	m := &hostMem{
		id:    r.newIDLocked(),
		typ:   MemObjectBuffer,
		flags: flags,
		data:  g.data,
		refs:  1,
		gl:    g,
	}
	r.mems[m.id] = m
	return m.id, nil
}

func (r *HostRuntime) RetainMem(id uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mems[id]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrInvalidMemObject, id)
	}
	m.refs++
	return nil
}

func (r *HostRuntime) ReleaseMem(id uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mems[id]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrInvalidMemObject, id)
	}
	r.releaseMemLocked(m)
	return nil
}

func (r *HostRuntime) releaseMemLocked(m *hostMem) {
	m.refs--
	if m.refs > 0 {
		return
	}
	delete(r.mems, m.id)
	if m.slab != nil {
		r.pool.Release(m.slab)
		m.slab = nil
	}
	m.data = nil
	r.log.WithField("mem", m.id).Debug("memory object destroyed")
	if m.parent != nil {
		r.releaseMemLocked(m.parent)
	}
}

func (r *HostRuntime) MemInfo(id uintptr, kind MemInfo) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mems[id]
	if !ok {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidMemObject, id)
	}

	switch kind {
	case MemInfoType:
		return uint64(m.typ), nil
	case MemInfoFlags:
		return uint64(m.flags), nil
	case MemInfoSize:
		return uint64(len(m.data)), nil
	case MemInfoHostPtr:
		if m.flags.Has(MemUseHostPtr) && len(m.data) > 0 {
			return uint64(uintptr(unsafe.Pointer(&m.data[0]))), nil
		}
		return 0, nil
	case MemInfoMapCount:
		return uint64(m.mapCount), nil
	case MemInfoReferenceCount:
		return uint64(m.refs), nil
	case MemInfoContext:
		return uint64(uintptr(unsafe.Pointer(r))), nil
	case MemInfoAssociatedMemobject:
		if m.parent != nil {
			return uint64(m.parent.id), nil
		}
		return 0, nil
	case MemInfoOffset:
		return uint64(m.offset), nil
	default:
		return 0, fmt.Errorf("mem info %s: %w", kind, ErrInvalidValue)
	}
}

// checkAccess rejects data commands on GL objects that are not acquired.
func checkAccess(m *hostMem) error {
	if m.gl != nil && !m.gl.acquired {
		return fmt.Errorf("%w: GL buffer %d", ErrGLNotAcquired, m.gl.name)
	}
	if m.image != nil {
		return fmt.Errorf("%w: %#x is an image", ErrInvalidMemObject, m.id)
	}
	return nil
}

func checkRange(m *hostMem, offset, size int64) error {
	if offset < 0 || size < 0 || offset+size > int64(len(m.data)) {
		return fmt.Errorf("range [%d, %d) outside %d bytes: %w", offset, offset+size, len(m.data), ErrInvalidValue)
	}
	return nil
}

// Commands

func (r *HostRuntime) EnqueueReadBuffer(q, id uintptr, block bool, offset int64, dst []byte, wait []uintptr, enew *uintptr) error {
	var m *hostMem
	return r.submit(q, "read", []uintptr{id}, wait, enew, block,
		func(ms []*hostMem) error {
			m = ms[0]
			if err := checkAccess(m); err != nil {
				return err
			}
			return checkRange(m, offset, int64(len(dst)))
		},
		func() error {
			copy(dst, m.data[offset:offset+int64(len(dst))])
			return nil
		})
}

func (r *HostRuntime) EnqueueReadBufferRect(q, id uintptr, block bool, rect Rect, dst []byte, wait []uintptr, enew *uintptr) error {
	var m *hostMem
	rect = normalizedRect(rect)
	return r.submit(q, "read-rect", []uintptr{id}, wait, enew, block,
		func(ms []*hostMem) error {
			m = ms[0]
			if err := checkAccess(m); err != nil {
				return err
			}
			if err := validateRect("buffer", int64(len(m.data)), rect.SrcOrigin, rect.Region, rect.SrcRowPitch, rect.SrcSlicePitch); err != nil {
				return err
			}
			return validateRect("host", int64(len(dst)), rect.DstOrigin, rect.Region, rect.DstRowPitch, rect.DstSlicePitch)
		},
		func() error {
			rectCopy(dst, rect.DstOrigin, rect.DstRowPitch, rect.DstSlicePitch,
				m.data, rect.SrcOrigin, rect.SrcRowPitch, rect.SrcSlicePitch, rect.Region)
			return nil
		})
}

func (r *HostRuntime) EnqueueWriteBuffer(q, id uintptr, block bool, offset int64, src []byte, wait []uintptr, enew *uintptr) error {
	var m *hostMem
	return r.submit(q, "write", []uintptr{id}, wait, enew, block,
		func(ms []*hostMem) error {
			m = ms[0]
			if err := checkAccess(m); err != nil {
				return err
			}
			return checkRange(m, offset, int64(len(src)))
		},
		func() error {
			copy(m.data[offset:], src)
			return nil
		})
}

func (r *HostRuntime) EnqueueWriteBufferRect(q, id uintptr, block bool, rect Rect, src []byte, wait []uintptr, enew *uintptr) error {
	var m *hostMem
	rect = normalizedRect(rect)
	return r.submit(q, "write-rect", []uintptr{id}, wait, enew, block,
		func(ms []*hostMem) error {
			m = ms[0]
			if err := checkAccess(m); err != nil {
				return err
			}
			if err := validateRect("buffer", int64(len(m.data)), rect.SrcOrigin, rect.Region, rect.SrcRowPitch, rect.SrcSlicePitch); err != nil {
				return err
			}
			return validateRect("host", int64(len(src)), rect.DstOrigin, rect.Region, rect.DstRowPitch, rect.DstSlicePitch)
		},
		func() error {
			rectCopy(m.data, rect.SrcOrigin, rect.SrcRowPitch, rect.SrcSlicePitch,
				src, rect.DstOrigin, rect.DstRowPitch, rect.DstSlicePitch, rect.Region)
			return nil
		})
}

func (r *HostRuntime) EnqueueCopyBuffer(q, src, dst uintptr, srcOffset, dstOffset, size int64, wait []uintptr, enew *uintptr) error {
	var s, d *hostMem
	return r.submit(q, "copy", []uintptr{src, dst}, wait, enew, false,
		func(ms []*hostMem) error {
			s, d = ms[0], ms[1]
			for _, m := range ms {
				if err := checkAccess(m); err != nil {
					return err
				}
			}
			if err := checkRange(s, srcOffset, size); err != nil {
				return err
			}
			return checkRange(d, dstOffset, size)
		},
		func() error {
			copy(d.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
			return nil
		})
}

func (r *HostRuntime) EnqueueCopyBufferRect(q, src, dst uintptr, rect Rect, wait []uintptr, enew *uintptr) error {
	var s, d *hostMem
	rect = normalizedRect(rect)
	return r.submit(q, "copy-rect", []uintptr{src, dst}, wait, enew, false,
		func(ms []*hostMem) error {
			s, d = ms[0], ms[1]
			for _, m := range ms {
				if err := checkAccess(m); err != nil {
					return err
				}
			}
			if err := validateRect("source", int64(len(s.data)), rect.SrcOrigin, rect.Region, rect.SrcRowPitch, rect.SrcSlicePitch); err != nil {
				return err
			}
			return validateRect("destination", int64(len(d.data)), rect.DstOrigin, rect.Region, rect.DstRowPitch, rect.DstSlicePitch)
		},
		func() error {
			rectCopy(d.data, rect.DstOrigin, rect.DstRowPitch, rect.DstSlicePitch,
				s.data, rect.SrcOrigin, rect.SrcRowPitch, rect.SrcSlicePitch, rect.Region)
			return nil
		})
}

func (r *HostRuntime) EnqueueFillBuffer(q, id uintptr, pattern []byte, offset, size int64, wait []uintptr, enew *uintptr) error {
	var m *hostMem
	plen := int64(len(pattern))
	return r.submit(q, "fill", []uintptr{id}, wait, enew, false,
		func(ms []*hostMem) error {
			m = ms[0]
			if err := checkAccess(m); err != nil {
				return err
			}
			if plen == 0 || plen&(plen-1) != 0 || offset%plen != 0 || size%plen != 0 {
				return fmt.Errorf("pattern of %d bytes for offset %d size %d: %w", plen, offset, size, ErrInvalidValue)
			}
			return checkRange(m, offset, size)
		},
		func() error {
			region := m.data[offset : offset+size]
			for i := int64(0); i < size; i += plen {
				copy(region[i:], pattern)
			}
			return nil
		})
}

func (r *HostRuntime) EnqueueCopyBufferToImage(q, src, img uintptr, srcOffset int64, dstOrigin, region [3]int64, wait []uintptr, enew *uintptr) error {
	var s, d *hostMem
	var rect Rect
	return r.submit(q, "copy-to-image", []uintptr{src, img}, wait, enew, false,
		func(ms []*hostMem) error {
			s, d = ms[0], ms[1]
			if err := checkAccess(s); err != nil {
				return err
			}
			if d.image == nil {
				return fmt.Errorf("%w: %#x is not an image", ErrInvalidMemObject, d.id)
			}
			px := d.image.pixel
			rect = Rect{
				SrcOrigin:     [3]int64{srcOffset, 0, 0},
				DstOrigin:     [3]int64{dstOrigin[0] * px, dstOrigin[1], dstOrigin[2]},
				Region:        [3]int64{region[0] * px, region[1], region[2]},
				DstRowPitch:   d.image.rowPitch,
				DstSlicePitch: d.image.slicePitch,
			}
			rect = normalizedRect(rect)
			if err := validateRect("buffer", int64(len(s.data)), rect.SrcOrigin, rect.Region, rect.SrcRowPitch, rect.SrcSlicePitch); err != nil {
				return err
			}
			return validateRect("image", int64(len(d.data)), rect.DstOrigin, rect.Region, rect.DstRowPitch, rect.DstSlicePitch)
		},
		func() error {
			rectCopy(d.data, rect.DstOrigin, rect.DstRowPitch, rect.DstSlicePitch,
				s.data, rect.SrcOrigin, rect.SrcRowPitch, rect.SrcSlicePitch, rect.Region)
			return nil
		})
}

func (r *HostRuntime) EnqueueReadImage(q, img uintptr, block bool, origin, region [3]int64, rowPitch, slicePitch int64, dst []byte, wait []uintptr, enew *uintptr) error {
	var m *hostMem
	var rect Rect
	return r.submit(q, "read-image", []uintptr{img}, wait, enew, block,
		func(ms []*hostMem) error {
			m = ms[0]
			if m.image == nil {
				return fmt.Errorf("%w: %#x is not an image", ErrInvalidMemObject, m.id)
			}
			px := m.image.pixel
			rect = normalizedRect(Rect{
				SrcOrigin:     [3]int64{origin[0] * px, origin[1], origin[2]},
				Region:        [3]int64{region[0] * px, region[1], region[2]},
				SrcRowPitch:   m.image.rowPitch,
				SrcSlicePitch: m.image.slicePitch,
				DstRowPitch:   rowPitch,
				DstSlicePitch: slicePitch,
			})
			if err := validateRect("image", int64(len(m.data)), rect.SrcOrigin, rect.Region, rect.SrcRowPitch, rect.SrcSlicePitch); err != nil {
				return err
			}
			return validateRect("host", int64(len(dst)), rect.DstOrigin, rect.Region, rect.DstRowPitch, rect.DstSlicePitch)
		},
		func() error {
			rectCopy(dst, rect.DstOrigin, rect.DstRowPitch, rect.DstSlicePitch,
				m.data, rect.SrcOrigin, rect.SrcRowPitch, rect.SrcSlicePitch, rect.Region)
			return nil
		})
}

func (r *HostRuntime) EnqueueMapBuffer(q, id uintptr, block bool, flags MapFlags, offset, size int64, wait []uintptr, enew *uintptr) (unsafe.Pointer, error) {
	var ptr unsafe.Pointer
	err := r.submit(q, "map", []uintptr{id}, wait, enew, block,
		func(ms []*hostMem) error {
			m := ms[0]
			if err := checkAccess(m); err != nil {
				return err
			}
			if size <= 0 {
				return fmt.Errorf("map of %d bytes: %w", size, ErrInvalidValue)
			}
			if err := checkRange(m, offset, size); err != nil {
				return err
			}
			ptr = unsafe.Pointer(&m.data[offset])
			if m.maps == nil {
				m.maps = make(map[uintptr]int)
			}
			m.maps[uintptr(ptr)]++
			m.mapCount++
			return nil
		},
		func() error { return nil })
	if err != nil {
		return nil, err
	}
	return ptr, nil
}

func (r *HostRuntime) EnqueueUnmapMemObject(q, id uintptr, ptr unsafe.Pointer, wait []uintptr, enew *uintptr) error {
	return r.submit(q, "unmap", []uintptr{id}, wait, enew, false,
		func(ms []*hostMem) error {
			m := ms[0]
			key := uintptr(ptr)
			if m.maps[key] == 0 {
				return fmt.Errorf("pointer %#x not mapped from %#x: %w", key, m.id, ErrInvalidValue)
			}
			m.maps[key]--
			if m.maps[key] == 0 {
				delete(m.maps, key)
			}
			m.mapCount--
			return nil
		},
		func() error { return nil })
}

func (r *HostRuntime) EnqueueAcquireGLObjects(q uintptr, ids []uintptr, wait []uintptr, enew *uintptr) error {
	return r.submit(q, "gl-acquire", ids, wait, enew, false,
		func(ms []*hostMem) error {
			for _, m := range ms {
				if m.gl == nil {
					return fmt.Errorf("%w: %#x is not a GL object", ErrInvalidGLObject, m.id)
				}
				if m.gl.acquired {
					return fmt.Errorf("%w: GL buffer %d", ErrGLAlreadyAcquired, m.gl.name)
				}
			}
			for _, m := range ms {
				m.gl.acquired = true
			}
			return nil
		},
		func() error { return nil })
}

func (r *HostRuntime) EnqueueReleaseGLObjects(q uintptr, ids []uintptr, wait []uintptr, enew *uintptr) error {
	return r.submit(q, "gl-release", ids, wait, enew, false,
		func(ms []*hostMem) error {
			for _, m := range ms {
				if m.gl == nil {
					return fmt.Errorf("%w: %#x is not a GL object", ErrInvalidGLObject, m.id)
				}
				if !m.gl.acquired {
					return fmt.Errorf("%w: GL buffer %d", ErrGLNotAcquired, m.gl.name)
				}
			}
			for _, m := range ms {
				m.gl.acquired = false
			}
			return nil
		},
		func() error { return nil })
}

// Events

func (r *HostRuntime) newEventLocked() *hostEvent {
	e := &hostEvent{id: r.newIDLocked(), done: make(chan struct{}), refs: 1}
	r.events[e.id] = e
	return e
}

func (r *HostRuntime) releaseEventLocked(e *hostEvent) {
	e.refs--
	if e.refs <= 0 {
		delete(r.events, e.id)
	}
}

func (r *HostRuntime) WaitForEvents(ids []uintptr) error {
	r.mu.Lock()
	evs := make([]*hostEvent, 0, len(ids))
	for _, id := range ids {
		e, ok := r.events[id]
		if !ok {
			for _, held := range evs {
				r.releaseEventLocked(held)
			}
			r.mu.Unlock()
			return fmt.Errorf("%w: %#x", ErrInvalidEvent, id)
		}
		e.refs++
		evs = append(evs, e)
	}
	r.mu.Unlock()

	var firstErr error
	for _, e := range evs {
		<-e.done
		if e.err != nil && firstErr == nil {
			firstErr = e.err
		}
	}

	r.mu.Lock()
	for _, e := range evs {
		r.releaseEventLocked(e)
	}
	r.mu.Unlock()
	return firstErr
}

func (r *HostRuntime) EventComplete(id uintptr) (bool, error) {
	r.mu.Lock()
	e, ok := r.events[id]
	r.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %#x", ErrInvalidEvent, id)
	}
	select {
	case <-e.done:
		return true, e.err
	default:
		return false, nil
	}
}

func (r *HostRuntime) RetainEvent(id uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrInvalidEvent, id)
	}
	e.refs++
	return nil
}

func (r *HostRuntime) ReleaseEvent(id uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrInvalidEvent, id)
	}
	r.releaseEventLocked(e)
	return nil
}

// Close stops every queue after draining its commands and drops pooled
// storage.
func (r *HostRuntime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	queues := make([]*hostQueue, 0, len(r.queues))
	for id, hq := range r.queues {
		queues = append(queues, hq)
		delete(r.queues, id)
	}
	r.mu.Unlock()

	for _, hq := range queues {
		hq.close()
		<-hq.done
	}
	r.pool.Clear()
	r.log.Debug("host runtime closed")
	return nil
}
