package buffer

import (
	"fmt"
	"strings"

	"github.com/gitter-badger/ocl/internal/gpu"
)

// Buffer is a device memory object holding Len() elements of type T. It
// keeps a default queue for the commands it builds.
type Buffer[T Prm] struct {
	mem   gpu.Mem
	queue gpu.Queue
	dims  gpu.SpatialDims
	len   int
	flags gpu.MemFlags
}

// New creates a buffer of dims.ToLen() elements in queue's context. flags
// defaults to MemReadWrite. When data is given it must hold exactly that
// many elements and is copied in; otherwise the buffer is cleared to zero
// with the configured ZeroFill strategy before New returns.
func New[T Prm](queue gpu.Queue, flags *gpu.MemFlags, dims gpu.SpatialDims, data []T, opts ...Option) (*Buffer[T], error) {
	o := newOptions(opts)

	f := gpu.MemReadWrite
	if flags != nil {
		f = *flags
	}
	n := dims.ToLen()

	if data != nil {
		if len(data) != n {
			return nil, fmt.Errorf("%w: got %d elements, dims %s hold %d", ErrDataLength, len(data), dims, n)
		}
		if f&(gpu.MemUseHostPtr|gpu.MemCopyHostPtr) == 0 {
			f |= gpu.MemCopyHostPtr
		}
	}

	mem, err := gpu.CreateBuffer(queue, f, int64(n*sizeOf[T]()), asBytes(data))
	if err != nil {
		return nil, err
	}

	buf := &Buffer[T]{
		mem:   mem,
		queue: queue.Clone(),
		dims:  dims,
		len:   n,
		flags: f,
	}

	if data == nil {
		if err := buf.zeroFill(o.zeroFill); err != nil {
			buf.Release()
			return nil, fmt.Errorf("zero-filling buffer: %w", err)
		}
	}

	log.WithField("len", n).WithField("flags", f.String()).Debug("Created buffer")
	return buf, nil
}

// zeroFill clears the whole buffer and waits for it to finish.
func (b *Buffer[T]) zeroFill(z ZeroFill) error {
	switch z {
	case ZeroFillHostWrite:
		return b.Cmd().Write(make([]T, b.len)).Enq()
	default:
		var ev gpu.Event
		var zero T
		if err := b.Cmd().Fill(zero, nil).Enew(&ev).Enq(); err != nil {
			return err
		}
		defer ev.Release()
		return ev.Wait()
	}
}

// FromGLBuffer wraps the GL buffer object glObject. The contents are left
// as they are.
func FromGLBuffer[T Prm](queue gpu.Queue, flags *gpu.MemFlags, dims gpu.SpatialDims, glObject uint32) (*Buffer[T], error) {
	f := gpu.MemReadWrite
	if flags != nil {
		f = *flags
	}
	mem, err := gpu.CreateFromGLBuffer(queue, f, glObject)
	if err != nil {
		return nil, err
	}
	return &Buffer[T]{
		mem:   mem,
		queue: queue.Clone(),
		dims:  dims,
		len:   dims.ToLen(),
		flags: f,
	}, nil
}

// Cmd returns a command builder for this buffer on its default queue.
func (b *Buffer[T]) Cmd() *Cmd[T] {
	return newCmd[T](b.queue, b.mem, b.len)
}

// Read returns a blocking read command into dst.
func (b *Buffer[T]) Read(dst []T) *Cmd[T] {
	return b.Cmd().Read(dst)
}

// Write returns a write command from src.
func (b *Buffer[T]) Write(src []T) *Cmd[T] {
	return b.Cmd().Write(src)
}

// Len returns the number of elements.
func (b *Buffer[T]) Len() int { return b.len }

func (b *Buffer[T]) Dims() gpu.SpatialDims { return b.dims }

func (b *Buffer[T]) Flags() gpu.MemFlags { return b.flags }

func (b *Buffer[T]) Mem() gpu.Mem { return b.mem }

func (b *Buffer[T]) DefaultQueue() gpu.Queue { return b.queue }

// SetDefaultQueue makes q the queue used by Cmd, Read and Write.
func (b *Buffer[T]) SetDefaultQueue(q gpu.Queue) *Buffer[T] {
	old := b.queue
	b.queue = q.Clone()
	old.Release()
	return b
}

// MemInfo queries a property of the memory object.
func (b *Buffer[T]) MemInfo(kind gpu.MemInfo) gpu.MemInfoResult {
	return b.mem.Info(kind)
}

// CreateSubBuffer creates a sub-buffer of size elements starting at
// origin. See NewSubBuffer.
func (b *Buffer[T]) CreateSubBuffer(flags *gpu.MemFlags, origin, size gpu.SpatialDims) (*SubBuffer[T], error) {
	return NewSubBuffer(b, flags, origin, size)
}

// Release drops the buffer's references to its memory object and default
// queue. Commands already submitted keep their own references.
func (b *Buffer[T]) Release() error {
	err := b.mem.Release()
	if qerr := b.queue.Release(); err == nil {
		err = qerr
	}
	return err
}

func (b *Buffer[T]) memRef() memHandle[T] { return memHandle[T]{mem: b.mem} }

func (b *Buffer[T]) String() string {
	return fmt.Sprintf("Buffer { %s }", formatMemInfo(b.mem))
}

func formatMemInfo(m gpu.Mem) string {
	parts := make([]string, 0, len(gpu.AllMemInfo))
	for _, kind := range gpu.AllMemInfo {
		parts = append(parts, fmt.Sprintf("%s: %s", kind, m.Info(kind)))
	}
	return strings.Join(parts, ", ")
}
