package buffer

import (
	"fmt"

	"github.com/gitter-badger/ocl/internal/gpu"
)

// SubBuffer is a memory object aliasing a region of a Buffer. It shares
// storage with the parent, which the runtime keeps alive for as long as
// the sub-buffer exists.
type SubBuffer[T Prm] struct {
	mem    gpu.Mem
	queue  gpu.Queue
	origin gpu.SpatialDims
	dims   gpu.SpatialDims
	len    int
	flags  gpu.MemFlags
}

// NewSubBuffer creates a sub-buffer of size.ToLen() elements starting at
// element origin.ToLen() of buf. flags defaults to MemReadWrite. The
// runtime may reject origins that are not aligned to the device's base
// address alignment.
func NewSubBuffer[T Prm](buf *Buffer[T], flags *gpu.MemFlags, origin, size gpu.SpatialDims) (*SubBuffer[T], error) {
	f := gpu.MemReadWrite
	if flags != nil {
		f = *flags
	}

	originLen := origin.ToLen()
	sizeLen := size.ToLen()
	if originLen > buf.Len() {
		return nil, fmt.Errorf("%w: origin %d, buffer length %d", ErrSubBufferOrigin, originLen, buf.Len())
	}
	if originLen+sizeLen > buf.Len() {
		return nil, fmt.Errorf("%w: origin %d + size %d, buffer length %d",
			ErrSubBufferRegion, originLen, sizeLen, buf.Len())
	}

	sz := int64(sizeOf[T]())
	mem, err := gpu.CreateSubBuffer(buf.mem, f, gpu.BufferRegion{
		Origin: int64(originLen) * sz,
		Size:   int64(sizeLen) * sz,
	})
	if err != nil {
		return nil, err
	}

	return &SubBuffer[T]{
		mem:    mem,
		queue:  buf.queue.Clone(),
		origin: origin,
		dims:   size,
		len:    sizeLen,
		flags:  f,
	}, nil
}

// Cmd returns a command builder for this sub-buffer on its default queue.
func (s *SubBuffer[T]) Cmd() *Cmd[T] {
	return newCmd[T](s.queue, s.mem, s.len)
}

// Read returns a blocking read command into dst.
func (s *SubBuffer[T]) Read(dst []T) *Cmd[T] {
	return s.Cmd().Read(dst)
}

// Write returns a write command from src.
func (s *SubBuffer[T]) Write(src []T) *Cmd[T] {
	return s.Cmd().Write(src)
}

// Origin returns the position of the sub-buffer within its parent.
func (s *SubBuffer[T]) Origin() gpu.SpatialDims { return s.origin }

func (s *SubBuffer[T]) Dims() gpu.SpatialDims { return s.dims }

func (s *SubBuffer[T]) Len() int { return s.len }

func (s *SubBuffer[T]) Flags() gpu.MemFlags { return s.flags }

func (s *SubBuffer[T]) Mem() gpu.Mem { return s.mem }

func (s *SubBuffer[T]) DefaultQueue() gpu.Queue { return s.queue }

// SetDefaultQueue makes q the queue used by Cmd, Read and Write.
func (s *SubBuffer[T]) SetDefaultQueue(q gpu.Queue) *SubBuffer[T] {
	old := s.queue
	s.queue = q.Clone()
	old.Release()
	return s
}

func (s *SubBuffer[T]) MemInfo(kind gpu.MemInfo) gpu.MemInfoResult {
	return s.mem.Info(kind)
}

// Release drops the sub-buffer's references to its memory object and
// default queue.
func (s *SubBuffer[T]) Release() error {
	err := s.mem.Release()
	if qerr := s.queue.Release(); err == nil {
		err = qerr
	}
	return err
}

func (s *SubBuffer[T]) memRef() memHandle[T] { return memHandle[T]{mem: s.mem} }

func (s *SubBuffer[T]) String() string {
	return fmt.Sprintf("SubBuffer { origin: %s, %s }", s.origin, formatMemInfo(s.mem))
}
