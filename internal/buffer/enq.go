package buffer

import (
	"github.com/sirupsen/logrus"

	"github.com/gitter-badger/ocl/internal/gpu"
	"github.com/gitter-badger/ocl/internal/logging"
)

var log = logging.WithComponent("buffer")

func (c *Cmd[T]) consume(method string) {
	c.live(method)
	c.consumed = true
}

func (c *Cmd[T]) logSubmit() {
	if !log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	log.WithFields(logrus.Fields{
		"kind":  c.Kind().String(),
		"shape": c.shape.String(),
		"block": c.block,
		"mem":   c.mem.String(),
	}).Debug("Enqueue command")
}

// Enq submits the command. Map commands must use EnqMap instead.
func (c *Cmd[T]) Enq() error {
	c.consume("Enq")

	if c.op == nil {
		return ErrNoOperation
	}
	sz := sizeOf[T]()

	switch op := c.op.(type) {
	case *readOp[T]:
		switch s := c.shape.(type) {
		case LinearShape:
			if err := checkLen(c.memLen, len(op.data), s.Offset); err != nil {
				return err
			}
			c.logSubmit()
			return gpu.EnqueueReadBuffer(c.queue, c.mem, c.block, int64(s.Offset*sz),
				asBytes(op.data), c.ewait, c.enew)
		case RectShape:
			c.logSubmit()
			return gpu.EnqueueReadBufferRect(c.queue, c.mem, c.block, s.bytes(sz),
				asBytes(op.data), c.ewait, c.enew)
		}

	case *writeOp[T]:
		switch s := c.shape.(type) {
		case LinearShape:
			if err := checkLen(c.memLen, len(op.data), s.Offset); err != nil {
				return err
			}
			c.logSubmit()
			return gpu.EnqueueWriteBuffer(c.queue, c.mem, c.block, int64(s.Offset*sz),
				asBytes(op.data), c.ewait, c.enew)
		case RectShape:
			c.logSubmit()
			return gpu.EnqueueWriteBufferRect(c.queue, c.mem, c.block, s.bytes(sz),
				asBytes(op.data), c.ewait, c.enew)
		}

	case *copyOp:
		switch s := c.shape.(type) {
		case LinearShape:
			n := c.memLen
			if op.length != nil {
				n = *op.length
			}
			if err := checkLen(c.memLen, n, s.Offset); err != nil {
				return err
			}
			dstOffset := 0
			if op.dstOffset != nil {
				dstOffset = *op.dstOffset
			}
			c.logSubmit()
			return gpu.EnqueueCopyBuffer(c.queue, c.mem, op.dst, int64(s.Offset*sz),
				int64(dstOffset*sz), int64(n*sz), c.ewait, c.enew)
		case RectShape:
			if op.dstOffset != nil || op.length != nil {
				return ErrRectCopyArgs
			}
			c.logSubmit()
			return gpu.EnqueueCopyBufferRect(c.queue, c.mem, op.dst, s.bytes(sz), c.ewait, c.enew)
		}

	case *fillOp[T]:
		s, ok := c.shape.(LinearShape)
		if !ok {
			return ErrRectFill
		}
		n := c.memLen
		if op.length != nil {
			n = *op.length
		}
		if err := checkLen(c.memLen, n, s.Offset); err != nil {
			return err
		}
		c.logSubmit()
		return gpu.EnqueueFillBuffer(c.queue, c.mem, asBytes([]T{op.pattern}),
			int64(s.Offset*sz), int64(n*sz), c.ewait, c.enew)

	case *copyToImageOp:
		s, ok := c.shape.(LinearShape)
		if !ok {
			return ErrRectCopyToImage
		}
		if err := checkLen(c.memLen, 0, s.Offset); err != nil {
			return err
		}
		c.logSubmit()
		return gpu.EnqueueCopyBufferToImage(c.queue, c.mem, op.image, int64(s.Offset*sz),
			op.dstOrigin, op.region, c.ewait, c.enew)

	case glAcquireOp:
		c.logSubmit()
		return gpu.EnqueueAcquireGLObjects(c.queue, []gpu.Mem{c.mem}, c.ewait, c.enew)

	case glReleaseOp:
		c.logSubmit()
		return gpu.EnqueueReleaseGLObjects(c.queue, []gpu.Mem{c.mem}, c.ewait, c.enew)

	case *mapOp:
		return ErrUseEnqMap
	}

	panic("buffer.Cmd.Enq: unhandled command " + c.Kind().String() + " " + c.shape.String())
}

// EnqMap submits a map command and returns the mapped region. The
// mapping is released through the queue that mapped it unless DeferRelease
// is called on the result.
func (c *Cmd[T]) EnqMap() (*MappedMem[T], error) {
	c.consume("EnqMap")

	if c.op == nil {
		return nil, ErrNoOperation
	}
	op, ok := c.op.(*mapOp)
	if !ok {
		return nil, ErrUseEnq
	}
	s, ok := c.shape.(LinearShape)
	if !ok {
		return nil, ErrRectMap
	}

	n := c.memLen
	if op.length != nil {
		n = *op.length
	}
	if err := checkLen(c.memLen, n, s.Offset); err != nil {
		return nil, err
	}
	var flags gpu.MapFlags
	if op.flags != nil {
		flags = *op.flags
	}

	sz := sizeOf[T]()
	c.logSubmit()
	view, err := gpu.EnqueueMapBuffer(c.queue, c.mem, c.block, flags, int64(s.Offset*sz),
		int64(n*sz), c.ewait, c.enew)
	if err != nil {
		return nil, err
	}
	return WrapMapped[T](view), nil
}
