package buffer

import (
	"fmt"

	"github.com/gitter-badger/ocl/internal/gpu"
)

// CmdKind is the operation a command performs.
type CmdKind int

const (
	KindUnset CmdKind = iota
	KindRead
	KindWrite
	KindMap
	KindCopy
	KindFill
	KindCopyToImage
	KindGLAcquire
	KindGLRelease
)

func (k CmdKind) String() string {
	switch k {
	case KindUnset:
		return "Unset"
	case KindRead:
		return "Read"
	case KindWrite:
		return "Write"
	case KindMap:
		return "Map"
	case KindCopy:
		return "Copy"
	case KindFill:
		return "Fill"
	case KindCopyToImage:
		return "CopyToImage"
	case KindGLAcquire:
		return "GLAcquire"
	case KindGLRelease:
		return "GLRelease"
	default:
		return fmt.Sprintf("CmdKind(%d)", int(k))
	}
}

// cmdOp holds the parameters of one operation kind. A nil cmdOp is unset.
type cmdOp interface {
	kind() CmdKind
}

type readOp[T Prm] struct{ data []T }
type writeOp[T Prm] struct{ data []T }

type mapOp struct {
	flags  *gpu.MapFlags
	length *int
}

type copyOp struct {
	dst       gpu.Mem
	dstOffset *int
	length    *int
}

type fillOp[T Prm] struct {
	pattern T
	length  *int
}

type copyToImageOp struct {
	image     gpu.Mem
	dstOrigin [3]int64
	region    [3]int64
}

type glAcquireOp struct{}
type glReleaseOp struct{}

func (*readOp[T]) kind() CmdKind     { return KindRead }
func (*writeOp[T]) kind() CmdKind    { return KindWrite }
func (*mapOp) kind() CmdKind         { return KindMap }
func (*copyOp) kind() CmdKind        { return KindCopy }
func (*fillOp[T]) kind() CmdKind     { return KindFill }
func (*copyToImageOp) kind() CmdKind { return KindCopyToImage }
func (glAcquireOp) kind() CmdKind    { return KindGLAcquire }
func (glReleaseOp) kind() CmdKind    { return KindGLRelease }

// CmdShape is the addressing shape of a command: LinearShape or RectShape.
type CmdShape interface {
	fmt.Stringer
	isShape()
}

// LinearShape addresses a contiguous run of elements starting at Offset.
type LinearShape struct {
	Offset int
}

// RectShape addresses a rectangular region. Origin[0], Region[0] and the
// pitches count elements; Origin[1..2] count rows and slices. Src describes
// the buffer the command was built on.
type RectShape struct {
	SrcOrigin     [3]int
	DstOrigin     [3]int
	Region        [3]int
	SrcRowPitch   int
	SrcSlicePitch int
	DstRowPitch   int
	DstSlicePitch int
}

func (LinearShape) isShape() {}
func (RectShape) isShape()   {}

func (s LinearShape) String() string { return fmt.Sprintf("Linear(offset=%d)", s.Offset) }

func (s RectShape) String() string {
	return fmt.Sprintf("Rect(src=%v, dst=%v, region=%v)", s.SrcOrigin, s.DstOrigin, s.Region)
}

// bytes converts the shape to a byte-addressed gpu.Rect for elements of
// size bytes.
func (s RectShape) bytes(size int) gpu.Rect {
	conv := func(v [3]int) [3]int64 {
		return [3]int64{int64(v[0] * size), int64(v[1]), int64(v[2])}
	}
	return gpu.Rect{
		SrcOrigin:     conv(s.SrcOrigin),
		DstOrigin:     conv(s.DstOrigin),
		Region:        conv(s.Region),
		SrcRowPitch:   int64(s.SrcRowPitch * size),
		SrcSlicePitch: int64(s.SrcSlicePitch * size),
		DstRowPitch:   int64(s.DstRowPitch * size),
		DstSlicePitch: int64(s.DstSlicePitch * size),
	}
}

// MemRef is a memory object holding elements of type T that can be the
// destination of a copy. *Buffer[T] and *SubBuffer[T] implement it.
type MemRef[T Prm] interface {
	memRef() memHandle[T]
}

type memHandle[T Prm] struct {
	mem gpu.Mem
}

// Cmd builds a single command against one memory object. Configure it with
// the chained methods, select exactly one operation kind, then submit it
// with Enq or, for maps, EnqMap. A Cmd can be submitted once; any call
// after that panics, as do the configuration errors noted on each method.
type Cmd[T Prm] struct {
	queue  gpu.Queue
	mem    gpu.Mem
	memLen int

	block     bool
	lockBlock bool
	op        cmdOp
	shape     CmdShape
	ewait     gpu.WaitList
	enew      *gpu.Event

	consumed bool
}

func newCmd[T Prm](queue gpu.Queue, mem gpu.Mem, memLen int) *Cmd[T] {
	return &Cmd[T]{
		queue:  queue,
		mem:    mem,
		memLen: memLen,
		block:  true,
		shape:  LinearShape{},
	}
}

func (c *Cmd[T]) live(method string) {
	if c.consumed {
		panic(fmt.Sprintf("buffer.Cmd.%s: command already enqueued", method))
	}
}

func (c *Cmd[T]) setOp(method string, op cmdOp) {
	c.live(method)
	if c.op != nil {
		panic(fmt.Sprintf("buffer.Cmd.%s: operation kind already set to %s", method, c.op.kind()))
	}
	c.op = op
}

// Kind returns the selected operation kind.
func (c *Cmd[T]) Kind() CmdKind {
	if c.op == nil {
		return KindUnset
	}
	return c.op.kind()
}

// Shape returns the addressing shape.
func (c *Cmd[T]) Shape() CmdShape { return c.shape }

// IsBlocking reports whether the command waits for completion.
func (c *Cmd[T]) IsBlocking() bool { return c.block }

// Queue submits this command to q instead of the default queue.
func (c *Cmd[T]) Queue(q gpu.Queue) *Cmd[T] {
	c.live("Queue")
	c.queue = q
	return c
}

// Block sets whether Enq waits for the command to complete. It panics if
// asked to disable blocking after Read.
func (c *Cmd[T]) Block(block bool) *Cmd[T] {
	c.live("Block")
	if !block && c.lockBlock {
		panic("buffer.Cmd.Block: blocking was locked on by Read, use ReadAsync for a non-blocking read")
	}
	c.block = block
	return c
}

// Offset sets the element offset of a linear command. It panics if Rect was
// already called.
func (c *Cmd[T]) Offset(offset int) *Cmd[T] {
	c.live("Offset")
	if _, ok := c.shape.(RectShape); ok {
		panic("buffer.Cmd.Offset: command already set to rectangular mode with Rect, Offset and Rect cannot be combined")
	}
	c.shape = LinearShape{Offset: offset}
	return c
}

// Rect makes this a rectangular command. Only read, write and copy accept
// this shape. It panics if a non-zero Offset was already set.
func (c *Cmd[T]) Rect(srcOrigin, dstOrigin, region [3]int, srcRowPitch, srcSlicePitch, dstRowPitch, dstSlicePitch int) *Cmd[T] {
	c.live("Rect")
	if lin, ok := c.shape.(LinearShape); ok && lin.Offset != 0 {
		panic("buffer.Cmd.Rect: command already set to linear mode with Offset, Offset and Rect cannot be combined")
	}
	c.shape = RectShape{
		SrcOrigin:     srcOrigin,
		DstOrigin:     dstOrigin,
		Region:        region,
		SrcRowPitch:   srcRowPitch,
		SrcSlicePitch: srcSlicePitch,
		DstRowPitch:   dstRowPitch,
		DstSlicePitch: dstSlicePitch,
	}
	return c
}

// Read reads into dst. The command blocks, and Block(false) afterwards
// panics.
func (c *Cmd[T]) Read(dst []T) *Cmd[T] {
	c.setOp("Read", &readOp[T]{data: dst})
	c.block = true
	c.lockBlock = true
	return c
}

// ReadAsync reads into dst without blocking. dst must not be touched until
// the command's event completes. Block(true) turns it into Read.
func (c *Cmd[T]) ReadAsync(dst []T) *Cmd[T] {
	c.setOp("ReadAsync", &readOp[T]{data: dst})
	c.block = false
	return c
}

// Write writes src.
func (c *Cmd[T]) Write(src []T) *Cmd[T] {
	c.setOp("Write", &writeOp[T]{data: src})
	return c
}

// Map maps length elements (default: the whole buffer) with flags. Submit it
// with EnqMap.
func (c *Cmd[T]) Map(flags *gpu.MapFlags, length *int) *Cmd[T] {
	c.setOp("Map", &mapOp{flags: flags, length: length})
	return c
}

// Copy copies length elements (default: the whole buffer) to dst at dstOffset
// (default 0). Rectangular copies must leave both nil. Block is ignored.
func (c *Cmd[T]) Copy(dst MemRef[T], dstOffset, length *int) *Cmd[T] {
	c.setOp("Copy", &copyOp{dst: dst.memRef().mem, dstOffset: dstOffset, length: length})
	return c
}

// CopyToImage copies tightly packed pixels starting at the command's offset
// into region of image at dstOrigin, both in pixels. Block is ignored.
func (c *Cmd[T]) CopyToImage(image gpu.Mem, dstOrigin, region [3]int) *Cmd[T] {
	op := &copyToImageOp{image: image}
	for i := range dstOrigin {
		op.dstOrigin[i] = int64(dstOrigin[i])
		op.region[i] = int64(region[i])
	}
	c.setOp("CopyToImage", op)
	return c
}

// GLAcquire acquires the GL buffer this memory object wraps. Shape and Block
// are ignored.
func (c *Cmd[T]) GLAcquire() *Cmd[T] {
	c.setOp("GLAcquire", glAcquireOp{})
	return c
}

// GLRelease releases the GL buffer this memory object wraps. Shape and Block
// are ignored.
func (c *Cmd[T]) GLRelease() *Cmd[T] {
	c.setOp("GLRelease", glReleaseOp{})
	return c
}

// Fill repeats pattern over length elements (default: the whole buffer).
// Fill is linear only. Block is ignored.
func (c *Cmd[T]) Fill(pattern T, length *int) *Cmd[T] {
	c.setOp("Fill", &fillOp[T]{pattern: pattern, length: length})
	return c
}

// Ewait makes the command wait on wl.
func (c *Cmd[T]) Ewait(wl gpu.WaitList) *Cmd[T] {
	c.live("Ewait")
	c.ewait = wl
	return c
}

// EwaitOpt sets or, with nil, clears the wait list.
func (c *Cmd[T]) EwaitOpt(wl gpu.WaitList) *Cmd[T] {
	c.live("EwaitOpt")
	c.ewait = wl
	return c
}

// Enew stores the command's completion event in enew on submission.
func (c *Cmd[T]) Enew(enew *gpu.Event) *Cmd[T] {
	c.live("Enew")
	c.enew = enew
	return c
}

// EnewOpt sets or, with nil, clears the completion event slot.
func (c *Cmd[T]) EnewOpt(enew *gpu.Event) *Cmd[T] {
	c.live("EnewOpt")
	c.enew = enew
	return c
}
