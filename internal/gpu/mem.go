package gpu

import "fmt"

// Mem is a handle to a memory object on the device. Each Mem value obtained
// from a constructor or from Clone holds one runtime reference; the runtime
// destroys the object once every reference, including those held by
// in-flight commands, is released.
type Mem struct {
	rt Runtime
	id uintptr
}

// CreateBuffer allocates a buffer of size bytes in q's context. host, when
// non-nil, is copied or used according to flags.
func CreateBuffer(q Queue, flags MemFlags, size int64, host []byte) (Mem, error) {
	rt := q.Runtime()
	id, err := rt.CreateBuffer(flags, size, host)
	if err != nil {
		return Mem{}, err
	}
	return Mem{rt: rt, id: id}, nil
}

// CreateSubBuffer creates a memory object aliasing region of parent.
func CreateSubBuffer(parent Mem, flags MemFlags, region BufferRegion) (Mem, error) {
	id, err := parent.rt.CreateSubBuffer(parent.id, flags, region)
	if err != nil {
		return Mem{}, err
	}
	return Mem{rt: parent.rt, id: id}, nil
}

// CreateFromGLBuffer wraps a GL buffer object.
func CreateFromGLBuffer(q Queue, flags MemFlags, glObject uint32) (Mem, error) {
	rt := q.Runtime()
	id, err := rt.CreateFromGLBuffer(flags, glObject)
	if err != nil {
		return Mem{}, err
	}
	return Mem{rt: rt, id: id}, nil
}

// CreateImage creates an image in q's context.
func CreateImage(q Queue, flags MemFlags, format ImageFormat, desc ImageDesc) (Mem, error) {
	rt := q.Runtime()
	id, err := rt.CreateImage(flags, format, desc)
	if err != nil {
		return Mem{}, err
	}
	return Mem{rt: rt, id: id}, nil
}

// IsNull reports whether m refers to no memory object.
func (m Mem) IsNull() bool { return m.id == 0 }

// ID returns the runtime-native handle.
func (m Mem) ID() uintptr { return m.id }

// Runtime returns the runtime that owns the object.
func (m Mem) Runtime() Runtime { return m.rt }

// Clone returns a second reference to the same memory object.
func (m Mem) Clone() (Mem, error) {
	if err := m.rt.RetainMem(m.id); err != nil {
		return Mem{}, err
	}
	return m, nil
}

// Release drops this reference and resets m to the null handle.
func (m *Mem) Release() error {
	if m.IsNull() {
		return nil
	}
	err := m.rt.ReleaseMem(m.id)
	*m = Mem{}
	return err
}

// Info queries a property of the memory object.
func (m Mem) Info(kind MemInfo) MemInfoResult {
	if m.IsNull() {
		return MemInfoResult{Kind: kind, Err: ErrInvalidMemObject}
	}
	v, err := m.rt.MemInfo(m.id, kind)
	return MemInfoResult{Kind: kind, Value: v, Err: err}
}

func (m Mem) String() string {
	return fmt.Sprintf("Mem(%#x)", m.id)
}
