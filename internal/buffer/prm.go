package buffer

import "unsafe"

// Prm is the set of element types a buffer may hold: fixed-size numeric
// values that can be copied to and from the device bit for bit.
type Prm interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// sizeOf returns the size of T in bytes.
func sizeOf[T Prm]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// asBytes reinterprets s as its underlying bytes without copying.
func asBytes[T Prm](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*sizeOf[T]())
}

// Some returns a pointer to v, for the optional arguments of the command
// builder and constructors.
func Some[V any](v V) *V {
	return &v
}
