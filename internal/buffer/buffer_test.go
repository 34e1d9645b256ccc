package buffer

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gitter-badger/ocl/internal/gpu"
)

func TestNewWithData(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})

	data := []int32{1, 2, 3, 4, 5, 6}
	buf, err := New(q, nil, gpu.Dims2(3, 2), data)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer buf.Release()

	if buf.Len() != 6 {
		t.Errorf("Expected length 6, got %d", buf.Len())
	}
	if !buf.Flags().Has(gpu.MemReadWrite | gpu.MemCopyHostPtr) {
		t.Errorf("Expected READ_WRITE|COPY_HOST_PTR, got %s", buf.Flags())
	}

	got := make([]int32, 6)
	if err := buf.Read(got).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("Data mismatch at %d: got %d, want %d", i, got[i], data[i])
		}
	}

	// The buffer owns a copy of the data
	data[0] = 100
	if err := buf.Read(got).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[0] != 1 {
		t.Errorf("Buffer changed with host data: %d", got[0])
	}
}

func TestNewErrors(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})

	if _, err := New(q, nil, gpu.Dims1(8), make([]float32, 4)); !errors.Is(err, ErrDataLength) {
		t.Errorf("Expected ErrDataLength, got %v", err)
	}
	if _, err := New[float32](q, nil, gpu.Dims1(0), nil); !errors.Is(err, gpu.ErrInvalidBufferSize) {
		t.Errorf("Expected gpu.ErrInvalidBufferSize for empty buffer, got %v", err)
	}
	flags := gpu.MemReadWrite | gpu.MemUseHostPtr
	if _, err := New[float32](q, &flags, gpu.Dims1(8), nil); !errors.Is(err, gpu.ErrInvalidHostPtr) {
		t.Errorf("Expected gpu.ErrInvalidHostPtr, got %v", err)
	}
}

func TestNewZeroFill(t *testing.T) {
	for _, z := range []ZeroFill{ZeroFillDevice, ZeroFillHostWrite} {
		t.Run(z.String(), func(t *testing.T) {
			// Recycled storage keeps old contents, so only the fill can zero it
			rt, q := newTestQueue(t, gpu.HostOptions{DirtyReuse: true})

			dirty, err := New(q, nil, gpu.Dims1(64), fillSlice(64, float64(7)))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			dirty.Release()

			// A raw allocation of the same size sees the stale data
			raw, err := gpu.CreateBuffer(q, gpu.MemReadWrite, 64*8, nil)
			if err != nil {
				t.Fatalf("CreateBuffer failed: %v", err)
			}
			stale := make([]byte, 64*8)
			if err := gpu.EnqueueReadBuffer(q, raw, true, 0, stale, nil, nil); err != nil {
				t.Fatalf("EnqueueReadBuffer failed: %v", err)
			}
			raw.Release()
			if !slices.ContainsFunc(stale, func(b byte) bool { return b != 0 }) {
				t.Fatal("Recycled storage was cleared, zero fill is not being tested")
			}

			reuses := rt.PoolStats().Reuses
			buf, err := New[float64](q, nil, gpu.Dims1(64), nil, WithZeroFill(z))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer buf.Release()
			if rt.PoolStats().Reuses != reuses+1 {
				t.Fatalf("New did not reuse the dirty storage, stats %+v", rt.PoolStats())
			}

			got := fillSlice(64, float64(-1))
			if err := buf.Read(got).Enq(); err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			for i, v := range got {
				if v != 0 {
					t.Fatalf("Element %d = %v, want 0", i, v)
				}
			}
		})
	}
}

func TestZeroFillStrategies(t *testing.T) {
	// A 1.1 device cannot fill, so only the host write strategy works
	_, q := newTestQueue(t, gpu.HostOptions{Version: gpu.DeviceVersion{Major: 1, Minor: 1}})

	if _, err := New[uint16](q, nil, gpu.Dims1(32), nil, WithZeroFill(ZeroFillDevice)); !errors.Is(err, gpu.ErrVersionTooLow) {
		t.Errorf("Expected gpu.ErrVersionTooLow for device fill, got %v", err)
	}

	buf, err := New[uint16](q, nil, gpu.Dims1(32), nil, WithZeroFill(ZeroFillHostWrite))
	if err != nil {
		t.Fatalf("Host write zero fill failed: %v", err)
	}
	buf.Release()

	prev := DefaultZeroFill()
	t.Cleanup(func() { SetDefaultZeroFill(prev) })

	SetDefaultZeroFill(ZeroFillHostWrite)
	buf, err = New[uint16](q, nil, gpu.Dims1(32), nil)
	if err != nil {
		t.Fatalf("New with host write default failed: %v", err)
	}
	buf.Release()
}

func TestParseZeroFill(t *testing.T) {
	tests := []struct {
		in      string
		want    ZeroFill
		wantErr bool
	}{
		{"default", BuildZeroFill(), false},
		{"", BuildZeroFill(), false},
		{"device", ZeroFillDevice, false},
		{"host_write", ZeroFillHostWrite, false},
		{"never", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseZeroFill(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseZeroFill(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseZeroFill(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBufferReadWriteOffset(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})
	buf := newTestBuffer(t, q, 10)

	if err := buf.Cmd().Offset(5).Write([]float32{1, 2, 3, 4, 5}).Enq(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := make([]float32, 3)
	if err := buf.Cmd().Offset(6).Read(got).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[0] != 2 || got[1] != 3 || got[2] != 4 {
		t.Errorf("Expected [2 3 4], got %v", got)
	}
}

func TestBufferReadAsync(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})
	buf, err := New(q, nil, gpu.Dims1(4), []uint32{9, 8, 7, 6})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer buf.Release()

	got := make([]uint32, 4)
	var ev gpu.Event
	if err := buf.Cmd().ReadAsync(got).Enew(&ev).Enq(); err != nil {
		t.Fatalf("ReadAsync failed: %v", err)
	}
	defer ev.Release()

	if ev.IsNull() {
		t.Fatal("Expected a completion event")
	}
	if err := ev.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got[0] != 9 || got[3] != 6 {
		t.Errorf("Expected [9 8 7 6], got %v", got)
	}
}

func TestBufferRect(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})
	buf, err := New[float32](q, nil, gpu.Dims2(4, 4), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer buf.Release()

	// 2x2 block at column 1, row 1 of a 4x4 grid
	src := []float32{1, 2, 3, 4}
	err = buf.Cmd().
		Rect([3]int{1, 1, 0}, [3]int{0, 0, 0}, [3]int{2, 2, 1}, 4, 16, 2, 4).
		Write(src).Enq()
	if err != nil {
		t.Fatalf("Rect write failed: %v", err)
	}

	all := make([]float32, 16)
	if err := buf.Read(all).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := map[int]float32{5: 1, 6: 2, 9: 3, 10: 4}
	for i, v := range all {
		if v != want[i] {
			t.Fatalf("Element %d = %v, want %v (grid %v)", i, v, want[i], all)
		}
	}

	// Read the block back into the corner of a 3x3 host grid
	dst := make([]float32, 9)
	err = buf.Cmd().
		Rect([3]int{1, 1, 0}, [3]int{1, 1, 0}, [3]int{2, 2, 1}, 4, 16, 3, 9).
		Read(dst).Enq()
	if err != nil {
		t.Fatalf("Rect read failed: %v", err)
	}
	if dst[4] != 1 || dst[5] != 2 || dst[7] != 3 || dst[8] != 4 || dst[0] != 0 {
		t.Errorf("Rect read wrong: %v", dst)
	}
}

func TestBufferCopy(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})
	src, err := New(q, nil, gpu.Dims1(8), []int64{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer src.Release()
	dst, err := New[int64](q, nil, gpu.Dims1(8), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer dst.Release()

	if err := src.Cmd().Offset(2).Copy(dst, Some(4), Some(3)).Enq(); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	got := make([]int64, 8)
	if err := dst.Read(got).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := []int64{0, 0, 0, 0, 3, 4, 5, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}

	// Whole-buffer copy with defaults
	var ev gpu.Event
	if err := src.Cmd().Copy(dst, nil, nil).Enew(&ev).Enq(); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	defer ev.Release()
	if err := ev.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if err := dst.Read(got).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[0] != 1 || got[7] != 8 {
		t.Errorf("Full copy wrong: %v", got)
	}
}

func TestBufferRectCopy(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})
	src, _ := New(q, nil, gpu.Dims2(3, 3), []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9})
	defer src.Release()
	dst, _ := New[uint8](q, nil, gpu.Dims2(3, 3), nil)
	defer dst.Release()

	err := src.Cmd().
		Rect([3]int{1, 1, 0}, [3]int{0, 0, 0}, [3]int{2, 2, 1}, 3, 9, 3, 9).
		Copy(dst, nil, nil).Enq()
	if err != nil {
		t.Fatalf("Rect copy failed: %v", err)
	}

	got := make([]uint8, 9)
	if err := dst.Read(got).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := []uint8{5, 6, 0, 8, 9, 0, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestBufferFill(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})
	buf, err := New[int16](q, nil, gpu.Dims1(8), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer buf.Release()

	if err := buf.Cmd().Offset(2).Fill(-3, Some(4)).Enq(); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	got := make([]int16, 8)
	if err := buf.Read(got).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := []int16{0, 0, -3, -3, -3, -3, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestBufferCopyToImage(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})

	format := gpu.ImageFormat{ChannelOrder: gpu.ChannelOrderR, ChannelType: gpu.ChannelTypeUint8}
	img, err := gpu.CreateImage(q, gpu.MemReadWrite, format, gpu.ImageDesc{Type: gpu.MemObjectImage2D, Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("CreateImage failed: %v", err)
	}
	defer img.Release()

	buf, err := New(q, nil, gpu.Dims1(6), []uint8{0, 0, 1, 2, 3, 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer buf.Release()

	if err := buf.Cmd().Offset(2).CopyToImage(img, [3]int{1, 1, 0}, [3]int{2, 2, 1}).Enq(); err != nil {
		t.Fatalf("CopyToImage failed: %v", err)
	}

	got := make([]byte, 16)
	if err := gpu.EnqueueReadImage(q, img, true, [3]int64{}, [3]int64{4, 4, 1}, 0, 0, got, nil, nil); err != nil {
		t.Fatalf("EnqueueReadImage failed: %v", err)
	}
	if got[5] != 1 || got[6] != 2 || got[9] != 3 || got[10] != 4 || got[0] != 0 {
		t.Errorf("Image contents wrong: %v", got)
	}
}

func TestBufferGL(t *testing.T) {
	rt, q := newTestQueue(t, gpu.HostOptions{})

	name := rt.NewGLBuffer(64)
	buf, err := FromGLBuffer[float32](q, nil, gpu.Dims1(16), name)
	if err != nil {
		t.Fatalf("FromGLBuffer failed: %v", err)
	}
	defer buf.Release()

	if buf.Len() != 16 {
		t.Errorf("Expected length 16, got %d", buf.Len())
	}
	if err := buf.Write([]float32{1}).Enq(); !errors.Is(err, gpu.ErrGLNotAcquired) {
		t.Errorf("Expected gpu.ErrGLNotAcquired, got %v", err)
	}

	// Shape and blocking are ignored for GL commands
	if err := buf.Cmd().Offset(3).Block(false).GLAcquire().Enq(); err != nil {
		t.Fatalf("GLAcquire failed: %v", err)
	}
	if err := buf.Write([]float32{1}).Enq(); err != nil {
		t.Errorf("Write after acquire failed: %v", err)
	}
	var ev gpu.Event
	if err := buf.Cmd().GLRelease().Enew(&ev).Enq(); err != nil {
		t.Fatalf("GLRelease failed: %v", err)
	}
	defer ev.Release()
	if err := ev.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}

func TestBufferQueues(t *testing.T) {
	rt, q1 := newTestQueue(t, gpu.HostOptions{})
	q2, err := gpu.NewQueue(rt, 0)
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	defer q2.Release()

	buf := newTestBuffer(t, q1, 4)

	var written gpu.Event
	if err := buf.Cmd().Block(false).Write([]float32{1, 2, 3, 4}).Enew(&written).Enq(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	defer written.Release()

	got := make([]float32, 4)
	if err := buf.Cmd().Queue(q2).Ewait(written).Read(got).Enq(); err != nil {
		t.Fatalf("Read on second queue failed: %v", err)
	}
	if got[3] != 4 {
		t.Errorf("Read did not wait for write: %v", got)
	}

	buf.SetDefaultQueue(q2)
	if buf.DefaultQueue().ID() != q2.ID() {
		t.Error("SetDefaultQueue did not take effect")
	}
	if err := buf.Read(got).Enq(); err != nil {
		t.Fatalf("Read on new default queue failed: %v", err)
	}
}

func TestSubBuffer(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})
	buf := newTestBuffer(t, q, 100)

	if _, err := buf.CreateSubBuffer(nil, gpu.Dims1(90), gpu.Dims1(20)); !errors.Is(err, ErrSubBufferRegion) {
		t.Errorf("Expected ErrSubBufferRegion, got %v", err)
	}
	if _, err := buf.CreateSubBuffer(nil, gpu.Dims1(101), gpu.Dims1(1)); !errors.Is(err, ErrSubBufferOrigin) {
		t.Errorf("Expected ErrSubBufferOrigin, got %v", err)
	}

	sub, err := buf.CreateSubBuffer(nil, gpu.Dims1(90), gpu.Dims1(10))
	if err != nil {
		t.Fatalf("CreateSubBuffer failed: %v", err)
	}
	defer sub.Release()

	if sub.Len() != 10 {
		t.Errorf("Expected length 10, got %d", sub.Len())
	}
	if sub.Origin().ToLen() != 90 {
		t.Errorf("Expected origin 90, got %s", sub.Origin())
	}
	if sub.Flags() != gpu.MemReadWrite {
		t.Errorf("Expected READ_WRITE, got %s", sub.Flags())
	}
	if sub.DefaultQueue().ID() != q.ID() {
		t.Error("Sub-buffer should inherit the parent's queue")
	}
	if off := sub.MemInfo(gpu.MemInfoOffset).Value; off != 90*4 {
		t.Errorf("Expected byte offset 360, got %d", off)
	}

	if err := sub.Write(fillSlice(10, float32(5))).Enq(); err != nil {
		t.Fatalf("Sub-buffer write failed: %v", err)
	}
	got := make([]float32, 100)
	if err := buf.Read(got).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[89] != 0 || got[90] != 5 || got[99] != 5 {
		t.Errorf("Sub-buffer write not visible in parent: %v", got[88:])
	}

	// Copy between a sub-buffer and its parent
	if err := sub.Cmd().Copy(buf, Some(0), nil).Enq(); err != nil {
		t.Fatalf("Copy from sub-buffer failed: %v", err)
	}
	if err := buf.Cmd().Read(got[:10]).Enq(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[0] != 5 || got[9] != 5 {
		t.Errorf("Copy from sub-buffer wrong: %v", got[:10])
	}
}

func TestSubBufferMisaligned(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{MemBaseAddrAlign: 64})
	buf := newTestBuffer(t, q, 64)

	if _, err := NewSubBuffer(buf, nil, gpu.Dims1(1), gpu.Dims1(4)); !errors.Is(err, gpu.ErrMisalignedSubBufferOffset) {
		t.Errorf("Expected gpu.ErrMisalignedSubBufferOffset, got %v", err)
	}

	sub, err := NewSubBuffer(buf, nil, gpu.Dims1(16), gpu.Dims1(16))
	if err != nil {
		t.Fatalf("Aligned sub-buffer failed: %v", err)
	}
	sub.Release()
}

func TestBufferString(t *testing.T) {
	_, q := newTestQueue(t, gpu.HostOptions{})
	buf := newTestBuffer(t, q, 16)

	s := buf.String()
	for _, want := range []string{"Buffer {", "Type: Buffer", "Size: 64", "Flags: READ_WRITE"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}

	sub, err := buf.CreateSubBuffer(nil, gpu.Dims1(4), gpu.Dims1(4))
	if err != nil {
		t.Fatalf("CreateSubBuffer failed: %v", err)
	}
	defer sub.Release()
	if s := sub.String(); !strings.Contains(s, "Offset: 16") {
		t.Errorf("SubBuffer String() = %q, missing offset", s)
	}
}

func fillSlice[T Prm](n int, v T) []T {
	s := make([]T, n)
	for i := range s {
		s[i] = v
	}
	return s
}
