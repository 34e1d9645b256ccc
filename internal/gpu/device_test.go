package gpu

import (
	"testing"
)

func TestGetDefaultRuntime(t *testing.T) {
	rt, err := GetDefaultRuntime()
	if err != nil {
		t.Fatalf("GetDefaultRuntime failed: %v", err)
	}
	defer rt.Close()

	name := rt.Name()
	if name == "" {
		t.Error("Runtime name is empty")
	}
	t.Logf("Default runtime: %s (type: %v, version %s)", name, rt.Type(), rt.Version())
}

func TestGetCPURuntime(t *testing.T) {
	rt, err := GetRuntime(DeviceTypeCPU)
	if err != nil {
		t.Fatalf("GetRuntime(CPU) failed: %v", err)
	}
	defer rt.Close()

	if rt.Type() != DeviceTypeCPU {
		t.Errorf("Expected CPU runtime, got %v", rt.Type())
	}
	if !rt.Version().AtLeast(1, 2) {
		t.Errorf("Expected version >= 1.2, got %s", rt.Version())
	}
}

func TestGetGPURuntime(t *testing.T) {
	rt, err := GetRuntime(DeviceTypeGPU)
	if err != nil {
		t.Skipf("OpenCL device not available: %v", err)
	}
	defer rt.Close()

	t.Logf("OpenCL device: %s (version %s, align %d)", rt.Name(), rt.Version(), rt.MemBaseAddrAlign())
}

func TestOpenRuntime(t *testing.T) {
	rt, err := OpenRuntime(Options{Backend: BackendHost, MemBaseAddrAlign: 64})
	if err != nil {
		t.Fatalf("OpenRuntime failed: %v", err)
	}
	defer rt.Close()

	if rt.MemBaseAddrAlign() != 64 {
		t.Errorf("Expected alignment 64, got %d", rt.MemBaseAddrAlign())
	}

	if _, err := OpenRuntime(Options{Backend: "vulkan"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestDeviceTypeString(t *testing.T) {
	tests := []struct {
		dtype    DeviceType
		expected string
	}{
		{DeviceTypeCPU, "CPU"},
		{DeviceTypeGPU, "GPU"},
		{DeviceType(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.dtype.String(); got != tt.expected {
			t.Errorf("DeviceType(%d).String() = %s, expected %s", tt.dtype, got, tt.expected)
		}
	}
}

func TestDeviceVersionAtLeast(t *testing.T) {
	tests := []struct {
		v            DeviceVersion
		major, minor int
		want         bool
	}{
		{DeviceVersion{1, 2}, 1, 2, true},
		{DeviceVersion{1, 1}, 1, 2, false},
		{DeviceVersion{2, 0}, 1, 2, true},
		{DeviceVersion{1, 0}, 1, 0, true},
		{DeviceVersion{0, 9}, 1, 0, false},
	}

	for _, tt := range tests {
		if got := tt.v.AtLeast(tt.major, tt.minor); got != tt.want {
			t.Errorf("%s.AtLeast(%d, %d) = %v, want %v", tt.v, tt.major, tt.minor, got, tt.want)
		}
	}
}

func TestImageFormatPixelSize(t *testing.T) {
	tests := []struct {
		format ImageFormat
		want   int64
	}{
		{ImageFormat{ChannelOrderRGBA, ChannelTypeFloat}, 16},
		{ImageFormat{ChannelOrderR, ChannelTypeUint8}, 1},
		{ImageFormat{ChannelOrderRG, ChannelTypeUint32}, 8},
		{ImageFormat{0, ChannelTypeFloat}, 0},
	}

	for _, tt := range tests {
		if got := tt.format.PixelSize(); got != tt.want {
			t.Errorf("PixelSize(%+v) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestSpatialDims(t *testing.T) {
	tests := []struct {
		dims SpatialDims
		dim  int
		len  int
	}{
		{SpatialDims{}, 0, 0},
		{Dims1(10), 1, 10},
		{Dims2(4, 5), 2, 20},
		{Dims3(2, 3, 4), 3, 24},
	}

	for _, tt := range tests {
		if tt.dims.Dim() != tt.dim {
			t.Errorf("%v.Dim() = %d, want %d", tt.dims, tt.dims.Dim(), tt.dim)
		}
		if tt.dims.ToLen() != tt.len {
			t.Errorf("%v.ToLen() = %d, want %d", tt.dims, tt.dims.ToLen(), tt.len)
		}
	}
}

func TestMemFlagsString(t *testing.T) {
	tests := []struct {
		flags MemFlags
		want  string
	}{
		{0, "0"},
		{MemReadWrite, "READ_WRITE"},
		{MemReadOnly | MemCopyHostPtr, "READ_ONLY|COPY_HOST_PTR"},
	}

	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("MemFlags(%d).String() = %q, want %q", tt.flags, got, tt.want)
		}
	}
}
