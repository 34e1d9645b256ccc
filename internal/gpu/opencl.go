//go:build linux || darwin

package gpu

// OpenCL bindings via purego. The ICD loader is opened with dlopen at
// runtime, so the package builds without OpenCL headers or cgo.

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/sirupsen/logrus"

	"github.com/gitter-badger/ocl/internal/logging"
)

// CLError is an OpenCL status code.
type CLError int32

const (
	CL_SUCCESS                                   CLError = 0
	CL_DEVICE_NOT_FOUND                          CLError = -1
	CL_MEM_OBJECT_ALLOCATION_FAILURE             CLError = -4
	CL_OUT_OF_RESOURCES                          CLError = -5
	CL_OUT_OF_HOST_MEMORY                        CLError = -6
	CL_MAP_FAILURE                               CLError = -12
	CL_MISALIGNED_SUB_BUFFER_OFFSET              CLError = -13
	CL_EXEC_STATUS_ERROR_FOR_EVENTS_IN_WAIT_LIST CLError = -14
	CL_INVALID_VALUE                             CLError = -30
	CL_INVALID_PLATFORM                          CLError = -32
	CL_INVALID_DEVICE                            CLError = -33
	CL_INVALID_CONTEXT                           CLError = -34
	CL_INVALID_COMMAND_QUEUE                     CLError = -36
	CL_INVALID_HOST_PTR                          CLError = -37
	CL_INVALID_MEM_OBJECT                        CLError = -38
	CL_INVALID_IMAGE_FORMAT_DESCRIPTOR           CLError = -39
	CL_INVALID_EVENT_WAIT_LIST                   CLError = -57
	CL_INVALID_EVENT                             CLError = -58
	CL_INVALID_OPERATION                         CLError = -59
	CL_INVALID_GL_OBJECT                         CLError = -60
	CL_INVALID_BUFFER_SIZE                       CLError = -61
)

var clErrorNames = map[CLError]string{
	-1: "DEVICE_NOT_FOUND", -4: "MEM_OBJECT_ALLOCATION_FAILURE", -5: "OUT_OF_RESOURCES",
	-6: "OUT_OF_HOST_MEMORY", -12: "MAP_FAILURE", -13: "MISALIGNED_SUB_BUFFER_OFFSET",
	-14: "EXEC_STATUS_ERROR_FOR_EVENTS_IN_WAIT_LIST", -30: "INVALID_VALUE",
	-32: "INVALID_PLATFORM", -33: "INVALID_DEVICE", -34: "INVALID_CONTEXT",
	-36: "INVALID_COMMAND_QUEUE", -37: "INVALID_HOST_PTR", -38: "INVALID_MEM_OBJECT",
	-39: "INVALID_IMAGE_FORMAT_DESCRIPTOR", -57: "INVALID_EVENT_WAIT_LIST",
	-58: "INVALID_EVENT", -59: "INVALID_OPERATION", -60: "INVALID_GL_OBJECT",
	-61: "INVALID_BUFFER_SIZE",
}

func (e CLError) Error() string {
	if e == CL_SUCCESS {
		return "CL_SUCCESS"
	}
	if name, ok := clErrorNames[e]; ok {
		return fmt.Sprintf("CL_%s (%d)", name, int32(e))
	}
	return fmt.Sprintf("CL_ERROR(%d)", int32(e))
}

// Is lets OpenCL status codes match the runtime-neutral sentinels.
func (e CLError) Is(target error) bool {
	switch e {
	case CL_INVALID_COMMAND_QUEUE:
		return target == ErrInvalidQueue
	case CL_INVALID_MEM_OBJECT:
		return target == ErrInvalidMemObject
	case CL_INVALID_EVENT, CL_INVALID_EVENT_WAIT_LIST:
		return target == ErrInvalidEvent
	case CL_INVALID_VALUE:
		return target == ErrInvalidValue
	case CL_INVALID_BUFFER_SIZE:
		return target == ErrInvalidBufferSize
	case CL_INVALID_HOST_PTR:
		return target == ErrInvalidHostPtr
	case CL_MISALIGNED_SUB_BUFFER_OFFSET:
		return target == ErrMisalignedSubBufferOffset
	case CL_INVALID_GL_OBJECT:
		return target == ErrInvalidGLObject
	case CL_EXEC_STATUS_ERROR_FOR_EVENTS_IN_WAIT_LIST:
		return target == ErrWaitListFailed
	}
	return false
}

func clCheck(code int32) error {
	if code == 0 {
		return nil
	}
	return CLError(code)
}

// Info and type constants.
const (
	clDeviceTypeGPU  = 1 << 2
	clDeviceTypeAll  = 0xFFFFFFFF
	clDeviceType     = 0x1000
	clDeviceBaseAlig = 0x1019
	clDeviceGlobal   = 0x101F
	clDeviceName     = 0x102B
	clDeviceVersion  = 0x102F

	clBufferCreateTypeRegion = 0x1220
	clEventExecutionStatus   = 0x11D3
)

type clImageFormat struct {
	order uint32
	typ   uint32
}

type clImageDesc struct {
	imageType    uint32
	width        uintptr
	height       uintptr
	depth        uintptr
	arraySize    uintptr
	rowPitch     uintptr
	slicePitch   uintptr
	numMipLevels uint32
	numSamples   uint32
	buffer       uintptr
}

type clBufferRegion struct {
	origin uintptr
	size   uintptr
}

// clAPI holds the bound entry points of one loaded library.
type clAPI struct {
	getPlatformIDs     func(n uint32, platforms *uintptr, num *uint32) int32
	getDeviceIDs       func(platform uintptr, typ uint64, n uint32, devices *uintptr, num *uint32) int32
	getDeviceInfo      func(dev uintptr, param uint32, size uintptr, value unsafe.Pointer, ret *uintptr) int32
	createContext      func(props *uintptr, n uint32, devices *uintptr, notify, user uintptr, errcode *int32) uintptr
	releaseContext     func(ctx uintptr) int32
	createCommandQueue func(ctx, dev uintptr, props uint64, errcode *int32) uintptr
	releaseQueue       func(q uintptr) int32
	finish             func(q uintptr) int32

	createBuffer       func(ctx uintptr, flags uint64, size uintptr, host unsafe.Pointer, errcode *int32) uintptr
	createSubBuffer    func(buf uintptr, flags uint64, typ uint32, info unsafe.Pointer, errcode *int32) uintptr
	createImage        func(ctx uintptr, flags uint64, format *clImageFormat, desc *clImageDesc, host unsafe.Pointer, errcode *int32) uintptr
	createFromGLBuffer func(ctx uintptr, flags uint64, obj uint32, errcode *int32) uintptr
	retainMem          func(m uintptr) int32
	releaseMem         func(m uintptr) int32
	getMemObjectInfo   func(m uintptr, param uint32, size uintptr, value unsafe.Pointer, ret *uintptr) int32

	enqueueReadBuffer      func(q, m uintptr, block uint32, offset, size uintptr, ptr unsafe.Pointer, nwait uint32, wait, ev *uintptr) int32
	enqueueWriteBuffer     func(q, m uintptr, block uint32, offset, size uintptr, ptr unsafe.Pointer, nwait uint32, wait, ev *uintptr) int32
	enqueueReadBufferRect  func(q, m uintptr, block uint32, bufOrigin, hostOrigin, region *uintptr, bufRow, bufSlice, hostRow, hostSlice uintptr, ptr unsafe.Pointer, nwait uint32, wait, ev *uintptr) int32
	enqueueWriteBufferRect func(q, m uintptr, block uint32, bufOrigin, hostOrigin, region *uintptr, bufRow, bufSlice, hostRow, hostSlice uintptr, ptr unsafe.Pointer, nwait uint32, wait, ev *uintptr) int32
	enqueueCopyBuffer      func(q, src, dst uintptr, srcOffset, dstOffset, size uintptr, nwait uint32, wait, ev *uintptr) int32
	enqueueCopyBufferRect  func(q, src, dst uintptr, srcOrigin, dstOrigin, region *uintptr, srcRow, srcSlice, dstRow, dstSlice uintptr, nwait uint32, wait, ev *uintptr) int32
	enqueueFillBuffer      func(q, m uintptr, pattern unsafe.Pointer, patternSize, offset, size uintptr, nwait uint32, wait, ev *uintptr) int32
	enqueueCopyToImage     func(q, src, img uintptr, srcOffset uintptr, origin, region *uintptr, nwait uint32, wait, ev *uintptr) int32
	enqueueReadImage       func(q, img uintptr, block uint32, origin, region *uintptr, row, slice uintptr, ptr unsafe.Pointer, nwait uint32, wait, ev *uintptr) int32
	enqueueMapBuffer       func(q, m uintptr, block uint32, flags uint64, offset, size uintptr, nwait uint32, wait, ev *uintptr, errcode *int32) unsafe.Pointer
	enqueueUnmap           func(q, m uintptr, ptr unsafe.Pointer, nwait uint32, wait, ev *uintptr) int32
	enqueueAcquireGL       func(q uintptr, n uint32, mems *uintptr, nwait uint32, wait, ev *uintptr) int32
	enqueueReleaseGL       func(q uintptr, n uint32, mems *uintptr, nwait uint32, wait, ev *uintptr) int32

	waitForEvents func(n uint32, events *uintptr) int32
	getEventInfo  func(ev uintptr, param uint32, size uintptr, value unsafe.Pointer, ret *uintptr) int32
	retainEvent   func(ev uintptr) int32
	releaseEvent  func(ev uintptr) int32
}

var (
	clLibMu sync.Mutex
	clLibs  = map[string]*clAPI{}
)

func defaultCLLibraries() []string {
	return []string{
		"libOpenCL.so.1",
		"libOpenCL.so",
		"/System/Library/Frameworks/OpenCL.framework/OpenCL",
	}
}

// loadCL opens library (or the default search list) once per name.
func loadCL(library string) (*clAPI, error) {
	clLibMu.Lock()
	defer clLibMu.Unlock()

	if api, ok := clLibs[library]; ok {
		return api, nil
	}

	names := defaultCLLibraries()
	if library != "" {
		names = []string{library}
	}
	var lib uintptr
	var err error
	for _, name := range names {
		lib, err = purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot load OpenCL library: %v", ErrOpenCLUnavailable, err)
	}

	api := &clAPI{}
	required := []struct {
		fptr any
		name string
	}{
		{&api.getPlatformIDs, "clGetPlatformIDs"},
		{&api.getDeviceIDs, "clGetDeviceIDs"},
		{&api.getDeviceInfo, "clGetDeviceInfo"},
		{&api.createContext, "clCreateContext"},
		{&api.releaseContext, "clReleaseContext"},
		{&api.createCommandQueue, "clCreateCommandQueue"},
		{&api.releaseQueue, "clReleaseCommandQueue"},
		{&api.finish, "clFinish"},
		{&api.createBuffer, "clCreateBuffer"},
		{&api.retainMem, "clRetainMemObject"},
		{&api.releaseMem, "clReleaseMemObject"},
		{&api.getMemObjectInfo, "clGetMemObjectInfo"},
		{&api.enqueueReadBuffer, "clEnqueueReadBuffer"},
		{&api.enqueueWriteBuffer, "clEnqueueWriteBuffer"},
		{&api.enqueueCopyBuffer, "clEnqueueCopyBuffer"},
		{&api.enqueueMapBuffer, "clEnqueueMapBuffer"},
		{&api.enqueueUnmap, "clEnqueueUnmapMemObject"},
		{&api.waitForEvents, "clWaitForEvents"},
		{&api.getEventInfo, "clGetEventInfo"},
		{&api.retainEvent, "clRetainEvent"},
		{&api.releaseEvent, "clReleaseEvent"},
	}
	for _, fn := range required {
		if err := bindCL(lib, fn.fptr, fn.name); err != nil {
			return nil, err
		}
	}

	// Entry points newer than OpenCL 1.0 or tied to GL sharing. Missing
	// ones make the matching runtime calls fail with CL_INVALID_OPERATION.
	optional := []struct {
		fptr any
		name string
	}{
		{&api.createSubBuffer, "clCreateSubBuffer"},
		{&api.createImage, "clCreateImage"},
		{&api.createFromGLBuffer, "clCreateFromGLBuffer"},
		{&api.enqueueReadBufferRect, "clEnqueueReadBufferRect"},
		{&api.enqueueWriteBufferRect, "clEnqueueWriteBufferRect"},
		{&api.enqueueCopyBufferRect, "clEnqueueCopyBufferRect"},
		{&api.enqueueFillBuffer, "clEnqueueFillBuffer"},
		{&api.enqueueCopyToImage, "clEnqueueCopyBufferToImage"},
		{&api.enqueueReadImage, "clEnqueueReadImage"},
		{&api.enqueueAcquireGL, "clEnqueueAcquireGLObjects"},
		{&api.enqueueReleaseGL, "clEnqueueReleaseGLObjects"},
	}
	for _, fn := range optional {
		_ = bindCL(lib, fn.fptr, fn.name)
	}

	clLibs[library] = api
	return api, nil
}

func bindCL(lib uintptr, fptr any, name string) error {
	sym, err := purego.Dlsym(lib, name)
	if err != nil {
		return fmt.Errorf("%w: missing symbol %s", ErrOpenCLUnavailable, name)
	}
	purego.RegisterFunc(fptr, sym)
	return nil
}

// OpenCLRuntime drives one OpenCL device through a single context.
type OpenCLRuntime struct {
	api     *clAPI
	device  uintptr
	context uintptr
	name    string
	typ     DeviceType
	version DeviceVersion
	align   int64
	memSize int64
	log     *logrus.Entry

	mu     sync.Mutex
	closed bool
}

// NewOpenCLRuntime opens device number device of platform number platform.
// An empty library searches the usual ICD loader names.
func NewOpenCLRuntime(library string, platform, device int) (Runtime, error) {
	api, err := loadCL(library)
	if err != nil {
		return nil, err
	}

	var nplat uint32
	if err := clCheck(api.getPlatformIDs(0, nil, &nplat)); err != nil {
		return nil, fmt.Errorf("%w: listing platforms: %v", ErrOpenCLUnavailable, err)
	}
	if platform < 0 || uint32(platform) >= nplat {
		return nil, fmt.Errorf("%w: platform %d of %d", ErrOpenCLUnavailable, platform, nplat)
	}
	platforms := make([]uintptr, nplat)
	if err := clCheck(api.getPlatformIDs(nplat, &platforms[0], nil)); err != nil {
		return nil, fmt.Errorf("listing platforms: %w", err)
	}

	var ndev uint32
	if err := clCheck(api.getDeviceIDs(platforms[platform], clDeviceTypeAll, 0, nil, &ndev)); err != nil {
		return nil, fmt.Errorf("%w: listing devices: %v", ErrOpenCLUnavailable, err)
	}
	if device < 0 || uint32(device) >= ndev {
		return nil, fmt.Errorf("%w: device %d of %d", ErrOpenCLUnavailable, device, ndev)
	}
	devices := make([]uintptr, ndev)
	if err := clCheck(api.getDeviceIDs(platforms[platform], clDeviceTypeAll, ndev, &devices[0], nil)); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	r := &OpenCLRuntime{
		api:    api,
		device: devices[device],
		log:    logging.WithComponent("opencl"),
	}
	r.name = r.deviceString(clDeviceName)
	r.version = parseCLVersion(r.deviceString(clDeviceVersion))
	if r.deviceUint(clDeviceType)&clDeviceTypeGPU != 0 {
		r.typ = DeviceTypeGPU
	}
	r.align = int64(r.deviceUint(clDeviceBaseAlig)) / 8
	if r.align <= 0 {
		r.align = 1
	}
	r.memSize = int64(r.deviceUint(clDeviceGlobal))

	var code int32
	r.context = api.createContext(nil, 1, &r.device, 0, 0, &code)
	if err := clCheck(code); err != nil {
		return nil, fmt.Errorf("creating context: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"device":  r.name,
		"version": r.version,
		"align":   r.align,
	}).Info("OpenCL runtime ready")
	return r, nil
}

func (r *OpenCLRuntime) deviceString(param uint32) string {
	var size uintptr
	if r.api.getDeviceInfo(r.device, param, 0, nil, &size) != 0 || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	if r.api.getDeviceInfo(r.device, param, size, unsafe.Pointer(&buf[0]), nil) != 0 {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00 ")
}

func (r *OpenCLRuntime) deviceUint(param uint32) uint64 {
	var v uint64
	if r.api.getDeviceInfo(r.device, param, 8, unsafe.Pointer(&v), nil) != 0 {
		return 0
	}
	return v
}

// parseCLVersion parses "OpenCL <major>.<minor> <vendor info>".
func parseCLVersion(s string) DeviceVersion {
	var v DeviceVersion
	if _, err := fmt.Sscanf(s, "OpenCL %d.%d", &v.Major, &v.Minor); err != nil {
		return DeviceVersion{Major: 1, Minor: 0}
	}
	return v
}

func (r *OpenCLRuntime) Name() string            { return r.name }
func (r *OpenCLRuntime) Type() DeviceType        { return r.typ }
func (r *OpenCLRuntime) Version() DeviceVersion  { return r.version }
func (r *OpenCLRuntime) MemBaseAddrAlign() int64 { return r.align }
func (r *OpenCLRuntime) GlobalMemSize() int64    { return r.memSize }

var errCLMissing = fmt.Errorf("entry point not available: %w", CL_INVALID_OPERATION)

func waitArgs(wait []uintptr) (uint32, *uintptr) {
	if len(wait) == 0 {
		return 0, nil
	}
	return uint32(len(wait)), &wait[0]
}

func blocking(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

func toSizeT(v [3]int64) [3]uintptr {
	return [3]uintptr{uintptr(v[0]), uintptr(v[1]), uintptr(v[2])}
}

func (r *OpenCLRuntime) CreateQueue(props QueueProps) (uintptr, error) {
	var code int32
	q := r.api.createCommandQueue(r.context, r.device, uint64(props), &code)
	if err := clCheck(code); err != nil {
		return 0, err
	}
	return q, nil
}

func (r *OpenCLRuntime) ReleaseQueue(q uintptr) error { return clCheck(r.api.releaseQueue(q)) }
func (r *OpenCLRuntime) Finish(q uintptr) error       { return clCheck(r.api.finish(q)) }

func (r *OpenCLRuntime) CreateBuffer(flags MemFlags, size int64, host []byte) (uintptr, error) {
	var code int32
	m := r.api.createBuffer(r.context, uint64(flags), uintptr(size), bytesPtr(host), &code)
	if err := clCheck(code); err != nil {
		return 0, err
	}
	return m, nil
}

func (r *OpenCLRuntime) CreateSubBuffer(parent uintptr, flags MemFlags, region BufferRegion) (uintptr, error) {
	if r.api.createSubBuffer == nil {
		return 0, errCLMissing
	}
	info := clBufferRegion{origin: uintptr(region.Origin), size: uintptr(region.Size)}
	var code int32
	m := r.api.createSubBuffer(parent, uint64(flags), clBufferCreateTypeRegion, unsafe.Pointer(&info), &code)
	if err := clCheck(code); err != nil {
		return 0, err
	}
	return m, nil
}

func (r *OpenCLRuntime) CreateImage(flags MemFlags, format ImageFormat, desc ImageDesc) (uintptr, error) {
	if r.api.createImage == nil {
		return 0, errCLMissing
	}
	f := clImageFormat{order: format.ChannelOrder, typ: format.ChannelType}
	d := clImageDesc{
		imageType: uint32(desc.Type),
		width:     uintptr(desc.Width),
		height:    uintptr(desc.Height),
		depth:     uintptr(desc.Depth),
	}
	var code int32
	m := r.api.createImage(r.context, uint64(flags), &f, &d, nil, &code)
	if err := clCheck(code); err != nil {
		return 0, err
	}
	return m, nil
}

func (r *OpenCLRuntime) CreateFromGLBuffer(flags MemFlags, glObject uint32) (uintptr, error) {
	if r.api.createFromGLBuffer == nil {
		return 0, errCLMissing
	}
	var code int32
	m := r.api.createFromGLBuffer(r.context, uint64(flags), glObject, &code)
	if err := clCheck(code); err != nil {
		return 0, err
	}
	return m, nil
}

func (r *OpenCLRuntime) RetainMem(m uintptr) error  { return clCheck(r.api.retainMem(m)) }
func (r *OpenCLRuntime) ReleaseMem(m uintptr) error { return clCheck(r.api.releaseMem(m)) }

func (r *OpenCLRuntime) MemInfo(m uintptr, kind MemInfo) (uint64, error) {
	var v uint64
	if err := clCheck(r.api.getMemObjectInfo(m, uint32(kind), 8, unsafe.Pointer(&v), nil)); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *OpenCLRuntime) EnqueueReadBuffer(q, m uintptr, block bool, offset int64, dst []byte, wait []uintptr, enew *uintptr) error {
	n, w := waitArgs(wait)
	return clCheck(r.api.enqueueReadBuffer(q, m, blocking(block), uintptr(offset), uintptr(len(dst)), bytesPtr(dst), n, w, enew))
}

func (r *OpenCLRuntime) EnqueueReadBufferRect(q, m uintptr, block bool, rect Rect, dst []byte, wait []uintptr, enew *uintptr) error {
	if r.api.enqueueReadBufferRect == nil {
		return errCLMissing
	}
	n, w := waitArgs(wait)
	bo, ho, reg := toSizeT(rect.SrcOrigin), toSizeT(rect.DstOrigin), toSizeT(rect.Region)
	return clCheck(r.api.enqueueReadBufferRect(q, m, blocking(block), &bo[0], &ho[0], &reg[0],
		uintptr(rect.SrcRowPitch), uintptr(rect.SrcSlicePitch), uintptr(rect.DstRowPitch), uintptr(rect.DstSlicePitch),
		bytesPtr(dst), n, w, enew))
}

func (r *OpenCLRuntime) EnqueueWriteBuffer(q, m uintptr, block bool, offset int64, src []byte, wait []uintptr, enew *uintptr) error {
	n, w := waitArgs(wait)
	return clCheck(r.api.enqueueWriteBuffer(q, m, blocking(block), uintptr(offset), uintptr(len(src)), bytesPtr(src), n, w, enew))
}

func (r *OpenCLRuntime) EnqueueWriteBufferRect(q, m uintptr, block bool, rect Rect, src []byte, wait []uintptr, enew *uintptr) error {
	if r.api.enqueueWriteBufferRect == nil {
		return errCLMissing
	}
	n, w := waitArgs(wait)
	bo, ho, reg := toSizeT(rect.SrcOrigin), toSizeT(rect.DstOrigin), toSizeT(rect.Region)
	return clCheck(r.api.enqueueWriteBufferRect(q, m, blocking(block), &bo[0], &ho[0], &reg[0],
		uintptr(rect.SrcRowPitch), uintptr(rect.SrcSlicePitch), uintptr(rect.DstRowPitch), uintptr(rect.DstSlicePitch),
		bytesPtr(src), n, w, enew))
}

func (r *OpenCLRuntime) EnqueueCopyBuffer(q, src, dst uintptr, srcOffset, dstOffset, size int64, wait []uintptr, enew *uintptr) error {
	n, w := waitArgs(wait)
	return clCheck(r.api.enqueueCopyBuffer(q, src, dst, uintptr(srcOffset), uintptr(dstOffset), uintptr(size), n, w, enew))
}

func (r *OpenCLRuntime) EnqueueCopyBufferRect(q, src, dst uintptr, rect Rect, wait []uintptr, enew *uintptr) error {
	if r.api.enqueueCopyBufferRect == nil {
		return errCLMissing
	}
	n, w := waitArgs(wait)
	so, do, reg := toSizeT(rect.SrcOrigin), toSizeT(rect.DstOrigin), toSizeT(rect.Region)
	return clCheck(r.api.enqueueCopyBufferRect(q, src, dst, &so[0], &do[0], &reg[0],
		uintptr(rect.SrcRowPitch), uintptr(rect.SrcSlicePitch), uintptr(rect.DstRowPitch), uintptr(rect.DstSlicePitch),
		n, w, enew))
}

func (r *OpenCLRuntime) EnqueueFillBuffer(q, m uintptr, pattern []byte, offset, size int64, wait []uintptr, enew *uintptr) error {
	if r.api.enqueueFillBuffer == nil {
		return errCLMissing
	}
	n, w := waitArgs(wait)
	return clCheck(r.api.enqueueFillBuffer(q, m, bytesPtr(pattern), uintptr(len(pattern)), uintptr(offset), uintptr(size), n, w, enew))
}

func (r *OpenCLRuntime) EnqueueCopyBufferToImage(q, src, img uintptr, srcOffset int64, dstOrigin, region [3]int64, wait []uintptr, enew *uintptr) error {
	if r.api.enqueueCopyToImage == nil {
		return errCLMissing
	}
	n, w := waitArgs(wait)
	o, reg := toSizeT(dstOrigin), toSizeT(region)
	return clCheck(r.api.enqueueCopyToImage(q, src, img, uintptr(srcOffset), &o[0], &reg[0], n, w, enew))
}

func (r *OpenCLRuntime) EnqueueReadImage(q, img uintptr, block bool, origin, region [3]int64, rowPitch, slicePitch int64, dst []byte, wait []uintptr, enew *uintptr) error {
	if r.api.enqueueReadImage == nil {
		return errCLMissing
	}
	n, w := waitArgs(wait)
	o, reg := toSizeT(origin), toSizeT(region)
	return clCheck(r.api.enqueueReadImage(q, img, blocking(block), &o[0], &reg[0],
		uintptr(rowPitch), uintptr(slicePitch), bytesPtr(dst), n, w, enew))
}

func (r *OpenCLRuntime) EnqueueMapBuffer(q, m uintptr, block bool, flags MapFlags, offset, size int64, wait []uintptr, enew *uintptr) (unsafe.Pointer, error) {
	n, w := waitArgs(wait)
	var code int32
	ptr := r.api.enqueueMapBuffer(q, m, blocking(block), uint64(flags), uintptr(offset), uintptr(size), n, w, enew, &code)
	if err := clCheck(code); err != nil {
		return nil, err
	}
	return ptr, nil
}

func (r *OpenCLRuntime) EnqueueUnmapMemObject(q, m uintptr, ptr unsafe.Pointer, wait []uintptr, enew *uintptr) error {
	n, w := waitArgs(wait)
	return clCheck(r.api.enqueueUnmap(q, m, ptr, n, w, enew))
}

func (r *OpenCLRuntime) EnqueueAcquireGLObjects(q uintptr, mems []uintptr, wait []uintptr, enew *uintptr) error {
	if r.api.enqueueAcquireGL == nil {
		return errCLMissing
	}
	if len(mems) == 0 {
		return fmt.Errorf("no GL objects: %w", ErrInvalidValue)
	}
	n, w := waitArgs(wait)
	return clCheck(r.api.enqueueAcquireGL(q, uint32(len(mems)), &mems[0], n, w, enew))
}

func (r *OpenCLRuntime) EnqueueReleaseGLObjects(q uintptr, mems []uintptr, wait []uintptr, enew *uintptr) error {
	if r.api.enqueueReleaseGL == nil {
		return errCLMissing
	}
	if len(mems) == 0 {
		return fmt.Errorf("no GL objects: %w", ErrInvalidValue)
	}
	n, w := waitArgs(wait)
	return clCheck(r.api.enqueueReleaseGL(q, uint32(len(mems)), &mems[0], n, w, enew))
}

func (r *OpenCLRuntime) WaitForEvents(events []uintptr) error {
	if len(events) == 0 {
		return nil
	}
	return clCheck(r.api.waitForEvents(uint32(len(events)), &events[0]))
}

func (r *OpenCLRuntime) EventComplete(ev uintptr) (bool, error) {
	var status int32
	if err := clCheck(r.api.getEventInfo(ev, clEventExecutionStatus, 4, unsafe.Pointer(&status), nil)); err != nil {
		return false, err
	}
	switch {
	case status < 0:
		return true, CLError(status)
	case status == 0: // CL_COMPLETE
		return true, nil
	default:
		return false, nil
	}
}

func (r *OpenCLRuntime) RetainEvent(ev uintptr) error  { return clCheck(r.api.retainEvent(ev)) }
func (r *OpenCLRuntime) ReleaseEvent(ev uintptr) error { return clCheck(r.api.releaseEvent(ev)) }

// Close releases the context. Objects created from it must already be
// released.
func (r *OpenCLRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := clCheck(r.api.releaseContext(r.context)); err != nil {
		return fmt.Errorf("releasing context: %w", err)
	}
	return nil
}

// IsCLError reports whether err carries an OpenCL status code and returns it.
func IsCLError(err error) (CLError, bool) {
	var ce CLError
	if errors.As(err, &ce) {
		return ce, true
	}
	return 0, false
}
