package buffer

import (
	"fmt"
	"sync/atomic"
)

// ZeroFill selects how New clears a buffer created without initial data.
type ZeroFill int32

const (
	// ZeroFillDevice clears the buffer with a fill command. It needs an
	// OpenCL 1.2 device.
	ZeroFillDevice ZeroFill = iota

	// ZeroFillHostWrite writes a zeroed host slice into the buffer.
	ZeroFillHostWrite
)

func (z ZeroFill) String() string {
	switch z {
	case ZeroFillDevice:
		return "device"
	case ZeroFillHostWrite:
		return "host_write"
	default:
		return fmt.Sprintf("ZeroFill(%d)", int32(z))
	}
}

var defaultZeroFill atomic.Int32

func init() {
	defaultZeroFill.Store(int32(buildZeroFill))
}

// BuildZeroFill returns the strategy chosen at build time. Building with
// the buffer_no_fill tag selects ZeroFillHostWrite.
func BuildZeroFill() ZeroFill { return buildZeroFill }

// DefaultZeroFill returns the strategy New uses when none is given.
func DefaultZeroFill() ZeroFill { return ZeroFill(defaultZeroFill.Load()) }

// SetDefaultZeroFill changes the strategy New uses when none is given.
func SetDefaultZeroFill(z ZeroFill) {
	defaultZeroFill.Store(int32(z))
}

// ParseZeroFill parses a configuration value. "default" selects the
// build-time strategy.
func ParseZeroFill(s string) (ZeroFill, error) {
	switch s {
	case "", "default":
		return buildZeroFill, nil
	case "device":
		return ZeroFillDevice, nil
	case "host_write":
		return ZeroFillHostWrite, nil
	default:
		return 0, fmt.Errorf("unknown zero fill strategy %q", s)
	}
}

type options struct {
	zeroFill ZeroFill
}

// Option configures New.
type Option func(*options)

// WithZeroFill overrides the zero-fill strategy for one buffer.
func WithZeroFill(z ZeroFill) Option {
	return func(o *options) {
		o.zeroFill = z
	}
}

func newOptions(opts []Option) options {
	o := options{zeroFill: DefaultZeroFill()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
