//go:build buffer_no_fill

package buffer

const buildZeroFill = ZeroFillHostWrite
