package gpu

import "fmt"

// rectPitches fills in zero pitches with their tightly packed values.
func rectPitches(region [3]int64, row, slice int64) (int64, int64) {
	if row == 0 {
		row = region[0]
	}
	if slice == 0 {
		slice = region[1] * row
	}
	return row, slice
}

// rectSpan returns the byte range touched by region at origin.
func rectSpan(origin, region [3]int64, row, slice int64) (start, end int64) {
	start = origin[2]*slice + origin[1]*row + origin[0]
	end = start + (region[2]-1)*slice + (region[1]-1)*row + region[0]
	return start, end
}

func validateRect(name string, size int64, origin, region [3]int64, row, slice int64) error {
	for i := range region {
		if region[i] <= 0 || origin[i] < 0 {
			return fmt.Errorf("%s: invalid origin %v / region %v: %w", name, origin, region, ErrInvalidValue)
		}
	}
	if row < region[0] || slice < region[1]*row {
		return fmt.Errorf("%s: pitch (row %d, slice %d) smaller than region %v: %w",
			name, row, slice, region, ErrInvalidValue)
	}
	if _, end := rectSpan(origin, region, row, slice); end > size {
		return fmt.Errorf("%s: region ends at %d, past size %d: %w", name, end, size, ErrInvalidValue)
	}
	return nil
}

// rectCopy copies region between two pitched layouts. Pitches must already
// be normalized and both sides validated.
func rectCopy(dst []byte, dstOrigin [3]int64, dstRow, dstSlice int64,
	src []byte, srcOrigin [3]int64, srcRow, srcSlice int64, region [3]int64) {
	for z := int64(0); z < region[2]; z++ {
		for y := int64(0); y < region[1]; y++ {
			d := (dstOrigin[2]+z)*dstSlice + (dstOrigin[1]+y)*dstRow + dstOrigin[0]
			s := (srcOrigin[2]+z)*srcSlice + (srcOrigin[1]+y)*srcRow + srcOrigin[0]
			copy(dst[d:d+region[0]], src[s:s+region[0]])
		}
	}
}

// normalizedRect is a Rect with every pitch filled in.
func normalizedRect(r Rect) Rect {
	r.SrcRowPitch, r.SrcSlicePitch = rectPitches(r.Region, r.SrcRowPitch, r.SrcSlicePitch)
	r.DstRowPitch, r.DstSlicePitch = rectPitches(r.Region, r.DstRowPitch, r.DstSlicePitch)
	return r
}
