package gpu

import "fmt"

// SpatialDims is a one, two or three dimensional shape.
// The zero value is an unspecified shape with a length of zero.
type SpatialDims struct {
	lens [3]int
	dim  int
}

// Dims1 returns a one dimensional shape.
func Dims1(x int) SpatialDims {
	return SpatialDims{lens: [3]int{x, 1, 1}, dim: 1}
}

// Dims2 returns a two dimensional shape.
func Dims2(x, y int) SpatialDims {
	return SpatialDims{lens: [3]int{x, y, 1}, dim: 2}
}

// Dims3 returns a three dimensional shape.
func Dims3(x, y, z int) SpatialDims {
	return SpatialDims{lens: [3]int{x, y, z}, dim: 3}
}

// Dim returns the number of dimensions (0 if unspecified).
func (d SpatialDims) Dim() int { return d.dim }

// Lens returns the per-axis lengths, padding unused axes with 1.
func (d SpatialDims) Lens() [3]int { return d.lens }

// ToLen returns the product of all dimensions.
func (d SpatialDims) ToLen() int {
	if d.dim == 0 {
		return 0
	}
	return d.lens[0] * d.lens[1] * d.lens[2]
}

func (d SpatialDims) String() string {
	switch d.dim {
	case 1:
		return fmt.Sprintf("[%d]", d.lens[0])
	case 2:
		return fmt.Sprintf("[%d, %d]", d.lens[0], d.lens[1])
	case 3:
		return fmt.Sprintf("[%d, %d, %d]", d.lens[0], d.lens[1], d.lens[2])
	default:
		return "[unspecified]"
	}
}
