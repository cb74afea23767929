// Package affine implements the six-coefficient affine transform used to
// map raster pixel coordinates to world coordinates. The coefficient
// layout matches the rasterio/Shapely Affine convention rather than
// GDAL's array ordering; converters for GDAL are provided.
package affine

import (
	"fmt"
	"math"
)

// Affine maps pixel (col, row) coordinates to world (x, y) coordinates.
// A is the pixel width, E the (signed, usually negative) pixel height,
// C/F the world coordinates of the raster origin, and B/D rotation or
// shear terms that are zero for axis-aligned rasters.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// FromGDAL builds an Affine from GDAL's geotransform array ordering.
func FromGDAL(transform [6]float64) Affine {
	return Affine{
		A: transform[1],
		B: transform[2],
		C: transform[0],
		D: transform[4],
		E: transform[5],
		F: transform[3],
	}
}

// ToGDAL returns the transform in GDAL's geotransform array ordering.
func (a Affine) ToGDAL() (transform [6]float64) {
	transform[0] = a.C
	transform[1] = a.A
	transform[2] = a.B
	transform[3] = a.F
	transform[4] = a.D
	transform[5] = a.E
	return transform
}

// Multiply applies the transform to pixel coordinates x, y.
func (a Affine) Multiply(x, y float64) (float64, float64) {
	return x*a.A + y*a.B + a.C, x*a.D + y*a.E + a.F
}

// Rescale divides the pixel-size terms A and E by scale and copies every
// other coefficient unchanged, preserving the raster origin and
// orientation. Dividing (rather than multiplying) keeps the world-space
// footprint constant when the grid dimensions grow by the same factor.
func (a Affine) Rescale(scale float64) Affine {
	return Affine{
		A: a.A / scale,
		B: a.B,
		C: a.C,
		D: a.D,
		E: a.E / scale,
		F: a.F,
	}
}

// Resolution returns the absolute x and y pixel sizes.
func (a Affine) Resolution() (float64, float64) {
	return math.Abs(a.A), math.Abs(a.E)
}

func (a Affine) String() string {
	return fmt.Sprintf("Affine(%v, %v, %v,\n       %v, %v, %v)", a.A, a.B, a.C, a.D, a.E, a.F)
}
