// Package geom derives the output geometry of a resample: the
// dimensionless scale factor, the rescaled affine transform and the
// output grid dimensions.
package geom

import (
	"fmt"
	"math"

	"github.com/kiesman99/regrid/pkg/affine"
	"github.com/kiesman99/regrid/pkg/raster"
)

// Grid is the output raster shape in pixels.
type Grid struct {
	Width  int
	Height int
}

// Geometry is the result of Compute: everything the resampler and the
// profile assembler need to stay geometrically consistent.
type Geometry struct {
	// Scale is floor(source pixel size) / target resolution.
	Scale     float64
	Transform affine.Affine
	Grid      Grid
	// Resolution is the declared output pixel size (target, target).
	Resolution [2]float64
}

// Compute derives the resample geometry for one subdataset.
//
// The scale factor truncates the source pixel size to an integer before
// dividing. That truncation is intentional legacy behavior carried over
// from the original pipeline and is not equivalent to using the exact
// pixel size when it is non-integral (e.g. 30.5m pixels scale as 30m).
// Callers relying on exact sub-metre pixel sizes should be aware the
// fractional part is discarded.
func Compute(pixelSize float64, src affine.Affine, srcHeight, srcWidth int, targetRes float64) (Geometry, error) {
	if targetRes <= 0 {
		return Geometry{}, fmt.Errorf("target resolution %v: %w", targetRes, raster.ErrInvalidResolution)
	}
	if pixelSize <= 0 {
		return Geometry{}, fmt.Errorf("source pixel size %v: %w", pixelSize, raster.ErrInvalidResolution)
	}

	scale := math.Trunc(pixelSize) / targetRes

	grid := Grid{
		Width:  int(math.Round(float64(srcWidth) * scale)),
		Height: int(math.Round(float64(srcHeight) * scale)),
	}
	if grid.Width < 1 || grid.Height < 1 {
		return Geometry{}, fmt.Errorf("%dx%d at scale %v: %w", srcWidth, srcHeight, scale, raster.ErrDegenerateGrid)
	}

	// Shrinking the pixel-size terms while growing the dimensions keeps
	// the world-space footprint constant; B, C, D and F pass through.
	return Geometry{
		Scale:      scale,
		Transform:  src.Rescale(scale),
		Grid:       grid,
		Resolution: [2]float64{targetRes, targetRes},
	}, nil
}
