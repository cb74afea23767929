// Package resample regenerates raster bands at new grid dimensions. Two
// strategies are available: a policy-aware resampler that honors the
// requested interpolation method, and a fixed nearest-neighbor zoom
// that ignores it.
package resample

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/kiesman99/regrid/internal/geom"
	"github.com/kiesman99/regrid/pkg/raster"
)

// Resample produces one output band per input band at the output grid
// dimensions. The function is pure over its inputs; strategy and policy
// selection are reported as log events only.
func Resample(bands []*mat.Dense, scale float64, grid geom.Grid, policy raster.InterpolationPolicy, strategy raster.Strategy) ([]*mat.Dense, error) {
	if len(bands) == 0 {
		return nil, raster.ErrEmptyInput
	}

	srcH, srcW := bands[0].Dims()
	for i, b := range bands {
		if h, w := b.Dims(); h != srcH || w != srcW {
			return nil, fmt.Errorf("band %d is %dx%d, band 0 is %dx%d: %w", i, h, w, srcH, srcW, raster.ErrShapeMismatch)
		}
	}

	out := make([]*mat.Dense, len(bands))

	switch strategy {
	case raster.FixedNearest:
		log.Info("Using fixed nearest-neighbor resampler...")
		if policy != raster.NearestNeighbor {
			log.Warnf("Fixed nearest-neighbor resampler does not honor resampling methods! %s was requested but will not be used; use the policy-aware resampler for this!", policy)
		}
		for i, b := range bands {
			out[i] = zoomNearest(b, scale, grid)
		}
	default:
		log.Infof("Using policy-aware resampler (%s)...", policy)
		for i, b := range bands {
			out[i] = regenerate(b, grid, policy)
		}
	}

	return out, nil
}

// regenerate reads the source band at the output dimensions, placing
// each output cell at its center in source pixel space and sampling
// with the kernel named by the policy. Out-of-bounds lookups clamp to
// the nearest valid index.
func regenerate(src *mat.Dense, grid geom.Grid, policy raster.InterpolationPolicy) *mat.Dense {
	srcH, srcW := src.Dims()
	out := mat.NewDense(grid.Height, grid.Width, nil)

	sy := float64(srcH) / float64(grid.Height)
	sx := float64(srcW) / float64(grid.Width)

	for r := 0; r < grid.Height; r++ {
		cy := (float64(r)+0.5)*sy - 0.5
		for c := 0; c < grid.Width; c++ {
			cx := (float64(c)+0.5)*sx - 0.5

			var v float64
			switch policy {
			case raster.Bilinear:
				v = bilinear(src, cx, cy)
			case raster.Cubic:
				v = convolve4x4(src, cx, cy, catmullRom)
			case raster.CubicSpline:
				v = convolve4x4(src, cx, cy, bspline)
			default:
				v = src.At(clampIndex(int(math.Round(cy)), srcH), clampIndex(int(math.Round(cx)), srcW))
			}
			out.Set(r, c, v)
		}
	}

	return out
}

// zoomNearest magnifies or decimates a band by the scale factor with
// order-0 lookups, clamping out-of-bounds indices to the edge.
func zoomNearest(src *mat.Dense, scale float64, grid geom.Grid) *mat.Dense {
	srcH, srcW := src.Dims()
	out := mat.NewDense(grid.Height, grid.Width, nil)

	for r := 0; r < grid.Height; r++ {
		sr := clampIndex(int(math.Round(float64(r)/scale)), srcH)
		for c := 0; c < grid.Width; c++ {
			sc := clampIndex(int(math.Round(float64(c)/scale)), srcW)
			out.Set(r, c, src.At(sr, sc))
		}
	}

	return out
}

// bilinear interpolates from the 4 source cells enclosing (cx, cy).
func bilinear(src *mat.Dense, cx, cy float64) float64 {
	srcH, srcW := src.Dims()

	x0 := int(math.Floor(cx))
	y0 := int(math.Floor(cy))
	fx := cx - float64(x0)
	fy := cy - float64(y0)

	x0c := clampIndex(x0, srcW)
	x1c := clampIndex(x0+1, srcW)
	y0c := clampIndex(y0, srcH)
	y1c := clampIndex(y0+1, srcH)

	return src.At(y0c, x0c)*(1-fx)*(1-fy) +
		src.At(y0c, x1c)*fx*(1-fy) +
		src.At(y1c, x0c)*(1-fx)*fy +
		src.At(y1c, x1c)*fx*fy
}

// convolve4x4 samples the 4x4 neighborhood around (cx, cy) with a
// separable cubic kernel.
func convolve4x4(src *mat.Dense, cx, cy float64, kernel func(float64) float64) float64 {
	srcH, srcW := src.Dims()

	x0 := int(math.Floor(cx))
	y0 := int(math.Floor(cy))

	var sum float64
	for m := -1; m <= 2; m++ {
		y := y0 + m
		wy := kernel(cy - float64(y))
		if wy == 0 {
			continue
		}
		yc := clampIndex(y, srcH)
		for n := -1; n <= 2; n++ {
			x := x0 + n
			wx := kernel(cx - float64(x))
			if wx == 0 {
				continue
			}
			sum += src.At(yc, clampIndex(x, srcW)) * wy * wx
		}
	}

	return sum
}

// catmullRom is the cubic convolution kernel with a = -0.5.
func catmullRom(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t < 1:
		return (1.5*t-2.5)*t*t + 1
	case t < 2:
		return ((-0.5*t+2.5)*t-4)*t + 2
	default:
		return 0
	}
}

// bspline is the cubic B-spline smoothing kernel.
func bspline(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t < 1:
		return (0.5*t-1)*t*t + 2.0/3.0
	case t < 2:
		d := 2 - t
		return d * d * d / 6
	default:
		return 0
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
