package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kiesman99/regrid/internal/geom"
	"github.com/kiesman99/regrid/pkg/raster"
)

// Assemble builds the output descriptor and pixel planes for one
// resampled subdataset. The source profile is copied and its
// resolution, transform and dimensions overwritten from the computed
// geometry, then driver and pixel type from the output format. Pixel
// values are clamped to the unsigned 16-bit range and fractions
// truncate toward zero; for wider or signed sources this conversion is
// lossy and irreversible.
func Assemble(src raster.Profile, g geom.Geometry, bands []*mat.Dense, format raster.OutputFormat) (raster.ResampledSubdataset, error) {
	if len(bands) == 0 {
		return raster.ResampledSubdataset{}, raster.ErrEmptyInput
	}
	for i, b := range bands {
		if h, w := b.Dims(); h != g.Grid.Height || w != g.Grid.Width {
			return raster.ResampledSubdataset{}, fmt.Errorf("band %d is %dx%d, output grid is %dx%d: %w",
				i, h, w, g.Grid.Height, g.Grid.Width, raster.ErrShapeMismatch)
		}
	}

	profile := src
	profile.Driver = format.Driver
	profile.DataType = format.DataType
	profile.Width = g.Grid.Width
	profile.Height = g.Grid.Height
	profile.Count = len(bands)
	profile.Transform = g.Transform
	profile.Resolution = g.Resolution

	planes := make([][]uint16, len(bands))
	for i, b := range bands {
		data := b.RawMatrix().Data
		plane := make([]uint16, len(data))
		for j, v := range data {
			plane[j] = clampUint16(v)
		}
		planes[i] = plane
	}

	return raster.ResampledSubdataset{Profile: profile, Bands: planes}, nil
}

func clampUint16(v float64) uint16 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}
