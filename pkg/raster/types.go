// Package raster defines the shared value types of the resampling
// pipeline: interpolation policies, resampler strategies, raster
// profiles and the resampled output produced for each subdataset.
package raster

import (
	"fmt"
	"strings"

	"github.com/kiesman99/regrid/pkg/affine"
)

// InterpolationPolicy selects the resampling algorithm used by the
// policy-aware resampler.
type InterpolationPolicy int

const (
	NearestNeighbor InterpolationPolicy = iota
	Bilinear
	Cubic
	CubicSpline
)

func (p InterpolationPolicy) String() string {
	switch p {
	case NearestNeighbor:
		return "nearest"
	case Bilinear:
		return "bilinear"
	case Cubic:
		return "cubic"
	case CubicSpline:
		return "cubicspline"
	default:
		return fmt.Sprintf("InterpolationPolicy(%d)", int(p))
	}
}

// ParsePolicy parses a resampling-method name as accepted on the CLI.
func ParsePolicy(s string) (InterpolationPolicy, error) {
	switch strings.ToLower(s) {
	case "nearest":
		return NearestNeighbor, nil
	case "bilinear":
		return Bilinear, nil
	case "cubic":
		return Cubic, nil
	case "cubicspline":
		return CubicSpline, nil
	default:
		return 0, fmt.Errorf("unknown resampling method: %q (expected nearest, bilinear, cubic or cubicspline)", s)
	}
}

// Strategy selects which resampler implementation is used.
type Strategy int

const (
	// PolicyAware regenerates each band at the output dimensions using
	// the algorithm named by the InterpolationPolicy.
	PolicyAware Strategy = iota
	// FixedNearest always performs an order-0 nearest-neighbor zoom
	// with edge-clamped lookups, regardless of the requested policy.
	FixedNearest
)

func (s Strategy) String() string {
	switch s {
	case PolicyAware:
		return "policy-aware"
	case FixedNearest:
		return "fixed-nearest"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses a resampler name as accepted on the CLI.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "policy-aware":
		return PolicyAware, nil
	case "fixed-nearest":
		return FixedNearest, nil
	default:
		return 0, fmt.Errorf("unknown resampler: %q (expected policy-aware or fixed-nearest)", s)
	}
}

// OutputFormat names the driver and pixel type of written rasters.
type OutputFormat struct {
	Driver   string
	DataType string
}

// GTiffUInt16 is the fixed output format of the pipeline: tiled GeoTIFF
// with unsigned 16-bit samples regardless of the source pixel depth.
var GTiffUInt16 = OutputFormat{Driver: "GTiff", DataType: "UInt16"}

// Profile describes one raster subdataset: its format, grid shape and
// georeferencing. Profiles are value types; copying one never aliases
// the original.
type Profile struct {
	Driver     string
	DataType   string
	Width      int
	Height     int
	Count      int
	Transform  affine.Affine
	Resolution [2]float64 // x, y pixel size
	CRS        string     // projection WKT, passed through unmodified
	NoData     *float64
}

// ResampledSubdataset pairs the resampled pixel planes of one
// subdataset with the profile describing them. Pixel values have been
// clamped to the unsigned 16-bit range; that conversion is lossy and
// irreversible for sources with a wider or signed pixel type.
type ResampledSubdataset struct {
	Profile Profile
	// Bands holds one row-major Width×Height plane per band.
	Bands [][]uint16
}
