package raster

import "errors"

// Error taxonomy of the resampling pipeline. Structural failures
// (resolution, grid, band shape) abort only the affected subdataset;
// failures opening the top-level source are fatal to the whole run.
var (
	// ErrInvalidResolution reports a non-positive source pixel size or
	// target resolution.
	ErrInvalidResolution = errors.New("invalid resolution")
	// ErrDegenerateGrid reports an output grid that rounds to zero rows
	// or columns.
	ErrDegenerateGrid = errors.New("degenerate output grid")
	// ErrEmptyInput reports a resample call with no bands.
	ErrEmptyInput = errors.New("no input bands")
	// ErrShapeMismatch reports bands with inconsistent dimensions.
	ErrShapeMismatch = errors.New("band shape mismatch")
	// ErrNoSubdatasets reports a source raster declaring zero subdatasets.
	ErrNoSubdatasets = errors.New("source declares no subdatasets")
	// ErrFileNotFound reports a missing source path.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnreadableFormat reports a source the raster driver cannot read.
	ErrUnreadableFormat = errors.New("unreadable raster format")
	// ErrWriteError reports a failed or interrupted output write.
	ErrWriteError = errors.New("raster write failed")
)
