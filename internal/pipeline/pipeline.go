// Package pipeline orchestrates the per-subdataset resampling pipeline:
// geometry calculation, band resampling, profile assembly and write-out.
// Subdatasets are independent; each runs in its own worker and failures
// in one never prevent the others from being written.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/kiesman99/regrid/internal/geom"
	"github.com/kiesman99/regrid/internal/resample"
	"github.com/kiesman99/regrid/pkg/raster"
)

// Source opens raster datasets. Open fails with raster.ErrFileNotFound
// for a missing path and raster.ErrUnreadableFormat for a path no
// driver can read.
type Source interface {
	Open(path string) (Handle, error)
}

// Handle is a read-only view of one opened dataset. The pipeline reads
// through it during a single resample call and never retains it.
type Handle interface {
	// Subdatasets returns the subdataset paths in declaration order.
	Subdatasets() []string
	Profile() raster.Profile
	ReadBands() ([]*mat.Dense, error)
	Close() error
}

// Sink persists one resampled subdataset. Write fails with
// raster.ErrWriteError and must not leave a partial file behind.
type Sink interface {
	Write(path string, sds raster.ResampledSubdataset) error
}

// Options configures one pipeline run.
type Options struct {
	SourcePath       string
	OutputPath       string
	NamingScheme     string // base of output file names, default "output"
	TargetResolution float64
	Policy           raster.InterpolationPolicy
	Strategy         raster.Strategy
	Workers          int // <= 0 means one worker per CPU
}

// WrittenRaster describes one successfully written output file.
type WrittenRaster struct {
	Index  int    `json:"index"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Count  int    `json:"count"`
}

// SubdatasetError records the failure of a single subdataset's
// pipeline. The run as a whole carries on.
type SubdatasetError struct {
	Index int
	Path  string
	Err   error
}

func (e *SubdatasetError) Error() string {
	return fmt.Sprintf("subdataset %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *SubdatasetError) Unwrap() error {
	return e.Err
}

// Report collects the outcome of a run: everything written plus every
// isolated subdataset failure, both in discovery order.
type Report struct {
	Written  []WrittenRaster
	Failures []*SubdatasetError
}

// Pipeline resamples every subdataset of a source raster.
type Pipeline struct {
	source Source
	sink   Sink
}

func New(source Source, sink Sink) *Pipeline {
	return &Pipeline{source: source, sink: sink}
}

// Run discovers the subdatasets of opts.SourcePath and resamples each
// one to opts.TargetResolution, writing {scheme}_{index}.tiff files to
// opts.OutputPath. Errors opening the top-level source are fatal;
// per-subdataset errors are collected in the report instead.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.NamingScheme == "" {
		opts.NamingScheme = "output"
	}

	root, err := p.source.Open(opts.SourcePath)
	if err != nil {
		return nil, err
	}
	paths := root.Subdatasets()
	root.Close()

	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", opts.SourcePath, raster.ErrNoSubdatasets)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type outcome struct {
		written *WrittenRaster
		failure *SubdatasetError
	}
	outcomes := make([]outcome, len(paths))

	limiter := newConcLimiter(workers)
	for i, path := range paths {
		limiter.Increase()
		go func(i int, path string) {
			defer limiter.Decrease()

			written, err := p.processSubdataset(ctx, i, path, opts)
			if err != nil {
				outcomes[i] = outcome{failure: &SubdatasetError{Index: i, Path: path, Err: err}}
				return
			}
			outcomes[i] = outcome{written: written}
		}(i, path)
	}
	limiter.Wait()

	report := &Report{}
	for _, o := range outcomes {
		if o.failure != nil {
			log.Errorf("Subdataset failed: %v", o.failure)
			report.Failures = append(report.Failures, o.failure)
			continue
		}
		report.Written = append(report.Written, *o.written)
	}

	return report, nil
}

// processSubdataset runs geometry, resampling, assembly and write-out
// for one subdataset. Nothing is written unless every prior stage
// succeeded.
func (p *Pipeline) processSubdataset(ctx context.Context, index int, path string, opts Options) (*WrittenRaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handle, err := p.source.Open(path)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	profile := handle.Profile()

	g, err := geom.Compute(profile.Resolution[0], profile.Transform, profile.Height, profile.Width, opts.TargetResolution)
	if err != nil {
		return nil, err
	}

	bands, err := handle.ReadBands()
	if err != nil {
		return nil, err
	}

	resampled, err := resample.Resample(bands, g.Scale, g.Grid, opts.Policy, opts.Strategy)
	if err != nil {
		return nil, err
	}

	sds, err := Assemble(profile, g, resampled, raster.GTiffUInt16)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outPath := filepath.Join(opts.OutputPath, fmt.Sprintf("%s_%d.tiff", opts.NamingScheme, index))
	if err := p.sink.Write(outPath, sds); err != nil {
		return nil, err
	}

	log.Infof("Raster written to %s", outPath)
	return &WrittenRaster{
		Index:  index,
		Path:   outPath,
		Width:  sds.Profile.Width,
		Height: sds.Profile.Height,
		Count:  sds.Profile.Count,
	}, nil
}
