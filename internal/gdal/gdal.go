// Package gdal implements the pipeline's raster I/O collaborators on
// top of the godal GDAL bindings: dataset opening, subdataset
// enumeration, whole-band reads and GeoTIFF write-out.
package gdal

import (
	"fmt"
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"gonum.org/v1/gonum/mat"

	"github.com/kiesman99/regrid/internal/pipeline"
	"github.com/kiesman99/regrid/pkg/affine"
	"github.com/kiesman99/regrid/pkg/raster"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Source opens datasets through GDAL. The zero value is ready to use.
type Source struct{}

// Open opens path (a file or a GDAL subdataset identifier) read-only
// and snapshots its profile and subdataset list.
func (Source) Open(path string) (pipeline.Handle, error) {
	register()

	ds, err := godal.Open(path)
	if err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil, fmt.Errorf("%s: %w", path, raster.ErrFileNotFound)
		}
		return nil, fmt.Errorf("%s: %v: %w", path, err, raster.ErrUnreadableFormat)
	}

	return &dataset{ds: ds, profile: snapshotProfile(ds)}, nil
}

type dataset struct {
	ds      *godal.Dataset
	profile raster.Profile
}

func (d *dataset) Subdatasets() []string {
	md := d.ds.Metadatas(godal.Domain("SUBDATASETS"))

	var paths []string
	for i := 1; ; i++ {
		name, ok := md[fmt.Sprintf("SUBDATASET_%d_NAME", i)]
		if !ok {
			break
		}
		paths = append(paths, name)
	}
	return paths
}

func (d *dataset) Profile() raster.Profile {
	return d.profile
}

// ReadBands reads every band whole into float64 planes. GDAL converts
// from the band's native pixel type.
func (d *dataset) ReadBands() ([]*mat.Dense, error) {
	s := d.ds.Structure()
	bands := d.ds.Bands()

	out := make([]*mat.Dense, len(bands))
	for i, b := range bands {
		buf := make([]float64, s.SizeX*s.SizeY)
		if err := b.Read(0, 0, buf, s.SizeX, s.SizeY); err != nil {
			return nil, fmt.Errorf("band %d: %v: %w", i+1, err, raster.ErrUnreadableFormat)
		}
		out[i] = mat.NewDense(s.SizeY, s.SizeX, buf)
	}
	return out, nil
}

func (d *dataset) Close() error {
	return d.ds.Close()
}

func snapshotProfile(ds *godal.Dataset) raster.Profile {
	s := ds.Structure()

	p := raster.Profile{
		DataType: s.DataType.String(),
		Width:    s.SizeX,
		Height:   s.SizeY,
		Count:    s.NBands,
		CRS:      ds.Projection(),
	}

	if gt, err := ds.GeoTransform(); err == nil {
		p.Transform = affine.FromGDAL(gt)
		p.Resolution[0], p.Resolution[1] = p.Transform.Resolution()
	}

	if bands := ds.Bands(); len(bands) > 0 {
		if nd, ok := bands[0].NoData(); ok {
			p.NoData = &nd
		}
	}

	return p
}

// Sink writes resampled subdatasets as tiled, LZW-compressed GeoTIFFs
// with unsigned 16-bit samples. The zero value is ready to use.
type Sink struct{}

// Write creates the output raster at path. A failed write removes the
// file again so no partial output is left behind.
func (Sink) Write(path string, sds raster.ResampledSubdataset) error {
	register()

	p := sds.Profile
	if len(sds.Bands) != p.Count {
		return fmt.Errorf("%s: %d planes for %d declared bands: %w", path, len(sds.Bands), p.Count, raster.ErrWriteError)
	}

	ds, err := godal.Create(godal.GTiff, path, p.Count, godal.UInt16, p.Width, p.Height,
		godal.CreationOption("COMPRESS=LZW", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, raster.ErrWriteError)
	}

	fail := func(cause error) error {
		ds.Close()
		os.Remove(path)
		return fmt.Errorf("%s: %v: %w", path, cause, raster.ErrWriteError)
	}

	if err := ds.SetGeoTransform(p.Transform.ToGDAL()); err != nil {
		return fail(err)
	}
	if p.CRS != "" {
		if err := ds.SetProjection(p.CRS); err != nil {
			return fail(err)
		}
	}
	if p.NoData != nil {
		if err := ds.SetNoData(*p.NoData); err != nil {
			return fail(err)
		}
	}

	for i, b := range ds.Bands() {
		if err := b.Write(0, 0, sds.Bands[i], p.Width, p.Height); err != nil {
			return fail(fmt.Errorf("band %d: %v", i+1, err))
		}
	}

	if err := ds.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%s: %v: %w", path, err, raster.ErrWriteError)
	}
	return nil
}
