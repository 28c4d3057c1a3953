// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package envisat reads datasets, raster bands and tie-point grids from
// ENVISAT-style satellite products.
//
// A Product ties together the shared file stream, the product's dataset
// descriptor table and a schema provider.  All raster and record access goes
// through readers obtained from it:
//
//	p, err := envisat.Open(path, "MER_RR__1P", dsds, schemas)
//	info, err := p.BandInfo("radiance_1", "Radiance MDS(1)", "radiance", band.OneOfOne)
//	lr, err := p.NewBandLineReader(info)
//	err = p.ReadRasterLine(lr, 0, info.Width-1, 1, y, line, 0)
package envisat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bpowers/envisat/band"
	"github.com/bpowers/envisat/dsd"
	"github.com/bpowers/envisat/internal/stream"
	"github.com/bpowers/envisat/record"
	"github.com/bpowers/envisat/recordio"
	"github.com/bpowers/envisat/schema"
	"github.com/bpowers/envisat/tiepoint"
)

// Product is one open product file.  It is safe for concurrent use; band
// line readers obtained from it may be used from different goroutines.
type Product struct {
	src         stream.Stream
	productType string
	dsds        *dsd.Table
	schemas     schema.Provider
	opts        options
	logger      *slog.Logger

	mu      sync.Mutex
	readers map[string]*recordio.Reader
}

// Open opens the product file at path.
func Open(path, productType string, dsds *dsd.Table, schemas schema.Provider, opts ...Option) (*Product, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	var src stream.Stream
	var err error
	if options.mmap {
		src, err = stream.OpenMapped(path)
	} else {
		src, err = stream.OpenFile(path)
	}
	if err != nil {
		return nil, err
	}

	p, err := newProduct(src, productType, dsds, schemas, options)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	p.logger.Debug("opened product", "path", path, "mmap", options.mmap)
	return p, nil
}

// New reads a product through a caller-owned io.ReadSeeker of size bytes.
// The product serializes every seek+read pair on rs; rs must not be used by
// anything else while the product is open, and Close leaves it open.
func New(rs io.ReadSeeker, size int64, productType string, dsds *dsd.Table, schemas schema.Provider, opts ...Option) (*Product, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return newProduct(stream.NewSeeker(rs, size), productType, dsds, schemas, options)
}

func newProduct(src stream.Stream, productType string, dsds *dsd.Table, schemas schema.Provider, options options) (*Product, error) {
	if dsds == nil {
		return nil, fmt.Errorf("%w: no dataset descriptor table", dsd.ErrMalformed)
	}
	if schemas == nil {
		return nil, fmt.Errorf("%w: no schema provider", schema.ErrUnknownRecordSchema)
	}

	logger := options.logger.With("product_type", productType)
	if err := dsds.Validate(uint64(src.Size())); err != nil {
		// truncated products stay readable up to the point of truncation
		logger.Warn("dataset descriptors exceed file size", "size", src.Size(), "err", err)
	}

	return &Product{
		src:         src,
		productType: productType,
		dsds:        dsds,
		schemas:     schemas,
		opts:        options,
		logger:      logger,
		readers:     make(map[string]*recordio.Reader),
	}, nil
}

// Close releases the product's stream.
func (p *Product) Close() error {
	return p.src.Close()
}

func (p *Product) ProductType() string { return p.productType }
func (p *Product) DSDs() *dsd.Table    { return p.dsds }
func (p *Product) Size() int64         { return p.src.Size() }

// IsChronological reports whether scanlines are stored in chronological
// order.  Reads from non-chronological products are mirrored.
func (p *Product) IsChronological() bool { return p.opts.chronological }

// RecordReader returns the (cached) record reader for the named dataset.
func (p *Product) RecordReader(dataset string) (*recordio.Reader, error) {
	key := strings.ToUpper(strings.TrimSpace(dataset))

	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.readers[key]; ok {
		return r, nil
	}

	d, err := p.dsds.Find(dataset)
	if err != nil {
		return nil, err
	}
	s, err := p.schemas.Lookup(p.productType, d.Name)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	r, err := recordio.NewReader(p.src, d, s,
		recordio.WithLineMapper(p.opts.mapper),
		recordio.WithLogger(p.logger),
		recordio.WithMetrics(p.opts.metrics))
	if err != nil {
		return nil, err
	}
	p.readers[key] = r
	return r, nil
}

// BandInfo describes a band over the named field of dataset.  The width is
// derived from the field's element count and the packing model; scaling is
// left to the caller.
func (p *Product) BandInfo(name, dataset, field string, packing band.PackingModel) (band.Info, error) {
	r, err := p.RecordReader(dataset)
	if err != nil {
		return band.Info{}, err
	}
	s := r.Schema()
	i := s.FieldIndex(field)
	if i < 0 {
		return band.Info{}, fmt.Errorf("band %q: %w: no field %q in %s", name, schema.ErrInvalidField, field, s)
	}
	width := packing.ColumnWidth()
	if width == 0 {
		return band.Info{}, fmt.Errorf("band %q: %w: %s", name, band.ErrUnsupportedPacking, packing)
	}
	fs := s.Field(i)
	return band.Info{
		Name:        name,
		Dataset:     r.Descriptor().Name,
		Width:       fs.Count / width,
		Height:      r.NumRecords(),
		Packing:     packing,
		FieldIndex:  i,
		Unit:        fs.Unit,
		Description: fs.Description,
	}, nil
}

// NewBandLineReader binds info to its dataset.  Unsupported packing and
// field type combinations fail here rather than on the first read, as does
// a fill value the band's output type cannot hold.  opts apply after the
// product's own settings.
func (p *Product) NewBandLineReader(info band.Info, opts ...band.Option) (*band.LineReader, error) {
	r, err := p.RecordReader(info.Dataset)
	if err != nil {
		return nil, err
	}
	opts = append([]band.Option{
		band.WithMissingValue(p.opts.missingValue),
		band.WithLogger(p.logger),
		band.WithMetrics(p.opts.metrics),
	}, opts...)
	return band.NewLineReader(r, info, opts...)
}

// LineRequest builds a request for row y carrying the product's scan order.
func (p *Product) LineRequest(minX, maxX, stepX, y int) band.LineRequest {
	return band.LineRequest{
		MinX:    minX,
		MaxX:    maxX,
		StepX:   stepX,
		Y:       y,
		Flipped: !p.opts.chronological,
	}
}

// ReadRasterLine reads columns minX..maxX (by stepX) of row y into dst at
// dstPos, mirroring the row for non-chronological products.
func (p *Product) ReadRasterLine(lr *band.LineReader, minX, maxX, stepX, y int, dst record.Array, dstPos int) error {
	return lr.ReadRasterLine(p.LineRequest(minX, maxX, stepX, y), dst, dstPos)
}

// TiePointGrid expands the tie-point band values to full resolution.  index
// may be nil for uniformly spaced tie points.  Scaling is taken from the
// values band and the row order from the product.
func (p *Product) TiePointGrid(values, index *band.LineReader, params tiepoint.Params) (*tiepoint.Grid, error) {
	info := values.Info()
	params.ScalingFactor, params.ScalingOffset = 1, 0
	if info.ScalingMethod != band.ScaleNone {
		params.ScalingFactor, params.ScalingOffset = info.ScalingFactor, info.ScalingOffset
	}
	params.Flipped = !p.opts.chronological

	var idx tiepoint.RowSource
	if index != nil {
		idx = index
	}
	g, err := tiepoint.Build(values, idx, params)
	if err != nil {
		return nil, fmt.Errorf("tie-point grid %q: %w", info.Name, err)
	}
	p.logger.Debug("built tie-point grid", "band", info.Name, "width", g.Width, "height", g.Height)
	return g, nil
}

// RecordTimes returns the UTC field value of every record of dataset, in
// file order.
func (p *Product) RecordTimes(dataset, field string) ([]time.Time, error) {
	r, err := p.RecordReader(dataset)
	if err != nil {
		return nil, err
	}
	i := r.Schema().FieldIndex(field)
	if i < 0 {
		return nil, fmt.Errorf("dataset %q: %w: no field %q", dataset, schema.ErrInvalidField, field)
	}
	fs := r.Schema().Field(i)
	if fs.Type != schema.UTC {
		return nil, fmt.Errorf("dataset %q: %w: field %q is %s, not UTC", dataset, schema.ErrInvalidField, field, fs.Type)
	}
	f, err := record.NewField(fs)
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, r.NumRecords())
	for n := range times {
		if err := r.ReadFieldMapped(n, i, f); err != nil {
			return nil, err
		}
		times[n] = f.Data().(record.UTC).Time(0)
	}
	return times, nil
}

// BandRequest asks for rows MinY..MaxY of a band, each row holding columns
// MinX..MaxX by StepX.  Rows are stored consecutively in Dst.
type BandRequest struct {
	Reader            *band.LineReader
	MinX, MaxX, StepX int
	MinY, MaxY        int
	Dst               record.Array
}

// Samples returns the number of elements Dst must hold.
func (r BandRequest) Samples() int {
	if r.MaxY < r.MinY {
		return 0
	}
	return band.NumSamples(r.MinX, r.MaxX, r.StepX) * (r.MaxY - r.MinY + 1)
}

// ReadBands serves every request concurrently, one goroutine per request.
// Cancellation is checked between lines; the first error cancels the rest.
func (p *Product) ReadBands(ctx context.Context, reqs []BandRequest) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if req.Reader == nil {
				return fmt.Errorf("band request %d: %w: no line reader", i, band.ErrWindow)
			}
			n := band.NumSamples(req.MinX, req.MaxX, req.StepX)
			if req.Dst == nil || req.Dst.Len() < req.Samples() {
				return fmt.Errorf("band %q: %w: destination too small for %d samples", req.Reader.Info().Name, band.ErrWindow, req.Samples())
			}
			for y := req.MinY; y <= req.MaxY; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := p.ReadRasterLine(req.Reader, req.MinX, req.MaxX, req.StepX, y, req.Dst, (y-req.MinY)*n); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
