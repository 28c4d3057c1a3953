// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package band

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/bpowers/envisat/metrics"
	"github.com/bpowers/envisat/record"
	"github.com/bpowers/envisat/recordio"
	"github.com/bpowers/envisat/schema"
)

type Option func(lr *LineReader)

// WithMissingValue sets the value written for raster lines that have no
// record in the file.  It must be representable in the band's output type;
// NewLineReader fails with ErrMissingValue otherwise.  The default is 0.
func WithMissingValue(v float64) Option {
	return func(lr *LineReader) {
		lr.missing = v
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(lr *LineReader) {
		if logger != nil {
			lr.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(lr *LineReader) {
		lr.metrics = m
	}
}

// LineRequest selects the columns MinX, MinX+StepX, ... <= MaxX of raster
// row Y.  Flipped is set for products whose scanlines are stored in
// reverse chronological order; the columns are then mirrored so the
// result is in geographic order.
type LineRequest struct {
	MinX, MaxX, StepX int
	Y                 int
	Flipped           bool
}

// FullLine requests every column of row y.
func FullLine(width, y int, flipped bool) LineRequest {
	return LineRequest{MinX: 0, MaxX: width - 1, StepX: 1, Y: y, Flipped: flipped}
}

// LineReader reads raster lines of one band.  It owns a single recycled
// record, guarded by a mutex; reading different LineReaders concurrently is
// safe.
type LineReader struct {
	info    Info
	reader  *recordio.Reader
	decoder Decoder
	missing float64
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	rec *record.Record
}

// NewLineReader binds info to the records of r, resolving the decoder for the
// band's packing model and source field type.
func NewLineReader(r *recordio.Reader, info Info, opts ...Option) (*LineReader, error) {
	s := r.Schema()
	if info.FieldIndex < 0 || info.FieldIndex >= s.NumFields() {
		return nil, fmt.Errorf("band %q: %w: field index %d of %s", info.Name, schema.ErrInvalidField, info.FieldIndex, s)
	}
	fs := s.Field(info.FieldIndex)

	decoder, err := Lookup(info.Packing, fs.Type)
	if err != nil {
		return nil, fmt.Errorf("band %q field %q: %w", info.Name, fs.Name, err)
	}
	if info.Width <= 0 {
		return nil, fmt.Errorf("band %q: %w: width %d", info.Name, ErrWindow, info.Width)
	}
	if need := info.Width * info.Packing.ColumnWidth(); fs.Count < need {
		return nil, fmt.Errorf("band %q field %q: %w: %d elements, %d columns need %d",
			info.Name, fs.Name, ErrShortSource, fs.Count, info.Width, need)
	}
	if info.Height <= 0 {
		info.Height = r.NumRecords()
	}
	if info.Dataset == "" {
		info.Dataset = r.Descriptor().Name
	}

	lr := &LineReader{
		info:    info,
		reader:  r,
		decoder: decoder,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		rec:     r.NewRecord(),
	}
	for _, opt := range opts {
		opt(lr)
	}
	if !representable(decoder.Output, lr.missing) {
		return nil, fmt.Errorf("band %q: %w: %v does not fit %s", info.Name, ErrMissingValue, lr.missing, decoder.Output)
	}

	lr.logger.Debug("band line reader created",
		"band", info.Name,
		"dataset", info.Dataset,
		"field", fs.Name,
		"decoder", decoder.String())

	return lr, nil
}

// representable reports whether v converts to t without leaving its range.
// Integer types reject NaN and fractions are truncated toward zero.
func representable(t schema.ElementType, v float64) bool {
	var lo, hi float64
	switch t {
	case schema.Int8:
		lo, hi = math.MinInt8, math.MaxInt8
	case schema.Uint8:
		lo, hi = 0, math.MaxUint8
	case schema.Int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case schema.Uint16:
		lo, hi = 0, math.MaxUint16
	case schema.Int32:
		lo, hi = math.MinInt32, math.MaxInt32
	case schema.Uint32:
		lo, hi = 0, math.MaxUint32
	case schema.Float32:
		return math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) <= math.MaxFloat32
	default:
		return true
	}
	return v >= lo && v <= hi
}

func (lr *LineReader) Info() Info       { return lr.info }
func (lr *LineReader) Width() int       { return lr.info.Width }
func (lr *LineReader) Height() int      { return lr.info.Height }
func (lr *LineReader) Decoder() Decoder { return lr.decoder }

// OutputType is the element type of destination arrays.
func (lr *LineReader) OutputType() schema.ElementType { return lr.decoder.Output }

// NewLine allocates a destination array of n samples.
func (lr *LineReader) NewLine(n int) record.Array {
	// decoder outputs are always numeric array types
	a, _ := record.NewArray(lr.decoder.Output, n)
	return a
}

// ReadRasterLine decodes the requested columns of one raster row into dst
// starting at dstPos.  A row with no record in the file is filled with the
// missing value and is not an error.
func (lr *LineReader) ReadRasterLine(req LineRequest, dst record.Array, dstPos int) error {
	n, err := lr.checkRequest(req, dst, dstPos)
	if err != nil {
		return err
	}

	mapped := lr.reader.MapIndex(req.Y)
	if !lr.reader.InRange(mapped) {
		for i := 0; i < n; i++ {
			dst.SetFloat64(dstPos+i, lr.missing)
		}
		lr.metrics.MissingLine(lr.info.Dataset)
		lr.logger.Debug("filled missing line",
			"band", lr.info.Name,
			"y", req.Y,
			"mapped", mapped)
		return nil
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	if err := lr.reader.ReadMapped(mapped, lr.rec); err != nil {
		return fmt.Errorf("band %q line %d: %w", lr.info.Name, req.Y, err)
	}
	src := lr.rec.Field(lr.info.FieldIndex).Data()

	minX, maxX, pos, incr := req.MinX, req.MaxX, dstPos, 1
	if req.Flipped {
		lastX := req.MinX + (n-1)*req.StepX
		minX = lr.info.Width - 1 - lastX
		maxX = lr.info.Width - 1 - req.MinX
		pos = dstPos + n - 1
		incr = -1
	}
	if err := lr.decoder.Decode(src, dst, minX, maxX, req.StepX, pos, incr); err != nil {
		return fmt.Errorf("band %q line %d: %w", lr.info.Name, req.Y, err)
	}
	return nil
}

// ReadLineRecord reads the record backing row y and passes it to fn while
// holding the reader's lock.  The record must not be retained after fn
// returns.
func (lr *LineReader) ReadLineRecord(y int, fn func(rec *record.Record) error) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if err := lr.reader.Read(y, lr.rec); err != nil {
		return fmt.Errorf("band %q line %d: %w", lr.info.Name, y, err)
	}
	return fn(lr.rec)
}

func (lr *LineReader) checkRequest(req LineRequest, dst record.Array, dstPos int) (int, error) {
	if req.StepX <= 0 || req.MinX < 0 || req.MaxX < req.MinX || req.MaxX >= lr.info.Width {
		return 0, fmt.Errorf("band %q: %w: columns [%d, %d] step %d of width %d",
			lr.info.Name, ErrWindow, req.MinX, req.MaxX, req.StepX, lr.info.Width)
	}
	if dst == nil || dst.Type() != lr.decoder.Output {
		return 0, fmt.Errorf("band %q: %w: destination %T, want %s", lr.info.Name, ErrRasterType, dst, lr.decoder.Output)
	}
	n := NumSamples(req.MinX, req.MaxX, req.StepX)
	if dstPos < 0 || dstPos+n > dst.Len() {
		return 0, fmt.Errorf("band %q: %w: %d samples at %d exceed destination of %d",
			lr.info.Name, ErrWindow, n, dstPos, dst.Len())
	}
	return n, nil
}
