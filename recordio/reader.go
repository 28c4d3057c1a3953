// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package recordio reads fixed-size records of one dataset from a shared
// product stream.
//
// Record i of a dataset lives at
//
//	offset = dataset.Offset + mapped(i) * dataset.RecordSize
//
// where mapped is the identity unless the dataset is a measurement dataset
// and a LineMapper was supplied.
package recordio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bpowers/envisat/dsd"
	"github.com/bpowers/envisat/metrics"
	"github.com/bpowers/envisat/record"
	"github.com/bpowers/envisat/schema"
)

var (
	ErrIndexOutOfRange = errors.New("record index out of range")
	ErrSchemaMismatch  = errors.New("record schema mismatch")
	ErrRecordSize      = errors.New("schema size does not match dataset record size")
)

type ReaderOption func(r *Reader)

// WithLineMapper sets the row remapping applied to measurement datasets.
func WithLineMapper(m LineMapper) ReaderOption {
	return func(r *Reader) {
		if m != nil {
			r.mapper = m
		}
	}
}

func WithLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) ReaderOption {
	return func(r *Reader) {
		r.metrics = m
	}
}

// Reader reads records of one dataset.  It holds no per-read state and is
// safe for concurrent use as long as the underlying io.ReaderAt is; callers
// must not share one recycled Record between goroutines.
type Reader struct {
	src     io.ReaderAt
	dsd     dsd.Descriptor
	schema  *schema.RecordSchema
	mapper  LineMapper
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewReader binds the dataset d, laid out per s, to src.  The schema's byte
// size must equal the dataset's record size.
func NewReader(src io.ReaderAt, d dsd.Descriptor, s *schema.RecordSchema, opts ...ReaderOption) (*Reader, error) {
	if s == nil {
		return nil, fmt.Errorf("dataset %q: %w: nil schema", d.Name, schema.ErrUnknownRecordSchema)
	}
	if s.Size() != int(d.RecordSize) {
		return nil, fmt.Errorf("dataset %q: %w (schema %q is %d bytes, records are %d)",
			d.Name, ErrRecordSize, s.Name(), s.Size(), d.RecordSize)
	}

	r := &Reader{
		src:    src,
		dsd:    d,
		schema: s,
		mapper: IdentityMapper{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.logger.Debug("record reader created",
		"dataset", d.Name,
		"kind", d.Kind.String(),
		"schema", s.Name(),
		"records", d.RecordCount)

	return r, nil
}

func (r *Reader) Descriptor() dsd.Descriptor   { return r.dsd }
func (r *Reader) Schema() *schema.RecordSchema { return r.schema }
func (r *Reader) NumRecords() int              { return int(r.dsd.RecordCount) }

// NewRecord allocates a Record suitable for recycling through Read.
func (r *Reader) NewRecord() *record.Record { return record.New(r.schema) }

// InRange reports whether a mapped index names a record of the dataset.
func (r *Reader) InRange(mapped int) bool {
	return mapped >= 0 && mapped < int(r.dsd.RecordCount)
}

func (r *Reader) offset(mapped int) int64 {
	return int64(r.dsd.Offset) + int64(mapped)*int64(r.dsd.RecordSize)
}

func (r *Reader) checkRecord(rec *record.Record) error {
	if rec == nil || !rec.Schema().SameLayout(r.schema) {
		return fmt.Errorf("dataset %q: %w", r.dsd.Name, ErrSchemaMismatch)
	}
	return nil
}

// MapIndex returns the physical record index for the logical index.  Only
// measurement datasets are remapped.
func (r *Reader) MapIndex(index int) int {
	if r.dsd.Kind == dsd.Measurement {
		return r.mapper.Map(index)
	}
	return index
}

// Read fills rec with the record at the logical index.
func (r *Reader) Read(index int, rec *record.Record) error {
	return r.ReadMapped(r.MapIndex(index), rec)
}

// ReadMapped fills rec with the record at the already-mapped physical
// index.  On an I/O failure rec is zeroed.
func (r *Reader) ReadMapped(mapped int, rec *record.Record) error {
	if err := r.checkRecord(rec); err != nil {
		return err
	}
	if !r.InRange(mapped) {
		return fmt.Errorf("dataset %q: %w: %d not in [0, %d)", r.dsd.Name, ErrIndexOutOfRange, mapped, r.dsd.RecordCount)
	}

	off := r.offset(mapped)
	if _, err := r.src.ReadAt(rec.Raw(), off); err != nil {
		rec.Reset()
		r.metrics.ReadError(r.dsd.Name)
		return fmt.Errorf("dataset %q: record %d at offset %d: %w", r.dsd.Name, mapped, off, err)
	}
	rec.Decode()
	r.metrics.RecordRead(r.dsd.Name, len(rec.Raw()))
	return nil
}

// ReadField reads only field fieldIndex of the record at the logical index
// into f, which must have been created from the same field layout.
func (r *Reader) ReadField(index, fieldIndex int, f *record.Field) error {
	return r.ReadFieldMapped(r.MapIndex(index), fieldIndex, f)
}

// ReadFieldMapped is ReadField at an already-mapped physical index.
func (r *Reader) ReadFieldMapped(mapped, fieldIndex int, f *record.Field) error {
	if fieldIndex < 0 || fieldIndex >= r.schema.NumFields() {
		return fmt.Errorf("dataset %q: %w: field index %d", r.dsd.Name, schema.ErrInvalidField, fieldIndex)
	}
	fs := r.schema.Field(fieldIndex)
	if f == nil || f.Type() != fs.Type || f.Len() != fs.Count {
		return fmt.Errorf("dataset %q field %q: %w", r.dsd.Name, fs.Name, ErrSchemaMismatch)
	}
	if !r.InRange(mapped) {
		return fmt.Errorf("dataset %q: %w: %d not in [0, %d)", r.dsd.Name, ErrIndexOutOfRange, mapped, r.dsd.RecordCount)
	}

	off := r.offset(mapped) + int64(r.schema.FieldOffset(fieldIndex))
	if _, err := r.src.ReadAt(f.Raw(), off); err != nil {
		r.metrics.ReadError(r.dsd.Name)
		return fmt.Errorf("dataset %q: field %q of record %d at offset %d: %w", r.dsd.Name, fs.Name, mapped, off, err)
	}
	r.metrics.RecordRead(r.dsd.Name, len(f.Raw()))
	return f.Decode(f.Raw())
}
