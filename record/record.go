// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package record materializes schema-described binary records.
//
// A Record is allocated once per schema and refilled on every read: the raw
// bytes buffer and the decoded field arrays are reused, so reading a record
// does not allocate.  All multi-byte scalars are big-endian.
package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bpowers/envisat/schema"
)

var ErrShortBuffer = errors.New("buffer shorter than record layout")

// Field is one named, typed element array within a Record.
type Field struct {
	info schema.FieldSchema
	data Array
	raw  []byte
}

// NewField allocates a standalone zero-filled field for fs.
func NewField(fs schema.FieldSchema) (*Field, error) {
	if fs.Count <= 0 {
		return nil, fmt.Errorf("field %q: %w: element count %d", fs.Name, schema.ErrInvalidField, fs.Count)
	}
	data, err := NewArray(fs.Type, fs.Count)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", fs.Name, err)
	}
	return &Field{
		info: fs,
		data: data,
		raw:  make([]byte, fs.Size()),
	}, nil
}

func (f *Field) Info() schema.FieldSchema { return f.info }
func (f *Field) Name() string             { return f.info.Name }
func (f *Field) Type() schema.ElementType { return f.info.Type }
func (f *Field) Len() int                 { return f.data.Len() }

// Data returns the decoded elements.  The array is overwritten by the next
// read into the owning Record.
func (f *Field) Data() Array { return f.data }

// Raw returns the undecoded big-endian bytes of the field.
func (f *Field) Raw() []byte { return f.raw }

// Float64 returns element i converted to float64.
func (f *Field) Float64(i int) float64 { return f.data.Float64(i) }

// Decode decodes b into the field.  len(b) must be at least the field size.
func (f *Field) Decode(b []byte) error {
	if len(b) < len(f.raw) {
		return fmt.Errorf("field %q: %w (%d < %d)", f.info.Name, ErrShortBuffer, len(b), len(f.raw))
	}
	if &b[0] != &f.raw[0] {
		copy(f.raw, b)
	}
	f.data.unmarshal(f.raw)
	return nil
}

func (f *Field) String() string {
	var sb strings.Builder
	sb.WriteString(f.info.Name)
	sb.WriteString(" = ")
	switch d := f.data.(type) {
	case ASCII:
		fmt.Fprintf(&sb, "%q", d.String())
	case UTC:
		for i := 0; i < d.Len(); i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.Time(i).Format("2006-01-02T15:04:05.000000Z"))
		}
	default:
		const maxShown = 16
		n := f.data.Len()
		if n > 1 {
			sb.WriteByte('[')
		}
		for i := 0; i < n && i < maxShown; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%v", f.data.Float64(i))
		}
		if n > maxShown {
			fmt.Fprintf(&sb, ", ... (%d elements)", n)
		}
		if n > 1 {
			sb.WriteByte(']')
		}
	}
	if f.info.Unit != "" {
		sb.WriteString(" ")
		sb.WriteString(f.info.Unit)
	}
	return sb.String()
}

// Record is an ordered list of fields laid out per its schema.
type Record struct {
	schema *schema.RecordSchema
	fields []*Field
	raw    []byte
}

// New allocates a zero-filled Record sized to s.
func New(s *schema.RecordSchema) *Record {
	r := &Record{
		schema: s,
		fields: make([]*Field, s.NumFields()),
		raw:    make([]byte, s.Size()),
	}
	for i := range r.fields {
		fs := s.Field(i)
		// schema.New guarantees a known type and positive count
		data, _ := NewArray(fs.Type, fs.Count)
		off := s.FieldOffset(i)
		r.fields[i] = &Field{
			info: fs,
			data: data,
			raw:  r.raw[off : off+fs.Size() : off+fs.Size()],
		}
	}
	return r
}

func (r *Record) Schema() *schema.RecordSchema { return r.schema }
func (r *Record) NumFields() int               { return len(r.fields) }
func (r *Record) Field(i int) *Field           { return r.fields[i] }

// FieldByName returns the named field (case-insensitive), or nil.
func (r *Record) FieldByName(name string) *Field {
	if i := r.schema.FieldIndex(name); i >= 0 {
		return r.fields[i]
	}
	return nil
}

// Raw returns the record's byte buffer.  Readers fill it and then call Decode.
func (r *Record) Raw() []byte { return r.raw }

// Decode decodes the current contents of Raw into every field.
func (r *Record) Decode() {
	for _, f := range r.fields {
		f.data.unmarshal(f.raw)
	}
}

// DecodeBytes copies b into the record and decodes it.
func (r *Record) DecodeBytes(b []byte) error {
	if len(b) < len(r.raw) {
		return fmt.Errorf("record %q: %w (%d < %d)", r.schema.Name(), ErrShortBuffer, len(b), len(r.raw))
	}
	copy(r.raw, b)
	r.Decode()
	return nil
}

// Reset zeroes the raw bytes and every decoded field.
func (r *Record) Reset() {
	clear(r.raw)
	r.Decode()
}

// String lists every non-spare field, one per line.
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString(r.schema.Name())
	sb.WriteString(":\n")
	for _, f := range r.fields {
		if f.info.IsSpare() {
			continue
		}
		sb.WriteString("  ")
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
