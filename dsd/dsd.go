// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package dsd locates named datasets inside a product file.
//
// Every dataset is described by a dataset descriptor (DSD) giving its
// absolute byte offset, the constant size of its records and how many records
// it holds:
//
//	file ┌──────────┬─────────┬──────────────────────────────┬──
//	     │ headers  │ ...     │ rec 0 │ rec 1 │ ... │ rec n-1│
//	     └──────────┴─────────┴──────────────────────────────┴──
//	                          ^ Offset  (RecordSize each)
package dsd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingDataset = errors.New("missing dataset")
	ErrMalformed      = errors.New("malformed dataset descriptor")
)

// Kind is the dataset type tag.
type Kind byte

const (
	Unknown          Kind = '?'
	Measurement      Kind = 'M'
	Annotation       Kind = 'A'
	GlobalAnnotation Kind = 'G'
	Reference        Kind = 'R'
)

// ParseKind maps the first character of a DS_TYPE value to a Kind.
func ParseKind(s string) Kind {
	if s == "" {
		return Unknown
	}
	switch k := Kind(s[0]); k {
	case Measurement, Annotation, GlobalAnnotation, Reference:
		return k
	default:
		return Unknown
	}
}

func (k Kind) String() string {
	switch k {
	case Measurement:
		return "measurement"
	case Annotation:
		return "annotation"
	case GlobalAnnotation:
		return "global-annotation"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

// Descriptor locates one dataset within a product file.
type Descriptor struct {
	Index       int
	Name        string
	Kind        Kind
	SourceFile  string
	Offset      uint64
	Size        uint64
	RecordSize  uint32
	RecordCount uint32
}

// IsEmpty reports whether the dataset has no records to read.
func (d Descriptor) IsEmpty() bool {
	return d.RecordSize == 0 || d.RecordCount == 0
}

// End returns the offset one past the last record byte.
func (d Descriptor) End() uint64 {
	return d.Offset + uint64(d.RecordCount)*uint64(d.RecordSize)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s): offset %d, %d records of %d bytes", d.Name, d.Kind, d.Offset, d.RecordCount, d.RecordSize)
}

// Table is the parsed DSD table of one product.  It is immutable.
type Table struct {
	dsds []Descriptor
}

// NewTable returns a table over a copy of dsds.
func NewTable(dsds []Descriptor) *Table {
	t := &Table{dsds: make([]Descriptor, len(dsds))}
	copy(t.dsds, dsds)
	return t
}

func (t *Table) Len() int { return len(t.dsds) }

// At returns the i-th descriptor.
func (t *Table) At(i int) Descriptor { return t.dsds[i] }

// Find returns the descriptor with the given name, compared case-insensitively.
func (t *Table) Find(name string) (Descriptor, error) {
	name = strings.TrimSpace(name)
	for _, d := range t.dsds {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrMissingDataset, name)
}

// ValidSubset returns the non-empty descriptors of the given kind, in table order.
func (t *Table) ValidSubset(kind Kind) []Descriptor {
	var out []Descriptor
	for _, d := range t.dsds {
		if d.Kind == kind && !d.IsEmpty() {
			out = append(out, d)
		}
	}
	return out
}

// Validate checks that every non-empty dataset fits within a file of
// fileSize bytes.  All violations are reported together.
func (t *Table) Validate(fileSize uint64) error {
	var errs []error
	for _, d := range t.dsds {
		if d.IsEmpty() {
			continue
		}
		if end := d.End(); end > fileSize || end < d.Offset {
			errs = append(errs, fmt.Errorf("%w: dataset %q ends at %d beyond file size %d", ErrMalformed, d.Name, end, fileSize))
		}
	}
	return errors.Join(errs...)
}
