// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package schema describes the byte layout of dataset records.
//
// A RecordSchema is an ordered list of fields.  Fields are packed back to
// back with no padding, so the byte width of a record is the sum of the
// widths of its fields:
//
//	┌─────────┬─────────┬───────────────────────────┐
//	│ field 0 │ field 1 │ field 2 ...               │
//	└─────────┴─────────┴───────────────────────────┘
//	0         off(1)    off(2)                  Size()
//
// Schemas are supplied by a Provider addressed by product type and record
// name; nothing in this module hardcodes a field layout.
package schema

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgryski/go-farm"
)

var (
	ErrUnknownRecordSchema = errors.New("unknown record schema")
	ErrInvalidField        = errors.New("invalid field schema")
)

// FieldSchema describes one named field of a record.
type FieldSchema struct {
	Name        string
	Type        ElementType
	Count       int
	Unit        string
	Description string
}

// Size returns the encoded width of the field in bytes.
func (f FieldSchema) Size() int {
	return f.Type.Size() * f.Count
}

// IsSpare reports whether the field only reserves space.
func (f FieldSchema) IsSpare() bool {
	return strings.EqualFold(f.Name, "spare") || strings.EqualFold(f.Description, "spare")
}

// RecordSchema is an immutable, ordered sequence of field schemas.
type RecordSchema struct {
	name        string
	fields      []FieldSchema
	offsets     []int
	size        int
	fingerprint uint64
}

// New validates fields and returns the schema of a record kind.
func New(name string, fields []FieldSchema) (*RecordSchema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: record %q has no fields", ErrInvalidField, name)
	}
	s := &RecordSchema{
		name:    name,
		fields:  make([]FieldSchema, len(fields)),
		offsets: make([]int, len(fields)),
	}
	copy(s.fields, fields)

	// canonical layout used for the fingerprint: type, count and name of every field
	canonical := make([]byte, 0, 16*len(fields))
	for i, f := range s.fields {
		if f.Type.Size() == 0 {
			return nil, fmt.Errorf("%w: record %q field %q has unknown type", ErrInvalidField, name, f.Name)
		}
		if f.Count <= 0 {
			return nil, fmt.Errorf("%w: record %q field %q has element count %d", ErrInvalidField, name, f.Name, f.Count)
		}
		s.offsets[i] = s.size
		s.size += f.Size()

		canonical = append(canonical, byte(f.Type))
		canonical = binary.BigEndian.AppendUint32(canonical, uint32(f.Count))
		canonical = append(canonical, f.Name...)
		canonical = append(canonical, 0)
	}
	s.fingerprint = farm.Hash64(canonical)

	return s, nil
}

// MustNew is like New but panics on error.  Intended for tests and static tables.
func MustNew(name string, fields []FieldSchema) *RecordSchema {
	s, err := New(name, fields)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *RecordSchema) Name() string { return s.name }

func (s *RecordSchema) NumFields() int { return len(s.fields) }

// Field returns the schema of the i-th field.
func (s *RecordSchema) Field(i int) FieldSchema { return s.fields[i] }

// Size returns the byte width of one record.
func (s *RecordSchema) Size() int { return s.size }

// FieldOffset returns the byte offset of the i-th field from the start of the record.
func (s *RecordSchema) FieldOffset(i int) int { return s.offsets[i] }

// FieldIndex returns the index of the named field (case-insensitive), or -1.
func (s *RecordSchema) FieldIndex(name string) int {
	for i, f := range s.fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// Fingerprint identifies the layout of the schema.  Two schemas with the same
// fingerprint decode identical bytes into identical fields.
func (s *RecordSchema) Fingerprint() uint64 { return s.fingerprint }

// SameLayout reports whether o describes the same layout as s.
func (s *RecordSchema) SameLayout(o *RecordSchema) bool {
	if s == o {
		return true
	}
	return o != nil && s.fingerprint == o.fingerprint && s.size == o.size
}

func (s *RecordSchema) String() string {
	return fmt.Sprintf("%s{%d fields, %d bytes}", s.name, len(s.fields), s.size)
}

// Provider supplies record schemas per product type and record name.
type Provider interface {
	Lookup(productType, recordName string) (*RecordSchema, error)
}

type providerKey struct {
	productType string
	recordName  string
}

func newProviderKey(productType, recordName string) providerKey {
	return providerKey{
		productType: strings.ToUpper(productType),
		recordName:  strings.ToUpper(recordName),
	}
}

// MapProvider is an in-memory Provider.  Keys are case-insensitive.
type MapProvider struct {
	mu      sync.RWMutex
	schemas map[providerKey]*RecordSchema
}

func NewMapProvider() *MapProvider {
	return &MapProvider{
		schemas: make(map[providerKey]*RecordSchema),
	}
}

// Register adds (or replaces) the schema for a product type and record name.
func (p *MapProvider) Register(productType, recordName string, s *RecordSchema) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.schemas[newProviderKey(productType, recordName)] = s
}

func (p *MapProvider) Lookup(productType, recordName string) (*RecordSchema, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.schemas[newProviderKey(productType, recordName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownRecordSchema, productType, recordName)
	}
	return s, nil
}

var _ Provider = &MapProvider{}
