// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package record

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/envisat/schema"
)

func testSchema() *schema.RecordSchema {
	return schema.MustNew("MDS1", []schema.FieldSchema{
		{Name: "dsr_time", Type: schema.UTC, Count: 1},
		{Name: "quality", Type: schema.Int8, Count: 1},
		{Name: "spare_1", Type: schema.Uint8, Count: 2, Description: "Spare"},
		{Name: "label", Type: schema.ASCII, Count: 6},
		{Name: "counts", Type: schema.Uint16, Count: 2, Unit: "dl"},
		{Name: "temps", Type: schema.Int32, Count: 1},
		{Name: "ratio", Type: schema.Float32, Count: 1},
		{Name: "precise", Type: schema.Float64, Count: 1},
	})
}

func testBytes() []byte {
	var b []byte
	// UTC: day 366, 3600s, 250us
	b = binary.BigEndian.AppendUint32(b, 366)
	b = binary.BigEndian.AppendUint32(b, 3600)
	b = binary.BigEndian.AppendUint32(b, 250)
	b = append(b, 0xFF)       // quality = -1
	b = append(b, 0xAA, 0xBB) // spare
	b = append(b, 'N', 'A', 'D', 'I', 'R', 0)
	b = binary.BigEndian.AppendUint16(b, 0x0102)
	b = binary.BigEndian.AppendUint16(b, 0xFFFF)
	b = binary.BigEndian.AppendUint32(b, uint32(0xFFFFFFFE)) // -2
	b = binary.BigEndian.AppendUint32(b, math.Float32bits(1.5))
	b = binary.BigEndian.AppendUint64(b, math.Float64bits(-0.25))
	return b
}

func TestRecord_Decode(t *testing.T) {
	s := testSchema()
	b := testBytes()
	require.Equal(t, s.Size(), len(b))

	r := New(s)
	assert.Equal(t, s.Size(), len(r.Raw()))
	require.NoError(t, r.DecodeBytes(b))

	utc := r.Field(0).Data().(UTC)
	assert.Equal(t, 1, utc.Len())
	expected := time.Date(2001, time.January, 1, 1, 0, 0, 250000, time.UTC)
	assert.True(t, expected.Equal(utc.Time(0)), "got %s", utc.Time(0))

	assert.Equal(t, Int8{-1}, r.Field(1).Data())
	assert.Equal(t, "NADIR", r.FieldByName("LABEL").Data().(ASCII).String())
	assert.Equal(t, Uint16{0x0102, 0xFFFF}, r.FieldByName("counts").Data())
	assert.Equal(t, Int32{-2}, r.FieldByName("temps").Data())
	assert.Equal(t, Float32{1.5}, r.FieldByName("ratio").Data())
	assert.Equal(t, Float64{-0.25}, r.FieldByName("precise").Data())
	assert.Nil(t, r.FieldByName("missing"))

	// field raw bytes alias the record buffer
	assert.Equal(t, []byte{0x01, 0x02, 0xFF, 0xFF}, r.FieldByName("counts").Raw())

	r.Reset()
	assert.Equal(t, Uint16{0, 0}, r.FieldByName("counts").Data())
	assert.Equal(t, "", r.FieldByName("label").Data().(ASCII).String())
}

func TestRecord_DecodeShort(t *testing.T) {
	r := New(testSchema())
	err := r.DecodeBytes(make([]byte, 3))
	assert.True(t, errors.Is(err, ErrShortBuffer))
}

func TestRecord_String(t *testing.T) {
	r := New(testSchema())
	require.NoError(t, r.DecodeBytes(testBytes()))
	out := r.String()
	assert.Contains(t, out, "counts = [258, 65535] dl")
	assert.Contains(t, out, `label = "NADIR"`)
	assert.Contains(t, out, "dsr_time = 2001-01-01T01:00:00.000250Z")
	assert.NotContains(t, out, "spare_1")
}

func TestField_Standalone(t *testing.T) {
	s := testSchema()
	f, err := NewField(s.Field(4))
	require.NoError(t, err)
	require.NoError(t, f.Decode([]byte{0, 7, 0, 9}))
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 9.0, f.Float64(1))

	err = f.Decode([]byte{0})
	assert.True(t, errors.Is(err, ErrShortBuffer))

	_, err = NewField(schema.FieldSchema{Name: "x", Type: schema.Int8})
	assert.True(t, errors.Is(err, schema.ErrInvalidField))
}

func TestArray_SetFloat64(t *testing.T) {
	for _, et := range []schema.ElementType{
		schema.Int8, schema.Uint8, schema.Int16, schema.Uint16,
		schema.Int32, schema.Uint32, schema.Float32, schema.Float64,
	} {
		a, err := NewArray(et, 3)
		require.NoError(t, err)
		assert.Equal(t, et, a.Type())
		assert.Equal(t, 3, a.Len())
		a.SetFloat64(2, 42)
		assert.Equal(t, 42.0, a.Float64(2), et.String())
		assert.Equal(t, 0.0, a.Float64(0), et.String())
	}

	utc := make(UTC, 3)
	utc.SetFloat64(0, 10.5)
	assert.Equal(t, UTC{10, 43200, 0}, utc)
	assert.InDelta(t, 10.5, utc.Float64(0), 1e-9)

	_, err := NewArray(schema.Unknown, 1)
	assert.Error(t, err)
}
