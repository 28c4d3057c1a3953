// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/bpowers/envisat/schema"
)

// Array is a fixed-length array of decoded elements of a single type.
// It is implemented by the named slice types in this package, so a caller
// can always type-assert to the concrete slice (e.g. record.Uint16).
type Array interface {
	Type() schema.ElementType
	Len() int
	// Float64 returns element i converted to float64.
	Float64(i int) float64
	// SetFloat64 stores v, converted to the element type, at i.
	SetFloat64(i int, v float64)

	// unmarshal decodes big-endian bytes into the array; len(b) must be
	// Len() * Type().Size().
	unmarshal(b []byte)
}

type (
	Int8    []int8
	Uint8   []uint8
	Int16   []int16
	Uint16  []uint16
	Int32   []int32
	Uint32  []uint32
	Float32 []float32
	Float64 []float64
	// ASCII holds raw ISO-8859-1 text bytes.
	ASCII []byte
	// UTC holds MJD2000 timestamps as (days, seconds, microseconds) triples.
	UTC []int32
)

// NewArray allocates a zero-filled array of n elements of type t.
func NewArray(t schema.ElementType, n int) (Array, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative array length %d", n)
	}
	switch t {
	case schema.Int8:
		return make(Int8, n), nil
	case schema.Uint8:
		return make(Uint8, n), nil
	case schema.Int16:
		return make(Int16, n), nil
	case schema.Uint16:
		return make(Uint16, n), nil
	case schema.Int32:
		return make(Int32, n), nil
	case schema.Uint32:
		return make(Uint32, n), nil
	case schema.Float32:
		return make(Float32, n), nil
	case schema.Float64:
		return make(Float64, n), nil
	case schema.ASCII:
		return make(ASCII, n), nil
	case schema.UTC:
		return make(UTC, 3*n), nil
	default:
		return nil, fmt.Errorf("no array type for element type %s", t)
	}
}

func (a Int8) Type() schema.ElementType    { return schema.Int8 }
func (a Uint8) Type() schema.ElementType   { return schema.Uint8 }
func (a Int16) Type() schema.ElementType   { return schema.Int16 }
func (a Uint16) Type() schema.ElementType  { return schema.Uint16 }
func (a Int32) Type() schema.ElementType   { return schema.Int32 }
func (a Uint32) Type() schema.ElementType  { return schema.Uint32 }
func (a Float32) Type() schema.ElementType { return schema.Float32 }
func (a Float64) Type() schema.ElementType { return schema.Float64 }
func (a ASCII) Type() schema.ElementType   { return schema.ASCII }
func (a UTC) Type() schema.ElementType     { return schema.UTC }

func (a Int8) Len() int    { return len(a) }
func (a Uint8) Len() int   { return len(a) }
func (a Int16) Len() int   { return len(a) }
func (a Uint16) Len() int  { return len(a) }
func (a Int32) Len() int   { return len(a) }
func (a Uint32) Len() int  { return len(a) }
func (a Float32) Len() int { return len(a) }
func (a Float64) Len() int { return len(a) }
func (a ASCII) Len() int   { return len(a) }
func (a UTC) Len() int     { return len(a) / 3 }

func (a Int8) Float64(i int) float64    { return float64(a[i]) }
func (a Uint8) Float64(i int) float64   { return float64(a[i]) }
func (a Int16) Float64(i int) float64   { return float64(a[i]) }
func (a Uint16) Float64(i int) float64  { return float64(a[i]) }
func (a Int32) Float64(i int) float64   { return float64(a[i]) }
func (a Uint32) Float64(i int) float64  { return float64(a[i]) }
func (a Float32) Float64(i int) float64 { return float64(a[i]) }
func (a Float64) Float64(i int) float64 { return a[i] }
func (a ASCII) Float64(i int) float64   { return float64(a[i]) }

// Float64 returns the timestamp as fractional days since 2000-01-01.
func (a UTC) Float64(i int) float64 {
	return float64(a[3*i]) + float64(a[3*i+1])/86400 + float64(a[3*i+2])/86400e6
}

func (a Int8) SetFloat64(i int, v float64)    { a[i] = int8(v) }
func (a Uint8) SetFloat64(i int, v float64)   { a[i] = uint8(v) }
func (a Int16) SetFloat64(i int, v float64)   { a[i] = int16(v) }
func (a Uint16) SetFloat64(i int, v float64)  { a[i] = uint16(v) }
func (a Int32) SetFloat64(i int, v float64)   { a[i] = int32(v) }
func (a Uint32) SetFloat64(i int, v float64)  { a[i] = uint32(v) }
func (a Float32) SetFloat64(i int, v float64) { a[i] = float32(v) }
func (a Float64) SetFloat64(i int, v float64) { a[i] = v }
func (a ASCII) SetFloat64(i int, v float64)   { a[i] = byte(v) }

func (a UTC) SetFloat64(i int, v float64) {
	days := math.Floor(v)
	rest := (v - days) * 86400
	secs := math.Floor(rest)
	a[3*i] = int32(days)
	a[3*i+1] = int32(secs)
	a[3*i+2] = int32(math.Round((rest - secs) * 1e6))
}

func (a Int8) unmarshal(b []byte) {
	for i := range a {
		a[i] = int8(b[i])
	}
}

func (a Uint8) unmarshal(b []byte) { copy(a, b) }

func (a Int16) unmarshal(b []byte) {
	for i := range a {
		a[i] = int16(binary.BigEndian.Uint16(b[2*i:]))
	}
}

func (a Uint16) unmarshal(b []byte) {
	for i := range a {
		a[i] = binary.BigEndian.Uint16(b[2*i:])
	}
}

func (a Int32) unmarshal(b []byte) {
	for i := range a {
		a[i] = int32(binary.BigEndian.Uint32(b[4*i:]))
	}
}

func (a Uint32) unmarshal(b []byte) {
	for i := range a {
		a[i] = binary.BigEndian.Uint32(b[4*i:])
	}
}

func (a Float32) unmarshal(b []byte) {
	for i := range a {
		a[i] = math.Float32frombits(binary.BigEndian.Uint32(b[4*i:]))
	}
}

func (a Float64) unmarshal(b []byte) {
	for i := range a {
		a[i] = math.Float64frombits(binary.BigEndian.Uint64(b[8*i:]))
	}
}

func (a ASCII) unmarshal(b []byte) { copy(a, b) }

func (a UTC) unmarshal(b []byte) {
	for i := range a {
		a[i] = int32(binary.BigEndian.Uint32(b[4*i:]))
	}
}

// String decodes the bytes as ISO-8859-1 and trims trailing NULs and blanks.
func (a ASCII) String() string {
	end := len(a)
	for end > 0 && (a[end-1] == 0 || a[end-1] == ' ') {
		end--
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(a[:end])
	if err != nil {
		// ISO-8859-1 maps every byte, so this is unreachable in practice
		return string(a[:end])
	}
	return string(s)
}

var mjd2000 = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Time returns the i-th timestamp.
func (a UTC) Time(i int) time.Time {
	return mjd2000.
		AddDate(0, 0, int(a[3*i])).
		Add(time.Duration(a[3*i+1]) * time.Second).
		Add(time.Duration(a[3*i+2]) * time.Microsecond)
}
