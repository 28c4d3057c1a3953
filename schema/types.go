// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"fmt"
	"strings"
)

// ElementType is the primitive type of every element in a field.
type ElementType uint8

const (
	Unknown ElementType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
	ASCII
	// UTC is a 12-byte MJD2000 timestamp: days, seconds and microseconds as
	// three big-endian int32 values.
	UTC
)

// UTCSize is the encoded size of a single UTC element.
const UTCSize = 12

var elementTypeNames = [...]string{
	Unknown: "unknown",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Float32: "float32",
	Float64: "float64",
	ASCII:   "ascii",
	UTC:     "utc",
}

// dddbNames are the type spellings used by the ENVISAT product database.
var dddbNames = map[string]ElementType{
	"schar":          Int8,
	"uchar":          Uint8,
	"sshort":         Int16,
	"ushort":         Uint16,
	"slong":          Int32,
	"ulong":          Uint32,
	"float":          Float32,
	"double":         Float64,
	"string":         ASCII,
	"@/types/utc.dd": UTC,
	"spare":          Uint8,
}

func (t ElementType) String() string {
	if int(t) < len(elementTypeNames) {
		return elementTypeNames[t]
	}
	return fmt.Sprintf("ElementType(%d)", uint8(t))
}

// Size returns the encoded width in bytes of one element, or 0 for Unknown.
func (t ElementType) Size() int {
	switch t {
	case Int8, Uint8, ASCII:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	case UTC:
		return UTCSize
	default:
		return 0
	}
}

// IsNumeric reports whether t is one of the integer or floating point types.
func (t ElementType) IsNumeric() bool {
	return t >= Int8 && t <= Float64
}

// ParseElementType accepts both the Go-style names returned by String
// and the product database spellings (SChar, UShort, Float, Spare, ...).
// Matching is case-insensitive.
func ParseElementType(name string) (ElementType, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if t, ok := dddbNames[lower]; ok {
		return t, nil
	}
	for i, n := range elementTypeNames {
		if i != int(Unknown) && n == lower {
			return ElementType(i), nil
		}
	}
	return Unknown, fmt.Errorf("%w: unknown element type %q", ErrUnknownRecordSchema, name)
}
