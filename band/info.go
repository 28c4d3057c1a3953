// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package band

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrUnsupportedPacking = errors.New("unsupported packing model / element type combination")
	ErrRasterType         = errors.New("raster array type mismatch")
	ErrWindow             = errors.New("invalid raster window")
	ErrShortSource        = errors.New("source array too short for window")
	ErrMissingValue       = errors.New("missing value not representable in raster type")
)

// PackingModel describes how samples are laid out within a record field.
type PackingModel uint8

const (
	UnknownPacking PackingModel = iota
	// OneOfOne stores one sample per column.
	OneOfOne
	// OneOfTwo takes the first of two interleaved samples per column.
	OneOfTwo
	// TwoOfTwo takes the second of two interleaved samples per column.
	TwoOfTwo
	// TwoBytesToShort packs two unsigned bytes per column, little-endian.
	TwoBytesToShort
	// ThreeBytesToInt packs three unsigned bytes per column, big-endian.
	ThreeBytesToInt
)

var packingNames = map[PackingModel]string{
	OneOfOne:        "1OF1",
	OneOfTwo:        "1OF2",
	TwoOfTwo:        "2OF2",
	TwoBytesToShort: "2TOF",
	ThreeBytesToInt: "3TOI",
}

func (m PackingModel) String() string {
	if name, ok := packingNames[m]; ok {
		return name
	}
	return fmt.Sprintf("PackingModel(%d)", uint8(m))
}

// ColumnWidth returns how many source elements one raster column spans.
func (m PackingModel) ColumnWidth() int {
	switch m {
	case OneOfOne:
		return 1
	case OneOfTwo, TwoOfTwo, TwoBytesToShort:
		return 2
	case ThreeBytesToInt:
		return 3
	default:
		return 0
	}
}

// ParsePackingModel accepts the DDDB sample model names, case-insensitively.
func ParsePackingModel(s string) (PackingModel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1OF1":
		return OneOfOne, nil
	case "1OF2":
		return OneOfTwo, nil
	case "2OF2":
		return TwoOfTwo, nil
	case "2TOF", "2UB_TO_S":
		return TwoBytesToShort, nil
	case "3TOI", "3UB_TO_I":
		return ThreeBytesToInt, nil
	}
	return UnknownPacking, fmt.Errorf("%w: sample model %q", ErrUnsupportedPacking, s)
}

// ScalingMethod converts raw samples to geophysical values.
type ScalingMethod uint8

const (
	ScaleNone ScalingMethod = iota
	ScaleLinear
	ScaleLog10
)

func (m ScalingMethod) String() string {
	switch m {
	case ScaleLinear:
		return "Linear_Scale"
	case ScaleLog10:
		return "Log_Scale"
	default:
		return "None"
	}
}

// ParseScalingMethod accepts "Linear_Scale" and "Log_Scale"; empty, "*" and
// "None" mean no scaling.
func ParseScalingMethod(s string) (ScalingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "*", "none":
		return ScaleNone, nil
	case "linear_scale", "linear":
		return ScaleLinear, nil
	case "log_scale", "log10":
		return ScaleLog10, nil
	}
	return ScaleNone, fmt.Errorf("unknown scaling method %q", s)
}

// Info binds a raster band to one field of a dataset's records.  It is
// immutable once built.
type Info struct {
	Name          string
	Dataset       string
	Width         int
	Height        int
	Packing       PackingModel
	FieldIndex    int
	ScalingMethod ScalingMethod
	ScalingFactor float64
	ScalingOffset float64
	Unit          string
	Description   string
}

// Scale converts a raw sample according to the scaling method.
func (i Info) Scale(raw float64) float64 {
	switch i.ScalingMethod {
	case ScaleLinear:
		return i.ScalingOffset + i.ScalingFactor*raw
	case ScaleLog10:
		return math.Pow(10, i.ScalingOffset+i.ScalingFactor*raw)
	default:
		return raw
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s: %dx%d %s field %d of %q", i.Name, i.Width, i.Height, i.Packing, i.FieldIndex, i.Dataset)
}
