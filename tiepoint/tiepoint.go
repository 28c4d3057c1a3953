// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package tiepoint expands coarse tie-point rows onto the full pixel raster.
//
// With uniform spacing, output column p takes the tie point at p/subsampling.
// When a companion index band gives each tie point's 1-based pixel column,
// output columns are interpolated with a Lagrange polynomial through up to
// four bracketing tie points.
package tiepoint

import (
	"errors"
	"fmt"
	"math"

	"github.com/bpowers/envisat/band"
	"github.com/bpowers/envisat/record"
	"github.com/bpowers/envisat/schema"
)

var (
	ErrUnsupportedType = errors.New("unsupported tie-point data type")
	ErrIndexBand       = errors.New("invalid tie-point index band")
)

// RowSource reads rows of a tie-point band.  *band.LineReader implements it.
type RowSource interface {
	Width() int
	Height() int
	OutputType() schema.ElementType
	ReadRasterLine(req band.LineRequest, dst record.Array, dstPos int) error
}

var _ RowSource = &band.LineReader{}

// Params controls grid construction.
type Params struct {
	// Rows is the number of tie-point rows to read; 0 means every row.
	Rows int
	// OutputWidth is the full-resolution row width.  It defaults to
	// (gridWidth-1)*SubsamplingX+1.
	OutputWidth int

	ScalingFactor float64
	ScalingOffset float64

	// Flipped reverses each row, undoing a reverse-chronological scan.
	Flipped bool

	OffsetX, OffsetY           float64
	SubsamplingX, SubsamplingY float64
}

// Grid is a row-major full-resolution auxiliary grid.
type Grid struct {
	Width, Height              int
	OffsetX, OffsetY           float64
	SubsamplingX, SubsamplingY float64
	Data                       []float32
}

// At returns the value at column x of row y.
func (g *Grid) At(x, y int) float32 { return g.Data[y*g.Width+x] }

// Row returns row y, aliasing Data.
func (g *Grid) Row(y int) []float32 {
	return g.Data[y*g.Width : (y+1)*g.Width : (y+1)*g.Width]
}

func numericTiePointType(t schema.ElementType) bool {
	switch t {
	case schema.Int8, schema.Uint8, schema.Int16, schema.Uint16,
		schema.Int32, schema.Uint32, schema.Float32:
		return true
	}
	return false
}

// Build reads p.Rows rows of values and expands them to full resolution.
// index may be nil, in which case tie points are uniformly spaced.
func Build(values RowSource, index RowSource, p Params) (*Grid, error) {
	gridW := values.Width()
	if gridW <= 0 {
		return nil, fmt.Errorf("tie-point grid width %d", gridW)
	}
	if t := values.OutputType(); !numericTiePointType(t) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	if index != nil {
		if index.Width() != gridW {
			return nil, fmt.Errorf("%w: width %d, values have %d", ErrIndexBand, index.Width(), gridW)
		}
		if t := index.OutputType(); !numericTiePointType(t) {
			return nil, fmt.Errorf("%w: %w: %s", ErrIndexBand, ErrUnsupportedType, t)
		}
	}

	subX := p.SubsamplingX
	if subX <= 0 {
		subX = 1
	}
	subY := p.SubsamplingY
	if subY <= 0 {
		subY = 1
	}
	rows := p.Rows
	if rows <= 0 {
		rows = values.Height()
	}
	outW := p.OutputWidth
	if outW <= 0 {
		outW = int(math.Round(float64(gridW-1)*subX)) + 1
	}

	g := &Grid{
		Width:        outW,
		Height:       rows,
		OffsetX:      p.OffsetX,
		OffsetY:      p.OffsetY,
		SubsamplingX: subX,
		SubsamplingY: subY,
		Data:         make([]float32, outW*rows),
	}

	raw := newLine(values.OutputType(), gridW)
	tie := make([]float32, gridW)

	var idxRaw record.Array
	var positions []float64
	if index != nil {
		idxRaw = newLine(index.OutputType(), gridW)
		positions = make([]float64, gridW)
	}

	for y := 0; y < rows; y++ {
		if err := values.ReadRasterLine(band.FullLine(gridW, y, false), raw, 0); err != nil {
			return nil, fmt.Errorf("tie-point row %d: %w", y, err)
		}
		for x := range tie {
			tie[x] = float32(p.ScalingOffset + p.ScalingFactor*raw.Float64(x))
		}
		if p.Flipped {
			reverse(tie)
		}

		out := g.Row(y)
		if index == nil {
			resampleUniform(out, tie, subX)
			continue
		}

		if err := index.ReadRasterLine(band.FullLine(gridW, y, false), idxRaw, 0); err != nil {
			return nil, fmt.Errorf("tie-point index row %d: %w", y, err)
		}
		for x := range positions {
			positions[x] = idxRaw.Float64(x)
		}
		if p.Flipped {
			reverse(positions)
			for x := range positions {
				positions[x] = float64(outW+1) - positions[x]
			}
		}
		if err := resampleIndexed(out, tie, positions); err != nil {
			return nil, fmt.Errorf("tie-point row %d: %w", y, err)
		}
	}

	return g, nil
}

// newLine allocates a row buffer; t has already been checked to be numeric.
func newLine(t schema.ElementType, n int) record.Array {
	a, _ := record.NewArray(t, n)
	return a
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// resampleUniform maps output column p to tie point floor(p/subX).
func resampleUniform(out, tie []float32, subX float64) {
	last := len(tie) - 1
	for p := range out {
		col := int(float64(p) / subX)
		if col > last {
			col = last
		}
		out[p] = tie[col]
	}
}

// resampleIndexed interpolates between tie points at the 1-based pixel
// columns in index.
func resampleIndexed(out, tie []float32, index []float64) error {
	n := len(tie)
	for i := 1; i < n; i++ {
		if index[i] <= index[i-1] {
			return fmt.Errorf("%w: positions not increasing at %d (%v after %v)", ErrIndexBand, i, index[i], index[i-1])
		}
	}
	if n == 1 {
		for p := range out {
			out[p] = tie[0]
		}
		return nil
	}

	var xs, ys [4]float64
	i := 0
	for p := range out {
		pos := float64(p)
		for i < n-2 && pos >= index[i+1]-1 {
			i++
		}

		lo := max(i-1, 0)
		hi := min(i+2, n-1)
		k := 0
		for j := lo; j <= hi; j++ {
			xs[k] = index[j] - 1
			ys[k] = float64(tie[j])
			k++
		}
		out[p] = float32(Lagrange(xs[:k], ys[:k], pos))
	}
	return nil
}

// Lagrange evaluates at x the polynomial through the points (xs[k], ys[k]).
// The xs must be distinct.  At x == xs[k] the result is exactly ys[k].
func Lagrange(xs, ys []float64, x float64) float64 {
	for k := range xs {
		if x == xs[k] {
			return ys[k]
		}
	}
	var result float64
	for k := range xs {
		term := ys[k]
		for j := range xs {
			if j != k {
				term *= (x - xs[j]) / (xs[k] - xs[j])
			}
		}
		result += term
	}
	return result
}
