// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package band

import (
	"fmt"

	"github.com/bpowers/envisat/record"
	"github.com/bpowers/envisat/schema"
)

// DecodeFunc expands src into dst for every column x in minX, minX+stepX,
// ..., up to maxX, writing to dst[dstPos], dst[dstPos+dstIncr], and so on.
// It returns an error rather than panicking when either array is too short.
type DecodeFunc func(src, dst record.Array, minX, maxX, stepX, dstPos, dstIncr int) error

// Decoder is one entry of the decoder table.
type Decoder struct {
	Model  PackingModel
	Source schema.ElementType
	Output schema.ElementType
	fn     DecodeFunc
}

// Decode runs the decoder.
func (d Decoder) Decode(src, dst record.Array, minX, maxX, stepX, dstPos, dstIncr int) error {
	return d.fn(src, dst, minX, maxX, stepX, dstPos, dstIncr)
}

func (d Decoder) String() string {
	return fmt.Sprintf("%s(%s -> %s)", d.Model, d.Source, d.Output)
}

type decoderKey struct {
	model  PackingModel
	source schema.ElementType
}

func entry(model PackingModel, source, output schema.ElementType, fn DecodeFunc) Decoder {
	return Decoder{Model: model, Source: source, Output: output, fn: fn}
}

var decoders = map[decoderKey]Decoder{}

func register(d Decoder) {
	decoders[decoderKey{d.Model, d.Source}] = d
}

func init() {
	register(entry(OneOfOne, schema.Int8, schema.Int8, copyStrided[record.Int8]))
	register(entry(OneOfOne, schema.Uint8, schema.Uint8, copyStrided[record.Uint8]))
	register(entry(OneOfOne, schema.Int16, schema.Int16, copyStrided[record.Int16]))
	register(entry(OneOfOne, schema.Uint16, schema.Uint16, copyStrided[record.Uint16]))
	register(entry(OneOfOne, schema.Int32, schema.Int32, copyStrided[record.Int32]))
	register(entry(OneOfOne, schema.Uint32, schema.Uint32, copyStrided[record.Uint32]))
	register(entry(OneOfOne, schema.Float32, schema.Float32, copyStrided[record.Float32]))
	register(entry(OneOfOne, schema.Float64, schema.Float64, copyStrided[record.Float64]))

	register(entry(OneOfTwo, schema.Int8, schema.Int8, pairStrided[record.Int8](0)))
	register(entry(OneOfTwo, schema.Uint8, schema.Uint8, pairStrided[record.Uint8](0)))
	register(entry(OneOfTwo, schema.Int16, schema.Int16, pairStrided[record.Int16](0)))
	register(entry(OneOfTwo, schema.Uint16, schema.Uint16, pairStrided[record.Uint16](0)))

	register(entry(TwoOfTwo, schema.Int8, schema.Int8, pairStrided[record.Int8](1)))
	register(entry(TwoOfTwo, schema.Uint8, schema.Uint8, pairStrided[record.Uint8](1)))
	register(entry(TwoOfTwo, schema.Int16, schema.Int16, pairStrided[record.Int16](1)))
	register(entry(TwoOfTwo, schema.Uint16, schema.Uint16, pairStrided[record.Uint16](1)))

	register(entry(TwoBytesToShort, schema.Int8, schema.Uint16, twoBytesToShort[record.Int8]))
	register(entry(TwoBytesToShort, schema.Uint8, schema.Uint16, twoBytesToShort[record.Uint8]))

	register(entry(ThreeBytesToInt, schema.Int8, schema.Uint32, threeBytesToInt[record.Int8]))
	register(entry(ThreeBytesToInt, schema.Uint8, schema.Uint32, threeBytesToInt[record.Uint8]))
}

// Lookup returns the decoder for a packing model applied to a source field
// of the given element type.  Combinations without a decoder indicate that
// the schema and the band definition disagree.
func Lookup(model PackingModel, source schema.ElementType) (Decoder, error) {
	d, ok := decoders[decoderKey{model, source}]
	if !ok {
		return Decoder{}, fmt.Errorf("%w: %s over %s", ErrUnsupportedPacking, model, source)
	}
	return d, nil
}

// NumSamples returns how many columns the window [minX, maxX] visits with
// the given step.
func NumSamples(minX, maxX, stepX int) int {
	if stepX <= 0 || maxX < minX {
		return 0
	}
	return 1 + (maxX-minX)/stepX
}

type sample interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

type byteSample interface {
	~int8 | ~uint8
}

// window validates the column window against a source of srcLen elements
// where column x spans elements [x*width, x*width+width), and the
// destination positions.  It returns the number of samples to write.
func window(srcLen, width, dstLen, minX, maxX, stepX, dstPos, dstIncr int) (int, error) {
	if minX < 0 || stepX <= 0 || maxX < minX {
		return 0, fmt.Errorf("%w: [%d, %d] step %d", ErrWindow, minX, maxX, stepX)
	}
	n := NumSamples(minX, maxX, stepX)
	lastX := minX + (n-1)*stepX
	if need := lastX*width + width; srcLen < need {
		return 0, fmt.Errorf("%w: %d elements, need %d", ErrShortSource, srcLen, need)
	}
	last := dstPos + (n-1)*dstIncr
	if dstPos < 0 || dstPos >= dstLen || last < 0 || last >= dstLen {
		return 0, fmt.Errorf("%w: %d samples from %d by %d into %d slots", ErrWindow, n, dstPos, dstIncr, dstLen)
	}
	return n, nil
}

func arrays[S, D any](src, dst record.Array) (S, D, error) {
	s, ok := src.(S)
	if !ok {
		var zs S
		var zd D
		return zs, zd, fmt.Errorf("%w: source is %T, want %T", ErrRasterType, src, zs)
	}
	d, ok := dst.(D)
	if !ok {
		var zd D
		return s, zd, fmt.Errorf("%w: destination is %T, want %T", ErrRasterType, dst, zd)
	}
	return s, d, nil
}

// copyStrided is the 1OF1 decoder: dst[pos] = src[x].
func copyStrided[A ~[]T, T sample](src, dst record.Array, minX, maxX, stepX, pos, incr int) error {
	s, d, err := arrays[A, A](src, dst)
	if err != nil {
		return err
	}
	n, err := window(len(s), 1, len(d), minX, maxX, stepX, pos, incr)
	if err != nil {
		return err
	}
	for i, x := 0, minX; i < n; i, x = i+1, x+stepX {
		d[pos] = s[x]
		pos += incr
	}
	return nil
}

// pairStrided returns the 1OF2 (which == 0) or 2OF2 (which == 1) decoder:
// dst[pos] = src[2x+which].
func pairStrided[A ~[]T, T sample](which int) DecodeFunc {
	return func(src, dst record.Array, minX, maxX, stepX, pos, incr int) error {
		s, d, err := arrays[A, A](src, dst)
		if err != nil {
			return err
		}
		n, err := window(len(s), 2, len(d), minX, maxX, stepX, pos, incr)
		if err != nil {
			return err
		}
		for i, x := 0, minX; i < n; i, x = i+1, x+stepX {
			d[pos] = s[2*x+which]
			pos += incr
		}
		return nil
	}
}

// twoBytesToShort packs src[2x] as the low and src[2x+1] as the high byte.
func twoBytesToShort[A ~[]T, T byteSample](src, dst record.Array, minX, maxX, stepX, pos, incr int) error {
	s, d, err := arrays[A, record.Uint16](src, dst)
	if err != nil {
		return err
	}
	n, err := window(len(s), 2, len(d), minX, maxX, stepX, pos, incr)
	if err != nil {
		return err
	}
	for i, x := 0, minX; i < n; i, x = i+1, x+stepX {
		j := 2 * x
		d[pos] = uint16(uint8(s[j])) | uint16(uint8(s[j+1]))<<8
		pos += incr
	}
	return nil
}

// threeBytesToInt packs src[3x], src[3x+1], src[3x+2] most significant first.
func threeBytesToInt[A ~[]T, T byteSample](src, dst record.Array, minX, maxX, stepX, pos, incr int) error {
	s, d, err := arrays[A, record.Uint32](src, dst)
	if err != nil {
		return err
	}
	n, err := window(len(s), 3, len(d), minX, maxX, stepX, pos, incr)
	if err != nil {
		return err
	}
	for i, x := 0, minX; i < n; i, x = i+1, x+stepX {
		j := 3 * x
		d[pos] = uint32(uint8(s[j]))<<16 | uint32(uint8(s[j+1]))<<8 | uint32(uint8(s[j+2]))
		pos += incr
	}
	return nil
}
