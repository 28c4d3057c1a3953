// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dsd

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadTable reads count DSD blocks of blockSize bytes starting at offset and
// parses them into a Table.
func ReadTable(r io.ReaderAt, offset int64, count, blockSize int) (*Table, error) {
	if count < 0 || blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d blocks of %d bytes", ErrMalformed, count, blockSize)
	}
	b := make([]byte, count*blockSize)
	if _, err := r.ReadAt(b, offset); err != nil {
		return nil, fmt.Errorf("read DSDs at offset %d: %w", offset, err)
	}
	dsds, err := Parse(b, blockSize)
	if err != nil {
		return nil, err
	}
	return NewTable(dsds), nil
}

// Parse decodes consecutive fixed-size ASCII DSD blocks as found after the
// specific product header.  Each block holds KEY=value lines:
//
//	DS_NAME="Quality ADS                 "
//	DS_TYPE=A
//	FILENAME="                                                              "
//	DS_OFFSET=+00000000000000007345<bytes>
//	DS_SIZE=+00000000000000000160<bytes>
//	NUM_DSR=+0000000005
//	DSR_SIZE=+0000000032<bytes>
//
// Missing keys default to empty or zero; blank (spare) blocks are skipped.
func Parse(b []byte, blockSize int) ([]Descriptor, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size %d", ErrMalformed, blockSize)
	}
	if len(b)%blockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of block size %d", ErrMalformed, len(b), blockSize)
	}

	var out []Descriptor
	for i := 0; i*blockSize < len(b); i++ {
		block := b[i*blockSize : (i+1)*blockSize]
		if len(bytes.TrimSpace(bytes.Trim(block, "\x00"))) == 0 {
			continue
		}
		d, err := parseBlock(block)
		if err != nil {
			return nil, fmt.Errorf("DSD(%d): %w", i+1, err)
		}
		if d.Name == "" {
			continue
		}
		d.Index = i
		out = append(out, d)
	}
	return out, nil
}

func parseBlock(block []byte) (Descriptor, error) {
	var d Descriptor
	d.Kind = Unknown
	for _, line := range bytes.Split(block, []byte{'\n'}) {
		key, value, ok := bytes.Cut(line, []byte{'='})
		if !ok {
			continue
		}
		k := string(bytes.TrimSpace(key))
		v := string(bytes.TrimSpace(value))

		var err error
		switch k {
		case "DS_NAME":
			d.Name = unquote(v)
		case "DS_TYPE":
			d.Kind = ParseKind(unquote(v))
		case "FILENAME":
			d.SourceFile = unquote(v)
		case "DS_OFFSET":
			d.Offset, err = parseUint(k, v, 64)
		case "DS_SIZE":
			d.Size, err = parseUint(k, v, 64)
		case "NUM_DSR":
			var n uint64
			n, err = parseUint(k, v, 32)
			d.RecordCount = uint32(n)
		case "DSR_SIZE":
			var n uint64
			n, err = parseUint(k, v, 32)
			d.RecordSize = uint32(n)
		}
		if err != nil {
			return Descriptor{}, err
		}
	}
	return d, nil
}

func unquote(v string) string {
	return strings.TrimSpace(strings.Trim(v, `"`))
}

// parseUint accepts values like +00000000000000007345<bytes>.
func parseUint(key, v string, bitSize int) (uint64, error) {
	if i := strings.IndexByte(v, '<'); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimPrefix(strings.TrimSpace(v), "+")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, bitSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrMalformed, key, v, err)
	}
	return n, nil
}
