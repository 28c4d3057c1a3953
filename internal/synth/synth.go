// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package synth writes small synthetic products with known contents, along
// with the schema files and envidump configuration needed to read them.
//
// The file layout is
//
//	header (HeaderSize bytes of KEY=value text)
//	3 DSD blocks of BlockSize bytes: MDS, tie-point ADS, spare
//	MDS:  Lines records of dsr_time, quality, spare, radiance[Width], flags[2*Width]
//	ADS:  TieRows records of dsr_time, lat[TieWidth], lon[TieWidth], column[TieWidth]
package synth

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

const (
	ProductType = "SYN_TEST_1P"
	MDSName     = "Radiance MDS"
	TieName     = "Tie points ADS"

	HeaderSize = 128
	BlockSize  = 280
	NumDSDs    = 3

	// LatScale converts raw tie-point latitudes to degrees.
	LatScale = 1e-6
)

// Shape sizes a synthetic product.
type Shape struct {
	Width    int
	Lines    int
	TieWidth int
	TieRows  int
	// Seed drives the contents of the flags field.
	Seed int64
}

// Default is a product small enough for unit tests.
func Default() Shape {
	return Shape{Width: 9, Lines: 5, TieWidth: 3, TieRows: 2, Seed: 1}
}

func (s Shape) MDSRecordSize() int { return 12 + 1 + 3 + 2*s.Width + 2*s.Width }
func (s Shape) TieRecordSize() int { return 12 + 4*s.TieWidth + 4*s.TieWidth + 2*s.TieWidth }
func (s Shape) MDSOffset() int64   { return HeaderSize + NumDSDs*BlockSize }
func (s Shape) TieOffset() int64   { return s.MDSOffset() + int64(s.Lines*s.MDSRecordSize()) }
func (s Shape) Size() int64        { return s.TieOffset() + int64(s.TieRows*s.TieRecordSize()) }

// Params returns the schema count parameters for the product.
func (s Shape) Params() map[string]int {
	return map[string]int{
		"LINE_WIDTH":       s.Width,
		"LINE_WIDTH_X2":    2 * s.Width,
		"TIE_POINTS_WIDTH": s.TieWidth,
	}
}

// Pixel is the radiance sample stored at column x of line y.
func Pixel(y, x int) uint16 { return uint16(100*y + x) }

// Lat is the raw latitude of tie point i in row y.
func Lat(y, i int) int32 { return int32((10*y + i) * 1000000) }

// Lon is the raw longitude of tie point i in row y.
func Lon(y, i int) int32 { return -Lat(y, i) }

// Column is the 1-based pixel column of tie point i.
func (s Shape) Column(i int) uint16 {
	if s.TieWidth == 1 {
		return 1
	}
	return uint16(1 + i*(s.Width-1)/(s.TieWidth-1))
}

// Time returns the MJD2000 (days, seconds, microseconds) of record y.
func Time(y int) (days, secs, micros int32) {
	return 366, int32(3600 + y), int32(250 * y)
}

// Flags returns the raw flag bytes of every line.
func (s Shape) Flags() [][]byte {
	rng := rand.New(rand.NewSource(s.Seed))
	flags := make([][]byte, s.Lines)
	for y := range flags {
		flags[y] = make([]byte, 2*s.Width)
		if _, err := rng.Read(flags[y]); err != nil {
			panic(err)
		}
	}
	return flags
}

func dsdBlock(name, kind string, offset, records, recordSize int64) string {
	lines := []string{
		fmt.Sprintf("DS_NAME=\"%-28s\"", name),
		"DS_TYPE=" + kind,
		fmt.Sprintf("FILENAME=\"%-62s\"", ""),
		fmt.Sprintf("DS_OFFSET=+%020d<bytes>", offset),
		fmt.Sprintf("DS_SIZE=+%020d<bytes>", records*recordSize),
		fmt.Sprintf("NUM_DSR=+%010d", records),
		fmt.Sprintf("DSR_SIZE=+%010d<bytes>", recordSize),
	}
	return pad(strings.Join(lines, "\n"), BlockSize)
}

func pad(s string, n int) string {
	return s + strings.Repeat(" ", n-len(s)-1) + "\n"
}

// Write writes the product file.
func Write(w io.Writer, s Shape) error {
	bw := bufio.NewWriter(w)

	header := fmt.Sprintf("PRODUCT=\"%s\"\nNUM_DSD=+%010d\n", ProductType, NumDSDs)
	if _, err := bw.WriteString(pad(header, HeaderSize)); err != nil {
		return err
	}
	blocks := dsdBlock(MDSName, "M", s.MDSOffset(), int64(s.Lines), int64(s.MDSRecordSize())) +
		dsdBlock(TieName, "A", s.TieOffset(), int64(s.TieRows), int64(s.TieRecordSize())) +
		pad("", BlockSize)
	if _, err := bw.WriteString(blocks); err != nil {
		return err
	}

	var rec []byte
	flags := s.Flags()
	for y := 0; y < s.Lines; y++ {
		rec = appendTime(rec[:0], y)
		rec = append(rec, 0, 0, 0, 0) // quality + spare
		for x := 0; x < s.Width; x++ {
			rec = binary.BigEndian.AppendUint16(rec, Pixel(y, x))
		}
		rec = append(rec, flags[y]...)
		if _, err := bw.Write(rec); err != nil {
			return err
		}
	}

	for y := 0; y < s.TieRows; y++ {
		rec = appendTime(rec[:0], y)
		for i := 0; i < s.TieWidth; i++ {
			rec = binary.BigEndian.AppendUint32(rec, uint32(Lat(y, i)))
		}
		for i := 0; i < s.TieWidth; i++ {
			rec = binary.BigEndian.AppendUint32(rec, uint32(Lon(y, i)))
		}
		for i := 0; i < s.TieWidth; i++ {
			rec = binary.BigEndian.AppendUint16(rec, s.Column(i))
		}
		if _, err := bw.Write(rec); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func appendTime(b []byte, y int) []byte {
	days, secs, micros := Time(y)
	b = binary.BigEndian.AppendUint32(b, uint32(days))
	b = binary.BigEndian.AppendUint32(b, uint32(secs))
	return binary.BigEndian.AppendUint32(b, uint32(micros))
}

const mdsSchema = `name: Radiance MDS
fields:
  - {name: dsr_time, type: UTC}
  - {name: quality_flag, type: UChar}
  - {name: spare_1, type: Spare, count: 3}
  - {name: radiance, type: UShort, count: LINE_WIDTH, unit: "mW/(m^2.sr.nm)"}
  - {name: flags, type: UChar, count: LINE_WIDTH_X2}
`

const tieSchema = `name: Tie points ADS
fields:
  - {name: dsr_time, type: UTC}
  - {name: lat, type: SLong, count: TIE_POINTS_WIDTH, unit: "10^-6 deg"}
  - {name: lon, type: SLong, count: TIE_POINTS_WIDTH, unit: "10^-6 deg"}
  - {name: column, type: UShort, count: TIE_POINTS_WIDTH}
`

// Schemas returns the schema files keyed by slash-separated path relative
// to the schema directory.
func Schemas() map[string]string {
	return map[string]string{
		ProductType + "/Radiance_MDS.yaml":   mdsSchema,
		ProductType + "/Tie_points_ADS.yaml": tieSchema,
	}
}

// Config returns an envidump configuration for the product.
func (s Shape) Config(schemaDir string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "schema_dir: %q\n", schemaDir)
	fmt.Fprintf(&sb, "product_type: %s\n", ProductType)
	sb.WriteString("parameters:\n")
	for _, k := range []string{"LINE_WIDTH", "LINE_WIDTH_X2", "TIE_POINTS_WIDTH"} {
		fmt.Fprintf(&sb, "  %s: %d\n", k, s.Params()[k])
	}
	fmt.Fprintf(&sb, "dsd:\n  offset: %d\n  count: %d\n  block_size: %d\n", HeaderSize, NumDSDs, BlockSize)
	sb.WriteString("missing_value: 65535\n")
	sb.WriteString("bands:\n")
	fmt.Fprintf(&sb, "  - {name: radiance, dataset: %s, field: radiance, scaling_method: Linear_Scale, scaling_factor: 0.01}\n", MDSName)
	fmt.Fprintf(&sb, "  - {name: flags, dataset: %s, field: flags, packing: 2TOF, missing_value: 255}\n", MDSName)
	sb.WriteString("tie_points:\n")
	fmt.Fprintf(&sb, "  - {name: latitude, dataset: %s, field: lat, index_field: column, scaling_method: Linear_Scale, scaling_factor: %g, output_width: %d}\n",
		TieName, LatScale, s.Width)
	return sb.String()
}

// WriteFiles writes product.N1, schemas/ and envidump.yaml into dir and
// returns the product path.
func WriteFiles(dir string, s Shape) (string, error) {
	schemaDir := filepath.Join(dir, "schemas")
	for name, content := range Schemas() {
		path := filepath.Join(schemaDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "envidump.yaml"), []byte(s.Config(schemaDir)), 0o644); err != nil {
		return "", err
	}

	productPath := filepath.Join(dir, "product.N1")
	f, err := os.Create(productPath)
	if err != nil {
		return "", err
	}
	if err := Write(f, s); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return productPath, nil
}
