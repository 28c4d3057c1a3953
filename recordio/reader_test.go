// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package recordio

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/envisat/dsd"
	"github.com/bpowers/envisat/metrics"
	"github.com/bpowers/envisat/record"
	"github.com/bpowers/envisat/schema"
)

// recordingReader serves reads from buf and remembers every requested range.
type recordingReader struct {
	mu    sync.Mutex
	buf   []byte
	reads [][2]int64
	err   error
}

func (s *recordingReader) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads = append(s.reads, [2]int64{off, off + int64(len(p))})
	if s.err != nil {
		return 0, s.err
	}
	if off < 0 || int(off)+len(p) > len(s.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	return copy(p, s.buf[off:]), nil
}

var _ io.ReaderAt = &recordingReader{}

// fiftyByteSchema is 50 bytes: a big-endian row number followed by padding.
func fiftyByteSchema() *schema.RecordSchema {
	return schema.MustNew("MDS1", []schema.FieldSchema{
		{Name: "row", Type: schema.Uint16, Count: 1},
		{Name: "samples", Type: schema.Uint8, Count: 48},
	})
}

// testFile lays out 4 records of 50 bytes at offset 100; record i holds
// row number 10+i and samples filled with byte i.
func testFile() *recordingReader {
	buf := make([]byte, 100+4*50)
	for i := 0; i < 4; i++ {
		rec := buf[100+i*50 : 100+(i+1)*50]
		binary.BigEndian.PutUint16(rec, uint16(10+i))
		for j := 2; j < 50; j++ {
			rec[j] = byte(i)
		}
	}
	return &recordingReader{buf: buf}
}

func mds() dsd.Descriptor {
	return dsd.Descriptor{Name: "MDS1", Kind: dsd.Measurement, Offset: 100, RecordSize: 50, RecordCount: 4}
}

func TestReader_ReadOffset(t *testing.T) {
	src := testFile()
	r, err := NewReader(src, mds(), fiftyByteSchema())
	require.NoError(t, err)
	assert.Equal(t, 4, r.NumRecords())

	rec := r.NewRecord()
	require.NoError(t, r.Read(2, rec))

	require.Len(t, src.reads, 1)
	assert.Equal(t, [2]int64{200, 250}, src.reads[0])
	assert.Equal(t, record.Uint16{12}, rec.Field(0).Data())
	assert.Equal(t, 2.0, rec.Field(1).Float64(47))
}

func TestReader_OutOfRange(t *testing.T) {
	src := testFile()
	r, err := NewReader(src, mds(), fiftyByteSchema())
	require.NoError(t, err)
	rec := r.NewRecord()

	for _, idx := range []int{-1, 4, 100} {
		err := r.Read(idx, rec)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "index %d", idx)
	}
	assert.Empty(t, src.reads)
}

func TestReader_LineMapper(t *testing.T) {
	reverse := MapperFunc(func(row int) int { return 3 - row })

	src := testFile()
	r, err := NewReader(src, mds(), fiftyByteSchema(), WithLineMapper(reverse))
	require.NoError(t, err)
	rec := r.NewRecord()
	require.NoError(t, r.Read(0, rec))
	assert.Equal(t, record.Uint16{13}, rec.Field(0).Data())
	assert.Equal(t, 3, r.MapIndex(0))

	// annotation datasets are never remapped
	ads := mds()
	ads.Kind = dsd.Annotation
	r, err = NewReader(src, ads, fiftyByteSchema(), WithLineMapper(reverse))
	require.NoError(t, err)
	require.NoError(t, r.Read(0, rec))
	assert.Equal(t, record.Uint16{10}, rec.Field(0).Data())
	assert.Equal(t, 0, r.MapIndex(0))
}

func TestReader_SchemaChecks(t *testing.T) {
	src := testFile()

	short := schema.MustNew("MDS1", []schema.FieldSchema{{Name: "row", Type: schema.Uint16, Count: 1}})
	_, err := NewReader(src, mds(), short)
	assert.True(t, errors.Is(err, ErrRecordSize))

	_, err = NewReader(src, mds(), nil)
	assert.True(t, errors.Is(err, schema.ErrUnknownRecordSchema))

	r, err := NewReader(src, mds(), fiftyByteSchema())
	require.NoError(t, err)

	// a different layout of the same size is rejected
	other := schema.MustNew("OTHER", []schema.FieldSchema{{Name: "bytes", Type: schema.Uint8, Count: 50}})
	err = r.Read(0, record.New(other))
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	// an equal layout built separately is accepted
	require.NoError(t, r.Read(1, record.New(fiftyByteSchema())))
}

func TestReader_IOError(t *testing.T) {
	src := testFile()
	m := metrics.New(prometheus.NewRegistry())
	r, err := NewReader(src, mds(), fiftyByteSchema(), WithMetrics(m))
	require.NoError(t, err)

	rec := r.NewRecord()
	require.NoError(t, r.Read(1, rec))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecordsRead.WithLabelValues("MDS1")))
	assert.Equal(t, float64(50), testutil.ToFloat64(m.BytesRead.WithLabelValues("MDS1")))

	src.err = io.ErrClosedPipe
	err = r.Read(1, rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.Equal(t, record.Uint16{0}, rec.Field(0).Data(), "record is zeroed on failure")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReadErrors.WithLabelValues("MDS1")))
}

func TestReader_ReadField(t *testing.T) {
	src := testFile()
	r, err := NewReader(src, mds(), fiftyByteSchema())
	require.NoError(t, err)

	f, err := record.NewField(r.Schema().Field(1))
	require.NoError(t, err)
	require.NoError(t, r.ReadField(3, 1, f))
	require.Len(t, src.reads, 1)
	assert.Equal(t, [2]int64{252, 300}, src.reads[0])
	assert.Equal(t, 3.0, f.Float64(0))

	err = r.ReadField(0, 0, f)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	err = r.ReadField(0, 2, f)
	assert.True(t, errors.Is(err, schema.ErrInvalidField))

	err = r.ReadField(4, 1, f)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestIndexMap(t *testing.T) {
	m := NewIndexMap([]int{0, 1, 1, -1, 2})
	assert.Equal(t, 5, m.Rows())
	assert.Equal(t, 1, m.NumMissing())

	assert.Equal(t, 0, m.Map(0))
	assert.Equal(t, 1, m.Map(1))
	assert.Equal(t, 1, m.Map(2))
	assert.Equal(t, -1, m.Map(3))
	assert.True(t, m.IsMissing(3))
	assert.Equal(t, 2, m.Map(4))
	assert.Equal(t, -1, m.Map(5))
	assert.Equal(t, -1, m.Map(-1))

	// any negative entry is missing; the table is copied
	indices := []int{-5, 0, -1 << 20}
	m = NewIndexMap(indices)
	indices[1] = -1
	assert.Equal(t, 2, m.NumMissing())
	assert.Equal(t, -1, m.Map(0))
	assert.Equal(t, 0, m.Map(1))
	assert.Equal(t, -1, m.Map(2))
	assert.False(t, m.IsMissing(1))

	assert.Equal(t, 7, IdentityMapper{}.Map(7))
}
