// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package synth

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/envisat/dsd"
)

func TestWrite(t *testing.T) {
	s := Default()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))
	require.Equal(t, s.Size(), int64(buf.Len()))

	tbl, err := dsd.ReadTable(bytes.NewReader(buf.Bytes()), HeaderSize, NumDSDs, BlockSize)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	require.NoError(t, tbl.Validate(uint64(buf.Len())))

	mds, err := tbl.Find(MDSName)
	require.NoError(t, err)
	assert.Equal(t, dsd.Measurement, mds.Kind)
	assert.Equal(t, uint64(s.MDSOffset()), mds.Offset)
	assert.Equal(t, uint32(s.MDSRecordSize()), mds.RecordSize)

	// line 2, column 3 of the radiance field
	off := s.MDSOffset() + int64(2*s.MDSRecordSize()) + 16 + 2*3
	assert.Equal(t, Pixel(2, 3), binary.BigEndian.Uint16(buf.Bytes()[off:]))

	assert.Equal(t, []uint16{1, 5, 9}, []uint16{s.Column(0), s.Column(1), s.Column(2)})
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFiles(dir, Default())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Size(), info.Size())

	for name := range Schemas() {
		_, err := os.Stat(filepath.Join(dir, "schemas", filepath.FromSlash(name)))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(dir, "envidump.yaml"))
	assert.NoError(t, err)
}
