// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData() []byte {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "product.N1")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func checkStream(t *testing.T, s Stream, data []byte) {
	t.Helper()
	assert.Equal(t, int64(len(data)), s.Size())

	buf := make([]byte, 100)
	n, err := s.ReadAt(buf, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[1000:1100], buf)

	// reads past the end fail rather than returning partial data silently
	_, err = s.ReadAt(buf, int64(len(data))-50)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)

	// concurrent readers at different offsets each see their own bytes
	var wg sync.WaitGroup
	errs := make([]error, 16)
	for g := range errs {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			b := make([]byte, 64)
			for i := 0; i < 50; i++ {
				off := int64((g*64 + i*13) % (len(data) - 64))
				if _, err := s.ReadAt(b, off); err != nil {
					errs[g] = err
					return
				}
				if !bytes.Equal(b, data[off:off+64]) {
					errs[g] = errors.New("interleaved read")
					return
				}
			}
		}(g)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	require.NoError(t, s.Close())
	_, err = s.ReadAt(buf, 0)
	assert.True(t, errors.Is(err, ErrClosed))
	assert.NoError(t, s.Close())
}

func TestSeeker(t *testing.T) {
	data := testData()
	r := bytes.NewReader(data)
	checkStream(t, NewSeeker(r, int64(len(data))), data)

	// the caller's reader is left usable
	_, err := r.Seek(0, io.SeekStart)
	assert.NoError(t, err)
}

func TestFile(t *testing.T) {
	data := testData()
	f, err := OpenFile(writeTemp(t, data))
	require.NoError(t, err)
	checkStream(t, f, data)

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMapped(t *testing.T) {
	data := testData()
	m, err := OpenMapped(writeTemp(t, data))
	require.NoError(t, err)
	checkStream(t, m, data)
	assert.Equal(t, int64(0), m.Size())

	_, err = OpenMapped(writeTemp(t, nil))
	assert.Error(t, err)

	_, err = OpenMapped(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
