// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package stream provides the shared random-access byte source behind an
// open product.  Every Stream is safe for concurrent use: a Seeker
// serializes each seek+read pair behind a mutex, and a Mapped stream
// copies out of a read-only mapping.
package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

var ErrClosed = errors.New("stream closed")

// Stream is a random-access, concurrency-safe view of a product file.
type Stream interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Seeker adapts a borrowed io.ReadSeeker.  The seek and the following read
// are performed as one operation under a mutex, held only for that pair.
type Seeker struct {
	mu   sync.Mutex
	rs   io.ReadSeeker
	size int64
}

// NewSeeker wraps rs, which must not be used by anyone else while the
// Seeker is in use.  Close does not close rs.
func NewSeeker(rs io.ReadSeeker, size int64) *Seeker {
	return &Seeker{
		rs:   rs,
		size: size,
	}
}

func (s *Seeker) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rs == nil {
		return 0, ErrClosed
	}
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, fmt.Errorf("Seek(%d): %w", off, err)
	}
	n, err := io.ReadFull(s.rs, p)
	if err != nil {
		return n, fmt.Errorf("io.ReadFull(off: %d, len: %d): %w", off, len(p), err)
	}
	return n, nil
}

func (s *Seeker) Size() int64 { return s.size }

func (s *Seeker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rs = nil
	return nil
}

// File is a Seeker that owns the underlying *os.File.
type File struct {
	*Seeker
	f        *os.File
	isClosed atomic.Bool
}

// OpenFile opens path for seek+read access.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	return &File{
		Seeker: NewSeeker(f, stats.Size()),
		f:      f,
	}, nil
}

func (f *File) Close() error {
	if f.isClosed.Swap(true) {
		return nil
	}
	_ = f.Seeker.Close()
	return f.f.Close()
}

// Mapped serves reads from a read-only memory mapping of the whole file.
type Mapped struct {
	mu   sync.RWMutex
	data []byte
}

// OpenMapped maps path into memory.  Access is expected to be random
// (scanlines of many datasets interleaved), so the kernel is advised not to
// read ahead.
func OpenMapped(path string) (*Mapped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	defer func() { _ = f.Close() }()

	stats, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	size := stats.Size()
	if size <= 0 {
		return nil, fmt.Errorf("mmap %s: empty file", path)
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("mmap %s: file too large (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("unix.Mmap(%s): %w", path, err)
	}
	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("madvise: %w", err)
	}

	return &Mapped{data: data}, nil
}

func (m *Mapped) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return 0, ErrClosed
	}
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("off %d beyond bounds (%d)", off, len(m.data))
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("short read of %d at off %d (wanted %d): %w", n, off, len(p), io.ErrUnexpectedEOF)
	}
	return n, nil
}

func (m *Mapped) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data))
}

func (m *Mapped) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("unix.Munmap: %w", err)
	}
	return nil
}

var (
	_ Stream = &Seeker{}
	_ Stream = &File{}
	_ Stream = &Mapped{}
)
