// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package recordio

import (
	"github.com/bpowers/envisat/internal/bitset"
)

// LineMapper maps a logical raster row to a physical record index within a
// measurement dataset.  A result outside [0, record count) means the line
// does not exist in the file.
type LineMapper interface {
	Map(row int) int
}

// IdentityMapper maps every row to itself.
type IdentityMapper struct{}

func (IdentityMapper) Map(row int) int { return row }

// MapperFunc adapts a plain function to a LineMapper.
type MapperFunc func(row int) int

func (f MapperFunc) Map(row int) int { return f(row) }

// IndexMap is a LineMapper backed by an explicit row table.  Duplicated
// lines are expressed by repeating a record index; missing lines are kept in
// a bitset and map to -1.
type IndexMap struct {
	index   []int
	missing *bitset.Bitset
}

// NewIndexMap builds a mapper where row i maps to indices[i].  Negative
// entries mark rows with no record.
func NewIndexMap(indices []int) *IndexMap {
	m := &IndexMap{
		index:   append([]int(nil), indices...),
		missing: bitset.New(len(indices)),
	}
	for i, idx := range indices {
		if idx < 0 {
			m.missing.Set(i)
		}
	}
	return m
}

// Map returns -1 for missing rows and rows beyond the table.
func (m *IndexMap) Map(row int) int {
	if row < 0 || row >= len(m.index) || m.missing.IsSet(row) {
		return -1
	}
	return m.index[row]
}

// Rows returns the number of logical rows.
func (m *IndexMap) Rows() int { return len(m.index) }

// IsMissing reports whether row was marked missing.
func (m *IndexMap) IsMissing(row int) bool { return m.missing.IsSet(row) }

// NumMissing returns the count of missing rows.
func (m *IndexMap) NumMissing() int { return m.missing.Count() }

var (
	_ LineMapper = IdentityMapper{}
	_ LineMapper = MapperFunc(nil)
	_ LineMapper = &IndexMap{}
)
