// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordRead(t *testing.T) {
	m := New(prometheus.NewRegistry())
	require.NotNil(t, m)

	m.RecordRead("MDS1", 50)
	m.RecordRead("MDS1", 50)
	m.RecordRead("Tie points ADS", 12)

	require.Equal(t, float64(2), testutil.ToFloat64(m.RecordsRead.WithLabelValues("MDS1")))
	require.Equal(t, float64(100), testutil.ToFloat64(m.BytesRead.WithLabelValues("MDS1")))
	require.Equal(t, float64(12), testutil.ToFloat64(m.BytesRead.WithLabelValues("Tie points ADS")))
}

func TestMetrics_MissingAndErrors(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.MissingLine("MDS1")
	m.ReadError("MDS1")
	m.ReadError("MDS1")

	require.Equal(t, float64(1), testutil.ToFloat64(m.MissingLines.WithLabelValues("MDS1")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.ReadErrors.WithLabelValues("MDS1")))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordRead("MDS1", 1)
		m.MissingLine("MDS1")
		m.ReadError("MDS1")
	})
}

func TestMetrics_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordRead("MDS1", 1)
	m.MissingLine("MDS1")
	m.ReadError("MDS1")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)

	require.Panics(t, func() { New(reg) })
}
