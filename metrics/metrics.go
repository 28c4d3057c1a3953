// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package metrics holds the Prometheus counters maintained by product
// readers.  A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for open products.  Every vector is
// labelled by dataset name.
type Metrics struct {
	RecordsRead  *prometheus.CounterVec
	BytesRead    *prometheus.CounterVec
	MissingLines *prometheus.CounterVec
	ReadErrors   *prometheus.CounterVec
}

// New creates and registers all metrics with the provided registry.
func New(reg prometheus.Registerer) *Metrics {
	recordsRead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envisat_records_read_total",
		Help: "Total records read from product datasets",
	}, []string{"dataset"})

	bytesRead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envisat_bytes_read_total",
		Help: "Total bytes read from product datasets",
	}, []string{"dataset"})

	missingLines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envisat_missing_lines_total",
		Help: "Raster lines filled with the missing value because no record exists",
	}, []string{"dataset"})

	readErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envisat_read_errors_total",
		Help: "Failed record reads",
	}, []string{"dataset"})

	reg.MustRegister(recordsRead, bytesRead, missingLines, readErrors)

	return &Metrics{
		RecordsRead:  recordsRead,
		BytesRead:    bytesRead,
		MissingLines: missingLines,
		ReadErrors:   readErrors,
	}
}

// RecordRead counts one record of n bytes read from dataset.
func (m *Metrics) RecordRead(dataset string, n int) {
	if m == nil {
		return
	}
	m.RecordsRead.WithLabelValues(dataset).Inc()
	m.BytesRead.WithLabelValues(dataset).Add(float64(n))
}

func (m *Metrics) MissingLine(dataset string) {
	if m == nil {
		return
	}
	m.MissingLines.WithLabelValues(dataset).Inc()
}

func (m *Metrics) ReadError(dataset string) {
	if m == nil {
		return
	}
	m.ReadErrors.WithLabelValues(dataset).Inc()
}
