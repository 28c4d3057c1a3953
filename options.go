// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package envisat

import (
	"io"
	"log/slog"

	"github.com/bpowers/envisat/metrics"
	"github.com/bpowers/envisat/recordio"
)

// Option configures a Product.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	mapper        recordio.LineMapper
	missingValue  float64
	chronological bool
	metrics       *metrics.Metrics
	mmap          bool
}

func defaultOptions() options {
	return options{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		mapper:        recordio.IdentityMapper{},
		chronological: true,
	}
}

// WithLogger sets an optional logger for the product to use.
// If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithLineMapper sets the logical-row to record-index mapping applied to
// measurement datasets.  The default is the identity.
func WithLineMapper(m recordio.LineMapper) Option {
	return func(opts *options) {
		if m != nil {
			opts.mapper = m
		}
	}
}

// WithMissingValue sets the fill value for raster lines without a record.
// Bands whose output type cannot hold it fail in NewBandLineReader.
func WithMissingValue(v float64) Option {
	return func(opts *options) {
		opts.missingValue = v
	}
}

// WithChronologicalOrder records whether scanlines are stored in
// chronological order.  When false every raster line and tie-point row is
// mirrored on read.  The default is true.
//
// The sense is the opposite of a header flag reporting that a product
// "stores pixels in chronological order": such products are the ones that
// need mirroring, so pass the negation of that flag here.
func WithChronologicalOrder(chronological bool) Option {
	return func(opts *options) {
		opts.chronological = chronological
	}
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *options) {
		opts.metrics = m
	}
}

// WithMmap makes Open map the file into memory instead of reading through a
// file handle.  It has no effect on New.
func WithMmap(enabled bool) Option {
	return func(opts *options) {
		opts.mmap = enabled
	}
}
