// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package envisat

import (
	"errors"

	"github.com/bpowers/envisat/band"
	"github.com/bpowers/envisat/dsd"
	"github.com/bpowers/envisat/recordio"
	"github.com/bpowers/envisat/schema"
)

var formatErrors = []error{
	dsd.ErrMissingDataset,
	dsd.ErrMalformed,
	schema.ErrUnknownRecordSchema,
	schema.ErrInvalidField,
	recordio.ErrRecordSize,
	band.ErrUnsupportedPacking,
}

// IsFormatError reports whether err stems from a product whose layout does
// not agree with its descriptors or schemas.  Such errors abort opening the
// affected dataset or band and are not worth retrying.
func IsFormatError(err error) bool {
	for _, target := range formatErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
