// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel error kinds. Wrap these with errors.Wrap/Wrapf so callers
// can still errors.Is against the sentinel while keeping the
// offset/region context that produced the failure.
var (
	// ErrDatasetFormat is returned for a magic/version mismatch, a
	// truncated region, or a violated file-format invariant.
	ErrDatasetFormat = errors.New("uadetect: invalid dataset format")

	// ErrDatasetDisposed is returned when a disposed Dataset or
	// Provider is used.
	ErrDatasetDisposed = errors.New("uadetect: dataset disposed")

	// ErrDataFileIO is returned when a read against the underlying
	// source fails.
	ErrDataFileIO = errors.New("uadetect: data file I/O error")

	// ErrPoolExhausted is returned only when a Pool has a configured
	// hard cap and that cap has been reached.
	ErrPoolExhausted = errors.New("uadetect: reader pool exhausted")

	// errMatchTimeout is not returned by any function in this
	// package: an exceeded node-evaluation budget is reported as a
	// valid Match with IsComplete=false, never as an error.
	errMatchTimeout = errors.New("uadetect: match exceeded node evaluation budget")
)

// datasetFormatf wraps ErrDatasetFormat with additional context.
func datasetFormatf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDatasetFormat, format, args...)
}

// dataFileIOf wraps a low-level read failure as ErrDataFileIO,
// retaining err as a second wrapped cause: errors.Is matches both
// ErrDataFileIO and err.
func dataFileIOf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %w", ErrDataFileIO, fmt.Sprintf(format, args...), err)
}
