// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import "errors"

var (
	// ErrIO marks a failed bus transaction. Session.Read absorbs it and
	// skips the cycle; it is only returned from the configuration writes.
	ErrIO = errors.New("compass: bus transaction failed")

	// ErrCalibrationDegenerate is returned when an axis has min == max,
	// which would make its scale a division by zero.
	ErrCalibrationDegenerate = errors.New("compass: degenerate calibration bounds")

	// ErrSmoothingWindowTooSmall is returned when advanced smoothing is
	// requested with fewer than 3 steps.
	ErrSmoothingWindowTooSmall = errors.New("compass: advanced smoothing needs a window of at least 3")
)
