// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import "fmt"

// Bounds are the per-axis raw min/max seen while rotating the sensor
// through every orientation.
type Bounds struct {
	XMin int `json:"x_min" yaml:"x_min"`
	XMax int `json:"x_max" yaml:"x_max"`
	YMin int `json:"y_min" yaml:"y_min"`
	YMax int `json:"y_max" yaml:"y_max"`
	ZMin int `json:"z_min" yaml:"z_min"`
	ZMax int `json:"z_max" yaml:"z_max"`
}

func (b Bounds) axis(i int) (lo, hi int) {
	switch i {
	case AxisX:
		return b.XMin, b.XMax
	case AxisY:
		return b.YMin, b.YMax
	default:
		return b.ZMin, b.ZMax
	}
}

// Calibration corrects hard-iron offset and a diagonal soft-iron scale
// using the min/max method: every axis is centered on (min+max)/2 and
// stretched so its half-range matches the mean half-range of all three.
type Calibration struct {
	bounds Bounds
	offset Vector
	scale  Vector
}

var axisNames = [numAxes]string{"x", "y", "z"}

// NewCalibration derives offsets and scales from b. It returns
// ErrCalibrationDegenerate if any axis has a zero half-range.
func NewCalibration(b Bounds) (Calibration, error) {
	var (
		c        = Calibration{bounds: b}
		avgDelta Vector
		shared   float64
	)
	for i := 0; i < numAxes; i++ {
		lo, hi := b.axis(i)
		c.offset[i] = float64(lo+hi) / 2
		avgDelta[i] = float64(hi-lo) / 2
		if avgDelta[i] == 0 {
			return Calibration{}, fmt.Errorf("%w: %s axis min == max (%d)", ErrCalibrationDegenerate, axisNames[i], lo)
		}
		shared += avgDelta[i]
	}
	shared /= numAxes

	for i := 0; i < numAxes; i++ {
		c.scale[i] = shared / avgDelta[i]
	}
	return c, nil
}

// Apply corrects one raw sample.
func (c Calibration) Apply(raw Vector) Vector {
	var out Vector
	for i := 0; i < numAxes; i++ {
		out[i] = (raw[i] - c.offset[i]) * c.scale[i]
	}
	return out
}

// Bounds returns the bounds the calibration was built from.
func (c Calibration) Bounds() Bounds { return c.bounds }

// Offsets returns the per-axis hard-iron offsets.
func (c Calibration) Offsets() Vector { return c.offset }

// Scales returns the per-axis soft-iron scale factors.
func (c Calibration) Scales() Vector { return c.scale }
