// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

// Axis indexes into a Vector.
const (
	AxisX = iota
	AxisY
	AxisZ
	numAxes
)

// Vector is one X/Y/Z sample. Raw counts, calibrated and smoothed values
// all share this representation.
type Vector [numAxes]float64

// X returns the X component.
func (v Vector) X() float64 { return v[AxisX] }

// Y returns the Y component.
func (v Vector) Y() float64 { return v[AxisY] }

// Z returns the Z component.
func (v Vector) Z() float64 { return v[AxisZ] }

// RawSample is a single decoded read of the three output registers.
type RawSample struct {
	X int16
	Y int16
	Z int16
}

// Vector widens the raw counts.
func (r RawSample) Vector() Vector {
	return Vector{float64(r.X), float64(r.Y), float64(r.Z)}
}

// decodeRaw decodes the six data bytes (X, Y, Z little-endian int16).
func decodeRaw(b []byte) RawSample {
	return RawSample{
		X: int16(uint16(b[0]) | uint16(b[1])<<8),
		Y: int16(uint16(b[2]) | uint16(b[3])<<8),
		Z: int16(uint16(b[4]) | uint16(b[5])<<8),
	}
}
