// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import "math"

// Sectors is the number of compass-rose points.
const Sectors = 16

const sectorWidth = 360.0 / Sectors

var bearings = [Sectors][3]byte{
	{' ', ' ', 'N'},
	{'N', 'N', 'E'},
	{' ', 'N', 'E'},
	{'E', 'N', 'E'},
	{' ', ' ', 'E'},
	{'E', 'S', 'E'},
	{' ', 'S', 'E'},
	{'S', 'S', 'E'},
	{' ', ' ', 'S'},
	{'S', 'S', 'W'},
	{' ', 'S', 'W'},
	{'W', 'S', 'W'},
	{' ', ' ', 'W'},
	{'W', 'N', 'W'},
	{' ', 'N', 'W'},
	{'N', 'N', 'W'},
}

// Azimuth returns the heading in whole degrees [0, 360) for the field
// vector (x, y). Fractional degrees are truncated toward zero before
// negative angles are wrapped.
func Azimuth(x, y float64) int {
	a := int(math.Atan2(y, x) * 180.0 / math.Pi)
	if a < 0 {
		a += 360
	}
	return a
}

// Bearing maps an azimuth to one of the 16 compass-rose sectors,
// rounding half up. 348.75 and above wrap back to sector 0. Azimuths
// outside [0, 360) are wrapped first.
func Bearing(azimuth float64) int {
	azimuth = math.Mod(azimuth, 360)
	if azimuth < 0 {
		azimuth += 360
	}
	raw := azimuth / sectorWidth
	r := raw - math.Trunc(raw)
	var sector int
	if r >= 0.5 {
		sector = int(math.Ceil(raw))
	} else {
		sector = int(math.Floor(raw))
	}
	return sector % Sectors
}

// Direction returns the three-character label of a sector, space padded
// on the left ("  N", "NNE", " NE").
func Direction(sector int) [3]byte {
	return bearings[((sector%Sectors)+Sectors)%Sectors]
}

// Label is Direction as a string.
func Label(sector int) string {
	d := Direction(sector)
	return string(d[:])
}
