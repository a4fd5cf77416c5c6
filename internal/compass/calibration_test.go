// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{XMin: -100, XMax: 300, YMin: -200, YMax: 200, ZMin: 0, ZMax: 800}

func TestNewCalibration_OffsetsAndScales(t *testing.T) {
	c, err := NewCalibration(testBounds)
	require.NoError(t, err)

	assert.Equal(t, Vector{100, 0, 400}, c.Offsets())

	// half-ranges 200, 200, 400 -> shared 800/3
	shared := 800.0 / 3.0
	scales := c.Scales()
	assert.InDelta(t, shared/200, scales[AxisX], 1e-9)
	assert.InDelta(t, shared/200, scales[AxisY], 1e-9)
	assert.InDelta(t, shared/400, scales[AxisZ], 1e-9)
	assert.Equal(t, testBounds, c.Bounds())
}

func TestCalibration_CenterMapsToOrigin(t *testing.T) {
	cases := []Bounds{
		testBounds,
		{XMin: -1500, XMax: 1200, YMin: -900, YMax: 1700, ZMin: -300, ZMax: 301},
		{XMin: 3, XMax: 4, YMin: -7, YMax: -2, ZMin: 10, ZMax: 1000},
	}
	for _, b := range cases {
		c, err := NewCalibration(b)
		require.NoError(t, err)

		center := Vector{
			float64(b.XMin+b.XMax) / 2,
			float64(b.YMin+b.YMax) / 2,
			float64(b.ZMin+b.ZMax) / 2,
		}
		out := c.Apply(center)
		for i := 0; i < numAxes; i++ {
			assert.InDelta(t, 0, out[i], 1e-9, "bounds %+v axis %d", b, i)
		}
	}
}

func TestCalibration_Apply(t *testing.T) {
	c, err := NewCalibration(testBounds)
	require.NoError(t, err)

	out := c.Apply(Vector{300, -200, 800})
	shared := 800.0 / 3.0
	assert.InDelta(t, shared, out[AxisX], 1e-9)
	assert.InDelta(t, -shared, out[AxisY], 1e-9)
	assert.InDelta(t, shared, out[AxisZ], 1e-9)
}

func TestNewCalibration_Degenerate(t *testing.T) {
	for _, b := range []Bounds{
		{XMin: 5, XMax: 5, YMin: -1, YMax: 1, ZMin: -1, ZMax: 1},
		{XMin: -1, XMax: 1, YMin: 0, YMax: 0, ZMin: -1, ZMax: 1},
		{XMin: -1, XMax: 1, YMin: -1, YMax: 1, ZMin: 9, ZMax: 9},
	} {
		_, err := NewCalibration(b)
		assert.ErrorIs(t, err, ErrCalibrationDegenerate, "bounds %+v", b)
	}
}
