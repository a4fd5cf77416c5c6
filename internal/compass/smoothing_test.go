// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoother_WindowOneIsIdentity(t *testing.T) {
	s, err := NewSmoother(1, false)
	require.NoError(t, err)

	for _, v := range []Vector{{1, 2, 3}, {-400, 12, 7}, {0, 0, 0}, {32767, -32768, 5}} {
		assert.Equal(t, v, s.Push(v))
	}
}

func TestNewSmoother_AdvancedNeedsThreeSteps(t *testing.T) {
	for _, steps := range []int{0, 1, 2} {
		_, err := NewSmoother(steps, true)
		assert.ErrorIs(t, err, ErrSmoothingWindowTooSmall, "steps=%d", steps)
	}

	s, err := NewSmoother(3, true)
	require.NoError(t, err)
	assert.True(t, s.Advanced())
}

func TestNewSmoother_Clamp(t *testing.T) {
	s, err := NewSmoother(15, false)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Window())

	s, err = NewSmoother(0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Window())
}

func TestSmoother_ClampBehavesLikeTen(t *testing.T) {
	for _, advanced := range []bool{false, true} {
		a, err := NewSmoother(15, advanced)
		require.NoError(t, err)
		b, err := NewSmoother(10, advanced)
		require.NoError(t, err)

		for i := 0; i < 25; i++ {
			v := Vector{float64(i * i % 17), float64(-i * 3), float64(i % 4)}
			assert.Equal(t, b.Push(v), a.Push(v), "advanced=%v push %d", advanced, i)
		}
	}
}

func TestSmoother_ConstantInputSettles(t *testing.T) {
	in := Vector{120, -45, 300}
	for _, tc := range []struct {
		steps    int
		advanced bool
	}{
		{1, false}, {2, false}, {5, false}, {10, false},
		{3, true}, {5, true}, {10, true},
	} {
		s, err := NewSmoother(tc.steps, tc.advanced)
		require.NoError(t, err)

		var out Vector
		for i := 0; i < tc.steps; i++ {
			out = s.Push(in)
		}
		totals := s.Totals()
		for i := 0; i < numAxes; i++ {
			assert.InDelta(t, in[i], out[i], 1e-9, "steps=%d advanced=%v", tc.steps, tc.advanced)
			assert.InDelta(t, in[i], totals[i]/float64(tc.steps), 1e-9)
		}
	}
}

func TestSmoother_PartialWindow(t *testing.T) {
	s, err := NewSmoother(4, false)
	require.NoError(t, err)

	assert.Equal(t, Vector{2, 1, 0}, s.Push(Vector{8, 4, 0}))
	assert.Equal(t, Vector{4, 2, 0}, s.Push(Vector{8, 4, 0}))
}

func TestSmoother_TotalsTrackRing(t *testing.T) {
	s, err := NewSmoother(3, false)
	require.NoError(t, err)

	for i := 1; i <= 7; i++ {
		s.Push(Vector{float64(i), float64(-i), 0})
	}
	// ring holds 5, 6, 7
	assert.Equal(t, Vector{18, -18, 0}, s.Totals())
	assert.Equal(t, Vector{7, -7, 0}, s.Push(Vector{8, -8, 0}))
}

func TestSmoother_AdvancedSkipsLastSlot(t *testing.T) {
	s, err := NewSmoother(5, true)
	require.NoError(t, err)

	var out Vector
	for i := 1; i <= 5; i++ {
		out = s.Push(Vector{float64(i), 0, 0})
	}
	// history 1..5; the scan only sees slots 0..3, so 4 is trimmed as max
	// instead of 5.
	assert.InDelta(t, (15.0-4-1)/3, out[AxisX], 1e-9)
}

func TestSmoother_AdvancedTrimsOutliers(t *testing.T) {
	s, err := NewSmoother(4, true)
	require.NoError(t, err)

	var out Vector
	for _, x := range []float64{100, -500, 900, 10} {
		out = s.Push(Vector{x, 0, 0})
	}
	// slots 0..2 hold 100, -500, 900: max 900, min -500
	assert.InDelta(t, (510.0-900+500)/2, out[AxisX], 1e-9)
}

func TestSmoother_AdvancedTiesKeepEarliest(t *testing.T) {
	s, err := NewSmoother(4, true)
	require.NoError(t, err)

	var out Vector
	for _, x := range []float64{7, 7, 7, 1} {
		out = s.Push(Vector{x, 0, 0})
	}
	// both extrema resolve to slot 0
	assert.InDelta(t, (22.0-7-7)/2, out[AxisX], 1e-9)
}

func TestSmoother_Reset(t *testing.T) {
	s, err := NewSmoother(3, false)
	require.NoError(t, err)

	s.Push(Vector{9, 9, 9})
	s.Reset()
	assert.Equal(t, Vector{}, s.Totals())
	assert.Equal(t, Vector{1, 1, 1}, s.Push(Vector{3, 3, 3}))
}
