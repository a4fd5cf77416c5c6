// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import "fmt"

// MaxSmoothingSteps is the history depth limit.
const MaxSmoothingSteps = 10

// minAdvancedSteps leaves at least one sample after dropping min and max.
const minAdvancedSteps = 3

// Smoother is a rolling-window average over the last N samples per axis.
//
// In advanced mode the largest and smallest sample of the window are
// dropped before averaging. The extremum scan only visits slots
// 0..window-2, so the last slot of the ring is never a trim candidate.
// Widening the scan changes outputs for existing deployments.
//
// The first window-1 outputs average over a partly empty ring (empty
// slots count as zero).
type Smoother struct {
	window   int
	advanced bool
	history  [MaxSmoothingSteps]Vector
	totals   Vector
	scan     int
}

// NewSmoother builds a smoother over steps samples. Steps outside 1..10
// are clamped. Advanced mode needs at least 3 steps.
func NewSmoother(steps int, advanced bool) (*Smoother, error) {
	window := clampSteps(steps)
	if advanced && window < minAdvancedSteps {
		return nil, fmt.Errorf("%w: got %d", ErrSmoothingWindowTooSmall, window)
	}
	return &Smoother{window: window, advanced: advanced}, nil
}

func clampSteps(steps int) int {
	switch {
	case steps > MaxSmoothingSteps:
		return MaxSmoothingSteps
	case steps < 1:
		return 1
	default:
		return steps
	}
}

// Push stores v in the ring and returns the current smoothed value.
func (s *Smoother) Push(v Vector) Vector {
	if s.scan >= s.window {
		s.scan = 0
	}

	var out Vector
	for i := 0; i < numAxes; i++ {
		s.totals[i] -= s.history[s.scan][i]
		s.history[s.scan][i] = v[i]
		s.totals[i] += v[i]

		if s.advanced {
			out[i] = s.trimmedMean(i)
		} else {
			out[i] = s.totals[i] / float64(s.window)
		}
	}

	s.scan++
	return out
}

func (s *Smoother) trimmedMean(axis int) float64 {
	hi, lo := 0, 0
	for j := 0; j < s.window-1; j++ {
		if s.history[j][axis] > s.history[hi][axis] {
			hi = j
		}
		if s.history[j][axis] < s.history[lo][axis] {
			lo = j
		}
	}
	trimmed := s.totals[axis] - s.history[hi][axis] - s.history[lo][axis]
	return trimmed / float64(s.window-2)
}

// Reset empties the history.
func (s *Smoother) Reset() {
	s.history = [MaxSmoothingSteps]Vector{}
	s.totals = Vector{}
	s.scan = 0
}

// Window returns the clamped window size.
func (s *Smoother) Window() int { return s.window }

// Advanced reports whether min/max trimming is on.
func (s *Smoother) Advanced() bool { return s.advanced }

// Totals returns the running per-axis sum of the ring.
func (s *Smoother) Totals() Vector { return s.totals }
