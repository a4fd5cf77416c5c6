// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heading

import (
	"time"

	"github.com/relabs-tech/qmc_compass/internal/compass"
)

// Reading is one published compass sample.
type Reading struct {
	Source string `json:"source"` // device name

	X float64 `json:"x"` // current vector (smoothed > calibrated > raw)
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	RawX int16 `json:"raw_x"`
	RawY int16 `json:"raw_y"`
	RawZ int16 `json:"raw_z"`

	Azimuth   int    `json:"azimuth"`   // degrees, [0, 360)
	Bearing   int    `json:"bearing"`   // sector 0-15
	Direction string `json:"direction"` // e.g. "NNE", "  N"

	Dropped int    `json:"dropped"` // skipped read cycles so far
	Time    string `json:"time"`    // RFC3339
}

// FromSession snapshots the session's current state.
func FromSession(source string, s *compass.Session, t time.Time) Reading {
	raw := s.Raw()
	az := s.Azimuth()
	sector := s.Bearing(az)
	return Reading{
		Source:    source,
		X:         s.X(),
		Y:         s.Y(),
		Z:         s.Z(),
		RawX:      raw.X,
		RawY:      raw.Y,
		RawZ:      raw.Z,
		Azimuth:   az,
		Bearing:   sector,
		Direction: compass.Label(sector),
		Dropped:   s.Dropped(),
		Time:      t.UTC().Format(time.RFC3339),
	}
}
