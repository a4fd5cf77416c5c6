// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/qmc_compass/internal/heading"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestFormatReading(t *testing.T) {
	line := formatReading(heading.Reading{
		X: 12.5, Y: -3, Z: 40,
		RawX: 10, RawY: -2, RawZ: 33,
		Azimuth: 337, Bearing: 15, Direction: "NNW", Dropped: 2,
	})
	assert.Contains(t, line, "337° NNW (sector 15)")
	assert.Contains(t, line, "x=    12.5")
	assert.Contains(t, line, "dropped=2")
}

func TestHeadingHandler(t *testing.T) {
	var out bytes.Buffer
	h := headingHandler(&out)

	h(nil, &fakeMessage{topic: "compass/heading", payload: []byte(`{"azimuth":45,"bearing":2,"direction":" NE"}`)})
	assert.Contains(t, out.String(), " 45°  NE (sector  2)")

	out.Reset()
	h(nil, &fakeMessage{topic: "compass/heading", payload: []byte(`not json`)})
	assert.Empty(t, out.String())
}
