// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package i2cbus

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/qmc_compass/internal/compass"
	"periph.io/x/conn/v3/physic"
)

// MockBus is an i2c.Bus with a simulated QMC5883L that slowly turns
// through a full circle, with hard-iron offset and uneven axis gains so
// calibration has something to correct. Only the chip address answers.
type MockBus struct {
	mu    sync.Mutex
	start time.Time
	now   func() time.Time
	regs  [0x0E]byte
	ptr   byte

	// DegreesPerSecond is the simulated rotation speed.
	DegreesPerSecond float64
	// Offset is the hard-iron bias added to every axis, in counts.
	Offset compass.Vector
	// Gain is the per-axis field strength, in counts.
	Gain compass.Vector
}

// NewMockBus returns a simulated chip turning at 30°/s.
func NewMockBus() *MockBus {
	m := &MockBus{
		start:            time.Now(),
		now:              time.Now,
		DegreesPerSecond: 30,
		Offset:           compass.Vector{-220, 140, 35},
		Gain:             compass.Vector{1800, 1550, 900},
	}
	m.regs[compass.RegChipID] = 0xFF
	return m
}

func (m *MockBus) String() string { return "mock-qmc5883l" }

// SetSpeed implements i2c.Bus.
func (m *MockBus) SetSpeed(f physic.Frequency) error { return nil }

// Close implements i2c.BusCloser.
func (m *MockBus) Close() error { return nil }

// Tx implements i2c.Bus. A write of one byte sets the register pointer, a
// longer write stores registers, and a read returns registers from the
// pointer onwards with the data registers refreshed on each read.
func (m *MockBus) Tx(addr uint16, w, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if addr != compass.DefaultAddr {
		return fmt.Errorf("mock: no device at 0x%02X", addr)
	}
	if len(w) > 0 {
		m.ptr = w[0]
		for i, v := range w[1:] {
			reg := int(m.ptr) + i
			if reg < len(m.regs) {
				m.regs[reg] = v
			}
		}
		if len(w) > 1 && m.ptr == compass.RegControl2 && w[1]&0x80 != 0 {
			m.regs = [0x0E]byte{}
			m.regs[compass.RegChipID] = 0xFF
		}
	}
	if len(r) == 0 {
		return nil
	}
	if int(m.ptr) <= compass.RegXOutLSB+5 {
		m.sample()
	}
	for i := range r {
		reg := int(m.ptr) + i
		if reg < len(m.regs) {
			r[i] = m.regs[reg]
		} else {
			r[i] = 0
		}
	}
	return nil
}

// sample refreshes the data registers when the chip is in continuous mode.
func (m *MockBus) sample() {
	if m.regs[compass.RegControl1]&0x03 != compass.ModeContinuous {
		return
	}
	heading := m.Heading() * math.Pi / 180
	v := compass.Vector{
		m.Offset[compass.AxisX] + m.Gain[compass.AxisX]*math.Cos(heading),
		m.Offset[compass.AxisY] + m.Gain[compass.AxisY]*math.Sin(heading),
		m.Offset[compass.AxisZ] + m.Gain[compass.AxisZ]*0.3,
	}
	for i := 0; i < 3; i++ {
		c := uint16(int16(math.Round(v[i])))
		m.regs[2*i] = byte(c)
		m.regs[2*i+1] = byte(c >> 8)
	}
	m.regs[compass.RegStatus] |= 0x01
}

// Heading returns the simulated true heading in degrees.
func (m *MockBus) Heading() float64 {
	elapsed := m.now().Sub(m.start).Seconds()
	return math.Mod(elapsed*m.DegreesPerSecond, 360)
}
