// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import (
	"fmt"
	"log"
)

// Transport is the bus collaborator the session talks to.
type Transport interface {
	// WriteRegister writes value into register reg of the device at addr.
	WriteRegister(addr uint16, reg, value byte) error
	// ReadBytes reads count bytes starting at register reg.
	ReadBytes(addr uint16, reg byte, count int) ([]byte, error)
}

// Opts configures a Session.
type Opts struct {
	// Addr is the I²C address, DefaultAddr when zero.
	Addr uint16
	// Mode is written to control register 1 by Init. DefaultMode when zero.
	Mode Mode
	// Name prefixes log lines; "compass" when empty.
	Name string
}

// Session owns one chip: its configuration, calibration, smoothing history
// and the latest sample. A Session is not safe for concurrent use; run
// every call for one chip from the same goroutine.
type Session struct {
	bus  Transport
	name string
	addr uint16
	mode Mode

	cal      *Calibration
	smoother *Smoother

	raw        RawSample
	calibrated Vector
	smoothed   Vector
	current    Vector

	reads   int
	dropped int
}

// NewSession creates a session on bus. It does not touch the chip; call
// Init for that.
func NewSession(bus Transport, opts Opts) *Session {
	s := &Session{
		bus:  bus,
		name: opts.Name,
		addr: opts.Addr,
		mode: opts.Mode,
	}
	if s.name == "" {
		s.name = "compass"
	}
	if s.addr == 0 {
		s.addr = DefaultAddr
	}
	if s.mode == (Mode{}) {
		s.mode = DefaultMode
	}
	return s
}

// Init programs the SET/RESET period and the configured mode.
func (s *Session) Init() error {
	if err := s.writeReg(RegSetReset, setResetInit); err != nil {
		return fmt.Errorf("%s: init set/reset period: %w", s.name, err)
	}
	m := s.mode
	if err := s.SetMode(m.Mode, m.ODR, m.RNG, m.OSR); err != nil {
		return fmt.Errorf("%s: init: %w", s.name, err)
	}
	return nil
}

// SetADDR changes the device address for subsequent bus operations.
func (s *Session) SetADDR(addr uint16) {
	s.addr = addr
}

// Addr returns the device address.
func (s *Session) Addr() uint16 { return s.addr }

// SetMode writes mode|odr|rng|osr to control register 1.
func (s *Session) SetMode(mode, odr, rng, osr byte) error {
	m := Mode{Mode: mode, ODR: odr, RNG: rng, OSR: osr}
	if err := s.writeReg(RegControl1, m.Byte()); err != nil {
		return fmt.Errorf("%s: set mode 0x%02X: %w", s.name, m.Byte(), err)
	}
	s.mode = m
	return nil
}

// Mode returns the last mode written.
func (s *Session) Mode() Mode { return s.mode }

// SetReset issues a soft reset.
func (s *Session) SetReset() error {
	if err := s.writeReg(RegControl2, softReset); err != nil {
		return fmt.Errorf("%s: soft reset: %w", s.name, err)
	}
	return nil
}

// SetCalibration enables calibration with the given bounds. Degenerate
// bounds are rejected and leave the previous calibration in place.
func (s *Session) SetCalibration(xMin, xMax, yMin, yMax, zMin, zMax int) error {
	return s.SetCalibrationBounds(Bounds{
		XMin: xMin, XMax: xMax,
		YMin: yMin, YMax: yMax,
		ZMin: zMin, ZMax: zMax,
	})
}

// SetCalibrationBounds is SetCalibration taking a Bounds value.
func (s *Session) SetCalibrationBounds(b Bounds) error {
	c, err := NewCalibration(b)
	if err != nil {
		return err
	}
	s.cal = &c
	return nil
}

// ClearCalibration disables calibration.
func (s *Session) ClearCalibration() {
	s.cal = nil
}

// Calibration returns the active calibration, if any.
func (s *Session) Calibration() (Calibration, bool) {
	if s.cal == nil {
		return Calibration{}, false
	}
	return *s.cal, true
}

// SetSmoothing enables smoothing over steps samples (clamped to 1..10).
// Reconfiguring discards the existing history.
func (s *Session) SetSmoothing(steps int, advanced bool) error {
	sm, err := NewSmoother(steps, advanced)
	if err != nil {
		return err
	}
	s.smoother = sm
	return nil
}

// ClearSmoothing disables smoothing.
func (s *Session) ClearSmoothing() {
	s.smoother = nil
}

// Smoothing returns the active window and mode; window is 0 when
// smoothing is off.
func (s *Session) Smoothing() (window int, advanced bool) {
	if s.smoother == nil {
		return 0, false
	}
	return s.smoother.Window(), s.smoother.Advanced()
}

// Read performs one sample cycle. A failed or short bus read skips the
// cycle: it is logged and counted, and the previous values remain.
func (s *Session) Read() {
	s.reads++
	b, err := s.bus.ReadBytes(s.addr, RegXOutLSB, dataLength)
	if err == nil && len(b) < dataLength {
		err = fmt.Errorf("%w: short read, %d of %d bytes", ErrIO, len(b), dataLength)
	}
	if err != nil {
		s.dropped++
		log.Printf("%s: read skipped: %v", s.name, err)
		return
	}

	s.raw = decodeRaw(b)
	s.current = s.raw.Vector()

	if s.cal != nil {
		s.calibrated = s.cal.Apply(s.current)
		s.current = s.calibrated
	}
	if s.smoother != nil {
		s.smoothed = s.smoother.Push(s.current)
		s.current = s.smoothed
	}
}

// Raw returns the last decoded sample.
func (s *Session) Raw() RawSample { return s.raw }

// Vector returns the current value: smoothed, else calibrated, else raw.
func (s *Session) Vector() Vector { return s.current }

// X returns the current X value.
func (s *Session) X() float64 { return s.current[AxisX] }

// Y returns the current Y value.
func (s *Session) Y() float64 { return s.current[AxisY] }

// Z returns the current Z value.
func (s *Session) Z() float64 { return s.current[AxisZ] }

// Azimuth returns the heading of the current X/Y in whole degrees.
func (s *Session) Azimuth() int {
	return Azimuth(s.X(), s.Y())
}

// Bearing returns the compass-rose sector of azimuth.
func (s *Session) Bearing(azimuth int) int {
	return Bearing(float64(azimuth))
}

// Direction returns the three-character label of azimuth.
func (s *Session) Direction(azimuth int) [3]byte {
	return Direction(Bearing(float64(azimuth)))
}

// Reads returns the number of Read calls.
func (s *Session) Reads() int { return s.reads }

// Dropped returns the number of skipped cycles.
func (s *Session) Dropped() int { return s.dropped }

// ReadRegister reads a single register. Used by the debug tooling.
func (s *Session) ReadRegister(reg byte) (byte, error) {
	b, err := s.bus.ReadBytes(s.addr, reg, 1)
	if err != nil {
		return 0, fmt.Errorf("%s: read register 0x%02X: %w", s.name, reg, err)
	}
	if len(b) != 1 {
		return 0, fmt.Errorf("%s: read register 0x%02X: %w: got %d bytes", s.name, reg, ErrIO, len(b))
	}
	return b[0], nil
}

// WriteRegister writes a single register. Used by the debug tooling.
func (s *Session) WriteRegister(reg, value byte) error {
	if err := s.writeReg(reg, value); err != nil {
		return fmt.Errorf("%s: write register 0x%02X: %w", s.name, reg, err)
	}
	return nil
}

func (s *Session) writeReg(reg, value byte) error {
	return s.bus.WriteRegister(s.addr, reg, value)
}
