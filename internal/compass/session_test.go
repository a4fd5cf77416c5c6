// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type regWrite struct {
	addr       uint16
	reg, value byte
}

// fakeBus replays queued reads and records writes.
type fakeBus struct {
	writes  []regWrite
	reads   [][]byte
	readErr error
	lastReg byte
}

func (f *fakeBus) WriteRegister(addr uint16, reg, value byte) error {
	f.writes = append(f.writes, regWrite{addr, reg, value})
	return nil
}

func (f *fakeBus) ReadBytes(addr uint16, reg byte, count int) ([]byte, error) {
	f.lastReg = reg
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.reads) == 0 {
		return nil, errors.New("fakeBus: no data queued")
	}
	b := f.reads[0]
	f.reads = f.reads[1:]
	return b, nil
}

func frame(x, y, z int16) []byte {
	return []byte{
		byte(uint16(x)), byte(uint16(x) >> 8),
		byte(uint16(y)), byte(uint16(y) >> 8),
		byte(uint16(z)), byte(uint16(z) >> 8),
	}
}

func TestSession_InitWritesDefaults(t *testing.T) {
	bus := &fakeBus{}
	s := NewSession(bus, Opts{})
	require.NoError(t, s.Init())

	assert.Equal(t, []regWrite{
		{0x0D, 0x0B, 0x01},
		{0x0D, 0x09, 0x1D},
	}, bus.writes)
	assert.Equal(t, DefaultMode, s.Mode())
}

func TestSession_SetModeAndReset(t *testing.T) {
	bus := &fakeBus{}
	s := NewSession(bus, Opts{Addr: 0x0E})
	require.NoError(t, s.SetMode(ModeContinuous, ODR50Hz, RNG2G, OSR64))
	require.NoError(t, s.SetReset())

	assert.Equal(t, []regWrite{
		{0x0E, 0x09, 0xC5},
		{0x0E, 0x0A, 0x80},
	}, bus.writes)
}

func TestSession_ReadRaw(t *testing.T) {
	bus := &fakeBus{reads: [][]byte{frame(258, -1, -32768)}}
	s := NewSession(bus, Opts{})

	s.Read()
	assert.Equal(t, byte(RegXOutLSB), bus.lastReg)
	assert.Equal(t, RawSample{X: 258, Y: -1, Z: -32768}, s.Raw())
	assert.Equal(t, 258.0, s.X())
	assert.Equal(t, -1.0, s.Y())
	assert.Equal(t, -32768.0, s.Z())
}

func TestSession_BusFailureKeepsValues(t *testing.T) {
	bus := &fakeBus{reads: [][]byte{frame(10, 20, 30)}}
	s := NewSession(bus, Opts{})
	s.Read()

	bus.readErr = ErrIO
	s.Read()
	assert.Equal(t, Vector{10, 20, 30}, s.Vector())
	assert.Equal(t, 1, s.Dropped())
	assert.Equal(t, 2, s.Reads())

	bus.readErr = nil
	bus.reads = [][]byte{{1, 2, 3}}
	s.Read()
	assert.Equal(t, Vector{10, 20, 30}, s.Vector(), "short read must be skipped")
	assert.Equal(t, 2, s.Dropped())
}

func TestSession_CalibrationApplied(t *testing.T) {
	bus := &fakeBus{reads: [][]byte{frame(100, 0, 400)}}
	s := NewSession(bus, Opts{})
	require.NoError(t, s.SetCalibration(-100, 300, -200, 200, 0, 800))

	s.Read()
	for i := 0; i < numAxes; i++ {
		assert.InDelta(t, 0, s.Vector()[i], 1e-9)
	}
	assert.Equal(t, RawSample{X: 100, Y: 0, Z: 400}, s.Raw())
}

func TestSession_DegenerateCalibrationRejected(t *testing.T) {
	s := NewSession(&fakeBus{}, Opts{})
	require.NoError(t, s.SetCalibration(-100, 300, -200, 200, 0, 800))

	err := s.SetCalibration(0, 0, -200, 200, 0, 800)
	assert.ErrorIs(t, err, ErrCalibrationDegenerate)

	c, ok := s.Calibration()
	require.True(t, ok, "previous calibration stays active")
	assert.Equal(t, -100, c.Bounds().XMin)

	s.ClearCalibration()
	_, ok = s.Calibration()
	assert.False(t, ok)
}

func TestSession_SmoothingFedWithCalibrated(t *testing.T) {
	bus := &fakeBus{reads: [][]byte{
		frame(300, 0, 400),
		frame(300, 0, 400),
	}}
	s := NewSession(bus, Opts{})
	require.NoError(t, s.SetCalibration(-100, 300, -200, 200, 0, 800))
	require.NoError(t, s.SetSmoothing(2, false))

	shared := 800.0 / 3.0
	s.Read()
	assert.InDelta(t, shared/2, s.X(), 1e-9, "half window after one read")
	s.Read()
	assert.InDelta(t, shared, s.X(), 1e-9)
	assert.InDelta(t, 0, s.Y(), 1e-9)
}

func TestSession_SmoothingConfig(t *testing.T) {
	s := NewSession(&fakeBus{}, Opts{})

	w, _ := s.Smoothing()
	assert.Equal(t, 0, w)

	require.NoError(t, s.SetSmoothing(15, true))
	w, adv := s.Smoothing()
	assert.Equal(t, 10, w)
	assert.True(t, adv)

	assert.ErrorIs(t, s.SetSmoothing(2, true), ErrSmoothingWindowTooSmall)
	w, _ = s.Smoothing()
	assert.Equal(t, 10, w, "failed reconfigure keeps the old smoother")

	s.ClearSmoothing()
	w, _ = s.Smoothing()
	assert.Equal(t, 0, w)
}

func TestSession_Heading(t *testing.T) {
	bus := &fakeBus{reads: [][]byte{frame(0, 500, 0), frame(-300, 0, 0)}}
	s := NewSession(bus, Opts{})

	s.Read()
	az := s.Azimuth()
	assert.Equal(t, 90, az)
	assert.Equal(t, 4, s.Bearing(az))
	assert.Equal(t, [3]byte{' ', ' ', 'E'}, s.Direction(az))

	s.Read()
	assert.Equal(t, 180, s.Azimuth())
}

func TestSession_RegisterAccess(t *testing.T) {
	bus := &fakeBus{reads: [][]byte{{0xFF}}}
	s := NewSession(bus, Opts{})
	s.SetADDR(0x0C)

	v, err := s.ReadRegister(RegChipID)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), v)
	assert.Equal(t, byte(RegChipID), bus.lastReg)

	require.NoError(t, s.WriteRegister(RegSetReset, 0x01))
	assert.Equal(t, []regWrite{{0x0C, RegSetReset, 0x01}}, bus.writes)

	bus.readErr = ErrIO
	_, err = s.ReadRegister(RegStatus)
	assert.ErrorIs(t, err, ErrIO)
}
