// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/relabs-tech/qmc_compass/internal/calibration"
	"github.com/relabs-tech/qmc_compass/internal/compass"
	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestNewCompassSource_Playback(t *testing.T) {
	cfg := config.Default()
	cfg.CompassODR = compass.ODR50Hz
	cfg.SmoothingSteps = 15

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x0D, W: []byte{0x0B, 0x01}},
			{Addr: 0x0D, W: []byte{0x09, 0x15}},
			{Addr: 0x0D, W: []byte{0x0D}, R: []byte{0xFF}},
		},
	}
	src, err := NewCompassSource("test", bus, cfg)
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	w, adv := src.Session.Smoothing()
	assert.Equal(t, 10, w)
	assert.False(t, adv)
	_, ok := src.Session.Calibration()
	assert.False(t, ok)
	assert.NoError(t, src.Close())
}

func TestOpenCompass_MockWithCalibration(t *testing.T) {
	var c calibration.Collector
	c.Add(compass.RawSample{X: -2020, Y: -1410, Z: -865})
	c.Add(compass.RawSample{X: 1580, Y: 1690, Z: 935})
	f, err := calibration.NewFile("mock", &c, time.Now())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "cal.yaml")
	require.NoError(t, calibration.Save(path, f))

	cfg := config.Default()
	cfg.CompassMock = true
	cfg.CalibrationFile = path
	cfg.SmoothingSteps = 5
	cfg.SmoothingAdvanced = true

	src, err := OpenCompass(cfg)
	require.NoError(t, err)
	defer src.Close()

	cal, ok := src.Session.Calibration()
	require.True(t, ok)
	assert.Equal(t, f.Bounds, cal.Bounds())

	src.Session.Read()
	assert.Equal(t, 0, src.Session.Dropped())
}

func TestOpenCompass_BadCalibrationFile(t *testing.T) {
	cfg := config.Default()
	cfg.CompassMock = true
	cfg.CalibrationFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := OpenCompass(cfg)
	assert.Error(t, err)
}

func TestOpenCompass_AdvancedTooSmall(t *testing.T) {
	cfg := config.Default()
	cfg.CompassMock = true
	cfg.SmoothingSteps = 2
	cfg.SmoothingAdvanced = true

	_, err := OpenCompass(cfg)
	assert.ErrorIs(t, err, compass.ErrSmoothingWindowTooSmall)
}
