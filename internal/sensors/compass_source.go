// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"log"

	"github.com/relabs-tech/qmc_compass/internal/calibration"
	"github.com/relabs-tech/qmc_compass/internal/compass"
	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/relabs-tech/qmc_compass/internal/i2cbus"
	"periph.io/x/conn/v3/i2c"
)

// CompassSource is an initialized compass session plus the bus it owns.
type CompassSource struct {
	Name    string
	Session *compass.Session
	bus     io.Closer
}

// Close releases the bus.
func (c *CompassSource) Close() error {
	if c.bus == nil {
		return nil
	}
	return c.bus.Close()
}

// OpenCompass opens the configured bus (or the simulated chip when
// COMPASS_MOCK is set) and returns a ready session.
func OpenCompass(cfg *config.Config) (*CompassSource, error) {
	var (
		bus  i2c.BusCloser
		name string
		err  error
	)
	if cfg.CompassMock {
		bus = i2cbus.NewMockBus()
		name = "compass(mock)"
		log.Printf("%s: using simulated QMC5883L", name)
	} else {
		bus, err = i2cbus.Open(cfg.CompassI2CBus)
		if err != nil {
			return nil, fmt.Errorf("compass: %w", err)
		}
		name = fmt.Sprintf("compass(i2c%s@0x%02X)", cfg.CompassI2CBus, cfg.CompassI2CAddr)
	}

	src, err := NewCompassSource(name, bus, cfg)
	if err != nil {
		bus.Close()
		return nil, err
	}
	src.bus = bus
	return src, nil
}

// NewCompassSource programs the chip on bus and applies the calibration
// and smoothing settings from cfg. The bus is not closed by the source.
func NewCompassSource(name string, bus i2c.Bus, cfg *config.Config) (*CompassSource, error) {
	s := compass.NewSession(i2cbus.New(bus), compass.Opts{
		Addr: cfg.CompassI2CAddr,
		Mode: compass.Mode{
			Mode: cfg.CompassMode,
			ODR:  cfg.CompassODR,
			RNG:  cfg.CompassRNG,
			OSR:  cfg.CompassOSR,
		},
		Name: name,
	})

	if err := s.Init(); err != nil {
		return nil, err
	}
	log.Printf("%s: control register set to 0x%02X", name, s.Mode().Byte())

	if id, err := s.ReadRegister(compass.RegChipID); err != nil {
		log.Printf("%s: WARNING: failed to read chip ID: %v", name, err)
	} else {
		log.Printf("%s: chip ID = 0x%02X", name, id)
	}

	if cfg.CalibrationFile != "" {
		f, err := calibration.Load(cfg.CalibrationFile)
		if err != nil {
			return nil, err
		}
		if err := s.SetCalibrationBounds(f.Bounds); err != nil {
			return nil, err
		}
		log.Printf("%s: calibration loaded from %s (%d samples, coverage %.2f)", name, cfg.CalibrationFile, f.Samples, f.Coverage)
	}

	if cfg.SmoothingSteps > 0 {
		if err := s.SetSmoothing(cfg.SmoothingSteps, cfg.SmoothingAdvanced); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		w, adv := s.Smoothing()
		log.Printf("%s: smoothing over %d samples (advanced=%v)", name, w, adv)
	}

	return &CompassSource{Name: name, Session: s}, nil
}
