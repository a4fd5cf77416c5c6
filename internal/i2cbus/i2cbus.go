// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package i2cbus adapts a periph I²C bus to compass.Transport.
package i2cbus

import (
	"fmt"

	"github.com/relabs-tech/qmc_compass/internal/compass"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Transport implements compass.Transport on top of an i2c.Bus.
type Transport struct {
	bus i2c.Bus
}

// New wraps bus. The caller keeps ownership of the bus.
func New(bus i2c.Bus) *Transport {
	return &Transport{bus: bus}
}

// Open initializes the periph host drivers and opens the named bus
// ("1" on a Raspberry Pi, "" for the first bus found).
func Open(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", name, err)
	}
	return bus, nil
}

// WriteRegister implements compass.Transport.
func (t *Transport) WriteRegister(addr uint16, reg, value byte) error {
	if err := t.bus.Tx(addr, []byte{reg, value}, nil); err != nil {
		return fmt.Errorf("%w: write 0x%02X to reg 0x%02X at 0x%02X: %v", compass.ErrIO, value, reg, addr, err)
	}
	return nil
}

// ReadBytes implements compass.Transport. It sets the register pointer and
// reads count bytes in one transaction.
func (t *Transport) ReadBytes(addr uint16, reg byte, count int) ([]byte, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: invalid read length %d", compass.ErrIO, count)
	}
	buf := make([]byte, count)
	if err := t.bus.Tx(addr, []byte{reg}, buf); err != nil {
		return nil, fmt.Errorf("%w: read %d bytes from reg 0x%02X at 0x%02X: %v", compass.ErrIO, count, reg, addr, err)
	}
	return buf, nil
}

// String returns the underlying bus name.
func (t *Transport) String() string {
	return t.bus.String()
}
