// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

// DefaultAddr is the fixed I²C address of the QMC5883L.
const DefaultAddr uint16 = 0x0D

// Register addresses.
const (
	RegXOutLSB   = 0x00 // X LSB; Y and Z follow, 6 bytes total
	RegStatus    = 0x06
	RegTempLSB   = 0x07
	RegControl1  = 0x09
	RegControl2  = 0x0A
	RegSetReset  = 0x0B
	RegChipID    = 0x0D
	dataLength   = 6
	setResetInit = 0x01
	softReset    = 0x80
)

// Control register 1 fields, from the QST datasheet. They are OR'ed
// together and written verbatim.
const (
	ModeStandby    = 0x00
	ModeContinuous = 0x01

	ODR10Hz  = 0x00
	ODR50Hz  = 0x04
	ODR100Hz = 0x08
	ODR200Hz = 0x0C

	RNG2G = 0x00
	RNG8G = 0x10

	OSR512 = 0x00
	OSR256 = 0x40
	OSR128 = 0x80
	OSR64  = 0xC0
)

// Mode is the control register 1 preset.
type Mode struct {
	Mode byte
	ODR  byte
	RNG  byte
	OSR  byte
}

// Byte packs the preset into the register value.
func (m Mode) Byte() byte {
	return m.Mode | m.ODR | m.RNG | m.OSR
}

// DefaultMode is what Init writes: continuous, 200Hz, 8G, OSR 512.
var DefaultMode = Mode{Mode: ModeContinuous, ODR: ODR200Hz, RNG: RNG8G, OSR: OSR512}

// BitField describes one field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo describes one chip register for the debug tooling.
type RegisterInfo struct {
	Address     byte       `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     byte       `json:"default"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// Writable reports whether the register accepts writes.
func (r RegisterInfo) Writable() bool {
	return r.Access == "W" || r.Access == "RW"
}

// RegisterMap returns metadata for the QMC5883L registers.
func RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: 0x00, Name: "XOUT_LSB", Description: "X axis output, low byte", Access: "R"},
		{Address: 0x01, Name: "XOUT_MSB", Description: "X axis output, high byte", Access: "R"},
		{Address: 0x02, Name: "YOUT_LSB", Description: "Y axis output, low byte", Access: "R"},
		{Address: 0x03, Name: "YOUT_MSB", Description: "Y axis output, high byte", Access: "R"},
		{Address: 0x04, Name: "ZOUT_LSB", Description: "Z axis output, low byte", Access: "R"},
		{Address: 0x05, Name: "ZOUT_MSB", Description: "Z axis output, high byte", Access: "R"},
		{Address: RegStatus, Name: "STATUS", Description: "Status register", Access: "R",
			BitFields: []BitField{
				{Bits: "2", Name: "DOR", Description: "Data skipped for reading", Values: "1=Skipped"},
				{Bits: "1", Name: "OVL", Description: "Overflow", Values: "1=Out of range"},
				{Bits: "0", Name: "DRDY", Description: "Data ready", Values: "1=Ready"},
			}},
		{Address: RegTempLSB, Name: "TOUT_LSB", Description: "Temperature output, low byte", Access: "R"},
		{Address: 0x08, Name: "TOUT_MSB", Description: "Temperature output, high byte", Access: "R"},
		{Address: RegControl1, Name: "CONTROL1", Description: "Mode, data rate, range, oversampling", Access: "RW",
			BitFields: []BitField{
				{Bits: "7:6", Name: "OSR", Description: "Over sample ratio", Values: "0=512, 1=256, 2=128, 3=64"},
				{Bits: "5:4", Name: "RNG", Description: "Full scale", Values: "0=2G, 1=8G"},
				{Bits: "3:2", Name: "ODR", Description: "Output data rate", Values: "0=10Hz, 1=50Hz, 2=100Hz, 3=200Hz"},
				{Bits: "1:0", Name: "MODE", Description: "Mode control", Values: "0=Standby, 1=Continuous"},
			}},
		{Address: RegControl2, Name: "CONTROL2", Description: "Reset, pointer roll-over, interrupt", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "SOFT_RST", Description: "Soft reset", Values: "1=Reset all registers"},
				{Bits: "6", Name: "ROL_PNT", Description: "Pointer roll-over", Values: "1=Enabled"},
				{Bits: "0", Name: "INT_ENB", Description: "Interrupt pin", Values: "0=Enabled, 1=Disabled"},
			}},
		{Address: RegSetReset, Name: "SET_RESET", Description: "SET/RESET period", Access: "RW", Default: 0x00,
			BitFields: []BitField{
				{Bits: "7:0", Name: "FBR", Description: "Recommended 0x01", Values: "0-255"},
			}},
		{Address: RegChipID, Name: "CHIP_ID", Description: "Chip identification", Access: "R", Default: 0xFF},
	}
}

// LookupRegister finds a register by address.
func LookupRegister(addr byte) (RegisterInfo, bool) {
	for _, r := range RegisterMap() {
		if r.Address == addr {
			return r, true
		}
	}
	return RegisterInfo{}, false
}
