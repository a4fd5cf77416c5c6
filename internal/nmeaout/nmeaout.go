// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package nmeaout emits magnetic heading as NMEA 0183 HDM sentences for
// chartplotters and autopilots.
package nmeaout

import (
	"fmt"
	"io"
	"math"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// DefaultTalker is the talker ID for a magnetic compass.
const DefaultTalker = "HC"

// FormatHDM builds "$<talker>HDM,<heading>,M*<checksum>".
func FormatHDM(talker string, headingDeg float64) string {
	h := math.Mod(headingDeg, 360)
	if h < 0 {
		h += 360
	}
	body := fmt.Sprintf("%sHDM,%.1f,M", talker, h)
	return "$" + body + "*" + nmea.Checksum(body)
}

// ParseHDM parses and validates an HDM sentence, returning the heading.
func ParseHDM(sentence string) (float64, error) {
	s, err := nmea.Parse(sentence)
	if err != nil {
		return 0, fmt.Errorf("nmea: %w", err)
	}
	hdm, ok := s.(nmea.HDM)
	if !ok {
		return 0, fmt.Errorf("nmea: expected HDM, got %s", s.DataType())
	}
	if !hdm.MagneticValid {
		return 0, fmt.Errorf("nmea: HDM heading not magnetic")
	}
	return hdm.Heading, nil
}

// Writer writes HDM sentences, CRLF terminated, to an underlying stream.
type Writer struct {
	w      io.Writer
	talker string
}

// NewWriter returns a Writer using talker, DefaultTalker when empty.
func NewWriter(w io.Writer, talker string) *Writer {
	if talker == "" {
		talker = DefaultTalker
	}
	return &Writer{w: w, talker: talker}
}

// WriteHeading writes one HDM sentence.
func (w *Writer) WriteHeading(headingDeg float64) error {
	if _, err := io.WriteString(w.w, FormatHDM(w.talker, headingDeg)+"\r\n"); err != nil {
		return fmt.Errorf("nmea: write: %w", err)
	}
	return nil
}

// OpenSerial opens a serial port for NMEA output (8N1).
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	p, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("nmea: open %s: %w", port, err)
	}
	return p, nil
}
