// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration captures magnetometer min/max bounds while the
// sensor is rotated and persists them as YAML.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/qmc_compass/internal/compass"
)

// ErrNoSamples is returned when bounds are requested before any sample.
var ErrNoSamples = errors.New("calibration: no samples collected")

// Collector tracks per-axis raw extremes.
type Collector struct {
	min, max [3]int
	count    int
}

// Add records one raw sample.
func (c *Collector) Add(raw compass.RawSample) {
	v := [3]int{int(raw.X), int(raw.Y), int(raw.Z)}
	if c.count == 0 {
		c.min, c.max = v, v
	}
	for i := range v {
		if v[i] < c.min[i] {
			c.min[i] = v[i]
		}
		if v[i] > c.max[i] {
			c.max[i] = v[i]
		}
	}
	c.count++
}

// Count returns the number of samples added.
func (c *Collector) Count() int { return c.count }

// Bounds returns the extremes seen so far.
func (c *Collector) Bounds() (compass.Bounds, error) {
	if c.count == 0 {
		return compass.Bounds{}, ErrNoSamples
	}
	return compass.Bounds{
		XMin: c.min[0], XMax: c.max[0],
		YMin: c.min[1], YMax: c.max[1],
		ZMin: c.min[2], ZMax: c.max[2],
	}, nil
}

// Coverage is the ratio of the smallest to the largest axis span, 0..1.
// A sensor turned through every orientation gives a value near 1.
func (c *Collector) Coverage() float64 {
	if c.count == 0 {
		return 0
	}
	lo, hi := math.MaxFloat64, 0.0
	for i := range c.min {
		span := float64(c.max[i] - c.min[i])
		lo = math.Min(lo, span)
		hi = math.Max(hi, span)
	}
	if hi == 0 {
		return 0
	}
	return lo / hi
}

// Reset forgets all samples.
func (c *Collector) Reset() {
	*c = Collector{}
}

// File is the on-disk calibration record.
type File struct {
	Version   int            `yaml:"version"`
	Device    string         `yaml:"device"`
	Timestamp time.Time      `yaml:"timestamp"`
	Samples   int            `yaml:"samples"`
	Coverage  float64        `yaml:"coverage"`
	Bounds    compass.Bounds `yaml:"bounds"`
}

// NewFile builds a File from a collector.
func NewFile(device string, c *Collector, now time.Time) (File, error) {
	b, err := c.Bounds()
	if err != nil {
		return File{}, err
	}
	return File{
		Version:   1,
		Device:    device,
		Timestamp: now.UTC(),
		Samples:   c.Count(),
		Coverage:  c.Coverage(),
		Bounds:    b,
	}, nil
}

// Save writes f to path, creating parent directories.
func Save(path string, f File) error {
	if _, err := compass.NewCalibration(f.Bounds); err != nil {
		return fmt.Errorf("calibration: refusing to save: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("calibration: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("calibration: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("calibration: write %s: %w", path, err)
	}
	return nil
}

// Load reads a calibration file and checks that its bounds are usable.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("calibration: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("calibration: parse %s: %w", path, err)
	}
	if f.Version != 1 {
		return File{}, fmt.Errorf("calibration: %s: unsupported version %d", path, f.Version)
	}
	if _, err := compass.NewCalibration(f.Bounds); err != nil {
		return File{}, fmt.Errorf("calibration: %s: %w", path, err)
	}
	return f, nil
}
