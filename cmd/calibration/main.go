// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// Guided hard/soft-iron calibration for the QMC5883L.
//
// The sensor is turned slowly through every orientation while per-axis
// raw minima and maxima are tracked. The bounds are written as YAML and
// can be loaded by the producer through CALIBRATION_FILE.
//
// Run:
//
//	go run ./cmd/calibration -out calibration/compass.yaml
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/relabs-tech/qmc_compass/internal/calibration"
	"github.com/relabs-tech/qmc_compass/internal/compass"
	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/relabs-tech/qmc_compass/internal/sensors"
)

const (
	sampleHz        = 50
	durationDefault = 60 * time.Second

	// Below this the axes were not turned through evenly.
	coverageWarn = 0.5
)

func main() {
	in := bufio.NewReader(os.Stdin)

	configPath := flag.String("config", "compass_config.txt", "Path to configuration file")
	out := flag.String("out", "", "Output YAML file (defaults to CALIBRATION_FILE or ./compass_calibration.yaml)")
	maxDur := flag.Duration("duration", durationDefault, "Maximum capture duration")
	flag.Parse()

	fmt.Println("=== QMC5883L Calibration ===")
	fmt.Println()

	if err := config.InitGlobal(*configPath); err != nil {
		fatal(fmt.Errorf("failed to load config from %s: %w", *configPath, err))
	}
	cfg := *config.Get()
	// Capture raw counts: no calibration file, no smoothing.
	cfg.CalibrationFile, cfg.SmoothingSteps = "", 0

	path := *out
	if path == "" {
		path = config.Get().CalibrationFile
	}
	if path == "" {
		path = "compass_calibration.yaml"
	}

	src, err := sensors.OpenCompass(&cfg)
	if err != nil {
		fatal(err)
	}
	defer src.Close()

	fmt.Printf("Sensor: %s\n\n", src.Name)
	fmt.Println("Move away from metal objects. Rotate the sensor slowly through")
	fmt.Println("every orientation: a full turn flat, then on each side.")
	waitEnter(in, fmt.Sprintf("Press ENTER to start (stops after %s or on ENTER)...", *maxDur))

	col := capture(in, src.Session, *maxDur)
	fmt.Println()

	f, err := calibration.NewFile(src.Name, col, time.Now())
	if err != nil {
		fatal(err)
	}
	b := f.Bounds
	fmt.Printf("Samples:  %d (dropped %d)\n", f.Samples, src.Session.Dropped())
	fmt.Printf("X: %6d .. %6d\n", b.XMin, b.XMax)
	fmt.Printf("Y: %6d .. %6d\n", b.YMin, b.YMax)
	fmt.Printf("Z: %6d .. %6d\n", b.ZMin, b.ZMax)
	fmt.Printf("Coverage: %.2f\n", f.Coverage)
	if f.Coverage < coverageWarn {
		fmt.Println("WARNING: low coverage, rotate more evenly on all axes and retry")
	}

	cal, err := compass.NewCalibration(b)
	if err != nil {
		fatal(err)
	}
	off, sc := cal.Offsets(), cal.Scales()
	fmt.Printf("Offsets:  %.1f %.1f %.1f\n", off[0], off[1], off[2])
	fmt.Printf("Scales:   %.3f %.3f %.3f\n", sc[0], sc[1], sc[2])

	if err := calibration.Save(path, f); err != nil {
		fatal(err)
	}
	fmt.Printf("\nWrote: %s\n", path)
	fmt.Printf("Set CALIBRATION_FILE=%s in %s to apply it.\n", path, *configPath)
}

// capture reads samples until ENTER or the deadline, printing a live
// view of the running bounds.
func capture(in *bufio.Reader, s *compass.Session, maxDur time.Duration) *calibration.Collector {
	stopCh := make(chan struct{}, 1)
	go func() {
		_, _ = in.ReadString('\n')
		stopCh <- struct{}{}
	}()

	ticker := time.NewTicker(time.Second / sampleHz)
	defer ticker.Stop()
	deadline := time.After(maxDur)

	col := &calibration.Collector{}
	for {
		select {
		case <-stopCh:
			return col
		case <-deadline:
			fmt.Print("\n(stopped by timeout)")
			return col
		case <-ticker.C:
			before := s.Dropped()
			s.Read()
			if s.Dropped() != before {
				continue
			}
			col.Add(s.Raw())
			if b, err := col.Bounds(); err == nil && col.Count()%sampleHz == 0 {
				fmt.Printf("\r%5d samples  X[%6d %6d] Y[%6d %6d] Z[%6d %6d] coverage %.2f  ",
					col.Count(), b.XMin, b.XMax, b.YMin, b.YMax, b.ZMin, b.ZMax, col.Coverage())
			}
		}
	}
}

// ---------- Console helpers ----------

func waitEnter(in *bufio.Reader, prompt string) {
	fmt.Print(prompt)
	_, _ = in.ReadString('\n')
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
