// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/relabs-tech/qmc_compass/internal/heading"
	"github.com/relabs-tech/qmc_compass/internal/sensors"
)

// RunMockConsole prints headings from the simulated chip without MQTT.
func RunMockConsole() error {
	cfg := *config.Default()
	if c := config.Get(); c != nil {
		cfg = *c
	}
	cfg.CompassMock = true

	src, err := sensors.OpenCompass(&cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		src.Session.Read()
		fmt.Println(formatReading(heading.FromSession(src.Name, src.Session, t)))
	}
	return nil
}
