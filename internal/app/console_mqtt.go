// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/relabs-tech/qmc_compass/internal/heading"
)

// formatReading renders one console line.
func formatReading(r heading.Reading) string {
	return fmt.Sprintf(
		"[HDG] %3d° %s (sector %2d)  x=%8.1f y=%8.1f z=%8.1f  raw=%6d %6d %6d  dropped=%d",
		r.Azimuth, r.Direction, r.Bearing, r.X, r.Y, r.Z, r.RawX, r.RawY, r.RawZ, r.Dropped,
	)
}

// headingHandler decodes readings and prints them to out.
func headingHandler(out io.Writer) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var r heading.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: heading unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, formatReading(r))
	}
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicHeading, 0, headingHandler(os.Stdout))
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicHeading)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
