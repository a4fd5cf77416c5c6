// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/qmc_compass/internal/compass"
	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/relabs-tech/qmc_compass/internal/heading"
	"github.com/relabs-tech/qmc_compass/internal/nmeaout"
	"github.com/relabs-tech/qmc_compass/internal/sensors"
)

// Publisher is the subset of mqtt.Client the producer needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// HeadingWriter receives every azimuth, e.g. an NMEA serial output.
type HeadingWriter interface {
	WriteHeading(headingDeg float64) error
}

// Producer reads the compass once per tick and publishes the result.
type Producer struct {
	Source  string
	Session *compass.Session
	Client  Publisher
	Topic   string
	// RawTopic, when set, also receives the raw counts.
	RawTopic string
	NMEA     HeadingWriter
}

// Step runs one read cycle and publishes it. A skipped bus read is not an
// error; the previous values are published again with the drop counter.
func (p *Producer) Step(t time.Time) (heading.Reading, error) {
	p.Session.Read()
	r := heading.FromSession(p.Source, p.Session, t)

	payload, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("json marshal error (heading): %w", err)
	}
	if token := p.Client.Publish(p.Topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return r, fmt.Errorf("MQTT publish error (%s): %w", p.Topic, token.Error())
	}

	if p.RawTopic != "" {
		raw := p.Session.Raw()
		b, err := json.Marshal(struct {
			X    int16  `json:"x"`
			Y    int16  `json:"y"`
			Z    int16  `json:"z"`
			Time string `json:"time"`
		}{raw.X, raw.Y, raw.Z, r.Time})
		if err == nil {
			p.Client.Publish(p.RawTopic, 0, false, b)
		}
	}

	if p.NMEA != nil {
		if err := p.NMEA.WriteHeading(float64(r.Azimuth)); err != nil {
			log.Printf("compass: nmea output error: %v", err)
		}
	}
	return r, nil
}

// RunCompassProducer opens the compass, connects to MQTT and publishes a
// heading.Reading every SAMPLE_INTERVAL milliseconds.
func RunCompassProducer() error {
	log.Println("starting compass producer")

	cfg := config.Get()

	src, err := sensors.OpenCompass(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	// --- optional NMEA HDM output ---
	var nmeaOut HeadingWriter
	if cfg.NMEASerialPort != "" {
		port, err := nmeaout.OpenSerial(cfg.NMEASerialPort, cfg.NMEABaudRate)
		if err != nil {
			return err
		}
		defer port.Close()
		nmeaOut = nmeaout.NewWriter(port, cfg.NMEATalker)
		log.Printf("compass: NMEA HDM output on %s at %d baud", cfg.NMEASerialPort, cfg.NMEABaudRate)
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)

	log.Printf("connected to MQTT at %s, publishing to %s", cfg.MQTTBroker, cfg.TopicHeading)

	p := &Producer{
		Source:   src.Name,
		Session:  src.Session,
		Client:   client,
		Topic:    cfg.TopicHeading,
		RawTopic: cfg.TopicRaw,
		NMEA:     nmeaOut,
	}

	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	logEvery := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond
	var lastLog time.Time

	for t := range ticker.C {
		r, err := p.Step(t)
		if err != nil {
			log.Printf("compass: %v", err)
			continue
		}
		if t.Sub(lastLog) >= logEvery {
			lastLog = t
			log.Printf("%s tick: x=%.1f y=%.1f z=%.1f | azimuth=%d° bearing=%d (%s) | dropped=%d",
				t.Format(time.RFC3339), r.X, r.Y, r.Z, r.Azimuth, r.Bearing, r.Direction, r.Dropped)
		}
	}
	return nil
}
