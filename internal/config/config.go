// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicHeading string
	TopicRaw     string

	// Compass Hardware
	CompassI2CBus  string
	CompassI2CAddr uint16
	CompassMock    bool

	// Control register 1 fields, written verbatim.
	// Mode: 0x00=standby, 0x01=continuous
	CompassMode byte
	// ODR: 0x00=10Hz, 0x04=50Hz, 0x08=100Hz, 0x0C=200Hz
	CompassODR byte
	// RNG: 0x00=2G, 0x10=8G
	CompassRNG byte
	// OSR: 0x00=512, 0x40=256, 0x80=128, 0xC0=64
	CompassOSR byte

	// Signal conditioning
	SmoothingSteps    int  // 0 disables smoothing, values above 10 clamp to 10
	SmoothingAdvanced bool // drop min and max of the window (needs steps >= 3)
	CalibrationFile   string

	// Timing
	SampleInterval     int // milliseconds
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort         int
	RegisterDebugPort     int
	RegisterDebugWritable string // comma separated hex registers/ranges, e.g. "0x09-0x0B"

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// NMEA heading output
	NMEASerialPort string // empty disables
	NMEABaudRate   int
	NMEATalker     string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal/Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config populated with the values used when a key is
// absent from the file.
func Default() *Config {
	return &Config{
		MQTTClientIDProducer:  "compass-producer",
		MQTTClientIDConsole:   "compass-console",
		MQTTClientIDWeb:       "compass-web",
		MQTTClientIDDisplay:   "compass-display",
		TopicHeading:          "compass/heading",
		TopicRaw:              "compass/raw",
		CompassI2CBus:         "1",
		CompassI2CAddr:        0x0D,
		CompassMode:           0x01,
		CompassODR:            0x0C,
		CompassRNG:            0x10,
		CompassOSR:            0x00,
		SampleInterval:        100,
		ConsoleLogInterval:    1000,
		WebServerPort:         8080,
		RegisterDebugPort:     8081,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 250,
		NMEABaudRate:          4800,
		NMEATalker:            "HC",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_HEADING":
		c.TopicHeading = value
	case "TOPIC_RAW":
		c.TopicRaw = value

	// Compass Hardware
	case "COMPASS_I2C_BUS":
		c.CompassI2CBus = value
	case "COMPASS_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_I2C_ADDR %q: %w", value, err)
		}
		c.CompassI2CAddr = uint16(addr)
	case "COMPASS_MOCK":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_MOCK %q: %w", value, err)
		}
		c.CompassMock = b

	// Control register fields
	case "COMPASS_MODE":
		v, err := parseField(key, value, 0x00, 0x01)
		if err != nil {
			return err
		}
		c.CompassMode = v
	case "COMPASS_ODR":
		v, err := parseField(key, value, 0x00, 0x04, 0x08, 0x0C)
		if err != nil {
			return err
		}
		c.CompassODR = v
	case "COMPASS_RNG":
		v, err := parseField(key, value, 0x00, 0x10)
		if err != nil {
			return err
		}
		c.CompassRNG = v
	case "COMPASS_OSR":
		v, err := parseField(key, value, 0x00, 0x40, 0x80, 0xC0)
		if err != nil {
			return err
		}
		c.CompassOSR = v

	// Signal conditioning
	case "SMOOTHING_STEPS":
		steps, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SMOOTHING_STEPS %q: %w", value, err)
		}
		if steps < 0 {
			return fmt.Errorf("SMOOTHING_STEPS must be >= 0, got %d", steps)
		}
		c.SmoothingSteps = steps
	case "SMOOTHING_ADVANCED":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SMOOTHING_ADVANCED %q: %w", value, err)
		}
		c.SmoothingAdvanced = b
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "CONSOLE_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, err)
		}
		c.ConsoleLogInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "REGISTER_DEBUG_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_PORT %q: %w", value, err)
		}
		c.RegisterDebugPort = port
	case "REGISTER_DEBUG_WRITABLE":
		if _, err := ParseRegisterRanges(value); err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_WRITABLE %q: %w", value, err)
		}
		c.RegisterDebugWritable = value

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// NMEA
	case "NMEA_SERIAL_PORT":
		c.NMEASerialPort = value
	case "NMEA_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid NMEA_BAUD_RATE %q: %w", value, err)
		}
		c.NMEABaudRate = rate
	case "NMEA_TALKER":
		if len(value) != 2 {
			return fmt.Errorf("NMEA_TALKER must be 2 characters, got %q", value)
		}
		c.NMEATalker = strings.ToUpper(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// parseField parses a hex or decimal control register field and checks it
// against the datasheet values.
func parseField(key, value string, allowed ...byte) (byte, error) {
	v, err := strconv.ParseUint(value, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	for _, a := range allowed {
		if byte(v) == a {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%s must be one of % X, got 0x%02X", key, allowed, v)
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if !c.CompassMock && c.CompassI2CBus == "" {
		return fmt.Errorf("COMPASS_I2C_BUS is required")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive")
	}
	if c.SmoothingAdvanced && c.SmoothingSteps > 0 && c.SmoothingSteps < 3 {
		return fmt.Errorf("SMOOTHING_ADVANCED needs SMOOTHING_STEPS >= 3, got %d", c.SmoothingSteps)
	}
	if c.NMEASerialPort != "" && c.NMEABaudRate <= 0 {
		return fmt.Errorf("NMEA_BAUD_RATE is required when NMEA_SERIAL_PORT is set")
	}
	return nil
}

// ParseRegisterRanges parses "0x09-0x0B,0x0D" into the set of registers it
// covers. An empty string yields an empty set.
func ParseRegisterRanges(s string) (map[byte]bool, error) {
	out := make(map[byte]bool)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.ParseUint(strings.TrimSpace(lo), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("register %q: %w", lo, err)
		}
		end := start
		if isRange {
			end, err = strconv.ParseUint(strings.TrimSpace(hi), 0, 8)
			if err != nil {
				return nil, fmt.Errorf("register %q: %w", hi, err)
			}
		}
		if end < start {
			return nil, fmt.Errorf("range %q is reversed", part)
		}
		for r := start; r <= end; r++ {
			out[byte(r)] = true
		}
	}
	return out, nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
