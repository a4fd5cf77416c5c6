// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/relabs-tech/qmc_compass/internal/heading"
	"github.com/relabs-tech/qmc_compass/internal/i2cbus"
)

const (
	ssd1306Addr = 0x3C

	displayWidth  = 128
	displayHeight = 64

	// Compass rose on the right half of the panel.
	roseCX     = 96
	roseCY     = 32
	roseRadius = 28
)

func RunDisplay() error {
	cfg := config.Get()

	bus, err := i2cbus.Open(cfg.CompassI2CBus)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	defer bus.Close()

	// The upstream driver always talks to 0x3C.
	if cfg.DisplayI2CAddr != ssd1306Addr {
		return fmt.Errorf("display: DISPLAY_I2C_ADDR 0x%02X not supported, the SSD1306 driver uses 0x%02X", cfg.DisplayI2CAddr, ssd1306Addr)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	// Latest reading from MQTT
	hub := NewHeadingHub()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicHeading, 0, hub.MessageHandler())
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		r, have := hub.Latest()
		if err := dev.Draw(dev.Bounds(), renderHeading(r, have), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	drawer.Dot = fixed.P(20, 26)
	drawer.DrawBytes([]byte("QMC5883L"))

	drawer.Dot = fixed.P(20, 43)
	drawer.DrawBytes([]byte("Compass"))

	return img
}

// renderHeading draws the azimuth and label on the left and a rose with
// a north-pointing needle on the right.
func renderHeading(r heading.Reading, have bool) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if !have {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Compass"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return img
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("%3d deg", r.Azimuth)))

	drawer.Dot = fixed.P(0, 30)
	drawer.DrawBytes([]byte(r.Direction))

	drawer.Dot = fixed.P(0, 47)
	drawer.DrawBytes([]byte(fmt.Sprintf("x%6.0f", r.X)))

	drawer.Dot = fixed.P(0, 60)
	drawer.DrawBytes([]byte(fmt.Sprintf("y%6.0f", r.Y)))

	drawCircle(img, roseCX, roseCY, roseRadius)

	// North is at -azimuth relative to the sensor's forward axis (up).
	rad := -float64(r.Azimuth) * math.Pi / 180
	tipX := roseCX + int(math.Round(float64(roseRadius-3)*math.Sin(rad)))
	tipY := roseCY - int(math.Round(float64(roseRadius-3)*math.Cos(rad)))
	drawLine(img, roseCX, roseCY, tipX, tipY)

	return img
}

func drawCircle(img *image1bit.VerticalLSB, cx, cy, radius int) {
	for deg := 0; deg < 360; deg += 2 {
		rad := float64(deg) * math.Pi / 180
		x := cx + int(math.Round(float64(radius)*math.Cos(rad)))
		y := cy + int(math.Round(float64(radius)*math.Sin(rad)))
		img.Set(x, y, image1bit.On)
	}
}

func drawLine(img *image1bit.VerticalLSB, x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.Set(x0, y0, image1bit.On)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
