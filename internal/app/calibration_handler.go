// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/qmc_compass/internal/calibration"
	"github.com/relabs-tech/qmc_compass/internal/compass"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// CalibrationServer runs min/max bound captures over a websocket while
// the user turns the sensor through every orientation.
type CalibrationServer struct {
	Compass *SharedCompass
	// Samples per capture and the delay between them.
	Samples  int
	Interval time.Duration
	// Dir receives the YAML files; empty means the working directory.
	Dir string
	// Apply loads the new bounds into the running session on success.
	Apply bool

	now func() time.Time
}

// CalibrationMessage is sent by the browser.
type CalibrationMessage struct {
	Action string `json:"action"` // "start", "cancel"
}

// CalibrationResponse is every message sent back.
type CalibrationResponse struct {
	Type     string          `json:"type"` // "progress", "complete", "error"
	Progress float64         `json:"progress,omitempty"`
	Samples  int             `json:"samples,omitempty"`
	Coverage float64         `json:"coverage,omitempty"`
	Bounds   *compass.Bounds `json:"bounds,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// HandleWS handles one calibration websocket connection.
func (srv *CalibrationServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("calibration: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	msgs := make(chan CalibrationMessage)
	go func() {
		defer close(msgs)
		for {
			var msg CalibrationMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("calibration: websocket read error: %v", err)
				}
				return
			}
			msgs <- msg
		}
	}()

	for msg := range msgs {
		switch msg.Action {
		case "start":
			ctx, cancel := context.WithCancel(r.Context())
			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := srv.Capture(ctx, func(resp CalibrationResponse) error { return conn.WriteJSON(resp) }); err != nil {
					conn.WriteJSON(CalibrationResponse{Type: "error", Message: err.Error()})
				}
			}()
			// Only a cancel or a closed socket interrupts a capture.
			for waiting := true; waiting; {
				select {
				case <-done:
					waiting = false
				case m, ok := <-msgs:
					if !ok || m.Action == "cancel" {
						log.Printf("calibration: cancelled by user")
						cancel()
						<-done
						if !ok {
							return
						}
						waiting = false
					}
				}
			}
			cancel()
		case "cancel":
		default:
			conn.WriteJSON(CalibrationResponse{Type: "error", Message: fmt.Sprintf("unknown action: %s", msg.Action)})
		}
	}
}

// Capture collects Samples raw readings, reporting progress through send,
// then saves the bounds as YAML and reports completion.
func (srv *CalibrationServer) Capture(ctx context.Context, send func(CalibrationResponse) error) error {
	now := srv.now
	if now == nil {
		now = time.Now
	}
	samples := srv.Samples
	if samples <= 0 {
		samples = 200
	}

	var col calibration.Collector
	for i := 0; i < samples; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("calibration: %w", err)
		}
		var dropped bool
		srv.Compass.Do(func(s *compass.Session) error {
			before := s.Dropped()
			s.Read()
			dropped = s.Dropped() != before
			if !dropped {
				col.Add(s.Raw())
			}
			return nil
		})
		if err := send(CalibrationResponse{
			Type:     "progress",
			Progress: float64(i+1) * 100 / float64(samples),
			Samples:  col.Count(),
			Coverage: col.Coverage(),
		}); err != nil {
			return err
		}
		if srv.Interval > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("calibration: %w", ctx.Err())
			case <-time.After(srv.Interval):
			}
		}
	}

	f, err := calibration.NewFile(srv.Compass.Name, &col, now())
	if err != nil {
		return err
	}
	name := fmt.Sprintf("compass_calibration_%d.yaml", f.Timestamp.Unix())
	path := filepath.Join(srv.Dir, name)
	if err := calibration.Save(path, f); err != nil {
		return err
	}
	log.Printf("calibration: saved %d samples to %s (coverage %.2f)", f.Samples, path, f.Coverage)

	if srv.Apply {
		if err := srv.Compass.Do(func(s *compass.Session) error { return s.SetCalibrationBounds(f.Bounds) }); err != nil {
			return err
		}
	}

	return send(CalibrationResponse{
		Type:     "complete",
		Progress: 100,
		Samples:  f.Samples,
		Coverage: f.Coverage,
		Bounds:   &f.Bounds,
		Filename: path,
	})
}
