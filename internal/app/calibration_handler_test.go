// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/qmc_compass/internal/calibration"
	"github.com/relabs-tech/qmc_compass/internal/compass"
)

func fixedClock() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }

func newCalibrationServer(t *testing.T, frames ...[]byte) (*CalibrationServer, *compass.Session) {
	t.Helper()
	s := compass.NewSession(&frameBus{frames: frames}, compass.Opts{})
	return &CalibrationServer{
		Compass: NewSharedCompass("test", s),
		Samples: len(frames),
		Dir:     t.TempDir(),
		Apply:   true,
		now:     fixedClock,
	}, s
}

func TestCalibrationServer_Capture(t *testing.T) {
	srv, session := newCalibrationServer(t,
		frame(-100, 0, -10),
		frame(300, 200, 30),
		frame(100, -200, 10),
		frame(0, 50, 0),
	)

	var msgs []CalibrationResponse
	err := srv.Capture(context.Background(), func(r CalibrationResponse) error {
		msgs = append(msgs, r)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, msgs, 5)
	assert.Equal(t, "progress", msgs[0].Type)
	assert.Equal(t, 25.0, msgs[0].Progress)
	assert.Equal(t, 100.0, msgs[3].Progress)

	done := msgs[4]
	require.Equal(t, "complete", done.Type)
	require.NotNil(t, done.Bounds)
	want := compass.Bounds{XMin: -100, XMax: 300, YMin: -200, YMax: 200, ZMin: -10, ZMax: 30}
	assert.Equal(t, want, *done.Bounds)
	assert.Equal(t, 4, done.Samples)

	f, err := calibration.Load(done.Filename)
	require.NoError(t, err)
	assert.Equal(t, want, f.Bounds)
	assert.True(t, fixedClock().Equal(f.Timestamp))

	_, ok := session.Calibration()
	assert.True(t, ok)
}

func TestCalibrationServer_DroppedReadsAreNotCollected(t *testing.T) {
	srv, _ := newCalibrationServer(t, frame(-10, -20, -30), frame(10, 20, 30))
	srv.Samples = 3 // third read fails

	var last CalibrationResponse
	err := srv.Capture(context.Background(), func(r CalibrationResponse) error {
		last = r
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "complete", last.Type)
	assert.Equal(t, 2, last.Samples)
}

func TestCalibrationServer_DegenerateCaptureFails(t *testing.T) {
	srv, session := newCalibrationServer(t, frame(5, 5, 5), frame(5, 5, 5))

	err := srv.Capture(context.Background(), func(CalibrationResponse) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, compass.ErrCalibrationDegenerate))

	_, ok := session.Calibration()
	assert.False(t, ok)
}

func TestCalibrationServer_Cancelled(t *testing.T) {
	srv, _ := newCalibrationServer(t, frame(1, 2, 3), frame(4, 5, 6))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Capture(ctx, func(CalibrationResponse) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalibrationServer_WebSocket(t *testing.T) {
	srv, _ := newCalibrationServer(t, frame(-1, -2, -3), frame(1, 2, 3))
	ts := httptest.NewServer(NewRegisterDebugMux(newMockDebugServer(t), srv))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/calibration"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, conn.WriteJSON(CalibrationMessage{Action: "start"}))

	var resp CalibrationResponse
	for resp.Type != "complete" {
		resp = CalibrationResponse{}
		require.NoError(t, conn.ReadJSON(&resp))
		require.NotEqual(t, "error", resp.Type, resp.Message)
	}
	assert.Equal(t, compass.Bounds{XMin: -1, XMax: 1, YMin: -2, YMax: 2, ZMin: -3, ZMax: 3}, *resp.Bounds)
}
