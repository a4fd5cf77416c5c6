// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/qmc_compass/internal/compass"
	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/relabs-tech/qmc_compass/internal/heading"
	"github.com/relabs-tech/qmc_compass/internal/sensors"
)

// SharedCompass serializes access to one session across HTTP handlers.
// compass.Session itself has no locking.
type SharedCompass struct {
	Name    string
	mu      sync.Mutex
	session *compass.Session
}

// NewSharedCompass wraps s.
func NewSharedCompass(name string, s *compass.Session) *SharedCompass {
	return &SharedCompass{Name: name, session: s}
}

// Do runs fn with exclusive access to the session.
func (c *SharedCompass) Do(fn func(s *compass.Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.session)
}

// Sample runs one read cycle and snapshots it.
func (c *SharedCompass) Sample(t time.Time) heading.Reading {
	var r heading.Reading
	c.Do(func(s *compass.Session) error {
		s.Read()
		r = heading.FromSession(c.Name, s, t)
		return nil
	})
	return r
}

// RegisterResponse is every message the register debug socket sends.
type RegisterResponse struct {
	Type        string              `json:"type"` // "register_data", "register_map", "status", "export_config", "error"
	Address     string              `json:"addr,omitempty"`
	Value       string              `json:"value,omitempty"`
	Registers   map[string]string   `json:"registers,omitempty"` // for bulk read
	Timestamp   string              `json:"timestamp,omitempty"`
	Message     string              `json:"message,omitempty"`
	Status      string              `json:"status,omitempty"`
	RegisterMap []RegisterInfo      `json:"register_map,omitempty"`
	Config      *RegisterConfigFile `json:"config,omitempty"`
	Filename    string              `json:"filename,omitempty"`
	Control1    string              `json:"control1,omitempty"` // configured preset
}

// RegisterInfo is compass.RegisterInfo with hex-formatted bytes and the
// effective write permission.
type RegisterInfo struct {
	Address     string             `json:"address"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Access      string             `json:"access"` // "R", "W", "RW"
	Default     string             `json:"default,omitempty"`
	Writable    bool               `json:"writable"`
	BitFields   []compass.BitField `json:"bit_fields,omitempty"`
}

// RegisterConfigFile is the exported snapshot of the writable registers.
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	Device    string            `json:"device"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // hex address -> hex value
}

// RegisterDebugServer exposes raw register access over a websocket.
// Writes are limited to registers that are both writable on the chip
// and listed in the allow-list.
type RegisterDebugServer struct {
	Compass  *SharedCompass
	Writable map[byte]bool
}

type registerCmd struct {
	Action  string `json:"action"` // get_map, read, read_all, write, init, reset, export_config
	Address string `json:"addr,omitempty"`
	Value   string `json:"value,omitempty"`
}

// HandleWS handles one register debug websocket connection.
func (srv *RegisterDebugServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Send register map on connection
	if err := conn.WriteJSON(srv.registerMap()); err != nil {
		log.Printf("register_debug: error sending register map: %v", err)
		return
	}

	for {
		var cmd registerCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("register_debug: websocket error: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(srv.handle(cmd)); err != nil {
			log.Printf("register_debug: write error: %v", err)
			return
		}
	}
}

func (srv *RegisterDebugServer) handle(cmd registerCmd) RegisterResponse {
	switch cmd.Action {
	case "get_map":
		return srv.registerMap()
	case "read":
		return srv.read(cmd)
	case "read_all":
		return srv.readAll()
	case "write":
		return srv.write(cmd)
	case "init":
		return srv.status(func(s *compass.Session) error { return s.Init() }, "initialized", "compass reinitialized")
	case "reset":
		return srv.status(func(s *compass.Session) error { return s.SetReset() }, "reset", "soft reset issued, chip is in standby until init")
	case "export_config":
		return srv.exportConfig()
	case "":
		return errorResponse("missing or invalid action field")
	default:
		return errorResponse(fmt.Sprintf("unknown action: %s", cmd.Action))
	}
}

func (srv *RegisterDebugServer) registerMap() RegisterResponse {
	regs := compass.RegisterMap()
	mapped := make([]RegisterInfo, len(regs))
	for i, r := range regs {
		mapped[i] = RegisterInfo{
			Address:     hexByte(r.Address),
			Name:        r.Name,
			Description: r.Description,
			Access:      r.Access,
			Default:     hexByte(r.Default),
			Writable:    srv.writable(r.Address),
			BitFields:   r.BitFields,
		}
	}
	return RegisterResponse{Type: "register_map", RegisterMap: mapped}
}

func (srv *RegisterDebugServer) writable(addr byte) bool {
	info, ok := compass.LookupRegister(addr)
	return ok && info.Writable() && srv.Writable[addr]
}

func (srv *RegisterDebugServer) read(cmd registerCmd) RegisterResponse {
	addr, err := parseHexByte(cmd.Address)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid address format: %q", cmd.Address))
	}
	var value byte
	err = srv.Compass.Do(func(s *compass.Session) error {
		var err error
		value, err = s.ReadRegister(addr)
		return err
	})
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}
	return RegisterResponse{
		Type:      "register_data",
		Address:   hexByte(addr),
		Value:     hexByte(value),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (srv *RegisterDebugServer) readAll() RegisterResponse {
	regs, err := srv.dump(func(compass.RegisterInfo) bool { return true })
	if err != nil {
		return errorResponse(fmt.Sprintf("read all error: %v", err))
	}
	return RegisterResponse{
		Type:      "register_data",
		Registers: regs,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (srv *RegisterDebugServer) dump(keep func(compass.RegisterInfo) bool) (map[string]string, error) {
	out := make(map[string]string)
	err := srv.Compass.Do(func(s *compass.Session) error {
		for _, info := range compass.RegisterMap() {
			if !keep(info) {
				continue
			}
			v, err := s.ReadRegister(info.Address)
			if err != nil {
				return err
			}
			out[hexByte(info.Address)] = hexByte(v)
		}
		return nil
	})
	return out, err
}

func (srv *RegisterDebugServer) write(cmd registerCmd) RegisterResponse {
	addr, err := parseHexByte(cmd.Address)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid address format: %q", cmd.Address))
	}
	value, err := parseHexByte(cmd.Value)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid value format: %q", cmd.Value))
	}
	if !srv.writable(addr) {
		return errorResponse(fmt.Sprintf("register 0x%02X not in allowed write ranges", addr))
	}
	if err := srv.Compass.Do(func(s *compass.Session) error { return s.WriteRegister(addr, value) }); err != nil {
		return errorResponse(fmt.Sprintf("write error: %v", err))
	}
	log.Printf("register_debug: wrote 0x%02X to register 0x%02X", value, addr)
	return RegisterResponse{
		Type:      "register_data",
		Address:   hexByte(addr),
		Value:     hexByte(value),
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "write successful",
	}
}

func (srv *RegisterDebugServer) status(fn func(s *compass.Session) error, status, msg string) RegisterResponse {
	var mode compass.Mode
	err := srv.Compass.Do(func(s *compass.Session) error {
		mode = s.Mode()
		return fn(s)
	})
	if err != nil {
		return errorResponse(fmt.Sprintf("%s error: %v", status, err))
	}
	return RegisterResponse{
		Type:     "status",
		Status:   status,
		Message:  msg,
		Control1: hexByte(mode.Byte()),
	}
}

func (srv *RegisterDebugServer) exportConfig() RegisterResponse {
	regs, err := srv.dump(compass.RegisterInfo.Writable)
	if err != nil {
		return errorResponse(fmt.Sprintf("export error: %v", err))
	}
	now := time.Now()
	return RegisterResponse{
		Type:    "export_config",
		Message: "config exported",
		Config: &RegisterConfigFile{
			Version:   1,
			Device:    srv.Compass.Name,
			Timestamp: now.Format(time.RFC3339),
			Registers: regs,
		},
		Filename: fmt.Sprintf("qmc5883l_%s_registers.json", now.Format("20060102_150405")),
	}
}

// HandleCompassData serves a fresh reading as JSON.
func (srv *RegisterDebugServer) HandleCompassData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(srv.Compass.Sample(time.Now())); err != nil {
		log.Printf("register_debug: json encode error: %v", err)
	}
}

func errorResponse(message string) RegisterResponse {
	return RegisterResponse{Type: "error", Message: message}
}

func hexByte(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}

// parseHexByte parses a hex byte with or without the 0x prefix.
func parseHexByte(s string) (byte, error) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// NewRegisterDebugMux wires the register socket, the live reading API and
// the calibration socket for one sensor.
func NewRegisterDebugMux(srv *RegisterDebugServer, cal *CalibrationServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.HandleWS)
	mux.HandleFunc("/api/compass", srv.HandleCompassData)
	if cal != nil {
		mux.HandleFunc("/ws/calibration", cal.HandleWS)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/register_debug.html")
	})
	return mux
}

// RunRegisterDebug opens the compass and serves the register debug and
// calibration tools until the listener fails.
func RunRegisterDebug() error {
	cfg := config.Get()

	writable, err := config.ParseRegisterRanges(cfg.RegisterDebugWritable)
	if err != nil {
		return err
	}

	src, err := sensors.OpenCompass(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	shared := NewSharedCompass(src.Name, src.Session)
	srv := &RegisterDebugServer{Compass: shared, Writable: writable}
	cal := &CalibrationServer{
		Compass:  shared,
		Samples:  200,
		Interval: 100 * time.Millisecond,
		Apply:    true,
	}
	if cfg.CalibrationFile != "" {
		cal.Dir = filepath.Dir(cfg.CalibrationFile)
	}

	addr := fmt.Sprintf(":%d", cfg.RegisterDebugPort)
	log.Printf("register debug tool listening on %s", addr)
	log.Printf("open http://localhost%s in your browser", addr)
	return http.ListenAndServe(addr, NewRegisterDebugMux(srv, cal))
}
