// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/qmc_compass/internal/config"
	"github.com/relabs-tech/qmc_compass/internal/heading"
)

// HeadingHub keeps the latest reading and fans it out to websocket
// clients.
type HeadingHub struct {
	mu      sync.RWMutex
	last    heading.Reading
	have    bool
	clients map[chan heading.Reading]struct{}
}

// NewHeadingHub returns an empty hub.
func NewHeadingHub() *HeadingHub {
	return &HeadingHub{clients: make(map[chan heading.Reading]struct{})}
}

// Update stores r and pushes it to every client. Slow clients miss
// updates rather than block the MQTT callback.
func (h *HeadingHub) Update(r heading.Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = r
	h.have = true
	for ch := range h.clients {
		select {
		case ch <- r:
		default:
		}
	}
}

// Latest returns the last reading, if any.
func (h *HeadingHub) Latest() (heading.Reading, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.have
}

func (h *HeadingHub) subscribe() chan heading.Reading {
	ch := make(chan heading.Reading, 8)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *HeadingHub) unsubscribe(ch chan heading.Reading) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// MessageHandler decodes MQTT heading messages into the hub.
func (h *HeadingHub) MessageHandler() mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var r heading.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("web: MQTT payload unmarshal error: %v", err)
			return
		}
		h.Update(r)
	}
}

// ServeLatest is the JSON API endpoint for the latest reading.
func (h *HeadingHub) ServeLatest(w http.ResponseWriter, r *http.Request) {
	last, ok := h.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(last); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// ServeWS streams every reading to a websocket client. The latest
// reading, if any, is sent right after the upgrade.
func (h *HeadingHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	if last, ok := h.Latest(); ok {
		if err := conn.WriteJSON(last); err != nil {
			return
		}
	}

	// Reader goroutine only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case reading := <-ch:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(reading); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket write error: %v", err)
				}
				return
			}
		case <-closed:
			return
		}
	}
}

// NewWebMux wires the heading API and the live stream onto one mux.
func NewWebMux(hub *HeadingHub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/heading", hub.ServeLatest)
	mux.HandleFunc("/ws", hub.ServeWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func RunWeb() error {
	cfg := config.Get()
	hub := NewHeadingHub()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to heading topic and feed the hub
	token := client.Subscribe(cfg.TopicHeading, 0, hub.MessageHandler())
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", cfg.TopicHeading)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, NewWebMux(hub, "web"))
}
