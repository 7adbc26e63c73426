// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeDeadline = 200 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Hub fans live frames out to websocket subscribers. Publish never blocks the
// caller; frames that arrive while the backlog is full are dropped.
type Hub struct {
	mu      sync.Mutex
	conns   map[*websocket.Conn]bool
	backlog chan []byte
	dropped atomic.Uint64
}

func NewHub(backlog int) *Hub {
	return &Hub{
		conns:   make(map[*websocket.Conn]bool),
		backlog: make(chan []byte, backlog),
	}
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	return clients
}

// Clients is the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) Publish(frame []byte) {
	select {
	case h.backlog <- frame:
	default:
		h.dropped.Add(1)
	}
}

// Run broadcasts published frames until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context, sinks ...func([]byte)) {
	for {
		select {
		case <-ctx.Done():
			for _, c := range h.snapshot() {
				_ = c.Close()
				h.remove(c)
			}
			return
		case frame := <-h.backlog:
			h.broadcast(frame)
			for _, sink := range sinks {
				sink(frame)
			}
		}
	}
}

func (h *Hub) broadcast(b []byte) {
	for _, c := range h.snapshot() {
		_ = c.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = c.Close()
			h.remove(c)
		}
	}
}

// ServeHTTP upgrades the request and keeps the subscriber until it hangs up.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	h.add(conn)
	defer func() {
		h.remove(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
