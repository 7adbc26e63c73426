// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// CalibrationSession holds the state of an active rest recording.
type CalibrationSession struct {
	Conn    *websocket.Conn
	service *Service

	mu      sync.Mutex // serializes writes on Conn
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WebSocket message types
type WSMessage struct {
	Action string `json:"action"` // init, start, cancel
}

type WSResponse struct {
	Type     string         `json:"type"` // phase, step, action, progress, stats, complete, error
	Phase    string         `json:"phase,omitempty"`
	Step     string         `json:"step,omitempty"`
	Progress float64        `json:"progress,omitempty"`
	Stats    map[string]any `json:"stats,omitempty"`
	Results  any            `json:"results,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// handleCalibrationWS drives a calibration: the subject rests while the
// pipeline keeps recording, then thresholds are derived from that recording.
func (s *Service) handleCalibrationWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("calibration: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := &CalibrationSession{Conn: conn, service: s}
	defer session.stop()

	// Main message loop
	for {
		var msg WSMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			log.Debugf("calibration: websocket read error: %v", err)
			return
		}

		switch msg.Action {
		case "init":
			log.Printf("calibration: session initialized")
			session.sendPhase("rest")
			session.sendStep("look-center", "rest")
			session.sendActionReady()

		case "start":
			if err := session.start(r.Context()); err != nil {
				session.sendError(err.Error())
			}

		case "cancel":
			log.Printf("calibration: cancelled by user")
			session.stop()
			session.send(WSResponse{Type: "phase", Phase: "cancelled"})
			return

		default:
			session.sendError("unknown action " + msg.Action)
		}
	}
}

var errCalibrationRunning = errors.New("calibration already running")

func (c *CalibrationSession) start(parent context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errCalibrationRunning
	}
	ctx, cancel := context.WithCancel(parent)
	c.running = true
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
			cancel()
		}()
		if err := c.record(ctx); err != nil && ctx.Err() == nil {
			c.sendError(err.Error())
		}
	}()
	return nil
}

func (c *CalibrationSession) stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// record waits out the rest period reporting progress, then recalibrates.
func (c *CalibrationSession) record(ctx context.Context) error {
	wait := c.service.calibrationWait
	c.sendStep("recording", "rest")
	c.sendProgress(0)

	const steps = 20
	ticker := time.NewTicker(max(wait/steps, time.Millisecond))
	defer ticker.Stop()
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.sendProgress(float64(i) * 100 / steps)
		}
	}

	res, path, err := c.service.Calibrate(ctx)
	if err != nil {
		return err
	}
	c.sendStats(map[string]any{
		"samples": res.Samples,
		"windows": res.Windows,
		"sigma":   res.Sigma,
	})
	log.Printf("calibration: saved results to %s", path)
	c.send(WSResponse{
		Type:    "complete",
		Results: map[string]any{"filename": path, "thresholds": res.Thresholds},
	})
	return nil
}

func (c *CalibrationSession) send(resp WSResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := c.Conn.WriteJSON(resp); err != nil {
		log.Debugf("calibration: websocket write error: %v", err)
	}
}

func (c *CalibrationSession) sendPhase(phase string) {
	c.send(WSResponse{Type: "phase", Phase: phase})
}

func (c *CalibrationSession) sendStep(step, phase string) {
	c.send(WSResponse{Type: "step", Step: step, Phase: phase})
}

func (c *CalibrationSession) sendProgress(progress float64) {
	c.send(WSResponse{Type: "progress", Progress: progress})
}

func (c *CalibrationSession) sendStats(stats map[string]any) {
	c.send(WSResponse{Type: "stats", Stats: stats})
}

func (c *CalibrationSession) sendActionReady() {
	c.send(WSResponse{Type: "action", Message: "ready"})
}

func (c *CalibrationSession) sendError(message string) {
	c.send(WSResponse{Type: "error", Message: message})
}
