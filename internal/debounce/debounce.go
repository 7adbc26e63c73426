// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package debounce rate-limits classified movements and attaches boost/reduce
// modifiers from the recent movement history.
package debounce

import (
	"fmt"
	"time"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Policy decides what a non-movement class does to the movement history.
type Policy string

const (
	// PolicyBreak clears the history, so boost/reduce only pair adjacent movements.
	PolicyBreak Policy = "break"
	// PolicyIgnore leaves the history untouched.
	PolicyIgnore Policy = "ignore"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyBreak, PolicyIgnore:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown streak policy %q", s)
}

type Config struct {
	Interval    time.Duration
	HistorySize int
	Policy      Policy
	SendStops   bool // emit an event for non-movement classes
}

// Debouncer is owned by the processing loop and is not safe for concurrent use.
type Debouncer struct {
	cfg      Config
	lastTime time.Time
	started  bool
	history  []eog.MovementClass
}

func New(cfg Config) *Debouncer {
	if cfg.HistorySize < 2 {
		cfg.HistorySize = 2
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyBreak
	}
	return &Debouncer{cfg: cfg, history: make([]eog.MovementClass, 0, cfg.HistorySize)}
}

// Offer submits one classified window observed at ts. It returns the event to
// dispatch, or false while the interval since the last emission has not elapsed.
// Timing uses sample timestamps, never the wall clock.
func (d *Debouncer) Offer(class eog.MovementClass, ts time.Time, windowID uint64) (eog.DetectionEvent, bool) {
	// Held classes, stops included, never reach the history.
	if d.started && ts.Sub(d.lastTime) < d.cfg.Interval {
		return eog.DetectionEvent{}, false
	}
	d.started = true
	d.lastTime = ts

	ev := eog.DetectionEvent{Class: class, Time: ts, WindowID: windowID}
	if !class.Moves() {
		if d.cfg.Policy == PolicyBreak {
			d.history = d.history[:0]
		}
		return ev, d.cfg.SendStops
	}

	if n := len(d.history); n > 0 {
		switch d.history[n-1] {
		case class:
			ev.Modifier = eog.Boost
		case class.Opposite():
			ev.Modifier = eog.Reduce
		}
	}
	d.remember(class)
	return ev, true
}

func (d *Debouncer) remember(c eog.MovementClass) {
	if len(d.history) == d.cfg.HistorySize {
		copy(d.history, d.history[1:])
		d.history = d.history[:len(d.history)-1]
	}
	d.history = append(d.history, c)
}

// History returns a copy of the recent movements, oldest first.
func (d *Debouncer) History() []eog.MovementClass {
	out := make([]eog.MovementClass, len(d.history))
	copy(out, d.history)
	return out
}

// Reset forgets the timer and history.
func (d *Debouncer) Reset() {
	d.started = false
	d.lastTime = time.Time{}
	d.history = d.history[:0]
}
