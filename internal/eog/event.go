// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package eog

import "time"

// DetectionEvent is the unit emitted downstream after debouncing.
type DetectionEvent struct {
	Class    MovementClass `json:"class"`
	Time     time.Time     `json:"timestamp"`
	Modifier Modifier      `json:"modifier,omitempty"`
	WindowID uint64        `json:"window_id"`
}

// Command returns the outbound command name for the event.
func (e DetectionEvent) Command() Command {
	return Command(e.Class)
}
