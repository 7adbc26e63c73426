// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package eog

import "time"

// Sample is one two-channel reading from the frontal electrode pair, in microvolts.
type Sample struct {
	Time time.Time `json:"ts"`
	A    float64   `json:"a"` // channel A (AF3, left frontal)
	B    float64   `json:"b"` // channel B (AF4, right frontal)
}

// GroundTruth labels what the subject was actually doing, for evaluation only.
type GroundTruth struct {
	WindowID  uint64        `json:"window_id,omitempty"`
	Time      time.Time     `json:"timestamp,omitempty"`
	TrueClass MovementClass `json:"true_class"`
}
