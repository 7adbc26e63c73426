// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Message is the outbound record, one JSON object per line on stream transports.
type Message struct {
	Command   eog.Command  `json:"command"`
	Modifier  eog.Modifier `json:"modifier,omitempty"`
	Timestamp float64      `json:"timestamp"` // unix seconds of the deciding window
	Sequence  uint64       `json:"sequence"`
}

// NewMessage builds the wire record for a dispatched event.
func NewMessage(ev eog.DetectionEvent, seq uint64) Message {
	return Message{
		Command:   ev.Command(),
		Modifier:  ev.Modifier,
		Timestamp: float64(ev.Time.UnixNano()) / float64(time.Second),
		Sequence:  seq,
	}
}

// Encode returns the newline-terminated JSON form of m.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Decode parses one line and validates the command and modifier vocabulary.
func Decode(line []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(bytes.TrimSpace(line), &m); err != nil {
		return Message{}, fmt.Errorf("decode command: %w", err)
	}
	cmd, err := eog.ParseCommand(string(m.Command))
	if err != nil {
		return Message{}, err
	}
	m.Command = cmd
	switch m.Modifier {
	case eog.NoModifier, eog.Boost, eog.Reduce:
	default:
		return Message{}, fmt.Errorf("unknown modifier %q", m.Modifier)
	}
	return m, nil
}
