// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquisition adapts the electrode front-ends (mock generator, serial
// BLE bridge, MQTT, NATS) to a stream of timestamped samples.
package acquisition

import (
	"context"
	"time"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Sink receives samples. Offer must not block.
type Sink interface {
	Offer(eog.Sample)
}

// Source produces samples until ctx is cancelled or the link fails.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(eog.Sample)

func (f SinkFunc) Offer(s eog.Sample) { f(s) }

// Clock stamps samples of links that carry no timestamps. Sample n is placed
// at start + n/rate, so timing follows the nominal rate rather than arrival jitter.
type Clock struct {
	start time.Time
	rate  float64
	n     int64
}

func NewClock(start time.Time, rate float64) *Clock {
	return &Clock{start: start, rate: rate}
}

// Next returns the timestamp of the next sample.
func (c *Clock) Next() time.Time {
	t := c.start.Add(time.Duration(float64(c.n) / c.rate * float64(time.Second)))
	c.n++
	return t
}

// Count is how many timestamps were handed out.
func (c *Clock) Count() int64 { return c.n }
