// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter turns raw two-channel samples into the baseline-corrected
// horizontal (Y1) and vertical (Y2) composite signals.
package filter

import (
	"fmt"
	"time"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Params configures a Bank. Frequencies are in Hz.
type Params struct {
	SampleRate      float64
	BandpassLow     float64
	BandpassHigh    float64
	NotchLow        float64
	NotchHigh       float64
	EOGLow          float64
	EOGHigh         float64
	BaselineSamples int // smoothing length of the baseline estimate
	Capacity        int // filtered samples kept for Signal
}

func (p Params) validate() error {
	nyquist := p.SampleRate / 2
	switch {
	case p.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %v", p.SampleRate)
	case p.BandpassLow <= 0 || p.BandpassHigh <= p.BandpassLow || p.BandpassHigh >= nyquist:
		return fmt.Errorf("invalid band-pass %v-%v Hz at %v Hz", p.BandpassLow, p.BandpassHigh, p.SampleRate)
	case p.NotchLow <= 0 || p.NotchHigh <= p.NotchLow || p.NotchHigh >= nyquist:
		return fmt.Errorf("invalid notch %v-%v Hz", p.NotchLow, p.NotchHigh)
	case p.EOGLow <= 0 || p.EOGHigh <= p.EOGLow || p.EOGHigh >= nyquist:
		return fmt.Errorf("invalid EOG band %v-%v Hz", p.EOGLow, p.EOGHigh)
	case p.BaselineSamples < 1:
		return fmt.Errorf("baseline window must be at least one sample")
	case p.Capacity < 1:
		return fmt.Errorf("capacity must be at least one sample")
	}
	return nil
}

// FilteredSignal is a window of composite signals. Y1, Y2 and Times have equal length.
type FilteredSignal struct {
	Y1    []float64
	Y2    []float64
	Times []time.Time
}

func (f FilteredSignal) Len() int { return len(f.Y1) }

// End is the timestamp of the newest sample, zero for an empty signal.
func (f FilteredSignal) End() time.Time {
	if len(f.Times) == 0 {
		return time.Time{}
	}
	return f.Times[len(f.Times)-1]
}

// Tail returns the newest n samples as a view sharing storage with f.
func (f FilteredSignal) Tail(n int) FilteredSignal {
	if n >= f.Len() {
		return f
	}
	k := f.Len() - n
	return FilteredSignal{Y1: f.Y1[k:], Y2: f.Y2[k:], Times: f.Times[k:]}
}

// channel is the per-electrode chain: band-pass, notch, EOG sub-band, baseline.
type channel struct {
	bandpass Cascade
	notch    Cascade
	subband  Cascade
	alpha    float64
	baseline float64
	primed   bool
}

func newChannel(p Params) *channel {
	sub := Cascade{}
	if p.EOGLow > p.BandpassLow {
		sub = append(sub, Highpass(p.SampleRate, p.EOGLow, butterworth2[0]))
	}
	sub = append(sub, LowpassCascade(p.SampleRate, p.EOGHigh, 4)...)
	return &channel{
		bandpass: Bandpass(p.SampleRate, p.BandpassLow, p.BandpassHigh, 4),
		notch:    Bandstop(p.SampleRate, p.NotchLow, p.NotchHigh, 2),
		subband:  sub,
		alpha:    2 / (float64(p.BaselineSamples) + 1),
	}
}

func (c *channel) process(x float64) float64 {
	y := c.subband.Process(c.notch.Process(c.bandpass.Process(x)))
	if !c.primed {
		c.baseline = y
		c.primed = true
	} else {
		c.baseline += c.alpha * (y - c.baseline)
	}
	return y - c.baseline
}

func (c *channel) reset() {
	c.bandpass.Reset()
	c.notch.Reset()
	c.subband.Reset()
	c.baseline = 0
	c.primed = false
}

// Bank is the streaming filtering stage. It owns the filter state of both
// channels and a ring of the most recent composite values. It is not safe for
// concurrent use; the processing loop is its only writer.
type Bank struct {
	params Params
	a, b   *channel
	y1, y2 []float64
	times  []time.Time
	head   int
	count  int
}

// NewBank validates params and creates a bank with cleared state.
func NewBank(p Params) (*Bank, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Bank{
		params: p,
		a:      newChannel(p),
		b:      newChannel(p),
		y1:     make([]float64, p.Capacity),
		y2:     make([]float64, p.Capacity),
		times:  make([]time.Time, p.Capacity),
	}, nil
}

func (b *Bank) Params() Params { return b.params }

// Push filters samples in arrival order.
func (b *Bank) Push(samples ...eog.Sample) {
	for _, s := range samples {
		fa := b.a.process(s.A)
		fb := b.b.process(s.B)
		b.y1[b.head] = fa - fb
		b.y2[b.head] = fa + fb
		b.times[b.head] = s.Time
		b.head = (b.head + 1) % len(b.y1)
		if b.count < len(b.y1) {
			b.count++
		}
	}
}

// Len is the number of filtered samples available.
func (b *Bank) Len() int { return b.count }

// Signal copies the newest n filtered samples. It reports false when fewer are available.
func (b *Bank) Signal(n int) (FilteredSignal, bool) {
	if n <= 0 || n > b.count {
		return FilteredSignal{}, false
	}
	out := FilteredSignal{
		Y1:    make([]float64, n),
		Y2:    make([]float64, n),
		Times: make([]time.Time, n),
	}
	size := len(b.y1)
	start := (b.head - n + size) % size
	for i := 0; i < n; i++ {
		j := (start + i) % size
		out.Y1[i] = b.y1[j]
		out.Y2[i] = b.y2[j]
		out.Times[i] = b.times[j]
	}
	return out, true
}

// Reset clears all filter state and the filtered history.
func (b *Bank) Reset() {
	b.a.reset()
	b.b.reset()
	b.head = 0
	b.count = 0
}

// Apply runs a fresh bank with params over samples and returns the full filtered signal.
// It never touches the state of a live bank.
func Apply(p Params, samples []eog.Sample) (FilteredSignal, error) {
	p.Capacity = len(samples)
	if p.Capacity == 0 {
		return FilteredSignal{}, nil
	}
	bank, err := NewBank(p)
	if err != nil {
		return FilteredSignal{}, err
	}
	bank.Push(samples...)
	sig, _ := bank.Signal(len(samples))
	return sig, nil
}
