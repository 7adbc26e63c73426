// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Segment is one scripted activity of the synthetic subject.
type Segment struct {
	Kind     string // rest, left, right, up, down or blink
	Duration time.Duration
}

// ParseScript reads "kind:seconds,kind:seconds,...".
func ParseScript(s string) ([]Segment, error) {
	var out []Segment
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, secs, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("segment %q: want kind:seconds", part)
		}
		switch kind {
		case "rest", "left", "right", "up", "down", "blink":
		default:
			return nil, fmt.Errorf("segment %q: unknown kind %q", part, kind)
		}
		v, err := strconv.ParseFloat(secs, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("segment %q: invalid duration", part)
		}
		out = append(out, Segment{Kind: kind, Duration: time.Duration(v * float64(time.Second))})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty mock script")
	}
	return out, nil
}

// GeneratorConfig shapes the synthetic signal, in microvolts.
type GeneratorConfig struct {
	SampleRate  float64
	Noise       float64 // gaussian noise per channel
	Mains       float64 // 50 Hz interference amplitude
	Saccade     float64 // horizontal gaze offset per channel
	Vertical    float64 // vertical gaze offset per channel
	BlinkA      float64 // blink peak on channel A
	BlinkB      float64 // blink peak on channel B
	OnsetWindow time.Duration
	Seed        int64
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		SampleRate:  244,
		Noise:       3,
		Mains:       20,
		Saccade:     150,
		Vertical:    120,
		BlinkA:      400,
		BlinkB:      400,
		OnsetWindow: 300 * time.Millisecond,
		Seed:        1,
	}
}

const (
	saccadeTau = 15 * time.Millisecond  // fast gaze shift
	returnTau  = 400 * time.Millisecond // slow drift back to rest
	blinkWidth = 200 * time.Millisecond
)

// Generator synthesizes the scripted session sample by sample, looping the script.
// It is deterministic for a given config and start time.
type Generator struct {
	cfg      GeneratorConfig
	script   []Segment
	period   time.Duration
	start    time.Time
	clock    *Clock
	rng      *rand.Rand
	offA     float64
	offB     float64
	lastTime time.Time
}

func NewGenerator(cfg GeneratorConfig, script []Segment, start time.Time) *Generator {
	var period time.Duration
	for _, s := range script {
		period += s.Duration
	}
	return &Generator{
		cfg:    cfg,
		script: script,
		period: period,
		start:  start,
		clock:  NewClock(start, cfg.SampleRate),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// segmentAt returns the active segment and the time elapsed inside it.
func (g *Generator) segmentAt(t time.Time) (Segment, time.Duration) {
	if g.period <= 0 {
		return Segment{Kind: "rest"}, 0
	}
	off := t.Sub(g.start) % g.period
	if off < 0 {
		off += g.period
	}
	for _, s := range g.script {
		if off < s.Duration {
			return s, off
		}
		off -= s.Duration
	}
	return g.script[len(g.script)-1], 0
}

// Next produces the next sample.
func (g *Generator) Next() eog.Sample {
	t := g.clock.Next()
	dt := 1 / g.cfg.SampleRate
	seg, in := g.segmentAt(t)

	var targetA, targetB float64
	tau := returnTau
	switch seg.Kind {
	case "right":
		targetA, targetB, tau = g.cfg.Saccade, -g.cfg.Saccade, saccadeTau
	case "left":
		targetA, targetB, tau = -g.cfg.Saccade, g.cfg.Saccade, saccadeTau
	case "up":
		targetA, targetB, tau = g.cfg.Vertical, g.cfg.Vertical, saccadeTau
	case "down":
		targetA, targetB, tau = -g.cfg.Vertical, -g.cfg.Vertical, saccadeTau
	}
	k := 1 - math.Exp(-dt/tau.Seconds())
	g.offA += k * (targetA - g.offA)
	g.offB += k * (targetB - g.offB)

	a, b := g.offA, g.offB
	if seg.Kind == "blink" && in < blinkWidth {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*in.Seconds()/blinkWidth.Seconds())
		a += g.cfg.BlinkA * w
		b += g.cfg.BlinkB * w
	}

	mains := g.cfg.Mains * math.Sin(2*math.Pi*50*t.Sub(g.start).Seconds())
	a += mains + g.rng.NormFloat64()*g.cfg.Noise
	b += mains + g.rng.NormFloat64()*g.cfg.Noise

	g.lastTime = t
	return eog.Sample{Time: t, A: a, B: b}
}

// Burst produces n consecutive samples.
func (g *Generator) Burst(n int) []eog.Sample {
	out := make([]eog.Sample, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// LabelAt is the true class at t: a movement segment counts as its class during
// its onset window and as center afterwards, rest is always center.
func (g *Generator) LabelAt(t time.Time) (eog.MovementClass, bool) {
	if t.Before(g.start) {
		return "", false
	}
	seg, in := g.segmentAt(t)
	if seg.Kind == "rest" || in >= g.cfg.OnsetWindow {
		return eog.Center, true
	}
	c, err := eog.ParseClass(seg.Kind)
	if err != nil {
		return "", false
	}
	return c, true
}

// Truth labels the most recent generated sample.
func (g *Generator) Truth() eog.GroundTruth {
	c, _ := g.LabelAt(g.lastTime)
	return eog.GroundTruth{Time: g.lastTime, TrueClass: c}
}
