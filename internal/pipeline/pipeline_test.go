// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eog_controller/internal/buffer"
	"github.com/relabs-tech/eog_controller/internal/config"
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/evaluation"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newProcessor(t *testing.T) *Processor {
	t.Helper()
	s, th, err := SettingsFrom(config.Default())
	require.NoError(t, err)
	p, err := NewProcessor(s, th)
	require.NoError(t, err)
	return p
}

// samples builds n samples at 244 Hz starting at index from.
func samples(from, n int, fn func(i int) (float64, float64)) []eog.Sample {
	out := make([]eog.Sample, n)
	for i := range out {
		a, b := fn(i)
		out[i] = eog.Sample{Time: t0.Add(time.Duration(from+i) * time.Second / 244), A: a, B: b}
	}
	return out
}

func rest(int) (float64, float64) { return 0, 0 }

func hann(i int) float64 { return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/48) }

func TestSettingsFromDefaults(t *testing.T) {
	s, th, err := SettingsFrom(config.Default())
	require.NoError(t, err)
	assert.Equal(t, 49, s.Extractor.SubWindow)
	assert.Equal(t, 244, s.LongWindow)
	assert.Equal(t, 1220, s.CalibrationWindow)
	assert.Equal(t, 244, s.Filter.BaselineSamples)
	assert.Equal(t, 100*time.Millisecond, s.TickInterval)
	assert.Equal(t, 2, th.MinActiveFlags)
	assert.Equal(t, 300.0, th.BlinkAmplitude)
}

func TestSettingsRejectPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.StreakPolicy = "sometimes"
	_, _, err := SettingsFrom(cfg)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestTickSkips(t *testing.T) {
	p := newProcessor(t)

	out := p.Tick()
	assert.Equal(t, SkipIdle, out.Skip)
	assert.Equal(t, uint64(1), out.WindowID)

	p.Push(samples(0, 100, rest)...)
	out = p.Tick()
	assert.Equal(t, SkipInsufficient, out.Skip)
	assert.False(t, out.Emitted)

	p.Push(samples(100, 144, rest)...)
	out = p.Tick()
	assert.Empty(t, out.Skip)
	assert.Equal(t, eog.Center, out.Decision.Class)
	assert.Equal(t, uint64(3), out.WindowID)
	assert.Equal(t, t0.Add(243*time.Second/244), out.Time)

	out = p.Tick()
	assert.Equal(t, SkipIdle, out.Skip, "no new samples since the last classification")
}

func TestRestIsCenter(t *testing.T) {
	p := newProcessor(t)
	p.Push(samples(0, 244, rest)...)
	out := p.Tick()
	assert.Equal(t, eog.Center, out.Decision.Class)
	assert.Equal(t, "low-activity", out.Decision.Rule)
	assert.True(t, out.Emitted, "the first stop event passes the empty debounce timer")
	assert.Equal(t, eog.Center, out.Event.Class)

	p.Push(samples(244, 24, rest)...)
	out = p.Tick()
	assert.Equal(t, eog.Center, out.Decision.Class)
	assert.False(t, out.Emitted, "held inside the debounce interval")
}

func TestBlinkIsEmitted(t *testing.T) {
	p := newProcessor(t)
	p.Push(samples(0, 244, rest)...)
	p.Push(samples(244, 49, func(i int) (float64, float64) {
		return 600 * hann(i), 200 * hann(i)
	})...)

	out := p.Tick()
	require.Empty(t, out.Skip)
	assert.Equal(t, eog.Blink, out.Decision.Class)
	assert.True(t, out.Emitted)
	assert.Equal(t, eog.Blink, out.Event.Class)
	assert.Equal(t, out.WindowID, out.Event.WindowID)
}

func TestCommonModeBlinkIsEmitted(t *testing.T) {
	for _, amp := range []float64{200, 400, 600, 1000} {
		p := newProcessor(t)
		p.Push(samples(0, 244, rest)...)
		p.Push(samples(244, 49, func(i int) (float64, float64) {
			return amp * hann(i), amp * hann(i)
		})...)

		out := p.Tick()
		require.Empty(t, out.Skip)
		assert.Equal(t, eog.Blink, out.Decision.Class, "equal %v uV spike on both channels", amp)
		assert.Equal(t, "blink", out.Decision.Rule)
		assert.False(t, out.Features.Y1.Flags.Amplitude, "an equal spike cancels on Y1")
	}
}

func TestVerticalSaccadeIsNotBlink(t *testing.T) {
	k := 1 - math.Exp(-1/(244*0.015))
	for _, tc := range []struct {
		level float64
		want  eog.MovementClass
	}{
		{120, eog.Up},
		{-120, eog.Down},
	} {
		p := newProcessor(t)
		p.Push(samples(0, 244, rest)...)
		p.Push(samples(244, 49, func(i int) (float64, float64) {
			v := tc.level * (1 - math.Pow(1-k, float64(i+1)))
			return v, v
		})...)

		out := p.Tick()
		require.Empty(t, out.Skip)
		assert.Equal(t, tc.want, out.Decision.Class)
		assert.Equal(t, "vertical", out.Decision.Rule)
	}
}

func TestRecalibrate(t *testing.T) {
	p := newProcessor(t)
	p.Push(samples(0, 100, rest)...)
	_, err := p.Recalibrate()
	assert.True(t, IsInsufficient(err))

	p.Push(samples(100, 1500, rest)...)
	res, err := p.Recalibrate()
	require.NoError(t, err)
	assert.Equal(t, 1220, res.Samples)
	assert.Equal(t, p.Thresholds(), res.Thresholds)

	out := p.Tick()
	assert.Equal(t, SkipInsufficient, out.Skip, "state is cleared after recalibration")
}

func TestSetThresholdsValidates(t *testing.T) {
	p := newProcessor(t)
	th := p.Thresholds()
	th.MinActiveFlags = 0
	assert.Error(t, p.SetThresholds(th))
}

type submitter struct {
	mu     sync.Mutex
	events []eog.DetectionEvent
}

func (s *submitter) Submit(ev eog.DetectionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return true
}

func (s *submitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type constantLabel eog.MovementClass

func (c constantLabel) LabelAt(time.Time) (eog.MovementClass, bool) {
	return eog.MovementClass(c), true
}

func TestRunner(t *testing.T) {
	cfg := config.Default()
	cfg.TickIntervalMs = 5
	cfg.SendStopCommands = false
	s, th, err := SettingsFrom(cfg)
	require.NoError(t, err)
	proc, err := NewProcessor(s, th)
	require.NoError(t, err)

	queue := buffer.NewQueue(4096)
	sub := &submitter{}
	eval := evaluation.NewEngine(evaluation.Config{Space: evaluation.SpaceClasses, Alignment: evaluation.AlignWindow, Pending: 16})
	var observed sync.WaitGroup
	observed.Add(1)
	var once sync.Once
	r := NewRunner(proc, queue, sub,
		WithEvaluation(eval),
		WithLabeler(constantLabel(eog.Center)),
		WithObserver(func(o Outcome) {
			if o.Skip == "" {
				once.Do(observed.Done)
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for _, smp := range samples(0, 1300, rest) {
		queue.Offer(smp)
	}
	observed.Wait()

	assert.Eventually(t, func() bool {
		st := r.Stats()
		return st.Classified > 0 && st.Ticks >= st.Classified
	}, time.Second, 5*time.Millisecond)

	res, err := r.Recalibrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Thresholds, r.Thresholds())
	assert.Equal(t, uint64(1), r.Stats().Calibrations)

	sum := eval.Summary()
	assert.NotZero(t, sum.Matched)
	assert.Zero(t, sub.count(), "rest emits no movement and stops stay local")

	cancel()
	require.NoError(t, <-done)
	_, err = r.Recalibrate(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}
