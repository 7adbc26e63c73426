// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

const fs = 244.0

func defaultParams() Params {
	return Params{
		SampleRate:      fs,
		BandpassLow:     0.5,
		BandpassHigh:    100,
		NotchLow:        48,
		NotchHigh:       52,
		EOGLow:          0.5,
		EOGHigh:         15,
		BaselineSamples: 244,
		Capacity:        1024,
	}
}

func sine(freq, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return out
}

func peak(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

func run(c Cascade, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = c.Process(x)
	}
	return out
}

func TestBankPreservesEOGBand(t *testing.T) {
	zero := make([]float64, 8*int(fs))
	for _, freq := range []float64{2, 5, 8, 10} {
		sig, err := Apply(defaultParams(), samples(sine(freq, 100, len(zero)), zero))
		require.NoError(t, err)
		got := peak(sig.Y2[sig.Len()-int(fs):])
		assert.InDelta(t, 100, got, 5, "%v Hz amplitude through the full chain", freq)
		assert.InDelta(t, got, peak(sig.Y1[sig.Len()-int(fs):]), 1e-9)
	}
}

func TestNotchRemovesMains(t *testing.T) {
	out := run(Bandstop(fs, 48, 52, 2), sine(50, 100, 4*int(fs)))
	assert.Less(t, peak(out[len(out)-int(fs):]), 10.0)
}

func TestSubbandAttenuatesFastActivity(t *testing.T) {
	out := run(LowpassCascade(fs, 15, 4), sine(40, 100, 4*int(fs)))
	assert.Less(t, peak(out[len(out)-int(fs):]), 5.0)

	zero := make([]float64, 4*int(fs))
	sig, err := Apply(defaultParams(), samples(sine(40, 100, len(zero)), zero))
	require.NoError(t, err)
	assert.Less(t, peak(sig.Y2[sig.Len()-int(fs):]), 5.0)
}

func TestHighpassRemovesOffset(t *testing.T) {
	c := Bandpass(fs, 0.5, 100, 4)
	var y float64
	for i := 0; i < 20*int(fs); i++ {
		y = c.Process(500)
	}
	assert.InDelta(t, 0, y, 1)
}

func samples(a, b []float64) []eog.Sample {
	start := time.Unix(1700000000, 0)
	out := make([]eog.Sample, len(a))
	for i := range a {
		out[i] = eog.Sample{Time: start.Add(time.Duration(float64(i) / fs * float64(time.Second))), A: a[i], B: b[i]}
	}
	return out
}

func TestBankComposites(t *testing.T) {
	bank, err := NewBank(defaultParams())
	require.NoError(t, err)

	x := sine(2, 80, 488)
	bank.Push(samples(x, x)...)

	sig, ok := bank.Signal(244)
	require.True(t, ok)
	require.Equal(t, 244, sig.Len())
	require.Len(t, sig.Times, 244)
	for _, v := range sig.Y1 {
		assert.Zero(t, v)
	}
	assert.Greater(t, peak(sig.Y2), 50.0)

	_, ok = bank.Signal(2000)
	assert.False(t, ok)
}

func TestBankOppositeChannelsAreHorizontal(t *testing.T) {
	bank, err := NewBank(defaultParams())
	require.NoError(t, err)

	x := sine(2, 80, 488)
	neg := make([]float64, len(x))
	for i := range x {
		neg[i] = -x[i]
	}
	bank.Push(samples(x, neg)...)

	sig, ok := bank.Signal(244)
	require.True(t, ok)
	for _, v := range sig.Y2 {
		assert.InDelta(t, 0, v, 1e-9)
	}
	assert.Greater(t, peak(sig.Y1), 100.0)
}

func TestBankResetIsDeterministic(t *testing.T) {
	p := defaultParams()
	in := samples(sine(3, 60, 300), sine(1, 40, 300))

	bank, err := NewBank(p)
	require.NoError(t, err)
	bank.Push(in...)
	first, ok := bank.Signal(300)
	require.True(t, ok)

	bank.Reset()
	assert.Equal(t, 0, bank.Len())
	_, ok = bank.Signal(1)
	assert.False(t, ok)

	bank.Push(in...)
	second, ok := bank.Signal(300)
	require.True(t, ok)
	assert.Equal(t, first.Y1, second.Y1)
	assert.Equal(t, first.Y2, second.Y2)

	applied, err := Apply(p, in)
	require.NoError(t, err)
	assert.Equal(t, first.Y1, applied.Y1)
}

func TestSignalTail(t *testing.T) {
	sig := FilteredSignal{Y1: []float64{1, 2, 3}, Y2: []float64{4, 5, 6}, Times: make([]time.Time, 3)}
	tail := sig.Tail(2)
	assert.Equal(t, []float64{2, 3}, tail.Y1)
	assert.Equal(t, []float64{5, 6}, tail.Y2)
	assert.Equal(t, 3, sig.Tail(10).Len())
}

func TestNewBankRejectsInvalidParams(t *testing.T) {
	p := defaultParams()
	p.BandpassHigh = 130
	_, err := NewBank(p)
	assert.Error(t, err)

	p = defaultParams()
	p.BaselineSamples = 0
	_, err = NewBank(p)
	assert.Error(t, err)
}
