// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eog_controller/internal/filter"
	"github.com/relabs-tech/eog_controller/internal/wavelet"
)

var extractor = Extractor{SampleRate: 244, Scales: wavelet.DefaultScales, SubWindow: 49}

func step(level float64, n, last int) []float64 {
	x := make([]float64, n)
	for i := n - last; i < n; i++ {
		x[i] = level
	}
	return x
}

func TestZeroSignal(t *testing.T) {
	v, err := extractor.Axis(make([]float64, 244))
	require.NoError(t, err)
	assert.Equal(t, Vector{}, v)
	assert.Zero(t, DefaultThresholds().Horizontal.Flags(v).Count())
}

func TestStepFeatures(t *testing.T) {
	v, err := extractor.Axis(step(150, 244, 30))
	require.NoError(t, err)

	assert.Equal(t, 150.0, v.Amplitude)
	assert.Equal(t, 150.0, v.Peak)
	assert.InDelta(t, 150*244, v.Velocity, 1e-6)
	// 29 full intervals at 150 plus the half interval of the rising edge
	assert.InDelta(t, 150*29.5/244, v.AreaUnderCurve, 1e-9)
	assert.Greater(t, v.MaxCoefficient, 1e5)
	assert.Greater(t, v.NormalizedEnergy, 0.0)
	assert.LessOrEqual(t, v.NormalizedEnergy, 1.0)

	flags := DefaultThresholds().Horizontal.Flags(v)
	assert.True(t, flags.All())
}

func TestNegativeStepPeak(t *testing.T) {
	v, err := extractor.Axis(step(-150, 244, 30))
	require.NoError(t, err)
	assert.Equal(t, -150.0, v.Peak)
	assert.Equal(t, 150.0, v.Amplitude)
}

func TestExtractPair(t *testing.T) {
	sig := filter.FilteredSignal{Y1: step(150, 244, 30), Y2: make([]float64, 244)}
	p, err := extractor.Extract(sig, DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, 4, p.Y1.Flags.Count())
	assert.Equal(t, 0, p.Y2.Flags.Count())
	assert.Equal(t, p.Y1.Energy, p.TotalEnergy())
}

func TestShortSignal(t *testing.T) {
	_, err := extractor.Axis(make([]float64, 10))
	assert.Error(t, err)
}

func TestThresholdFlagsAreStrict(t *testing.T) {
	th := AxisThresholds{MaxCoefficient: 1, AreaUnderCurve: 1, Amplitude: 1, Velocity: 1}
	f := th.Flags(Vector{MaxCoefficient: 1, AreaUnderCurve: 2, Amplitude: 1, Velocity: 3})
	assert.Equal(t, Flags{AreaUnderCurve: true, Velocity: true}, f)
	assert.Equal(t, 2, f.Count())
	assert.False(t, f.All())
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	th := DefaultThresholds()
	th.Vertical.Velocity = -1
	assert.Error(t, th.Validate())

	th = DefaultThresholds()
	th.MinActiveFlags = 5
	assert.Error(t, th.Validate())

	th = DefaultThresholds()
	th.BlinkAmplitude = -1
	assert.Error(t, th.Validate())
}
