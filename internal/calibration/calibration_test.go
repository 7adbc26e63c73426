// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eog_controller/internal/buffer"
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/features"
	"github.com/relabs-tech/eog_controller/internal/filter"
	"github.com/relabs-tech/eog_controller/internal/wavelet"
)

func params() Params {
	return Params{
		Filter: filter.Params{
			SampleRate: 244, BandpassLow: 0.5, BandpassHigh: 100,
			NotchLow: 48, NotchHigh: 52, EOGLow: 0.5, EOGHigh: 15,
			BaselineSamples: 244,
		},
		Extractor:  features.Extractor{SampleRate: 244, Scales: wavelet.DefaultScales, SubWindow: 49},
		LongWindow: 244,
		Sigma:      3,
	}
}

func noisy(n int, sigma float64, seed int64) []eog.Sample {
	rng := rand.New(rand.NewSource(seed))
	start := time.Unix(1700000000, 0)
	out := make([]eog.Sample, n)
	for i := range out {
		out[i] = eog.Sample{
			Time: start.Add(time.Duration(i) * time.Second / 244),
			A:    rng.NormFloat64() * sigma,
			B:    rng.NormFloat64() * sigma,
		}
	}
	return out
}

func TestRecalibrateIsIdempotent(t *testing.T) {
	ref := noisy(1220, 40, 1)
	a, err := Recalibrate(ref, features.DefaultThresholds(), params())
	require.NoError(t, err)
	b, err := Recalibrate(ref, features.DefaultThresholds(), params())
	require.NoError(t, err)
	assert.Equal(t, a.Thresholds, b.Thresholds)
	assert.Equal(t, 20, a.Windows)
}

func TestThresholdsNeverDropBelowBase(t *testing.T) {
	quiet := noisy(1220, 0.01, 2)
	base := features.DefaultThresholds()
	r, err := Recalibrate(quiet, base, params())
	require.NoError(t, err)
	assert.Equal(t, base, r.Thresholds)
}

func TestNoisyRestRaisesThresholds(t *testing.T) {
	loud := noisy(1220, 200, 3)
	base := features.DefaultThresholds()
	r, err := Recalibrate(loud, base, params())
	require.NoError(t, err)
	assert.Greater(t, r.Thresholds.Horizontal.Amplitude, base.Horizontal.Amplitude)
	assert.Greater(t, r.Thresholds.Vertical.Amplitude, base.Vertical.Amplitude)
	assert.Greater(t, r.Horizontal.Amplitude.StdDev, 0.0)
	assert.GreaterOrEqual(t, r.Thresholds.BlinkAmplitude, r.Thresholds.Vertical.Amplitude)
	assert.GreaterOrEqual(t, r.Thresholds.BlinkAmplitude, base.BlinkAmplitude)
	require.NoError(t, r.Thresholds.Validate())
}

func TestShortReference(t *testing.T) {
	_, err := Recalibrate(noisy(100, 1, 4), features.DefaultThresholds(), params())
	assert.ErrorIs(t, err, buffer.ErrInsufficientData)
}

func TestSaveAndLoadLatest(t *testing.T) {
	dir := t.TempDir()
	_, _, err := LoadLatest(dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	r, err := Recalibrate(noisy(1220, 40, 5), features.DefaultThresholds(), params())
	require.NoError(t, err)
	first, err := Save(dir, r)
	require.NoError(t, err)

	r.Timestamp = r.Timestamp.Add(time.Minute)
	r.Thresholds.Horizontal.Amplitude = 123
	second, err := Save(dir, r)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, path, err := LoadLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, second, path)
	assert.Equal(t, 123.0, got.Thresholds.Horizontal.Amplitude)
}
