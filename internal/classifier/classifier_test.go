// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/features"
	"github.com/relabs-tech/eog_controller/internal/filter"
	"github.com/relabs-tech/eog_controller/internal/wavelet"
)

var extractor = features.Extractor{SampleRate: 244, Scales: wavelet.DefaultScales, SubWindow: 49}

func step(level float64, last int) []float64 {
	x := make([]float64, 244)
	for i := len(x) - last; i < len(x); i++ {
		x[i] = level
	}
	return x
}

func classify(t *testing.T, y1, y2 []float64) Decision {
	t.Helper()
	p, err := extractor.Extract(filter.FilteredSignal{Y1: y1, Y2: y2}, features.DefaultThresholds())
	require.NoError(t, err)
	return Explain(p, features.DefaultThresholds())
}

func TestZeroInputIsCenter(t *testing.T) {
	d := classify(t, make([]float64, 244), make([]float64, 244))
	assert.Equal(t, eog.Center, d.Class)
	assert.Equal(t, "low-activity", d.Rule)
}

func TestHorizontalPolarity(t *testing.T) {
	zero := make([]float64, 244)
	assert.Equal(t, eog.Right, classify(t, step(150, 30), zero).Class)
	assert.Equal(t, eog.Left, classify(t, step(-150, 30), zero).Class)
}

func TestVerticalPolarity(t *testing.T) {
	zero := make([]float64, 244)
	assert.Equal(t, eog.Up, classify(t, zero, step(150, 30)).Class)
	assert.Equal(t, eog.Down, classify(t, zero, step(-150, 30)).Class)
}

func TestBlinkNeedsBothAxes(t *testing.T) {
	pulse := make([]float64, 244)
	for i := 0; i < 49; i++ {
		pulse[195+i] = 400 * (0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/48))
	}
	d := classify(t, pulse, pulse)
	assert.Equal(t, eog.Blink, d.Class)
	assert.Equal(t, "blink", d.Rule)
}

func TestCommonModeBlinkWithoutHorizontal(t *testing.T) {
	pulse := make([]float64, 244)
	for i := 0; i < 49; i++ {
		pulse[195+i] = 800 * (0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/48))
	}
	d := classify(t, make([]float64, 244), pulse)
	assert.Equal(t, eog.Blink, d.Class)
	assert.Equal(t, "blink", d.Rule)

	// a vertical saccade stays below the blink swing
	assert.Equal(t, eog.Up, classify(t, make([]float64, 244), step(250, 30)).Class)
}

func axis(flags features.Flags, auc, peak, energy float64) features.Axis {
	return features.Axis{
		Vector: features.Vector{AreaUnderCurve: auc, Peak: peak, Energy: energy, Amplitude: math.Abs(peak)},
		Flags:  flags,
	}
}

var (
	two   = features.Flags{Amplitude: true, AreaUnderCurve: true}
	three = features.Flags{Amplitude: true, AreaUnderCurve: true, MaxCoefficient: true}
	all   = features.Flags{Amplitude: true, AreaUnderCurve: true, MaxCoefficient: true, Velocity: true}
)

func TestRuleOrder(t *testing.T) {
	th := features.DefaultThresholds()
	tests := []struct {
		name string
		pair features.Pair
		want eog.MovementClass
	}{
		{"blink wins over energy gate", features.Pair{Y1: axis(all, 1, 1, 0), Y2: axis(all, 1, 1, 0)}, eog.Blink},
		{"large vertical swing alone is a blink", features.Pair{Y1: axis(features.Flags{}, 0, 0, 0), Y2: axis(all, 40, 500, 1e8)}, eog.Blink},
		{"vertical swing at the blink limit is up", features.Pair{Y1: axis(features.Flags{}, 0, 0, 0), Y2: axis(all, 40, 300, 1e8)}, eog.Up},
		{"large swing without all flags is not a blink", features.Pair{Y1: axis(features.Flags{}, 0, 0, 0), Y2: axis(three, 40, 500, 1e8)}, eog.Center},
		{"low energy is center even with flags", features.Pair{Y1: axis(three, 10, 5, 10), Y2: axis(features.Flags{}, 0, 0, 10)}, eog.Center},
		{"horizontal by flag count", features.Pair{Y1: axis(three, 1, -5, 1e6), Y2: axis(two, 50, 5, 1e6)}, eog.Left},
		{"tie broken by area", features.Pair{Y1: axis(two, 10, 5, 1e6), Y2: axis(features.Flags{Amplitude: true, Velocity: true}, 20, 5, 1e6)}, eog.Up},
		{"tie broken by area toward horizontal", features.Pair{Y1: axis(two, 30, 5, 1e6), Y2: axis(features.Flags{Amplitude: true, Velocity: true}, 20, 5, 1e6)}, eog.Right},
		{"vertical needs velocity", features.Pair{Y1: axis(features.Flags{}, 0, 0, 1e6), Y2: axis(three, 20, 5, 1e6)}, eog.Center},
		{"dominant axis below minimum", features.Pair{Y1: axis(features.Flags{Amplitude: true}, 5, 5, 1e6), Y2: axis(features.Flags{}, 0, 0, 1e6)}, eog.Center},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.pair, th))
		})
	}
}
