// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package features reduces a filtered window to per-axis feature vectors and binary flags.
package features

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/relabs-tech/eog_controller/internal/filter"
	"github.com/relabs-tech/eog_controller/internal/wavelet"
)

// Vector holds the features of one axis over the analysis sub-window.
type Vector struct {
	MaxCoefficient   float64 `json:"max_coefficient"`   // largest scalogram cell
	AreaUnderCurve   float64 `json:"area_under_curve"`  // trapezoidal integral of |x|, uV*s
	Amplitude        float64 `json:"amplitude"`         // peak to peak, uV
	Velocity         float64 `json:"velocity"`          // peak |dx/dt|, uV/s
	Energy           float64 `json:"energy"`            // scalogram sum over the sub-window
	NormalizedEnergy float64 `json:"normalized_energy"` // Energy relative to the long window
	Peak             float64 `json:"peak"`              // signed sample of largest magnitude
}

// Flags are the thresholded features of one axis.
type Flags struct {
	MaxCoefficient bool `json:"max_coefficient"`
	AreaUnderCurve bool `json:"area_under_curve"`
	Amplitude      bool `json:"amplitude"`
	Velocity       bool `json:"velocity"`
}

func (f Flags) Count() int {
	n := 0
	for _, b := range []bool{f.MaxCoefficient, f.AreaUnderCurve, f.Amplitude, f.Velocity} {
		if b {
			n++
		}
	}
	return n
}

func (f Flags) All() bool { return f.Count() == 4 }

// Axis is one composite signal's features together with its flags.
type Axis struct {
	Vector
	Flags Flags `json:"flags"`
}

// Pair is the classifier input for one window.
type Pair struct {
	Y1  Axis      `json:"y1"`
	Y2  Axis      `json:"y2"`
	End time.Time `json:"end"`
}

// TotalEnergy is the combined sub-window energy of both axes.
func (p Pair) TotalEnergy() float64 { return p.Y1.Energy + p.Y2.Energy }

// Extractor computes features from the long window, restricted to the newest SubWindow samples.
type Extractor struct {
	SampleRate float64
	Scales     wavelet.Scales
	SubWindow  int
}

// Extract computes both axes and applies the thresholds.
func (e Extractor) Extract(sig filter.FilteredSignal, th Thresholds) (Pair, error) {
	v1, err := e.Axis(sig.Y1)
	if err != nil {
		return Pair{}, fmt.Errorf("y1: %w", err)
	}
	v2, err := e.Axis(sig.Y2)
	if err != nil {
		return Pair{}, fmt.Errorf("y2: %w", err)
	}
	return Pair{
		Y1:  Axis{Vector: v1, Flags: th.Horizontal.Flags(v1)},
		Y2:  Axis{Vector: v2, Flags: th.Vertical.Flags(v2)},
		End: sig.End(),
	}, nil
}

// Axis computes the feature vector of one composite signal. The scalogram is
// taken over all of x so the long-window energy is available for normalization.
func (e Extractor) Axis(x []float64) (Vector, error) {
	if e.SampleRate <= 0 {
		return Vector{}, fmt.Errorf("sample rate must be positive")
	}
	if e.SubWindow < 2 || len(x) < e.SubWindow {
		return Vector{}, fmt.Errorf("need at least %d samples, have %d", max(e.SubWindow, 2), len(x))
	}

	sc, err := wavelet.Compute(x, e.Scales)
	if err != nil {
		return Vector{}, err
	}
	sub := sc.Tail(e.SubWindow)
	w := x[len(x)-e.SubWindow:]

	v := Vector{
		MaxCoefficient: sub.Max(),
		AreaUnderCurve: area(w, e.SampleRate),
		Amplitude:      floats.Max(w) - floats.Min(w),
		Velocity:       velocity(w, e.SampleRate),
		Energy:         sub.Energy(),
		Peak:           peak(w),
	}
	if long := sc.Energy(); long > 0 {
		v.NormalizedEnergy = v.Energy / long
	}
	return v, nil
}

func area(w []float64, fs float64) float64 {
	ts := make([]float64, len(w))
	abs := make([]float64, len(w))
	for i, v := range w {
		ts[i] = float64(i) / fs
		abs[i] = math.Abs(v)
	}
	return integrate.Trapezoidal(ts, abs)
}

func velocity(w []float64, fs float64) float64 {
	d := make([]float64, len(w)-1)
	floats.SubTo(d, w[1:], w[:len(w)-1])
	m := 0.0
	for _, v := range d {
		m = math.Max(m, math.Abs(v))
	}
	return m * fs
}

func peak(w []float64) float64 {
	p := 0.0
	for _, v := range w {
		if math.Abs(v) > math.Abs(p) {
			p = v
		}
	}
	return p
}
