// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration derives feature thresholds from a rest recording.
package calibration

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/eog_controller/internal/buffer"
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/features"
	"github.com/relabs-tech/eog_controller/internal/filter"
)

// Params fixes everything Recalibrate depends on besides the recording.
type Params struct {
	Filter     filter.Params
	Extractor  features.Extractor
	LongWindow int     // samples per analysis window, as in live classification
	Step       int     // hop between analysed windows; 0 means one sub-window
	Sigma      float64 // threshold = mean + Sigma * stddev
}

// FeatureStats is the spread of one feature over the analysed windows.
type FeatureStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// AxisStats describes the rest activity of one composite axis.
type AxisStats struct {
	MaxCoefficient FeatureStats `json:"max_coefficient"`
	AreaUnderCurve FeatureStats `json:"area_under_curve"`
	Amplitude      FeatureStats `json:"amplitude"`
	Velocity       FeatureStats `json:"velocity"`
}

// Result is the saved outcome of one recalibration.
type Result struct {
	Version    int                 `json:"version"`
	Timestamp  time.Time           `json:"timestamp"`
	Samples    int                 `json:"samples"`
	Windows    int                 `json:"windows"`
	Sigma      float64             `json:"sigma"`
	Horizontal AxisStats           `json:"horizontal"`
	Vertical   AxisStats           `json:"vertical"`
	Energy     FeatureStats        `json:"energy"`
	Thresholds features.Thresholds `json:"thresholds"`
}

// Recalibrate analyses reference with a fresh filter bank, so it never
// depends on live state: the same recording always yields the same thresholds.
// Each threshold becomes mean + Sigma*stddev of the rest value, never lower
// than the corresponding value in base.
func Recalibrate(reference []eog.Sample, base features.Thresholds, p Params) (Result, error) {
	if p.LongWindow < p.Extractor.SubWindow || p.Extractor.SubWindow < 2 {
		return Result{}, fmt.Errorf("invalid calibration windows %d/%d", p.LongWindow, p.Extractor.SubWindow)
	}
	if len(reference) < p.LongWindow {
		return Result{}, fmt.Errorf("calibration needs %d samples, have %d: %w", p.LongWindow, len(reference), buffer.ErrInsufficientData)
	}
	step := p.Step
	if step <= 0 {
		step = p.Extractor.SubWindow
	}

	sig, err := filter.Apply(p.Filter, reference)
	if err != nil {
		return Result{}, fmt.Errorf("filter reference: %w", err)
	}

	var h, v [4][]float64
	var energy []float64
	for end := p.LongWindow; end <= sig.Len(); end += step {
		y1, err := p.Extractor.Axis(sig.Y1[end-p.LongWindow : end])
		if err != nil {
			return Result{}, err
		}
		y2, err := p.Extractor.Axis(sig.Y2[end-p.LongWindow : end])
		if err != nil {
			return Result{}, err
		}
		collect(&h, y1)
		collect(&v, y2)
		energy = append(energy, y1.Energy+y2.Energy)
	}

	res := Result{
		Version:    1,
		Timestamp:  lastTime(reference),
		Samples:    len(reference),
		Windows:    len(energy),
		Sigma:      p.Sigma,
		Horizontal: axisStats(h),
		Vertical:   axisStats(v),
		Energy:     spread(energy),
	}
	res.Thresholds = features.Thresholds{
		Horizontal:        thresholds(res.Horizontal, base.Horizontal, p.Sigma),
		Vertical:          thresholds(res.Vertical, base.Vertical, p.Sigma),
		LowActivityEnergy: limit(res.Energy, base.LowActivityEnergy, p.Sigma),
		MinActiveFlags:    base.MinActiveFlags,
	}
	res.Thresholds.BlinkAmplitude = math.Max(base.BlinkAmplitude, res.Thresholds.Vertical.Amplitude)
	return res, nil
}

func collect(dst *[4][]float64, v features.Vector) {
	dst[0] = append(dst[0], v.MaxCoefficient)
	dst[1] = append(dst[1], v.AreaUnderCurve)
	dst[2] = append(dst[2], v.Amplitude)
	dst[3] = append(dst[3], v.Velocity)
}

func spread(xs []float64) FeatureStats {
	if len(xs) == 0 {
		return FeatureStats{}
	}
	if len(xs) == 1 {
		return FeatureStats{Mean: xs[0]}
	}
	m, s := stat.MeanStdDev(xs, nil)
	return FeatureStats{Mean: m, StdDev: s}
}

func axisStats(f [4][]float64) AxisStats {
	return AxisStats{
		MaxCoefficient: spread(f[0]),
		AreaUnderCurve: spread(f[1]),
		Amplitude:      spread(f[2]),
		Velocity:       spread(f[3]),
	}
}

func limit(s FeatureStats, floor, sigma float64) float64 {
	return math.Max(floor, s.Mean+sigma*s.StdDev)
}

func thresholds(s AxisStats, base features.AxisThresholds, sigma float64) features.AxisThresholds {
	return features.AxisThresholds{
		MaxCoefficient: limit(s.MaxCoefficient, base.MaxCoefficient, sigma),
		AreaUnderCurve: limit(s.AreaUnderCurve, base.AreaUnderCurve, sigma),
		Amplitude:      limit(s.Amplitude, base.Amplitude, sigma),
		Velocity:       limit(s.Velocity, base.Velocity, sigma),
	}
}

func lastTime(samples []eog.Sample) time.Time {
	if len(samples) == 0 {
		return time.Time{}
	}
	return samples[len(samples)-1].Time
}
