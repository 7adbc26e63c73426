// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

import (
	"fmt"
	"math"
)

// AxisThresholds are the per-feature limits of one composite axis.
// A feature raises its flag when it is strictly above the limit.
type AxisThresholds struct {
	MaxCoefficient float64 `json:"max_coefficient"`
	AreaUnderCurve float64 `json:"area_under_curve"`
	Amplitude      float64 `json:"amplitude"`
	Velocity       float64 `json:"velocity"`
}

// Thresholds is the full tunable set consumed by extraction and classification.
type Thresholds struct {
	Horizontal        AxisThresholds `json:"horizontal"`
	Vertical          AxisThresholds `json:"vertical"`
	LowActivityEnergy float64        `json:"low_activity_energy"`
	// BlinkAmplitude is the Y2 peak-to-peak swing above which a fully
	// flagged vertical axis counts as a blink on its own.
	BlinkAmplitude float64 `json:"blink_amplitude"`
	MinActiveFlags int     `json:"min_active_flags"`
}

// DefaultThresholds are the uncalibrated research values, in microvolt units.
func DefaultThresholds() Thresholds {
	axis := AxisThresholds{MaxCoefficient: 1e4, AreaUnderCurve: 5, Amplitude: 50, Velocity: 1000}
	return Thresholds{
		Horizontal:        axis,
		Vertical:          axis,
		LowActivityEnergy: 1e5,
		BlinkAmplitude:    300,
		MinActiveFlags:    2,
	}
}

func (a AxisThresholds) validate(name string) error {
	for _, v := range []float64{a.MaxCoefficient, a.AreaUnderCurve, a.Amplitude, a.Velocity} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s thresholds must be finite and non-negative: %+v", name, a)
		}
	}
	return nil
}

func (t Thresholds) Validate() error {
	if err := t.Horizontal.validate("horizontal"); err != nil {
		return err
	}
	if err := t.Vertical.validate("vertical"); err != nil {
		return err
	}
	if t.LowActivityEnergy < 0 || math.IsNaN(t.LowActivityEnergy) {
		return fmt.Errorf("low activity energy must be non-negative, got %v", t.LowActivityEnergy)
	}
	if t.BlinkAmplitude < 0 || math.IsNaN(t.BlinkAmplitude) || math.IsInf(t.BlinkAmplitude, 0) {
		return fmt.Errorf("blink amplitude must be finite and non-negative, got %v", t.BlinkAmplitude)
	}
	if t.MinActiveFlags < 1 || t.MinActiveFlags > 4 {
		return fmt.Errorf("min active flags must be 1..4, got %d", t.MinActiveFlags)
	}
	return nil
}

// Flags compares v against the limits.
func (a AxisThresholds) Flags(v Vector) Flags {
	return Flags{
		MaxCoefficient: v.MaxCoefficient > a.MaxCoefficient,
		AreaUnderCurve: v.AreaUnderCurve > a.AreaUnderCurve,
		Amplitude:      v.Amplitude > a.Amplitude,
		Velocity:       v.Velocity > a.Velocity,
	}
}
