// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package classifier maps a feature pair to a movement class through an
// ordered list of guarded rules. The first rule that fires wins.
package classifier

import (
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/features"
)

// Rule is one guarded step of the decision procedure.
type Rule struct {
	Name   string
	Decide func(p features.Pair, th features.Thresholds) (eog.MovementClass, bool)
}

// Decision records which rule produced the class.
type Decision struct {
	Class eog.MovementClass `json:"class"`
	Rule  string            `json:"rule"`
}

// Rules is the fixed evaluation order.
var Rules = []Rule{
	{Name: "blink", Decide: blinkRule},
	{Name: "low-activity", Decide: lowActivityRule},
	{Name: "horizontal", Decide: horizontalRule},
	{Name: "vertical", Decide: verticalRule},
	{Name: "fallback", Decide: func(features.Pair, features.Thresholds) (eog.MovementClass, bool) {
		return eog.Center, true
	}},
}

// Classify runs the rules and returns the class.
func Classify(p features.Pair, th features.Thresholds) eog.MovementClass {
	return Explain(p, th).Class
}

// Explain runs the rules and also reports the deciding rule.
func Explain(p features.Pair, th features.Thresholds) Decision {
	for _, r := range Rules {
		if c, ok := r.Decide(p, th); ok {
			return Decision{Class: c, Rule: r.Name}
		}
	}
	return Decision{Class: eog.Center, Rule: "fallback"}
}

// Both axes fully activated at once, or a common-mode spike: a blink that is
// equal on both electrodes cancels on Y1 and only shows as a large Y2 swing.
func blinkRule(p features.Pair, th features.Thresholds) (eog.MovementClass, bool) {
	if !p.Y2.Flags.All() {
		return "", false
	}
	if p.Y1.Flags.All() || p.Y2.Amplitude > th.BlinkAmplitude {
		return eog.Blink, true
	}
	return "", false
}

func lowActivityRule(p features.Pair, th features.Thresholds) (eog.MovementClass, bool) {
	if p.TotalEnergy() < th.LowActivityEnergy {
		return eog.Center, true
	}
	return "", false
}

// horizontalDominates compares flag counts; equal counts go to the axis with
// the larger area under curve, and a full tie to the horizontal axis.
func horizontalDominates(p features.Pair) bool {
	h, v := p.Y1.Flags.Count(), p.Y2.Flags.Count()
	if h != v {
		return h > v
	}
	return p.Y1.AreaUnderCurve >= p.Y2.AreaUnderCurve
}

func horizontalRule(p features.Pair, th features.Thresholds) (eog.MovementClass, bool) {
	if !horizontalDominates(p) || p.Y1.Flags.Count() < th.MinActiveFlags {
		return "", false
	}
	switch {
	case p.Y1.Peak > 0:
		return eog.Right, true
	case p.Y1.Peak < 0:
		return eog.Left, true
	}
	return "", false
}

func verticalRule(p features.Pair, th features.Thresholds) (eog.MovementClass, bool) {
	if horizontalDominates(p) || p.Y2.Flags.Count() < th.MinActiveFlags || !p.Y2.Flags.Velocity {
		return "", false
	}
	switch {
	case p.Y2.Peak > 0:
		return eog.Up, true
	case p.Y2.Peak < 0:
		return eog.Down, true
	}
	return "", false
}
