// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import "math"

// Butterworth section quality factors. A 4th-order Butterworth response is two
// cascaded 2nd-order sections with these Q values.
var (
	butterworth2 = []float64{math.Sqrt2 / 2}
	butterworth4 = []float64{0.5411961, 1.3065630}
)

// Biquad is a second-order IIR section in transposed direct form II.
// Coefficients are normalized so a0 == 1.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

// Process filters one sample and advances the section state.
func (q *Biquad) Process(x float64) float64 {
	y := q.b0*x + q.z1
	q.z1 = q.b1*x - q.a1*y + q.z2
	q.z2 = q.b2*x - q.a2*y
	return y
}

// Reset clears the delay line, keeping the coefficients.
func (q *Biquad) Reset() {
	q.z1, q.z2 = 0, 0
}

func newBiquad(b0, b1, b2, a0, a1, a2 float64) *Biquad {
	return &Biquad{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// Lowpass, Highpass and Notch follow the RBJ audio EQ cookbook formulas.

func Lowpass(fs, f0, q float64) *Biquad {
	w0 := 2 * math.Pi * f0 / fs
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	return newBiquad((1-cos)/2, 1-cos, (1-cos)/2, 1+alpha, -2*cos, 1-alpha)
}

func Highpass(fs, f0, q float64) *Biquad {
	w0 := 2 * math.Pi * f0 / fs
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	return newBiquad((1+cos)/2, -(1 + cos), (1+cos)/2, 1+alpha, -2*cos, 1-alpha)
}

func Notch(fs, f0, q float64) *Biquad {
	w0 := 2 * math.Pi * f0 / fs
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	return newBiquad(1, -2*cos, 1, 1+alpha, -2*cos, 1-alpha)
}

// Cascade runs biquad sections in series.
type Cascade []*Biquad

func (c Cascade) Process(x float64) float64 {
	for _, q := range c {
		x = q.Process(x)
	}
	return x
}

func (c Cascade) Reset() {
	for _, q := range c {
		q.Reset()
	}
}

// Bandpass builds a Butterworth high-pass at low followed by a Butterworth
// low-pass at high, each of the given order (2 or 4).
func Bandpass(fs, low, high float64, order int) Cascade {
	qs := butterworth2
	if order >= 4 {
		qs = butterworth4
	}
	c := make(Cascade, 0, 2*len(qs))
	for _, q := range qs {
		c = append(c, Highpass(fs, low, q))
	}
	for _, q := range qs {
		c = append(c, Lowpass(fs, high, q))
	}
	return c
}

// LowpassCascade builds a Butterworth low-pass of the given order (2 or 4) at f0.
func LowpassCascade(fs, f0 float64, order int) Cascade {
	qs := butterworth2
	if order >= 4 {
		qs = butterworth4
	}
	c := make(Cascade, len(qs))
	for i, q := range qs {
		c[i] = Lowpass(fs, f0, q)
	}
	return c
}

// Bandstop builds a notch centred between low and high with bandwidth high-low,
// repeated sections times.
func Bandstop(fs, low, high float64, sections int) Cascade {
	center := (low + high) / 2
	q := center / (high - low)
	c := make(Cascade, sections)
	for i := range c {
		c[i] = Notch(fs, center, q)
	}
	return c
}
