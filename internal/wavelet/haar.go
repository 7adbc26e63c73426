// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package wavelet computes a Haar continuous wavelet transform over a fixed set
// of integer scales. All functions are pure.
package wavelet

import (
	"fmt"
	"math"
)

// Scales is an inclusive range of integer dilations, in samples.
type Scales struct {
	Min int
	Max int
}

// DefaultScales matches a 1 s analysis window at 244 Hz.
var DefaultScales = Scales{Min: 1, Max: 31}

func (s Scales) Validate() error {
	if s.Min < 1 || s.Max < s.Min {
		return fmt.Errorf("invalid wavelet scale range %d..%d", s.Min, s.Max)
	}
	return nil
}

func (s Scales) Count() int { return s.Max - s.Min + 1 }

// Scalogram holds squared coefficients indexed [scale][time].
// Row i corresponds to scale Scales.Min+i.
type Scalogram struct {
	Scales Scales
	Cells  [][]float64
}

// Transform returns the Haar coefficients C(s, t) for every scale and offset.
//
// C(s, t) = (sum x[t .. t+s-1] - sum x[t-s .. t-1]) / sqrt(2s)
//
// so a rising edge at t gives a positive coefficient. Samples outside the
// signal repeat the nearest edge value.
func Transform(x []float64, scales Scales) ([][]float64, error) {
	if err := scales.Validate(); err != nil {
		return nil, err
	}
	n := len(x)
	out := make([][]float64, scales.Count())
	if n == 0 {
		for i := range out {
			out[i] = []float64{}
		}
		return out, nil
	}

	prefix := make([]float64, n+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v
	}
	// sum of x over [lo, hi) with edge replication outside [0, n)
	sum := func(lo, hi int) float64 {
		total := 0.0
		if lo < 0 {
			k := min(hi, 0) - lo
			total += float64(k) * x[0]
			lo = 0
		}
		if hi > n {
			k := hi - max(lo, n)
			total += float64(k) * x[n-1]
			hi = n
		}
		if hi > lo {
			total += prefix[hi] - prefix[lo]
		}
		return total
	}

	for i := range out {
		s := scales.Min + i
		norm := 1 / math.Sqrt(float64(2*s))
		row := make([]float64, n)
		for t := 0; t < n; t++ {
			row[t] = (sum(t, t+s) - sum(t-s, t)) * norm
		}
		out[i] = row
	}
	return out, nil
}

// Compute returns the scalogram, the element-wise square of Transform.
func Compute(x []float64, scales Scales) (Scalogram, error) {
	coeffs, err := Transform(x, scales)
	if err != nil {
		return Scalogram{}, err
	}
	for _, row := range coeffs {
		for t, c := range row {
			row[t] = c * c
		}
	}
	return Scalogram{Scales: scales, Cells: coeffs}, nil
}

// Width is the number of time offsets.
func (s Scalogram) Width() int {
	if len(s.Cells) == 0 {
		return 0
	}
	return len(s.Cells[0])
}

// Energy is the sum of all cells.
func (s Scalogram) Energy() float64 {
	e := 0.0
	for _, row := range s.Cells {
		for _, v := range row {
			e += v
		}
	}
	return e
}

// Max is the largest cell, 0 for an empty scalogram.
func (s Scalogram) Max() float64 {
	m := 0.0
	for _, row := range s.Cells {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// Tail restricts the scalogram to its last n time offsets. Rows share storage.
func (s Scalogram) Tail(n int) Scalogram {
	w := s.Width()
	if n >= w {
		return s
	}
	cells := make([][]float64, len(s.Cells))
	for i, row := range s.Cells {
		cells[i] = row[w-n:]
	}
	return Scalogram{Scales: s.Scales, Cells: cells}
}
