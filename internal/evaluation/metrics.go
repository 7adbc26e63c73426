// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package evaluation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Ratio is a percentage that may be undefined when its denominator is zero.
type Ratio struct {
	Value   float64
	Defined bool
}

// Undefined is the result of a division by zero.
var Undefined = Ratio{}

func percent(num, den uint64) Ratio {
	if den == 0 {
		return Undefined
	}
	return Ratio{Value: float64(num) * 100 / float64(den), Defined: true}
}

func (r Ratio) String() string {
	if !r.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// MarshalJSON encodes a defined ratio as a number and an undefined one as the string "undefined".
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte(`"undefined"`), nil
	}
	return json.Marshal(r.Value)
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == `"undefined"` || string(b) == "null" {
		*r = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Ratio{Value: v, Defined: true}
	return nil
}

// Counts are the one-vs-rest outcomes of a single class.
type Counts struct {
	TP uint64 `json:"tp"`
	FP uint64 `json:"fp"`
	TN uint64 `json:"tn"`
	FN uint64 `json:"fn"`
}

// Precision is TP/(TP+FP) x 100.
func (c Counts) Precision() Ratio { return percent(c.TP, c.TP+c.FP) }

// Sensitivity is TP/(TP+FN) x 100.
func (c Counts) Sensitivity() Ratio { return percent(c.TP, c.TP+c.FN) }

// Specificity is TN/(TN+FP) x 100.
func (c Counts) Specificity() Ratio { return percent(c.TN, c.TN+c.FP) }

func (c Counts) add(o Counts) Counts {
	return Counts{TP: c.TP + o.TP, FP: c.FP + o.FP, TN: c.TN + o.TN, FN: c.FN + o.FN}
}

// Matrix is a confusion accumulator indexed [predicted][true]. It is safe for
// concurrent use; counts only grow until Reset.
type Matrix struct {
	mu     sync.RWMutex
	labels []string
	index  map[string]int
	counts [][]uint64
	total  uint64
}

func NewMatrix(labels []string) *Matrix {
	m := &Matrix{
		labels: append([]string(nil), labels...),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		m.index[l] = i
	}
	m.counts = newGrid(len(labels))
	return m
}

func newGrid(n int) [][]uint64 {
	g := make([][]uint64, n)
	for i := range g {
		g[i] = make([]uint64, n)
	}
	return g
}

func (m *Matrix) Labels() []string { return append([]string(nil), m.labels...) }

// Add records one aligned (predicted, true) pair.
func (m *Matrix) Add(predicted, truth string) error {
	p, ok := m.index[predicted]
	if !ok {
		return fmt.Errorf("unknown predicted label %q", predicted)
	}
	t, ok := m.index[truth]
	if !ok {
		return fmt.Errorf("unknown true label %q", truth)
	}
	m.mu.Lock()
	m.counts[p][t]++
	m.total++
	m.mu.Unlock()
	return nil
}

func (m *Matrix) Total() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// Counts derives the one-vs-rest outcomes for label.
func (m *Matrix) Counts(label string) Counts {
	i, ok := m.index[label]
	if !ok {
		return Counts{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var c Counts
	c.TP = m.counts[i][i]
	for j := range m.labels {
		if j == i {
			continue
		}
		c.FP += m.counts[i][j]
		c.FN += m.counts[j][i]
	}
	c.TN = m.total - c.TP - c.FP - c.FN
	return c
}

// Snapshot copies the grid.
func (m *Matrix) Snapshot() [][]uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g := newGrid(len(m.labels))
	for i := range g {
		copy(g[i], m.counts[i])
	}
	return g
}

func (m *Matrix) Reset() {
	m.mu.Lock()
	m.counts = newGrid(len(m.labels))
	m.total = 0
	m.mu.Unlock()
}
