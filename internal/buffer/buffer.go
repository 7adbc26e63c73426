// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package buffer holds the recent raw sample history and the bounded ingest queue
// between acquisition and the processing loop.
package buffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// ErrInsufficientData is returned when fewer samples are stored than a window needs.
var ErrInsufficientData = errors.New("insufficient data")

// Buffer is a fixed-capacity ring of samples. Oldest samples are overwritten first.
// Every pushed sample receives a monotonically increasing sequence number starting at 1.
type Buffer struct {
	mu    sync.RWMutex
	data  []eog.Sample
	head  int // next write position
	count int
	seq   uint64
}

// New creates a buffer holding at most capacity samples.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{data: make([]eog.Sample, capacity)}
}

// Push appends samples, overwriting the oldest ones once full.
func (b *Buffer) Push(samples ...eog.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range samples {
		b.data[b.head] = s
		b.head = (b.head + 1) % len(b.data)
		if b.count < len(b.data) {
			b.count++
		}
		b.seq++
	}
}

// Len returns the number of stored samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Seq returns the sequence number of the newest sample, 0 when nothing was pushed.
func (b *Buffer) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Window returns a copy of the newest n samples, oldest first.
func (b *Buffer) Window(n int) ([]eog.Sample, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 {
		return nil, fmt.Errorf("window length %d: %w", n, ErrInsufficientData)
	}
	if n > b.count {
		return nil, fmt.Errorf("want %d samples, have %d: %w", n, b.count, ErrInsufficientData)
	}
	return b.tail(n), nil
}

// Reset drops every stored sample. Sequence numbers keep counting.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}

// tail copies the newest n samples. Caller holds the lock.
func (b *Buffer) tail(n int) []eog.Sample {
	out := make([]eog.Sample, n)
	start := (b.head - n + len(b.data)) % len(b.data)
	for i := 0; i < n; i++ {
		out[i] = b.data[(start+i)%len(b.data)]
	}
	return out
}
