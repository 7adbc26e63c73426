// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Queue is the bounded hand-off from producers to the processing loop.
// Offer never blocks: when the queue is full the oldest pending sample is dropped.
type Queue struct {
	ch      chan eog.Sample
	mu      sync.Mutex // serializes the drop-then-send sequence of concurrent producers
	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan eog.Sample, size)}
}

// Offer enqueues s, evicting the oldest pending sample if needed.
func (q *Queue) Offer(s eog.Sample) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case q.ch <- s:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// C is the receive side consumed by the processing loop.
func (q *Queue) C() <-chan eog.Sample { return q.ch }

// Drain moves every pending sample into dst without blocking.
func (q *Queue) Drain(dst []eog.Sample) []eog.Sample {
	for {
		select {
		case s := <-q.ch:
			dst = append(dst, s)
		default:
			return dst
		}
	}
}

func (q *Queue) Len() int { return len(q.ch) }

// Dropped reports how many samples were evicted because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
