// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

func sample(i int) eog.Sample {
	return eog.Sample{Time: time.Unix(0, 0).Add(time.Duration(i) * time.Millisecond), A: float64(i), B: -float64(i)}
}

func TestWindowBeforeFull(t *testing.T) {
	b := New(5)
	_, err := b.Window(1)
	assert.ErrorIs(t, err, ErrInsufficientData)

	b.Push(sample(1), sample(2), sample(3))
	_, err = b.Window(4)
	assert.ErrorIs(t, err, ErrInsufficientData)

	w, err := b.Window(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, []float64{w[0].A, w[1].A})
}

func TestWrapKeepsNewest(t *testing.T) {
	b := New(4)
	for i := 1; i <= 10; i++ {
		b.Push(sample(i))
	}
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, uint64(10), b.Seq())

	w, err := b.Window(4)
	require.NoError(t, err)
	for i, s := range w {
		assert.Equal(t, float64(7+i), s.A)
	}
}

func TestWindowIsCopy(t *testing.T) {
	b := New(3)
	b.Push(sample(1), sample(2))
	w, err := b.Window(2)
	require.NoError(t, err)
	w[0].A = 99
	w2, _ := b.Window(2)
	assert.Equal(t, 1.0, w2[0].A)
}

func TestReset(t *testing.T) {
	b := New(4)
	b.Push(sample(1), sample(2))
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(2), b.Seq())
}

func TestQueueDropsOldest(t *testing.T) {
	q := NewQueue(3)
	for i := 1; i <= 5; i++ {
		q.Offer(sample(i))
	}
	assert.Equal(t, uint64(2), q.Dropped())
	got := q.Drain(nil)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{3, 4, 5}, []float64{got[0].A, got[1].A, got[2].A})
	assert.Equal(t, 0, q.Len())
}
