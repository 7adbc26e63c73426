// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

var t0 = time.Unix(1700000000, 0)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func newDebouncer(policy Policy) *Debouncer {
	return New(Config{Interval: time.Second, HistorySize: 3, Policy: policy, SendStops: true})
}

func TestBurstEmitsOnce(t *testing.T) {
	d := newDebouncer(PolicyBreak)
	emitted := 0
	for i := 0; i < 9; i++ {
		if _, ok := d.Offer(eog.Left, at(i*100), uint64(i)); ok {
			emitted++
		}
	}
	assert.Equal(t, 1, emitted)
}

func TestIntervalBoundary(t *testing.T) {
	d := newDebouncer(PolicyBreak)
	_, ok := d.Offer(eog.Left, at(0), 1)
	require.True(t, ok)
	_, ok = d.Offer(eog.Left, at(999), 2)
	assert.False(t, ok)
	ev, ok := d.Offer(eog.Left, at(1000), 3)
	require.True(t, ok)
	assert.Equal(t, uint64(3), ev.WindowID)
	assert.Equal(t, at(1000), ev.Time)
}

func TestModifiers(t *testing.T) {
	d := newDebouncer(PolicyBreak)

	ev, ok := d.Offer(eog.Left, at(0), 1)
	require.True(t, ok)
	assert.Equal(t, eog.NoModifier, ev.Modifier)

	ev, ok = d.Offer(eog.Left, at(1000), 2)
	require.True(t, ok)
	assert.Equal(t, eog.Boost, ev.Modifier)

	ev, ok = d.Offer(eog.Right, at(2000), 3)
	require.True(t, ok)
	assert.Equal(t, eog.Reduce, ev.Modifier)

	assert.Equal(t, []eog.MovementClass{eog.Left, eog.Left, eog.Right}, d.History())

	ev, ok = d.Offer(eog.Right, at(3000), 4)
	require.True(t, ok)
	assert.Equal(t, eog.Boost, ev.Modifier)
	assert.Len(t, d.History(), 3)
}

func TestNonMovementBreaksStreak(t *testing.T) {
	d := newDebouncer(PolicyBreak)
	d.Offer(eog.Left, at(0), 1)

	ev, ok := d.Offer(eog.Blink, at(1000), 2)
	require.True(t, ok)
	assert.Equal(t, eog.Blink, ev.Class)
	assert.Equal(t, eog.NoModifier, ev.Modifier)
	assert.Empty(t, d.History())

	ev, ok = d.Offer(eog.Left, at(2000), 3)
	require.True(t, ok)
	assert.Equal(t, eog.NoModifier, ev.Modifier)
}

func TestIgnorePolicyKeepsStreak(t *testing.T) {
	d := newDebouncer(PolicyIgnore)
	d.Offer(eog.Left, at(0), 1)
	d.Offer(eog.Center, at(1000), 2)

	ev, ok := d.Offer(eog.Left, at(2000), 3)
	require.True(t, ok)
	assert.Equal(t, eog.Boost, ev.Modifier)
}

func TestNonMovementResetsTimer(t *testing.T) {
	d := New(Config{Interval: time.Second, HistorySize: 3, Policy: PolicyBreak})
	d.Offer(eog.Left, at(0), 1)

	_, ok := d.Offer(eog.Up, at(1000), 2)
	assert.False(t, ok, "stops are not sent when disabled")

	_, ok = d.Offer(eog.Right, at(1500), 3)
	assert.False(t, ok, "timer restarted by the suppressed stop")

	_, ok = d.Offer(eog.Right, at(2000), 4)
	assert.True(t, ok)
}

func TestHeldEventsLeaveHistoryAlone(t *testing.T) {
	d := newDebouncer(PolicyBreak)
	d.Offer(eog.Left, at(0), 1)
	d.Offer(eog.Center, at(300), 2)
	d.Offer(eog.Right, at(600), 3)
	assert.Equal(t, []eog.MovementClass{eog.Left}, d.History())
}

func TestHeldStopDoesNotBreakStreak(t *testing.T) {
	d := newDebouncer(PolicyBreak)
	d.Offer(eog.Left, at(0), 1)
	_, ok := d.Offer(eog.Center, at(500), 2)
	assert.False(t, ok)

	ev, ok := d.Offer(eog.Left, at(1000), 3)
	require.True(t, ok)
	assert.Equal(t, eog.Boost, ev.Modifier)
}

func TestReset(t *testing.T) {
	d := newDebouncer(PolicyBreak)
	d.Offer(eog.Left, at(0), 1)
	d.Reset()
	ev, ok := d.Offer(eog.Left, at(10), 2)
	require.True(t, ok)
	assert.Equal(t, eog.NoModifier, ev.Modifier)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("ignore")
	require.NoError(t, err)
	assert.Equal(t, PolicyIgnore, p)
	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
