// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package eog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClass(t *testing.T) {
	for _, c := range Classes() {
		got, err := ParseClass(" " + string(c) + " ")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseClass("LEFT")
	require.NoError(t, err)
	assert.Equal(t, Left, got)

	_, err = ParseClass("sideways")
	assert.Error(t, err)
}

func TestMovesAndOpposite(t *testing.T) {
	assert.True(t, Left.Moves())
	assert.True(t, Right.Moves())
	for _, c := range []MovementClass{Blink, Center, Up, Down} {
		assert.False(t, c.Moves(), c)
		assert.Equal(t, MovementClass(""), c.Opposite())
	}
	assert.Equal(t, Right, Left.Opposite())
	assert.Equal(t, Left, Right.Opposite())
}

func TestGameCommand(t *testing.T) {
	assert.Equal(t, CmdLeft, GameCommand(Left))
	assert.Equal(t, CmdRight, GameCommand(Right))
	assert.Equal(t, CmdBlink, GameCommand(Blink))
	assert.Equal(t, CmdIdle, GameCommand(Center))
	assert.Equal(t, CmdIdle, GameCommand(Up))
	assert.Equal(t, CmdIdle, GameCommand(Down))
}

func TestParseCommand(t *testing.T) {
	c, err := ParseCommand("Idle")
	require.NoError(t, err)
	assert.Equal(t, CmdIdle, c)
	_, err = ParseCommand("jump")
	assert.Error(t, err)
}
