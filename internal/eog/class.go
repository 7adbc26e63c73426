// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package eog

import (
	"fmt"
	"strings"
)

// MovementClass is one of the six eye-movement classes.
type MovementClass string

const (
	Blink  MovementClass = "blink"
	Center MovementClass = "center"
	Left   MovementClass = "left"
	Right  MovementClass = "right"
	Up     MovementClass = "up"
	Down   MovementClass = "down"
)

// Classes lists every movement class in a stable order.
func Classes() []MovementClass {
	return []MovementClass{Blink, Center, Left, Right, Up, Down}
}

// ParseClass accepts a class name in any case.
func ParseClass(s string) (MovementClass, error) {
	c := MovementClass(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Blink, Center, Left, Right, Up, Down:
		return c, nil
	}
	return "", fmt.Errorf("unknown movement class %q", s)
}

// Moves reports whether the class moves the consumer (left or right).
func (c MovementClass) Moves() bool {
	return c == Left || c == Right
}

// Opposite returns the other horizontal direction, or "" for non-movement classes.
func (c MovementClass) Opposite() MovementClass {
	switch c {
	case Left:
		return Right
	case Right:
		return Left
	}
	return ""
}

// Modifier is the speed instruction attached to a movement command.
type Modifier string

const (
	NoModifier Modifier = ""
	Boost      Modifier = "boost"
	Reduce     Modifier = "reduce"
)

// Command is the vocabulary accepted by the game consumer.
type Command string

const (
	CmdLeft   Command = "left"
	CmdRight  Command = "right"
	CmdUp     Command = "up"
	CmdDown   Command = "down"
	CmdBlink  Command = "blink"
	CmdCenter Command = "center"
	CmdIdle   Command = "idle"
)

// ParseCommand validates a command name received over the wire.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CmdLeft, CmdRight, CmdUp, CmdDown, CmdBlink, CmdCenter, CmdIdle:
		return c, nil
	}
	return "", fmt.Errorf("unknown command %q", s)
}

// GameCommand maps a class onto the three actions the game acts on:
// left/right move, blink shoots, everything else stops the character.
func GameCommand(c MovementClass) Command {
	switch c {
	case Left:
		return CmdLeft
	case Right:
		return CmdRight
	case Blink:
		return CmdBlink
	}
	return CmdIdle
}
