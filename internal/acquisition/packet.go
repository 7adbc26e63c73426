// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Packet headers of the headset's BLE UART stream.
const (
	HeaderChannelB byte = 0x24 // AF4, right frontal
	HeaderPPG      byte = 0x25
	HeaderChannelA byte = 0x26 // AF3, left frontal
	packetEnd      byte = 0x0A
)

const (
	adcMidScale = 8388608 // 2^23
	adcVref     = 1.6
	adcGain     = 2
	ppgMax      = 1000000
)

// ErrPacket is returned for frames that do not decode.
var ErrPacket = errors.New("bad packet")

// Reading is one decoded value of one channel, in raw ADC counts.
type Reading struct {
	Header byte
	Value  int64
}

// DecodePacket parses header byte + ASCII decimal + newline.
func DecodePacket(b []byte) (Reading, error) {
	if len(b) < 3 || b[len(b)-1] != packetEnd {
		return Reading{}, fmt.Errorf("%w: short or unterminated frame % x", ErrPacket, b)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b[1:len(b)-1])), 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrPacket, err)
	}
	r := Reading{Header: b[0], Value: v}
	switch r.Header {
	case HeaderChannelA, HeaderChannelB:
	case HeaderPPG:
		if v >= ppgMax {
			return Reading{}, fmt.Errorf("%w: ppg value %d out of range", ErrPacket, v)
		}
	default:
		return Reading{}, fmt.Errorf("%w: unknown header 0x%02x", ErrPacket, r.Header)
	}
	return r, nil
}

// EncodePacket is the inverse of DecodePacket.
func EncodePacket(header byte, value int64) []byte {
	b := []byte{header}
	b = strconv.AppendInt(b, value, 10)
	return append(b, packetEnd)
}

// Microvolts converts 24-bit ADC counts to microvolts.
func Microvolts(counts int64) float64 {
	return float64(counts-adcMidScale) * adcVref / adcMidScale / adcGain * 1e6
}

// Counts is the inverse of Microvolts, rounded to the nearest count.
func Counts(uv float64) int64 {
	c := uv/1e6*adcGain*adcMidScale/adcVref + adcMidScale
	if c < 0 {
		return int64(c - 0.5)
	}
	return int64(c + 0.5)
}

// Pairer joins channel readings into samples. A sample is complete once both
// channels have a value since the last emitted sample, in either order.
type Pairer struct {
	clock      *Clock
	a, b       float64
	haveA      bool
	haveB      bool
	ignoredPPG int
}

func NewPairer(clock *Clock) *Pairer { return &Pairer{clock: clock} }

// Add feeds one reading and returns a sample when a pair completes.
func (p *Pairer) Add(r Reading) (eog.Sample, bool) {
	switch r.Header {
	case HeaderChannelA:
		p.a, p.haveA = Microvolts(r.Value), true
	case HeaderChannelB:
		p.b, p.haveB = Microvolts(r.Value), true
	default:
		p.ignoredPPG++
		return eog.Sample{}, false
	}
	if !p.haveA || !p.haveB {
		return eog.Sample{}, false
	}
	p.haveA, p.haveB = false, false
	return eog.Sample{Time: p.clock.Next(), A: p.a, B: p.b}, true
}

// IgnoredPPG counts photoplethysmography readings skipped by Add.
func (p *Pairer) IgnoredPPG() int { return p.ignoredPPG }
