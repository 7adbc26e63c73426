// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Framing selects how the serial byte stream is split into samples.
type Framing string

const (
	FramingPacket Framing = "packet" // BLE UART bridge: header + ASCII value + newline
	FramingNMEA   Framing = "nmea"   // $PEOG sentences
)

type SerialConfig struct {
	Port       string
	BaudRate   int
	Framing    Framing
	SampleRate float64
}

// SerialSource reads the headset through a serial bridge.
type SerialSource struct {
	cfg  SerialConfig
	open func() (io.ReadCloser, error)
}

func NewSerialSource(cfg SerialConfig) *SerialSource {
	return &SerialSource{cfg: cfg, open: func() (io.ReadCloser, error) {
		return serial.Open(serial.OpenOptions{
			PortName:              cfg.Port,
			BaudRate:              uint(cfg.BaudRate),
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		})
	}}
}

func (s *SerialSource) Name() string { return "serial:" + s.cfg.Port }

func (s *SerialSource) Run(ctx context.Context, sink Sink) error {
	port, err := s.open()
	if err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Port, err)
	}
	log.Printf("acquisition: serial port opened on %s at %d baud (%s framing)", s.cfg.Port, s.cfg.BaudRate, s.cfg.Framing)

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	err = s.read(port, sink)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// read decodes frames until the reader fails.
func (s *SerialSource) read(r io.Reader, sink Sink) error {
	reader := bufio.NewReader(r)
	clock := NewClock(time.Now(), s.cfg.SampleRate)
	pairer := NewPairer(clock)
	var bad int

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}

		var sample eog.Sample
		ok := false
		switch s.cfg.Framing {
		case FramingNMEA:
			text := strings.TrimSpace(string(line))
			if !strings.HasPrefix(text, "$") {
				continue
			}
			sent, perr := ParseEOGSentence(text)
			if perr != nil {
				err = perr
				break
			}
			sample, ok = eog.Sample{Time: clock.Next(), A: sent.A, B: sent.B}, true
		default:
			reading, perr := DecodePacket(line)
			if perr != nil {
				err = perr
				break
			}
			sample, ok = pairer.Add(reading)
		}

		if err != nil {
			bad++
			if bad%100 == 1 {
				log.Debugf("acquisition: %d undecodable frames, last: %v", bad, err)
			}
			continue
		}
		if ok {
			sink.Offer(sample)
		}
	}
}
