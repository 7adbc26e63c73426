// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

const defaultUnsubscribeWait = 250 * time.Millisecond

// ConnectNATS dials url with reconnects that never give up.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// EncodePairs packs samples as little-endian float32 A,B pairs.
func EncodePairs(samples []eog.Sample) []byte {
	out := make([]byte, 8*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*8:], math.Float32bits(float32(s.A)))
		binary.LittleEndian.PutUint32(out[i*8+4:], math.Float32bits(float32(s.B)))
	}
	return out
}

// DecodePairs unpacks little-endian float32 A,B pairs, stamping them with clock.
func DecodePairs(data []byte, clock *Clock) ([]eog.Sample, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("payload of %d bytes is not a whole number of pairs", len(data))
	}
	out := make([]eog.Sample, len(data)/8)
	for i := range out {
		a := math.Float32frombits(binary.LittleEndian.Uint32(data[i*8:]))
		b := math.Float32frombits(binary.LittleEndian.Uint32(data[i*8+4:]))
		out[i] = eog.Sample{Time: clock.Next(), A: float64(a), B: float64(b)}
	}
	return out, nil
}

// NATSSource subscribes to binary sample pairs. The connection is owned by the caller.
type NATSSource struct {
	nc         *nats.Conn
	subject    string
	sampleRate float64
}

func NewNATSSource(nc *nats.Conn, subject string, sampleRate float64) *NATSSource {
	return &NATSSource{nc: nc, subject: subject, sampleRate: sampleRate}
}

func (s *NATSSource) Name() string { return "nats:" + s.subject }

func (s *NATSSource) Run(ctx context.Context, sink Sink) error {
	clock := NewClock(time.Now(), s.sampleRate)
	sub, err := s.nc.Subscribe(s.subject, func(m *nats.Msg) {
		samples, err := DecodePairs(m.Data, clock)
		if err != nil {
			log.Printf("acquisition: %v", err)
			return
		}
		for _, smp := range samples {
			sink.Offer(smp)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	log.Printf("acquisition: subscribed to nats subject %s", s.subject)

	<-ctx.Done()
	return sub.Unsubscribe()
}
