// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// BurstSize is the number of samples the headset sends per BLE notification.
const BurstSize = 16

// MockSource replays a Generator in real time, one burst per notification interval.
type MockSource struct {
	mu  sync.Mutex
	gen *Generator
}

func NewMockSource(cfg GeneratorConfig, script []Segment) *MockSource {
	return &MockSource{gen: NewGenerator(cfg, script, time.Now())}
}

func (m *MockSource) Name() string { return "mock" }

// Run emits BurstSize samples every BurstSize/rate seconds.
func (m *MockSource) Run(ctx context.Context, sink Sink) error {
	interval := time.Duration(float64(BurstSize) / m.gen.cfg.SampleRate * float64(time.Second))
	log.Printf("acquisition: mock source streaming %d samples every %v", BurstSize, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.mu.Lock()
			burst := m.gen.Burst(BurstSize)
			m.mu.Unlock()
			for _, s := range burst {
				sink.Offer(s)
			}
		}
	}
}

func (m *MockSource) LabelAt(t time.Time) (eog.MovementClass, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen.LabelAt(t)
}
