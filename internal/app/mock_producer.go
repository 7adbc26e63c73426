// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/acquisition"
	"github.com/relabs-tech/eog_controller/internal/config"
)

// truthInterval paces ground-truth records on the MQTT topic.
const truthInterval = 100 * time.Millisecond

// RunMockProducer streams the mock script in real time: sample bursts on the
// samples topic (or NATS subject when SOURCE=nats) and ground truth on MQTT.
func RunMockProducer(ctx context.Context, cfg *config.Config) error {
	script, err := acquisition.ParseScript(cfg.MockScript)
	if err != nil {
		return fmt.Errorf("%w: MOCK_SCRIPT: %v", config.ErrConfiguration, err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	var nc *nats.Conn
	if cfg.Source == "nats" {
		nc, err = acquisition.ConnectNATS(cfg.NATSURL, cfg.NATSNameProducer)
		if err != nil {
			return fmt.Errorf("NATS connect to %s: %w", cfg.NATSURL, err)
		}
		defer nc.Drain()
	}

	genCfg := acquisition.DefaultGeneratorConfig()
	genCfg.SampleRate = cfg.SampleRateHz
	gen := acquisition.NewGenerator(genCfg, script, time.Now())
	p := &producer{client: client, nc: nc, cfg: cfg}

	interval := time.Duration(float64(acquisition.BurstSize) / cfg.SampleRateHz * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("producer: streaming %d samples every %v", acquisition.BurstSize, interval)

	var (
		seq       uint64
		lastTruth time.Time
	)
	for {
		select {
		case <-ctx.Done():
			log.Println("producer: stopped")
			return nil
		case t := <-ticker.C:
			seq++
			batch := acquisition.Batch{Sequence: seq, Samples: gen.Burst(acquisition.BurstSize)}
			if err := p.publishBatch(batch); err != nil {
				log.Printf("producer: %v", err)
				continue
			}
			if t.Sub(lastTruth) >= truthInterval {
				lastTruth = t
				if err := p.publishTruth(gen); err != nil {
					log.Printf("producer: %v", err)
				}
			}
			log.Debugf("producer: batch #%d published", seq)
		}
	}
}

type producer struct {
	client mqtt.Client
	nc     *nats.Conn
	cfg    *config.Config
}

func (p *producer) publishBatch(b acquisition.Batch) error {
	if p.nc != nil {
		return p.nc.Publish(p.cfg.NATSSubjectSamples, acquisition.EncodePairs(b.Samples))
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}
	token := p.client.Publish(p.cfg.TopicSamples, 0, false, payload)
	token.Wait()
	return token.Error()
}

func (p *producer) publishTruth(gen *acquisition.Generator) error {
	payload, err := json.Marshal(gen.Truth())
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}
	token := p.client.Publish(p.cfg.TopicGroundTruth, 0, false, payload)
	token.Wait()
	return token.Error()
}
