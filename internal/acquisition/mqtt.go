// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// Batch is the JSON payload of one sample burst on the samples topic.
type Batch struct {
	Sequence uint64       `json:"seq"`
	Samples  []eog.Sample `json:"samples"`
}

// MQTTSource subscribes to sample bursts. The client is owned by the caller.
type MQTTSource struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSource(client mqtt.Client, topic string) *MQTTSource {
	return &MQTTSource{client: client, topic: topic}
}

func (s *MQTTSource) Name() string { return "mqtt:" + s.topic }

func (s *MQTTSource) Run(ctx context.Context, sink Sink) error {
	var lastSeq uint64
	token := s.client.Subscribe(s.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var b Batch
		if err := json.Unmarshal(msg.Payload(), &b); err != nil {
			log.Printf("acquisition: sample batch unmarshal error: %v", err)
			return
		}
		if lastSeq != 0 && b.Sequence > lastSeq+1 {
			log.Debugf("acquisition: %d sample batches missing before #%d", b.Sequence-lastSeq-1, b.Sequence)
		}
		lastSeq = b.Sequence
		for _, smp := range b.Samples {
			sink.Offer(smp)
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	log.Printf("acquisition: subscribed to %s", s.topic)

	<-ctx.Done()
	s.client.Unsubscribe(s.topic).WaitTimeout(defaultUnsubscribeWait)
	return nil
}

// SubscribeGroundTruth delivers every record published on topic to fn.
func SubscribeGroundTruth(client mqtt.Client, topic string, fn func(eog.GroundTruth)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var gt eog.GroundTruth
		if err := json.Unmarshal(msg.Payload(), &gt); err != nil {
			log.Printf("acquisition: ground truth unmarshal error: %v", err)
			return
		}
		fn(gt)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log.Printf("acquisition: subscribed to ground truth on %s", topic)
	return nil
}
