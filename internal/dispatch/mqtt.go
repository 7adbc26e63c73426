// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTTransport publishes each command on a topic. The client is owned by the caller.
type MQTTTransport struct {
	client mqtt.Client
	topic  string
}

func NewMQTTTransport(client mqtt.Client, topic string) *MQTTTransport {
	return &MQTTTransport{client: client, topic: topic}
}

func (t *MQTTTransport) Send(ctx context.Context, payload []byte) error {
	if !t.client.IsConnectionOpen() {
		return fmt.Errorf("%w: broker connection down", ErrTransport)
	}
	wait := time.Second
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}
	token := t.client.Publish(t.topic, 1, false, bytes.TrimRight(payload, "\n"))
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("%w: publish to %s timed out", ErrTransport, t.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

func (t *MQTTTransport) Connected() bool { return t.client.IsConnectionOpen() }

func (t *MQTTTransport) Close() error { return nil }
