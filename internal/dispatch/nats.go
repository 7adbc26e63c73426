// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dispatch

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSTransport publishes each command on a subject and flushes within the deadline.
type NATSTransport struct {
	nc      *nats.Conn
	subject string
}

func NewNATSTransport(nc *nats.Conn, subject string) *NATSTransport {
	return &NATSTransport{nc: nc, subject: subject}
}

func (t *NATSTransport) Send(ctx context.Context, payload []byte) error {
	if !t.nc.IsConnected() {
		return fmt.Errorf("%w: nats connection %s", ErrTransport, t.nc.Status())
	}
	if err := t.nc.Publish(t.subject, bytes.TrimRight(payload, "\n")); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := t.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrTransport, err)
	}
	return nil
}

func (t *NATSTransport) Connected() bool { return t.nc.IsConnected() }

func (t *NATSTransport) Close() error { return nil }
