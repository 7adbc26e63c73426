// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dispatch delivers debounced detection events to the single
// downstream consumer without ever blocking the processing loop.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

var (
	// ErrTransport wraps any failure to hand a message to the transport.
	ErrTransport = errors.New("transport failure")
	// ErrNoConsumer is returned while no consumer is attached.
	ErrNoConsumer = errors.New("no consumer connected")
)

// Transport is an outbound link. Send must honour the context deadline.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Connected() bool
	Close() error
}

// Status is a snapshot of the dispatcher counters.
type Status struct {
	Transport    string       `json:"transport"`
	Connected    bool         `json:"connected"`
	LastCommand  eog.Command  `json:"last_command,omitempty"`
	LastModifier eog.Modifier `json:"last_modifier,omitempty"`
	LastSentAt   time.Time    `json:"last_sent_at,omitempty"`
	Sequence     uint64       `json:"sequence"`
	Sent         uint64       `json:"sent"`
	Failed       uint64       `json:"failed"`
	Dropped      uint64       `json:"dropped"`
}

// Dispatcher holds at most one pending event. A newer event replaces an
// undelivered older one, and delivery happens on the Run goroutine.
type Dispatcher struct {
	transport Transport
	name      string
	timeout   time.Duration

	pending chan eog.DetectionEvent
	submit  sync.Mutex

	seq     atomic.Uint64
	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64

	mu     sync.RWMutex
	last   Message
	lastAt time.Time

	// OnSent observes every delivered message. Optional, set before Run.
	OnSent func(Message)
}

func New(t Transport, name string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		transport: t,
		name:      name,
		timeout:   timeout,
		pending:   make(chan eog.DetectionEvent, 1),
	}
}

// Submit queues ev for delivery and returns immediately. It reports false
// when an older undelivered event had to be discarded.
func (d *Dispatcher) Submit(ev eog.DetectionEvent) bool {
	d.submit.Lock()
	defer d.submit.Unlock()
	replaced := false
	for {
		select {
		case d.pending <- ev:
			return !replaced
		default:
		}
		select {
		case <-d.pending:
			d.dropped.Add(1)
			replaced = true
		default:
		}
	}
}

// Run delivers pending events until ctx is cancelled. Events still pending at
// cancellation are discarded.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("dispatch: running on %s transport", d.name)
	for {
		select {
		case <-ctx.Done():
			d.discard()
			log.Println("dispatch: stopped")
			return
		case ev := <-d.pending:
			if ctx.Err() != nil {
				d.discard()
				return
			}
			if err := d.deliver(ctx, ev); err != nil {
				d.failed.Add(1)
				log.Warnf("dispatch: %s %v", ev.Class, err)
			}
		}
	}
}

func (d *Dispatcher) discard() {
	select {
	case <-d.pending:
	default:
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev eog.DetectionEvent) error {
	msg := NewMessage(ev, d.seq.Load()+1)
	payload, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrTransport, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.transport.Send(sendCtx, payload); err != nil {
		if errors.Is(err, ErrNoConsumer) || errors.Is(err, ErrTransport) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	d.seq.Add(1)
	d.sent.Add(1)
	d.mu.Lock()
	d.last = msg
	d.lastAt = time.Now()
	d.mu.Unlock()
	log.Debugf("dispatch: sent #%d %s %s", msg.Sequence, msg.Command, msg.Modifier)
	if d.OnSent != nil {
		d.OnSent(msg)
	}
	return nil
}

func (d *Dispatcher) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Status{
		Transport:    d.name,
		Connected:    d.transport.Connected(),
		LastCommand:  d.last.Command,
		LastModifier: d.last.Modifier,
		LastSentAt:   d.lastAt,
		Sequence:     d.seq.Load(),
		Sent:         d.sent.Load(),
		Failed:       d.failed.Load(),
		Dropped:      d.dropped.Load(),
	}
}

// Close releases the transport.
func (d *Dispatcher) Close() error {
	return d.transport.Close()
}
