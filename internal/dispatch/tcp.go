// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// TCPServer accepts one consumer at a time and streams newline-delimited JSON
// commands to it. A new connection replaces the previous consumer.
type TCPServer struct {
	ln   net.Listener
	mu   sync.Mutex
	conn net.Conn
	once sync.Once
}

// ListenTCP binds addr. Call Serve to start accepting consumers.
func ListenTCP(addr string) (*TCPServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	log.Printf("dispatch: command server listening on %s", ln.Addr())
	return &TCPServer{ln: ln}, nil
}

func (s *TCPServer) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts consumers until ctx is cancelled or the listener is closed.
func (s *TCPServer) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.attach(conn)
	}
}

func (s *TCPServer) attach(conn net.Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()
	if old != nil {
		log.Printf("dispatch: consumer %s replaced by %s", old.RemoteAddr(), conn.RemoteAddr())
		old.Close()
	} else {
		log.Printf("dispatch: consumer connected from %s", conn.RemoteAddr())
	}
	// The consumer never sends anything we act on; reading only detects hangups.
	go func() {
		_, _ = io.Copy(io.Discard, conn)
		s.detach(conn)
	}()
}

func (s *TCPServer) detach(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
		log.Printf("dispatch: consumer %s disconnected", conn.RemoteAddr())
	}
	conn.Close()
}

// Send writes payload to the current consumer within the context deadline.
func (s *TCPServer) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNoConsumer
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Second)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if _, err := conn.Write(payload); err != nil {
		s.detach(conn)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

func (s *TCPServer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Close stops accepting and drops the consumer. Safe to call more than once.
func (s *TCPServer) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ln.Close()
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
	})
	return err
}
