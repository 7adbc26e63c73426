// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/acquisition"
	"github.com/relabs-tech/eog_controller/internal/config"
	"github.com/relabs-tech/eog_controller/internal/dispatch"
)

// FormatCommand renders one dispatched command as a console line.
func FormatCommand(m dispatch.Message) string {
	ts := time.Unix(0, int64(m.Timestamp*float64(time.Second))).Format("15:04:05.000")
	line := fmt.Sprintf("[CMD ] #%-5d %s %-6s", m.Sequence, ts, m.Command)
	if m.Modifier != "" {
		line += " +" + string(m.Modifier)
	}
	return line
}

func printCommand(w io.Writer, payload []byte) {
	m, err := dispatch.Decode(payload)
	if err != nil {
		log.Printf("console: command decode error: %v", err)
		return
	}
	fmt.Fprintln(w, FormatCommand(m))
}

// RunConsoleMQTT prints the command stream of whichever transport the
// classifier dispatches on until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, w io.Writer) error {
	switch cfg.DispatchTransport {
	case "mqtt":
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		token := client.Subscribe(cfg.TopicCommands, 1, func(_ mqtt.Client, msg mqtt.Message) {
			printCommand(w, msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", cfg.TopicCommands)

	case "nats":
		nc, err := acquisition.ConnectNATS(cfg.NATSURL, cfg.NATSNameConsole)
		if err != nil {
			return fmt.Errorf("NATS connect to %s: %w", cfg.NATSURL, err)
		}
		defer nc.Drain()
		if _, err := nc.Subscribe(cfg.NATSSubjectCommands, func(msg *nats.Msg) {
			printCommand(w, msg.Data)
		}); err != nil {
			return err
		}
		log.Printf("console: subscribed to %s", cfg.NATSSubjectCommands)

	default:
		return consoleTCP(ctx, cfg.TCPListenAddr, w)
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

// consoleTCP acts as the game consumer on the TCP command stream, reconnecting
// until ctx is cancelled.
func consoleTCP(ctx context.Context, addr string, w io.Writer) error {
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Debugf("console: %v, retrying", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
				continue
			}
		}
		log.Printf("console: connected to %s", addr)
		readCommands(ctx, conn, w)
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("console: connection to %s lost", addr)
	}
}

func readCommands(ctx context.Context, conn net.Conn, w io.Writer) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		printCommand(w, sc.Bytes())
	}
}
