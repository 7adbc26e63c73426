// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/acquisition"
	"github.com/relabs-tech/eog_controller/internal/config"
	"github.com/relabs-tech/eog_controller/internal/dispatch"
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/pipeline"
	"github.com/relabs-tech/eog_controller/internal/store"
)

// RunClassifier runs the live classifier process until ctx is cancelled.
func RunClassifier(ctx context.Context, cfg *config.Config) error {
	var (
		mqttClient mqtt.Client
		natsConn   *nats.Conn
		err        error
	)
	needMQTT := cfg.Source == "mqtt" || cfg.DispatchTransport == "mqtt" || cfg.Source == "mock"
	if needMQTT {
		mqttClient, err = connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDClassifier)
		if err != nil {
			if cfg.Source != "mock" {
				return err
			}
			// The mock source runs without a broker; only telemetry is lost.
			log.Warnf("classifier: %v, continuing without MQTT", err)
			mqttClient = nil
		} else {
			defer mqttClient.Disconnect(250)
		}
	}
	if cfg.Source == "nats" || cfg.DispatchTransport == "nats" {
		natsConn, err = acquisition.ConnectNATS(cfg.NATSURL, cfg.NATSNameClassifier)
		if err != nil {
			return fmt.Errorf("NATS connect to %s: %w", cfg.NATSURL, err)
		}
		defer natsConn.Drain()
		log.Printf("connected to NATS at %s", cfg.NATSURL)
	}

	src, labeler, err := newSource(cfg, mqttClient, natsConn)
	if err != nil {
		return err
	}

	var (
		transport dispatch.Transport
		tcp       *dispatch.TCPServer
	)
	switch cfg.DispatchTransport {
	case "tcp":
		tcp, err = dispatch.ListenTCP(cfg.TCPListenAddr)
		if err != nil {
			return err
		}
		transport = tcp
	case "mqtt":
		transport = dispatch.NewMQTTTransport(mqttClient, cfg.TopicCommands)
	case "nats":
		transport = dispatch.NewNATSTransport(natsConn, cfg.NATSSubjectCommands)
	default:
		return fmt.Errorf("%w: unknown dispatch transport %q", config.ErrConfiguration, cfg.DispatchTransport)
	}
	defer transport.Close()

	st, err := store.Open(cfg.EvalDBPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer st.Close()

	opts := ServiceOptions{
		Transport:     transport,
		TransportName: cfg.DispatchTransport,
		Store:         st,
		Labeler:       labeler,
	}
	if mqttClient != nil {
		opts.Telemetry = func(frame []byte) {
			mqttClient.Publish(cfg.TopicFeatures, 0, false, frame)
		}
	}
	svc, err := NewService(cfg, opts)
	if err != nil {
		return err
	}

	if mqttClient != nil && labeler == nil {
		err := acquisition.SubscribeGroundTruth(mqttClient, cfg.TopicGroundTruth, func(gt eog.GroundTruth) {
			if err := svc.eval.RecordTruth(gt); err != nil {
				log.Debugf("classifier: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if tcp != nil {
		go func() {
			if err := tcp.Serve(ctx); err != nil {
				log.Errorf("classifier: command server: %v", err)
				cancel()
			}
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("web server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("classifier: web server: %v", err)
			cancel()
		}
	}()

	runErr := svc.Run(ctx, src)

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("classifier: web server shutdown: %v", err)
	}
	log.Println("classifier: stopped")
	return runErr
}

// newSource picks the acquisition adapter. Only the mock source can label its own samples.
func newSource(cfg *config.Config, mqttClient mqtt.Client, nc *nats.Conn) (acquisition.Source, pipeline.Labeler, error) {
	switch cfg.Source {
	case "mock":
		script, err := acquisition.ParseScript(cfg.MockScript)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: MOCK_SCRIPT: %v", config.ErrConfiguration, err)
		}
		gen := acquisition.DefaultGeneratorConfig()
		gen.SampleRate = cfg.SampleRateHz
		src := acquisition.NewMockSource(gen, script)
		return src, src, nil
	case "mqtt":
		return acquisition.NewMQTTSource(mqttClient, cfg.TopicSamples), nil, nil
	case "nats":
		return acquisition.NewNATSSource(nc, cfg.NATSSubjectSamples, cfg.SampleRateHz), nil, nil
	case "serial":
		return acquisition.NewSerialSource(acquisition.SerialConfig{
			Port:       cfg.SerialPort,
			BaudRate:   cfg.SerialBaudRate,
			Framing:    acquisition.Framing(cfg.SerialFraming),
			SampleRate: cfg.SampleRateHz,
		}), nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown source %q", config.ErrConfiguration, cfg.Source)
}
