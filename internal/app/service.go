// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/eog_controller/internal/acquisition"
	"github.com/relabs-tech/eog_controller/internal/buffer"
	"github.com/relabs-tech/eog_controller/internal/calibration"
	"github.com/relabs-tech/eog_controller/internal/config"
	"github.com/relabs-tech/eog_controller/internal/dispatch"
	"github.com/relabs-tech/eog_controller/internal/evaluation"
	"github.com/relabs-tech/eog_controller/internal/pipeline"
	"github.com/relabs-tech/eog_controller/internal/store"
)

// Frame is one message of the live feed.
type Frame struct {
	Type    string            `json:"type"` // tick, command
	Outcome *pipeline.Outcome `json:"outcome,omitempty"`
	Command *dispatch.Message `json:"command,omitempty"`
}

// ServiceOptions are the collaborators of a classifier service that depend on
// the deployment. Only Transport is required.
type ServiceOptions struct {
	Transport     dispatch.Transport
	TransportName string
	Store         *store.Store
	Labeler       pipeline.Labeler
	// Telemetry receives every live frame, e.g. an MQTT publisher.
	Telemetry func([]byte)
}

// Service is the running classifier: pipeline, dispatcher, evaluation and live feed.
type Service struct {
	cfg        *config.Config
	queue      *buffer.Queue
	runner     *pipeline.Runner
	dispatcher *dispatch.Dispatcher
	eval       *evaluation.Engine
	store      *store.Store
	hub        *Hub
	telemetry  func([]byte)
	started    time.Time

	// calibrationWait is how long the calibration session records rest.
	calibrationWait time.Duration
}

func NewService(cfg *config.Config, opts ServiceOptions) (*Service, error) {
	if opts.Transport == nil {
		return nil, errors.New("service: a command transport is required")
	}
	settings, th, err := pipeline.SettingsFrom(cfg)
	if err != nil {
		return nil, err
	}
	proc, err := pipeline.NewProcessor(settings, th)
	if err != nil {
		return nil, err
	}

	res, path, err := calibration.LoadLatest(cfg.CalibrationDir)
	switch {
	case err == nil:
		if err := proc.SetThresholds(res.Thresholds); err != nil {
			log.Warnf("service: ignoring calibration %s: %v", path, err)
		} else {
			log.Printf("service: loaded calibration %s", path)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("service: no calibration in %s, using configured thresholds", cfg.CalibrationDir)
	default:
		log.Warnf("service: reading calibration: %v", err)
	}

	s := &Service{
		cfg:   cfg,
		queue: buffer.NewQueue(cfg.InputQueueSize),
		eval: evaluation.NewEngine(evaluation.Config{
			Space:     evaluation.Space(cfg.EvalSpace),
			Alignment: evaluation.Alignment(cfg.EvalAlignment),
			Tolerance: cfg.EvalTolerance(),
		}),
		store:           opts.Store,
		hub:             NewHub(64),
		telemetry:       opts.Telemetry,
		started:         time.Now(),
		calibrationWait: time.Duration(cfg.CalibrationWindowMs) * time.Millisecond,
	}

	name := opts.TransportName
	if name == "" {
		name = cfg.DispatchTransport
	}
	s.dispatcher = dispatch.New(opts.Transport, name, cfg.DispatchTimeout())
	s.dispatcher.OnSent = func(m dispatch.Message) {
		s.eval.RecordCommand()
		s.publish(Frame{Type: "command", Command: &m})
	}

	ropts := []pipeline.RunnerOption{
		pipeline.WithEvaluation(s.eval),
		pipeline.WithObserver(func(o pipeline.Outcome) {
			if o.Skip == pipeline.SkipIdle {
				return
			}
			s.publish(Frame{Type: "tick", Outcome: &o})
		}),
	}
	if opts.Labeler != nil {
		ropts = append(ropts, pipeline.WithLabeler(opts.Labeler))
	}
	s.runner = pipeline.NewRunner(proc, s.queue, s.dispatcher, ropts...)
	return s, nil
}

func (s *Service) publish(f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		log.Debugf("service: frame marshal error: %v", err)
		return
	}
	s.hub.Publish(b)
}

// Sink is where acquisition sources deliver samples.
func (s *Service) Sink() acquisition.Sink { return s.queue }

// Run starts the source, pipeline, dispatcher and live feed and blocks until
// ctx is cancelled or one of them fails.
func (s *Service) Run(ctx context.Context, src acquisition.Source) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.dispatcher.Run(ctx)
		return nil
	})
	g.Go(func() error { return s.runner.Run(ctx) })
	g.Go(func() error {
		var sinks []func([]byte)
		if s.telemetry != nil {
			sinks = append(sinks, s.telemetry)
		}
		s.hub.Run(ctx, sinks...)
		return nil
	})
	if src != nil {
		g.Go(func() error {
			log.Printf("service: reading samples from %s", src.Name())
			if err := src.Run(ctx, s.queue); err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()
	s.closeSession()
	return err
}

// closeSession stores the evaluation session that was open at shutdown.
func (s *Service) closeSession() {
	sum := s.eval.Summary()
	if s.store == nil || sum.Predictions == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.SaveSession(ctx, sum); err != nil {
		log.Warnf("service: saving session %s: %v", sum.SessionID, err)
		return
	}
	log.Printf("service: session %s stored", sum.SessionID)
}

// ResetEvaluation closes the current session, stores it and starts a new one.
func (s *Service) ResetEvaluation(ctx context.Context) (evaluation.Summary, error) {
	sum := s.eval.Reset()
	if s.store != nil {
		if err := s.store.SaveSession(ctx, sum); err != nil {
			return sum, fmt.Errorf("store session: %w", err)
		}
	}
	return sum, nil
}

// Calibrate recalibrates the live pipeline from its recent samples and saves the result.
func (s *Service) Calibrate(ctx context.Context) (calibration.Result, string, error) {
	res, err := s.runner.Recalibrate(ctx)
	if err != nil {
		return calibration.Result{}, "", err
	}
	path, err := calibration.Save(s.cfg.CalibrationDir, res)
	if err != nil {
		return res, "", fmt.Errorf("save calibration: %w", err)
	}
	log.Printf("service: calibration saved to %s", path)
	return res, path, nil
}
