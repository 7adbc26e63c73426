// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/buffer"
	"github.com/relabs-tech/eog_controller/internal/calibration"
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/evaluation"
	"github.com/relabs-tech/eog_controller/internal/features"
)

// Submitter takes emitted events without blocking.
type Submitter interface {
	Submit(eog.DetectionEvent) bool
}

// Labeler knows the true class at a sample time. Only synthetic sources do.
type Labeler interface {
	LabelAt(t time.Time) (eog.MovementClass, bool)
}

// ErrStopped is returned by requests made after Run has returned.
var ErrStopped = errors.New("pipeline stopped")

// Stats are the runner counters.
type Stats struct {
	Ticks          uint64              `json:"ticks"`
	Classified     uint64              `json:"classified"`
	Insufficient   uint64              `json:"insufficient"`
	Idle           uint64              `json:"idle"`
	Emitted        uint64              `json:"emitted"`
	DroppedSamples uint64              `json:"dropped_samples"`
	Calibrations   uint64              `json:"calibrations"`
	LastClass      eog.MovementClass   `json:"last_class,omitempty"`
	LastEvent      *eog.DetectionEvent `json:"last_event,omitempty"`
}

type calibrationRequest struct {
	reply chan calibrationReply
}

type calibrationReply struct {
	result calibration.Result
	err    error
}

// Runner drives a Processor from the ingest queue on its own goroutine. The
// processor is only touched by Run; other goroutines talk to it through
// channels or read the snapshots kept here.
type Runner struct {
	proc      *Processor
	queue     *buffer.Queue
	submitter Submitter
	eval      *evaluation.Engine
	labeler   Labeler
	observers []func(Outcome)

	calib chan calibrationRequest
	done  chan struct{}

	ticks, classified, insufficient, idle, emitted, calibrations atomic.Uint64

	mu         sync.RWMutex
	thresholds features.Thresholds
	lastClass  eog.MovementClass
	lastEvent  *eog.DetectionEvent
}

// RunnerOption configures optional collaborators.
type RunnerOption func(*Runner)

// WithEvaluation records every classified window as a prediction.
func WithEvaluation(e *evaluation.Engine) RunnerOption {
	return func(r *Runner) { r.eval = e }
}

// WithLabeler feeds in-process ground truth, aligned by window id.
func WithLabeler(l Labeler) RunnerOption {
	return func(r *Runner) { r.labeler = l }
}

// WithObserver is called on the pipeline goroutine after every tick. It must not block.
func WithObserver(fn func(Outcome)) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, fn) }
}

func NewRunner(proc *Processor, queue *buffer.Queue, submitter Submitter, opts ...RunnerOption) *Runner {
	r := &Runner{
		proc:       proc,
		queue:      queue,
		submitter:  submitter,
		calib:      make(chan calibrationRequest),
		done:       make(chan struct{}),
		thresholds: proc.Thresholds(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run processes until ctx is cancelled. No event is submitted after it returns.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	ticker := time.NewTicker(r.proc.Settings().TickInterval)
	defer ticker.Stop()
	log.Printf("pipeline: running, tick every %v", r.proc.Settings().TickInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("pipeline: stopped")
			return nil
		case s := <-r.queue.C():
			r.proc.Push(s)
			r.proc.Push(r.queue.Drain(nil)...)
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			r.handle(r.proc.Tick())
		case req := <-r.calib:
			res, err := r.proc.Recalibrate()
			if err == nil {
				r.calibrations.Add(1)
				r.mu.Lock()
				r.thresholds = res.Thresholds
				r.mu.Unlock()
				log.Printf("pipeline: recalibrated from %d samples over %d windows", res.Samples, res.Windows)
			}
			req.reply <- calibrationReply{result: res, err: err}
		}
	}
}

func (r *Runner) handle(out Outcome) {
	r.ticks.Add(1)
	switch out.Skip {
	case SkipInsufficient:
		r.insufficient.Add(1)
		log.Debugf("pipeline: window %d skipped, insufficient data", out.WindowID)
	case SkipIdle:
		r.idle.Add(1)
	default:
		r.classified.Add(1)
		r.record(out)
	}

	if out.Emitted {
		r.emitted.Add(1)
		ev := out.Event
		r.mu.Lock()
		r.lastEvent = &ev
		r.mu.Unlock()
		if r.submitter != nil {
			r.submitter.Submit(ev)
		}
		log.Debugf("pipeline: emitted %s %s", ev.Class, ev.Modifier)
	}
	for _, fn := range r.observers {
		fn(out)
	}
}

func (r *Runner) record(out Outcome) {
	r.mu.Lock()
	r.lastClass = out.Decision.Class
	r.mu.Unlock()
	if r.eval == nil {
		return
	}
	r.eval.RecordPrediction(evaluation.Prediction{WindowID: out.WindowID, Time: out.Time, Class: out.Decision.Class})
	if r.labeler == nil {
		return
	}
	if c, ok := r.labeler.LabelAt(out.Time); ok {
		if err := r.eval.RecordTruth(eog.GroundTruth{WindowID: out.WindowID, Time: out.Time, TrueClass: c}); err != nil {
			log.Debugf("pipeline: %v", err)
		}
	}
}

// Recalibrate asks the running pipeline to recalibrate from its recent samples.
func (r *Runner) Recalibrate(ctx context.Context) (calibration.Result, error) {
	req := calibrationRequest{reply: make(chan calibrationReply, 1)}
	select {
	case r.calib <- req:
	case <-r.done:
		return calibration.Result{}, ErrStopped
	case <-ctx.Done():
		return calibration.Result{}, ctx.Err()
	}
	select {
	case rep := <-req.reply:
		return rep.result, rep.err
	case <-ctx.Done():
		return calibration.Result{}, ctx.Err()
	}
}

func (r *Runner) Thresholds() features.Thresholds {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.thresholds
}

func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Stats{
		Ticks:          r.ticks.Load(),
		Classified:     r.classified.Load(),
		Insufficient:   r.insufficient.Load(),
		Idle:           r.idle.Load(),
		Emitted:        r.emitted.Load(),
		DroppedSamples: r.queue.Dropped(),
		Calibrations:   r.calibrations.Load(),
		LastClass:      r.lastClass,
	}
	if r.lastEvent != nil {
		ev := *r.lastEvent
		st.LastEvent = &ev
	}
	return st
}
