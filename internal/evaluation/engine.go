// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package evaluation scores the live prediction stream against an independently
// supplied ground-truth stream.
package evaluation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/eog_controller/internal/eog"
)

// ErrAlignment marks a ground-truth record that matched no prediction. It is
// excluded from the confusion matrix and counted separately.
var ErrAlignment = errors.New("alignment error")

// Space selects the label vocabulary being scored.
type Space string

const (
	SpaceClasses  Space = "classes"  // the six movement classes
	SpaceCommands Space = "commands" // the game actions: left, right, blink, idle
)

// Labels returns the vocabulary of the space.
func (s Space) Labels() []string {
	if s == SpaceCommands {
		return []string{string(eog.CmdLeft), string(eog.CmdRight), string(eog.CmdBlink), string(eog.CmdIdle)}
	}
	classes := eog.Classes()
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = string(c)
	}
	return out
}

// Label maps a class into the space.
func (s Space) Label(c eog.MovementClass) string {
	if s == SpaceCommands {
		return string(eog.GameCommand(c))
	}
	return string(c)
}

// Alignment selects how a ground-truth record finds its prediction.
type Alignment string

const (
	AlignWindow    Alignment = "window"    // equal window ids
	AlignTimestamp Alignment = "timestamp" // nearest prediction within the tolerance
)

type Config struct {
	Space     Space
	Alignment Alignment
	Tolerance time.Duration
	// Pending bounds how many unmatched predictions and waiting truths are kept.
	Pending int
}

// Prediction is one classified window.
type Prediction struct {
	WindowID uint64            `json:"window_id"`
	Time     time.Time         `json:"timestamp"`
	Class    eog.MovementClass `json:"class"`
}

type pendingPrediction struct {
	Prediction
	matched bool
}

// Engine owns one evaluation session. All methods are safe for concurrent use.
type Engine struct {
	cfg    Config
	matrix *Matrix

	mu          sync.Mutex
	sessionID   string
	startedAt   time.Time
	predictions []pendingPrediction
	waiting     []eog.GroundTruth
	lastWindow  uint64
	lastTime    time.Time
	seen        bool

	predicted        uint64
	matched          uint64
	unmatchedTruth   uint64
	unmatchedPredict uint64
	commands         uint64
}

func NewEngine(cfg Config) *Engine {
	if cfg.Space == "" {
		cfg.Space = SpaceClasses
	}
	if cfg.Alignment == "" {
		cfg.Alignment = AlignWindow
	}
	if cfg.Pending < 1 {
		cfg.Pending = 512
	}
	return &Engine{
		cfg:       cfg,
		matrix:    NewMatrix(cfg.Space.Labels()),
		sessionID: uuid.NewString(),
		startedAt: time.Now(),
	}
}

func (e *Engine) Config() Config { return e.cfg }

// RecordPrediction adds a classified window and resolves any ground truth waiting for it.
func (e *Engine) RecordPrediction(p Prediction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.predicted++
	e.seen = true
	if p.WindowID > e.lastWindow {
		e.lastWindow = p.WindowID
	}
	if p.Time.After(e.lastTime) {
		e.lastTime = p.Time
	}

	if len(e.predictions) == e.cfg.Pending {
		if !e.predictions[0].matched {
			e.unmatchedPredict++
		}
		e.predictions = e.predictions[1:]
	}
	e.predictions = append(e.predictions, pendingPrediction{Prediction: p})

	kept := e.waiting[:0]
	for _, gt := range e.waiting {
		switch {
		case e.match(gt):
		case e.expired(gt):
			e.unmatchedTruth++
		default:
			kept = append(kept, gt)
		}
	}
	e.waiting = kept
}

// RecordCommand counts one dispatched command for the session summary.
func (e *Engine) RecordCommand() {
	e.mu.Lock()
	e.commands++
	e.mu.Unlock()
}

// RecordTruth aligns a ground-truth record. Records that may still be matched by a
// later prediction are held; records that can no longer match return ErrAlignment.
func (e *Engine) RecordTruth(gt eog.GroundTruth) error {
	if _, err := eog.ParseClass(string(gt.TrueClass)); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg.Alignment == AlignTimestamp && gt.Time.IsZero() {
		e.unmatchedTruth++
		return fmt.Errorf("%w: timestamp alignment needs a timestamp", ErrAlignment)
	}
	if e.match(gt) {
		return nil
	}
	if e.expired(gt) {
		e.unmatchedTruth++
		return fmt.Errorf("%w: %s at window %d / %s", ErrAlignment, gt.TrueClass, gt.WindowID, gt.Time.Format(time.RFC3339Nano))
	}
	if len(e.waiting) == e.cfg.Pending {
		e.waiting = e.waiting[1:]
		e.unmatchedTruth++
	}
	e.waiting = append(e.waiting, gt)
	return nil
}

// match pairs gt with a free prediction. Caller holds mu.
func (e *Engine) match(gt eog.GroundTruth) bool {
	best := -1
	switch e.cfg.Alignment {
	case AlignTimestamp:
		var bestDist time.Duration
		for i := range e.predictions {
			p := &e.predictions[i]
			if p.matched {
				continue
			}
			d := p.Time.Sub(gt.Time)
			if d < 0 {
				d = -d
			}
			if d <= e.cfg.Tolerance && (best < 0 || d < bestDist) {
				best, bestDist = i, d
			}
		}
	default:
		for i := range e.predictions {
			p := &e.predictions[i]
			if !p.matched && p.WindowID == gt.WindowID {
				best = i
				break
			}
		}
	}
	if best < 0 {
		return false
	}

	p := &e.predictions[best]
	p.matched = true
	e.matched++
	// labels come from the space vocabulary so Add cannot fail
	_ = e.matrix.Add(e.cfg.Space.Label(p.Class), e.cfg.Space.Label(gt.TrueClass))
	return true
}

// expired reports whether no future prediction can match gt. Caller holds mu.
func (e *Engine) expired(gt eog.GroundTruth) bool {
	if !e.seen {
		return false
	}
	if e.cfg.Alignment == AlignTimestamp {
		return gt.Time.Add(e.cfg.Tolerance).Before(e.lastTime)
	}
	return gt.WindowID <= e.lastWindow
}

// Summary reports the session so far. Counts are left intact.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked(time.Now())
}

// Reset closes the current session, returning its summary, and starts a new one.
func (e *Engine) Reset() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	s := e.summaryLocked(now)

	e.matrix.Reset()
	e.sessionID = uuid.NewString()
	e.startedAt = now
	e.predictions = nil
	e.waiting = nil
	e.lastWindow = 0
	e.lastTime = time.Time{}
	e.seen = false
	e.predicted, e.matched, e.unmatchedTruth, e.unmatchedPredict, e.commands = 0, 0, 0, 0, 0
	return s
}
