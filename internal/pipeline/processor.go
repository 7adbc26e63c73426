// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline runs buffer, filter, wavelet, features, classifier and
// debounce once per analysis tick.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/eog_controller/internal/buffer"
	"github.com/relabs-tech/eog_controller/internal/calibration"
	"github.com/relabs-tech/eog_controller/internal/classifier"
	"github.com/relabs-tech/eog_controller/internal/config"
	"github.com/relabs-tech/eog_controller/internal/debounce"
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/features"
	"github.com/relabs-tech/eog_controller/internal/filter"
	"github.com/relabs-tech/eog_controller/internal/wavelet"
)

// Settings is everything a Processor needs, resolved to sample counts.
type Settings struct {
	Filter            filter.Params
	Extractor         features.Extractor
	LongWindow        int
	CalibrationWindow int
	CalibrationSigma  float64
	Debounce          debounce.Config
	TickInterval      time.Duration
}

// SettingsFrom resolves the configuration into processor settings and the
// uncalibrated thresholds.
func SettingsFrom(cfg *config.Config) (Settings, features.Thresholds, error) {
	policy, err := debounce.ParsePolicy(cfg.StreakPolicy)
	if err != nil {
		return Settings{}, features.Thresholds{}, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	long := cfg.NormalizationWindowSamples()
	s := Settings{
		Filter: filter.Params{
			SampleRate:      cfg.SampleRateHz,
			BandpassLow:     cfg.BandpassLowHz,
			BandpassHigh:    cfg.BandpassHighHz,
			NotchLow:        cfg.NotchLowHz,
			NotchHigh:       cfg.NotchHighHz,
			EOGLow:          cfg.EOGLowHz,
			EOGHigh:         cfg.EOGHighHz,
			BaselineSamples: max(1, int(cfg.SampleRateHz*float64(cfg.BaselineWindowMs)/1000+0.5)),
			Capacity:        long,
		},
		Extractor: features.Extractor{
			SampleRate: cfg.SampleRateHz,
			Scales:     wavelet.Scales{Min: cfg.WaveletMinScale, Max: cfg.WaveletMaxScale},
			SubWindow:  cfg.FeatureWindowSamples(),
		},
		LongWindow:        long,
		CalibrationWindow: cfg.CalibrationWindowSamples(),
		CalibrationSigma:  cfg.CalibrationSigma,
		Debounce: debounce.Config{
			Interval:    cfg.DebounceInterval(),
			HistorySize: cfg.HistorySize,
			Policy:      policy,
			SendStops:   cfg.SendStopCommands,
		},
		TickInterval: cfg.TickInterval(),
	}
	th := features.Thresholds{
		Horizontal: features.AxisThresholds{
			MaxCoefficient: cfg.ThreshHMaxCoeff,
			AreaUnderCurve: cfg.ThreshHAUC,
			Amplitude:      cfg.ThreshHAmplitude,
			Velocity:       cfg.ThreshHVelocity,
		},
		Vertical: features.AxisThresholds{
			MaxCoefficient: cfg.ThreshVMaxCoeff,
			AreaUnderCurve: cfg.ThreshVAUC,
			Amplitude:      cfg.ThreshVAmplitude,
			Velocity:       cfg.ThreshVVelocity,
		},
		LowActivityEnergy: cfg.ThreshLowActivityEnergy,
		BlinkAmplitude:    cfg.ThreshBlinkAmplitude,
		MinActiveFlags:    cfg.MinActiveFlags,
	}
	if err := s.validate(th); err != nil {
		return Settings{}, features.Thresholds{}, err
	}
	return s, th, nil
}

func (s Settings) validate(th features.Thresholds) error {
	if err := s.Extractor.Scales.Validate(); err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	if err := th.Validate(); err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	if s.LongWindow < s.Extractor.SubWindow {
		return fmt.Errorf("%w: long window %d shorter than feature window %d", config.ErrConfiguration, s.LongWindow, s.Extractor.SubWindow)
	}
	if s.Filter.Capacity < s.LongWindow {
		return fmt.Errorf("%w: filter capacity %d below long window %d", config.ErrConfiguration, s.Filter.Capacity, s.LongWindow)
	}
	return nil
}

// CalibrationParams are the inputs of calibration.Recalibrate for these settings.
func (s Settings) CalibrationParams() calibration.Params {
	return calibration.Params{
		Filter:     s.Filter,
		Extractor:  s.Extractor,
		LongWindow: s.LongWindow,
		Sigma:      s.CalibrationSigma,
	}
}

// Skip reasons of a tick that produced no classification.
const (
	SkipInsufficient = "insufficient_data"
	SkipIdle         = "no_new_samples"
)

// Outcome is the result of one tick. Exactly one of Skip or Decision is set;
// Emitted reports whether Event passed the debounce layer.
type Outcome struct {
	WindowID uint64              `json:"window_id"`
	Time     time.Time           `json:"timestamp"`
	Skip     string              `json:"skip,omitempty"`
	Features features.Pair       `json:"features"`
	Decision classifier.Decision `json:"decision"`
	Event    eog.DetectionEvent  `json:"event"`
	Emitted  bool                `json:"emitted"`
}

// Processor owns all per-session signal state. It is driven by one goroutine.
type Processor struct {
	settings   Settings
	raw        *buffer.Buffer
	bank       *filter.Bank
	debouncer  *debounce.Debouncer
	base       features.Thresholds // calibration floor
	thresholds features.Thresholds
	lastSeq    uint64
	windowID   uint64
}

func NewProcessor(s Settings, th features.Thresholds) (*Processor, error) {
	if err := s.validate(th); err != nil {
		return nil, err
	}
	bank, err := filter.NewBank(s.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	return &Processor{
		settings:   s,
		raw:        buffer.New(max(s.LongWindow, s.CalibrationWindow)),
		bank:       bank,
		debouncer:  debounce.New(s.Debounce),
		base:       th,
		thresholds: th,
	}, nil
}

// Push stores raw samples and advances the filters.
func (p *Processor) Push(samples ...eog.Sample) {
	p.raw.Push(samples...)
	p.bank.Push(samples...)
}

// Tick classifies the newest long window. It never returns an error: soft
// failures are reported through Outcome.Skip.
func (p *Processor) Tick() Outcome {
	p.windowID++
	out := Outcome{WindowID: p.windowID}

	seq := p.raw.Seq()
	if seq == p.lastSeq {
		out.Skip = SkipIdle
		return out
	}
	sig, ok := p.bank.Signal(p.settings.LongWindow)
	if !ok {
		out.Skip = SkipInsufficient
		return out
	}
	p.lastSeq = seq
	out.Time = sig.End()

	pair, err := p.settings.Extractor.Extract(sig, p.thresholds)
	if err != nil {
		out.Skip = SkipInsufficient
		return out
	}
	out.Features = pair
	out.Decision = classifier.Explain(pair, p.thresholds)
	out.Event, out.Emitted = p.debouncer.Offer(out.Decision.Class, out.Time, out.WindowID)
	return out
}

// Recalibrate derives thresholds from the newest calibration window of raw
// samples, applies them and resets the filter and debounce state. The
// configured thresholds stay the floor, so repeated calibrations do not ratchet.
func (p *Processor) Recalibrate() (calibration.Result, error) {
	n := min(p.settings.CalibrationWindow, p.raw.Len())
	if n < p.settings.LongWindow {
		return calibration.Result{}, fmt.Errorf("calibration: %w", buffer.ErrInsufficientData)
	}
	ref, err := p.raw.Window(n)
	if err != nil {
		return calibration.Result{}, err
	}
	res, err := calibration.Recalibrate(ref, p.base, p.settings.CalibrationParams())
	if err != nil {
		return calibration.Result{}, err
	}
	p.thresholds = res.Thresholds
	p.Reset()
	return res, nil
}

// Reset clears filter and debounce state. The raw history is dropped so the
// filters restart from fresh samples.
func (p *Processor) Reset() {
	p.bank.Reset()
	p.raw.Reset()
	p.debouncer.Reset()
}

func (p *Processor) Thresholds() features.Thresholds { return p.thresholds }

func (p *Processor) SetThresholds(th features.Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	p.thresholds = th
	return nil
}

func (p *Processor) Settings() Settings { return p.settings }

// IsInsufficient reports whether err is a soft data shortage.
func IsInsufficient(err error) bool { return errors.Is(err, buffer.ErrInsufficientData) }
