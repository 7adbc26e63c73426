// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/eog_controller/internal/acquisition"
	"github.com/relabs-tech/eog_controller/internal/config"
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/evaluation"
	"github.com/relabs-tech/eog_controller/internal/pipeline"
)

// RunMockConsole replays the mock script through the pipeline offline, as
// fast as it computes, printing every emitted event and the final evaluation.
func RunMockConsole(ctx context.Context, cfg *config.Config, duration time.Duration, w io.Writer) (evaluation.Summary, error) {
	settings, th, err := pipeline.SettingsFrom(cfg)
	if err != nil {
		return evaluation.Summary{}, err
	}
	proc, err := pipeline.NewProcessor(settings, th)
	if err != nil {
		return evaluation.Summary{}, err
	}
	script, err := acquisition.ParseScript(cfg.MockScript)
	if err != nil {
		return evaluation.Summary{}, fmt.Errorf("%w: MOCK_SCRIPT: %v", config.ErrConfiguration, err)
	}
	genCfg := acquisition.DefaultGeneratorConfig()
	genCfg.SampleRate = cfg.SampleRateHz
	start := time.Unix(0, 0).UTC()
	gen := acquisition.NewGenerator(genCfg, script, start)
	eval := evaluation.NewEngine(evaluation.Config{
		Space:     evaluation.Space(cfg.EvalSpace),
		Alignment: evaluation.AlignWindow,
	})

	// Samples per tick, carried over so the simulated clock never drifts.
	perTick := cfg.SampleRateHz * settings.TickInterval.Seconds()
	var owed float64
	ticks := int(duration / settings.TickInterval)
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return eval.Summary(), err
		}
		owed += perTick
		n := int(owed)
		owed -= float64(n)
		proc.Push(gen.Burst(n)...)

		out := proc.Tick()
		if out.Skip != "" {
			continue
		}
		eval.RecordPrediction(evaluation.Prediction{WindowID: out.WindowID, Time: out.Time, Class: out.Decision.Class})
		if c, ok := gen.LabelAt(out.Time); ok {
			_ = eval.RecordTruth(eog.GroundTruth{WindowID: out.WindowID, Time: out.Time, TrueClass: c})
		}
		if out.Emitted {
			eval.RecordCommand()
			fmt.Fprintf(w, "%8.3fs  %-6s %-6s (%s)\n",
				out.Time.Sub(start).Seconds(), out.Event.Class, out.Event.Modifier, out.Decision.Rule)
		}
	}

	sum := eval.Summary()
	fmt.Fprintln(w)
	return sum, sum.WriteTable(w)
}
