// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// ClassMetrics is the one-vs-rest score of a single label.
type ClassMetrics struct {
	Label       string `json:"label"`
	Counts      Counts `json:"counts"`
	Support     uint64 `json:"support"` // true occurrences
	Precision   Ratio  `json:"precision"`
	Sensitivity Ratio  `json:"sensitivity"`
	Specificity Ratio  `json:"specificity"`
}

// Averages pools the per-class scores.
type Averages struct {
	Precision   Ratio `json:"precision"`
	Sensitivity Ratio `json:"sensitivity"`
	Specificity Ratio `json:"specificity"`
}

// Summary is the exportable report of one session.
type Summary struct {
	SessionID            string         `json:"session_id"`
	Space                Space          `json:"space"`
	Alignment            Alignment      `json:"alignment"`
	StartedAt            time.Time      `json:"started_at"`
	EndedAt              time.Time      `json:"ended_at"`
	DurationSeconds      float64        `json:"duration_seconds"`
	Predictions          uint64         `json:"predictions"`
	Matched              uint64         `json:"matched"`
	UnmatchedTruth       uint64         `json:"unmatched_truth"`
	UnmatchedPredictions uint64         `json:"unmatched_predictions"`
	Commands             uint64         `json:"commands"`
	Labels               []string       `json:"labels"`
	Matrix               [][]uint64     `json:"matrix"` // [predicted][true]
	Classes              []ClassMetrics `json:"classes"`
	Macro                Averages       `json:"macro"`
	Micro                Averages       `json:"micro"`
}

func (e *Engine) summaryLocked(now time.Time) Summary {
	s := Summary{
		SessionID:            e.sessionID,
		Space:                e.cfg.Space,
		Alignment:            e.cfg.Alignment,
		StartedAt:            e.startedAt,
		EndedAt:              now,
		DurationSeconds:      now.Sub(e.startedAt).Seconds(),
		Predictions:          e.predicted,
		Matched:              e.matched,
		UnmatchedTruth:       e.unmatchedTruth + uint64(len(e.waiting)),
		UnmatchedPredictions: e.unmatchedPredict,
		Commands:             e.commands,
		Labels:               e.matrix.Labels(),
		Matrix:               e.matrix.Snapshot(),
	}
	for _, p := range e.predictions {
		if !p.matched {
			s.UnmatchedPredictions++
		}
	}

	var pooled Counts
	for _, l := range s.Labels {
		c := e.matrix.Counts(l)
		pooled = pooled.add(c)
		s.Classes = append(s.Classes, ClassMetrics{
			Label:       l,
			Counts:      c,
			Support:     c.TP + c.FN,
			Precision:   c.Precision(),
			Sensitivity: c.Sensitivity(),
			Specificity: c.Specificity(),
		})
	}
	s.Macro = macro(s.Classes)
	s.Micro = Averages{
		Precision:   pooled.Precision(),
		Sensitivity: pooled.Sensitivity(),
		Specificity: pooled.Specificity(),
	}
	return s
}

// macro averages the defined per-class values; a metric no class defines stays undefined.
func macro(classes []ClassMetrics) Averages {
	mean := func(get func(ClassMetrics) Ratio) Ratio {
		sum, n := 0.0, 0
		for _, c := range classes {
			if r := get(c); r.Defined {
				sum += r.Value
				n++
			}
		}
		if n == 0 {
			return Undefined
		}
		return Ratio{Value: sum / float64(n), Defined: true}
	}
	return Averages{
		Precision:   mean(func(c ClassMetrics) Ratio { return c.Precision }),
		Sensitivity: mean(func(c ClassMetrics) Ratio { return c.Sensitivity }),
		Specificity: mean(func(c ClassMetrics) Ratio { return c.Specificity }),
	}
}

// Export writes the summary as indented JSON.
func (s Summary) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteTable prints a per-class report.
func (s Summary) WriteTable(w io.Writer) error {
	fmt.Fprintf(w, "session %s  space=%s  alignment=%s  duration=%.1fs\n", s.SessionID, s.Space, s.Alignment, s.DurationSeconds)
	fmt.Fprintf(w, "predictions=%d matched=%d unmatched_truth=%d unmatched_predictions=%d commands=%d\n\n",
		s.Predictions, s.Matched, s.UnmatchedTruth, s.UnmatchedPredictions, s.Commands)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tTP\tFP\tTN\tFN\tPRECISION\tSENSITIVITY\tSPECIFICITY")
	for _, c := range s.Classes {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			c.Label, c.Counts.TP, c.Counts.FP, c.Counts.TN, c.Counts.FN, c.Precision, c.Sensitivity, c.Specificity)
	}
	fmt.Fprintf(tw, "macro\t\t\t\t\t%s\t%s\t%s\n", s.Macro.Precision, s.Macro.Sensitivity, s.Macro.Specificity)
	fmt.Fprintf(tw, "micro\t\t\t\t\t%s\t%s\t%s\n", s.Micro.Precision, s.Micro.Sensitivity, s.Micro.Specificity)
	return tw.Flush()
}
