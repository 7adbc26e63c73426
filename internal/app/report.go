// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/relabs-tech/eog_controller/internal/evaluation"
	"github.com/relabs-tech/eog_controller/internal/store"
)

// ListSessions prints the newest stored evaluation sessions.
func ListSessions(ctx context.Context, st *store.Store, limit int, w io.Writer) error {
	rows, err := st.ListSessions(ctx, limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no sessions stored")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tENDED\tDURATION\tSPACE\tMATCHED\tUNMATCHED\tCOMMANDS\tPRECISION\tRECALL")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID[:8], r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.EndedAt.Sub(r.StartedAt).Round(time.Second), r.Space,
			r.Matched, r.UnmatchedTruth, r.Commands, r.MacroPrecision, r.MacroRecall)
	}
	return tw.Flush()
}

// ShowSession prints one session as a table, or as the exported JSON document.
func ShowSession(ctx context.Context, st *store.Store, id string, asJSON bool, w io.Writer) error {
	sum, err := st.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		return sum.Export(w)
	}
	return sum.WriteTable(w)
}

// ShowTotals prints the per-class counts pooled over every session of a space.
func ShowTotals(ctx context.Context, st *store.Store, space string, w io.Writer) error {
	totals, err := st.ClassTotals(ctx, space)
	if err != nil {
		return err
	}
	labels := make([]string, 0, len(totals))
	for l := range totals {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tTP\tFP\tTN\tFN\tPRECISION\tSENSITIVITY\tSPECIFICITY")
	var pooled evaluation.Counts
	for _, l := range labels {
		c := totals[l]
		pooled.TP += c.TP
		pooled.FP += c.FP
		pooled.TN += c.TN
		pooled.FN += c.FN
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n", l, c.TP, c.FP, c.TN, c.FN, c.Precision(), c.Sensitivity(), c.Specificity())
	}
	fmt.Fprintf(tw, "micro\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n", pooled.TP, pooled.FP, pooled.TN, pooled.FN,
		pooled.Precision(), pooled.Sensitivity(), pooled.Specificity())
	return tw.Flush()
}
