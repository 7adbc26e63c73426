// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/evaluation"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func session(t *testing.T, n int) evaluation.Summary {
	t.Helper()
	e := evaluation.NewEngine(evaluation.Config{})
	for i := 1; i <= n; i++ {
		e.RecordPrediction(evaluation.Prediction{WindowID: uint64(i), Class: eog.Left})
		require.NoError(t, e.RecordTruth(eog.GroundTruth{WindowID: uint64(i), TrueClass: eog.Left}))
	}
	e.RecordCommand()
	return e.Summary()
}

func TestSaveAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	sum := session(t, 3)
	require.NoError(t, s.SaveSession(ctx, sum))

	got, err := s.GetSession(ctx, sum.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sum.SessionID, got.SessionID)
	assert.Equal(t, uint64(3), got.Matched)
	assert.Equal(t, sum.Macro, got.Macro)

	got, err = s.GetSession(ctx, sum.SessionID[:8])
	require.NoError(t, err)
	assert.Equal(t, sum.SessionID, got.SessionID)

	_, err = s.GetSession(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveReplaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	sum := session(t, 2)
	require.NoError(t, s.SaveSession(ctx, sum))
	sum.Matched = 5
	require.NoError(t, s.SaveSession(ctx, sum))

	rows, err := s.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(5), rows[0].Matched)
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	older := session(t, 1)
	older.EndedAt = time.Now().Add(-time.Hour)
	newer := session(t, 2)
	require.NoError(t, s.SaveSession(ctx, older))
	require.NoError(t, s.SaveSession(ctx, newer))

	rows, err := s.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.SessionID, rows[0].ID)
	assert.Equal(t, "classes", rows[0].Space)
	assert.True(t, rows[0].MacroPrecision.Defined)

	rows, err = s.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClassTotals(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSession(ctx, session(t, 2)))
	require.NoError(t, s.SaveSession(ctx, session(t, 3)))

	totals, err := s.ClassTotals(ctx, "classes")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), totals["left"].TP)
	assert.Len(t, totals, 6)
}
