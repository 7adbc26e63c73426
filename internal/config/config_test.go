// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eog_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 49, cfg.FeatureWindowSamples())
	assert.Equal(t, 244, cfg.NormalizationWindowSamples())
	assert.Equal(t, 1220, cfg.CalibrationWindowSamples())
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, time.Second, cfg.DebounceInterval())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
# classifier settings
SAMPLE_RATE_HZ=250
DEBOUNCE_INTERVAL_MS=500
STREAK_POLICY=ignore
SEND_STOP_COMMANDS=false
THRESH_BLINK_AMPLITUDE=450
NATS_NAME_CLASSIFIER=lab-classifier
DISPATCH_TRANSPORT=mqtt
TOPIC_COMMANDS="lab/commands"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250.0, cfg.SampleRateHz)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceInterval())
	assert.Equal(t, "ignore", cfg.StreakPolicy)
	assert.False(t, cfg.SendStopCommands)
	assert.Equal(t, "mqtt", cfg.DispatchTransport)
	assert.Equal(t, "lab/commands", cfg.TopicCommands)
	assert.Equal(t, 3, cfg.HistorySize)
	assert.Equal(t, 450.0, cfg.ThreshBlinkAmplitude)
	assert.Equal(t, "lab-classifier", cfg.NATSNameClassifier)
	assert.Equal(t, "eog-classifier", cfg.MQTTClientIDClassifier)
	assert.Equal(t, "eog-console-nats", cfg.NATSNameConsole)
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "NOT_A_KEY=1\n"},
		{"bad number", "HISTORY_SIZE=three\n"},
		{"bad enum", "STREAK_POLICY=sometimes\n"},
		{"zero rate", "SAMPLE_RATE_HZ=0\n"},
		{"above nyquist", "SAMPLE_RATE_HZ=100\nBANDPASS_HIGH_HZ=60\n"},
		{"inverted band", "EOG_LOW_HZ=12\nEOG_HIGH_HZ=10\n"},
		{"short long window", "NORMALIZATION_WINDOW_MS=100\n"},
		{"serial without port", "SOURCE=serial\n"},
		{"history too small", "HISTORY_SIZE=1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfiguration)
}
