// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const fileSuffix = "_eog_calibration.json"

// Save writes r as indented JSON into dir and returns the file path.
func Save(dir string, r Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create calibration dir: %w", err)
	}
	stamp := r.Timestamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	path := filepath.Join(dir, fmt.Sprintf("%d%s", stamp.UnixNano(), fileSuffix))

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal calibration results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write calibration file: %w", err)
	}
	return path, nil
}

// LoadLatest reads the newest calibration file in dir. It returns os.ErrNotExist
// when the directory holds none.
func LoadLatest(dir string) (Result, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, "", err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileSuffix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return Result{}, "", fmt.Errorf("no calibration in %s: %w", dir, os.ErrNotExist)
	}
	// names start with a fixed-width nanosecond stamp, so lexical order is chronological
	sort.Strings(names)
	path := filepath.Join(dir, names[len(names)-1])

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, "", err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, "", fmt.Errorf("parse %s: %w", path, err)
	}
	if err := r.Thresholds.Validate(); err != nil {
		return Result{}, "", fmt.Errorf("calibration %s: %w", path, err)
	}
	return r, path, nil
}
