// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/eog_controller/internal/dispatch"
	"github.com/relabs-tech/eog_controller/internal/eog"
	"github.com/relabs-tech/eog_controller/internal/evaluation"
	"github.com/relabs-tech/eog_controller/internal/features"
	"github.com/relabs-tech/eog_controller/internal/pipeline"
)

// Status is the body of GET /api/status.
type Status struct {
	Uptime      string              `json:"uptime"`
	Pipeline    pipeline.Stats      `json:"pipeline"`
	Dispatcher  dispatch.Status     `json:"dispatcher"`
	Thresholds  features.Thresholds `json:"thresholds"`
	QueuedInput int                 `json:"queued_input"`
	LiveClients int                 `json:"live_clients"`
}

// Handler is the classifier HTTP API and websocket endpoints.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus())
		r.Get("/evaluation", s.handleEvaluation())
		r.Post("/evaluation/reset", s.handleEvaluationReset())
		r.Post("/groundtruth", s.handleGroundTruth())
		r.Post("/calibrate", s.handleCalibrate())
	})
	r.Route("/ws", func(r chi.Router) {
		r.Handle("/live", s.hub)
		r.Get("/calibration", s.handleCalibrationWS)
	})
	r.Handle("/*", http.FileServer(http.Dir("web")))
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Service) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Status{
			Uptime:      time.Since(s.started).Round(time.Second).String(),
			Pipeline:    s.runner.Stats(),
			Dispatcher:  s.dispatcher.Status(),
			Thresholds:  s.runner.Thresholds(),
			QueuedInput: s.queue.Len(),
			LiveClients: s.hub.Clients(),
		})
	}
}

func (s *Service) handleEvaluation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.eval.Summary())
	}
}

func (s *Service) handleEvaluationReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := s.ResetEvaluation(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		log.Printf("web: evaluation session %s closed", sum.SessionID)
		writeJSON(w, http.StatusOK, sum)
	}
}

func (s *Service) handleGroundTruth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var gt eog.GroundTruth
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&gt); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid ground truth: %w", err))
			return
		}
		err := s.eval.RecordTruth(gt)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
		case errors.Is(err, evaluation.ErrAlignment):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
	}
}

func (s *Service) handleCalibrate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		res, path, err := s.Calibrate(ctx)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]any{"file": path, "result": res})
		case pipeline.IsInsufficient(err):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}
