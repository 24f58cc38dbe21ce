package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stillpoint-app/stillpoint/internal/script"
	"github.com/stillpoint-app/stillpoint/internal/store"
)

type meditationRequest struct {
	Purpose         string   `json:"purpose"`
	VoiceStyle      string   `json:"voice_style"`
	VoiceID         string   `json:"voice_id"`
	Affirmations    []string `json:"affirmations"`
	BackgroundMusic string   `json:"background_music"`
	MusicVolume     int      `json:"music_volume"`
	PauseSeconds    int      `json:"pause_seconds"`
	Repetitions     int      `json:"repetitions"`
	IsNap           bool     `json:"is_nap"`
	WakeFadeIn      bool     `json:"wake_fade_in"`
}

func (m meditationRequest) toSpec() (script.MeditationSpec, error) {
	if m.Repetitions < 1 {
		return script.MeditationSpec{}, errors.New("repetitions must be at least 1")
	}
	if m.MusicVolume < 0 || m.MusicVolume > 100 {
		return script.MeditationSpec{}, errors.New("music_volume must be within 0-100")
	}
	if m.PauseSeconds < 0 {
		return script.MeditationSpec{}, errors.New("pause_seconds must not be negative")
	}
	purpose := script.Purpose(strings.ToLower(strings.TrimSpace(m.Purpose)))
	if purpose == "" {
		purpose = script.PurposeDefault
	}
	return script.MeditationSpec{
		Purpose:         purpose,
		VoiceStyle:      strings.TrimSpace(m.VoiceStyle),
		VoiceID:         strings.TrimSpace(m.VoiceID),
		Affirmations:    m.Affirmations,
		BackgroundMusic: strings.TrimSpace(m.BackgroundMusic),
		MusicVolume:     m.MusicVolume,
		PauseSeconds:    m.PauseSeconds,
		Repetitions:     m.Repetitions,
		IsNap:           m.IsNap,
		WakeFadeIn:      m.WakeFadeIn,
	}, nil
}

type meditationResponse struct {
	store.Record
	EstimatedMinutes int `json:"estimated_minutes"`
}

func toResponse(rec store.Record) meditationResponse {
	return meditationResponse{Record: rec, EstimatedMinutes: script.EstimatedMinutes(rec.Spec.Repetitions)}
}

func (s *Server) handleCreateMeditation(w http.ResponseWriter, r *http.Request) {
	var req meditationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_spec", err.Error())
		return
	}

	rec, err := s.records.Create(r.Context(), store.Record{Spec: spec})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, toResponse(rec))
}

func (s *Server) handleListMeditations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := s.records.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	out := make([]meditationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec))
	}
	respondJSON(w, http.StatusOK, map[string]any{"meditations": out})
}

func (s *Server) handleGetMeditation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "meditation_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toResponse(rec))
}

func (s *Server) handleUpdateMeditation(w http.ResponseWriter, r *http.Request) {
	var req meditationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_spec", err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := s.records.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "meditation_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	// A spec change invalidates previously generated audio.
	rec.Spec = spec
	rec.Status = store.StatusDraft
	rec.AudioURL = ""
	rec.AudioFilename = ""
	rec.FailureReason = ""

	updated, err := s.records.Update(r.Context(), rec)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toResponse(updated))
}

func (s *Server) handleDeleteMeditation(w http.ResponseWriter, r *http.Request) {
	err := s.records.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "meditation_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerate accepts the long-running synthesis request and returns 202;
// the outcome lands on the record and on any attached playback session.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.records.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "meditation_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if rec.Status == store.StatusGenerating {
		respondError(w, http.StatusConflict, "generation_in_progress", "a generation request is already in flight")
		return
	}

	go func() {
		// Bounded independently of the HTTP request lifetime; the caller
		// already got its 202.
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SynthesisTimeout+30*time.Second)
		defer cancel()
		if _, err := s.generator.Generate(ctx, id); err != nil {
			log.Printf("generation for meditation %s failed: %v", id, err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]any{
		"meditation_id": id,
		"status":        store.StatusGenerating,
	})
}
