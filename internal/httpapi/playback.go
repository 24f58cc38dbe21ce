package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stillpoint-app/stillpoint/internal/playback"
	"github.com/stillpoint-app/stillpoint/internal/protocol"
	"github.com/stillpoint-app/stillpoint/internal/store"
)

type createPlaybackRequest struct {
	MeditationID string `json:"meditation_id"`
}

type createPlaybackResponse struct {
	SessionID        string         `json:"session_id"`
	MeditationID     string         `json:"meditation_id"`
	State            playback.State `json:"state"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	UsingFallback    bool           `json:"using_fallback_voice"`
}

// handleCreatePlaybackSession builds a session for a meditation. The session
// is ready as soon as the script is composed; premium audio is attached when
// the record carries one.
func (s *Server) handleCreatePlaybackSession(w http.ResponseWriter, r *http.Request) {
	var req createPlaybackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.MeditationID) == "" {
		respondError(w, http.StatusBadRequest, "missing_meditation_id", "meditation_id is required")
		return
	}

	rec, err := s.records.Get(r.Context(), req.MeditationID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "meditation_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	sess := s.sessions.Create(rec.ID, playback.Options{
		MusicID:     rec.Spec.BackgroundMusic,
		MusicVolume: rec.Spec.MusicVolume,
		OnComplete: func() {
			s.metrics.PlaybackEvents.WithLabelValues("completed").Inc()
		},
	})
	s.metrics.ActivePlaybackSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.PlaybackEvents.WithLabelValues("created").Inc()

	composed := s.generator.Compose(rec.Spec)
	if err := sess.Engine.BeginGeneration(); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if rec.Status == store.StatusGenerating {
		// A synthesis is in flight for this meditation. The session holds in
		// generating; the outcome reaches it through the session notifier.
		respondJSON(w, http.StatusCreated, createPlaybackResponse{
			SessionID:        sess.ID,
			MeditationID:     rec.ID,
			State:            sess.Engine.State(),
			EstimatedMinutes: composed.EstimatedMinutes,
			UsingFallback:    true,
		})
		return
	}
	if err := sess.Engine.Ready(rec.AudioURL, composed.Flatten(), composed.WordCount(), rec.Spec.PauseSeconds, rec.Spec.Repetitions); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, createPlaybackResponse{
		SessionID:        sess.ID,
		MeditationID:     rec.ID,
		State:            sess.Engine.State(),
		EstimatedMinutes: composed.EstimatedMinutes,
		UsingFallback:    rec.AudioURL == "",
	})
}

func (s *Server) handlePlaybackWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if errors.Is(err, playback.ErrNotFound) {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.PlaybackEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.runPlaybackWriter(ctx, conn, sess)
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = s.sessions.Touch(sessionID)

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.metrics.WSMessages.WithLabelValues("inbound", "invalid").Inc()
			continue
		}
		s.dispatchPlaybackMessage(sess, parsed)
	}

	cancel()
	<-writerDone
	s.metrics.PlaybackEvents.WithLabelValues("ws_disconnected").Inc()
	s.metrics.ActivePlaybackSessions.Set(float64(s.sessions.ActiveCount()))
}

// dispatchPlaybackMessage maps validated client messages onto engine
// transitions. State errors (a pause while ready, a second play) are benign;
// the client sees the authoritative state on the next event.
func (s *Server) dispatchPlaybackMessage(sess *playback.Session, msg any) {
	eng := sess.Engine
	switch m := msg.(type) {
	case protocol.ClientControl:
		s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeClientControl)).Inc()
		switch m.Action {
		case "play":
			if err := eng.Play(); err == nil {
				s.metrics.PlaybackEvents.WithLabelValues("play").Inc()
			}
		case "pause":
			if err := eng.Pause(); err == nil {
				s.metrics.PlaybackEvents.WithLabelValues("pause").Inc()
			}
		case "resume":
			if err := eng.Resume(); err == nil {
				s.metrics.PlaybackEvents.WithLabelValues("resume").Inc()
			}
		case "end":
			_ = s.sessions.End(sess.ID)
			s.metrics.ActivePlaybackSessions.Set(float64(s.sessions.ActiveCount()))
		}
	case protocol.SourceEvent:
		s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeSourceEvent)).Inc()
		switch m.Event {
		case "loaded":
			eng.ReportMediaDuration(m.DurationMS)
		case "error":
			eng.SourceError(m.Detail)
			s.metrics.PlaybackEvents.WithLabelValues("source_fallback").Inc()
		case "ended":
			eng.SourceEnded()
		}
	case protocol.MusicEvent:
		s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeMusicEvent)).Inc()
		eng.MusicLoadError()
	}
}

// runPlaybackWriter is the single websocket writer: it forwards engine
// events and pushes a progress estimate once a second while playback is
// live. Stopping it (disconnect or teardown) clears the progress timer so a
// stale session can never keep reporting.
func (s *Server) runPlaybackWriter(ctx context.Context, conn *websocket.Conn, sess *playback.Session) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	writeJSON := func(v any, msgType string) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			return false
		}
		s.metrics.WSMessages.WithLabelValues("outbound", msgType).Inc()
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sess.Engine.Events():
			if !ok {
				return
			}
			if ev.Type == playback.EventError {
				msg := protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sess.ID,
					Code:      ev.Code,
					Source:    string(ev.Source),
					Retryable: ev.Retryable,
					Detail:    ev.Detail,
				}
				if !writeJSON(msg, string(protocol.TypeErrorEvent)) {
					return
				}
				continue
			}
			if !writeJSON(ev, string(ev.Type)) {
				return
			}
		case <-ticker.C:
			if sess.Engine.State() != playback.StatePlaying {
				continue
			}
			elapsed, total, fraction := sess.Engine.Progress()
			msg := protocol.ProgressEvent{
				Type:      protocol.TypeProgressEvent,
				SessionID: sess.ID,
				ElapsedMS: elapsed.Milliseconds(),
				TotalMS:   total.Milliseconds(),
				Fraction:  fraction,
			}
			if !writeJSON(msg, string(protocol.TypeProgressEvent)) {
				return
			}
		}
	}
}
