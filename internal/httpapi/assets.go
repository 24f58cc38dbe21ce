package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stillpoint-app/stillpoint/internal/assets"
)

// handleGetAudio serves a stored asset, or a tiny valid silent clip when the
// filename resolves nowhere. Clients always receive decodable audio; a
// missing asset must not break playback.
func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := s.assets.Resolve(filename)
	if err == nil {
		s.metrics.AssetResolves.WithLabelValues("hit").Inc()
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, path)
		return
	}
	if !errors.Is(err, assets.ErrNotFound) {
		respondError(w, http.StatusBadRequest, "invalid_filename", err.Error())
		return
	}

	s.metrics.AssetResolves.WithLabelValues("placeholder").Inc()
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(assets.Placeholder())
}
