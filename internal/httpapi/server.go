package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/stillpoint-app/stillpoint/internal/assets"
	"github.com/stillpoint-app/stillpoint/internal/config"
	"github.com/stillpoint-app/stillpoint/internal/generation"
	"github.com/stillpoint-app/stillpoint/internal/music"
	"github.com/stillpoint-app/stillpoint/internal/observability"
	"github.com/stillpoint-app/stillpoint/internal/playback"
	"github.com/stillpoint-app/stillpoint/internal/store"
	"github.com/stillpoint-app/stillpoint/internal/voice"
)

type Server struct {
	cfg       config.Config
	records   store.Store
	generator *generation.Service
	sessions  *playback.Manager
	assets    *assets.Store
	voices    *voice.Catalog
	music     *music.Resolver
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(
	cfg config.Config,
	records store.Store,
	generator *generation.Service,
	sessions *playback.Manager,
	assetStore *assets.Store,
	voices *voice.Catalog,
	musicResolver *music.Resolver,
	metrics *observability.Metrics,
) *Server {
	generator.SetSessionNotifier(&sessionNotifier{
		records:   records,
		sessions:  sessions,
		generator: generator,
	})
	return &Server{
		cfg:       cfg,
		records:   records,
		generator: generator,
		sessions:  sessions,
		assets:    assetStore,
		voices:    voices,
		music:     musicResolver,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly
				// opened up; other sites must not be able to drive a
				// user's playback session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/meditations", s.handleCreateMeditation)
	r.Get("/v1/meditations", s.handleListMeditations)
	r.Get("/v1/meditations/{id}", s.handleGetMeditation)
	r.Put("/v1/meditations/{id}", s.handleUpdateMeditation)
	r.Delete("/v1/meditations/{id}", s.handleDeleteMeditation)
	r.Post("/v1/meditations/{id}/generate", s.handleGenerate)

	r.Get("/v1/audio/{filename}", s.handleGetAudio)

	r.Post("/v1/playback/session", s.handleCreatePlaybackSession)
	r.Get("/v1/playback/session/ws", s.handlePlaybackWS)

	r.Get("/v1/voices", s.handleListVoices)
	r.Get("/v1/music", s.handleListMusic)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"synthesis_available": strings.TrimSpace(s.cfg.ElevenLabsAPIKey) != "",
		"asset_root":          s.assetRootMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"asset_root": s.assetRootMode(),
	})
}

func (s *Server) assetRootMode() string {
	if s.assets.UsingFallback() {
		return "fallback"
	}
	return "primary"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
