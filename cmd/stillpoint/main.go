package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/stillpoint-app/stillpoint/internal/assets"
	"github.com/stillpoint-app/stillpoint/internal/config"
	"github.com/stillpoint-app/stillpoint/internal/generation"
	"github.com/stillpoint-app/stillpoint/internal/httpapi"
	"github.com/stillpoint-app/stillpoint/internal/music"
	"github.com/stillpoint-app/stillpoint/internal/observability"
	"github.com/stillpoint-app/stillpoint/internal/playback"
	"github.com/stillpoint-app/stillpoint/internal/script"
	"github.com/stillpoint-app/stillpoint/internal/store"
	"github.com/stillpoint-app/stillpoint/internal/voice"
)

// meteredSaver counts asset writes against the elected root.
type meteredSaver struct {
	store   *assets.Store
	metrics *observability.Metrics
}

func (m meteredSaver) Save(filename string, data []byte) error {
	if err := m.store.Save(filename, data); err != nil {
		return err
	}
	root := "primary"
	if m.store.UsingFallback() {
		root = "fallback"
	}
	m.metrics.AssetWrites.WithLabelValues(root).Inc()
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	records, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("meditation store init failed: %v", err)
	}
	defer records.Close()

	assetStore, err := assets.New(assets.Config{
		PrimaryRoot:  cfg.AudioPrimaryRoot,
		FallbackRoot: cfg.AudioFallbackRoot,
	})
	if err != nil {
		log.Fatalf("audio asset store init failed: %v", err)
	}
	if assetStore.UsingFallback() {
		log.Printf("audio assets: primary root %q not writable, using fallback %q", cfg.AudioPrimaryRoot, cfg.AudioFallbackRoot)
	} else {
		log.Printf("audio assets: using primary root %q", cfg.AudioPrimaryRoot)
	}

	voices := voice.DefaultCatalog()
	musicResolver := music.NewResolver()
	composer := script.NewComposer()

	gateway := voice.NewGateway(voice.GatewayConfig{
		APIKey:        cfg.ElevenLabsAPIKey,
		BaseURL:       cfg.ElevenLabsBaseURL,
		ModelID:       cfg.ElevenLabsModelID,
		Timeout:       cfg.SynthesisTimeout,
		PublicBaseURL: cfg.PublicBaseURL,
	}, meteredSaver{store: assetStore, metrics: metrics})
	if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
		log.Printf("synthesis: no ELEVENLABS_API_KEY, premium audio disabled (on-device fallback only)")
	} else {
		log.Printf("synthesis: elevenlabs enabled, timeout %s", cfg.SynthesisTimeout)
	}

	generator := generation.NewService(composer, voices, gateway, records, metrics)

	sessions := playback.NewManager(musicResolver, cfg.PlaybackInactivityTimeout)
	sessions.SetExpireHook(func(sess *playback.Session) {
		metrics.PlaybackEvents.WithLabelValues("expired").Inc()
		metrics.ActivePlaybackSessions.Set(float64(sessions.ActiveCount()))
		log.Printf("playback session %s expired (meditation %s)", sess.ID, sess.MeditationID)
	})

	api := httpapi.New(cfg, records, generator, sessions, assetStore, voices, musicResolver, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 30*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
