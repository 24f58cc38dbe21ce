package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/stillpoint-app/stillpoint/internal/observability"
	"github.com/stillpoint-app/stillpoint/internal/reliability"
	"github.com/stillpoint-app/stillpoint/internal/script"
	"github.com/stillpoint-app/stillpoint/internal/store"
	"github.com/stillpoint-app/stillpoint/internal/voice"
)

// Synthesizer is the gateway contract the service depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, settings voice.Settings) voice.SynthesisResult
}

// SessionNotifier receives generation outcomes so playback sessions attached
// to the meditation learn about them without polling the record.
type SessionNotifier interface {
	GenerationSucceeded(meditationID, audioURL string)
	GenerationFailed(meditationID, reason string, kind reliability.FailureKind, retryable bool)
}

// Service runs the composition-to-audio pipeline for one meditation record:
// compose, resolve the voice, synthesize once, persist the outcome. One
// synthesis call is in flight per generation request; identical specs
// regenerate and re-pay the full cost.
type Service struct {
	composer    *script.Composer
	catalog     *voice.Catalog
	synthesizer Synthesizer
	records     store.Store
	metrics     *observability.Metrics
	notifier    SessionNotifier
}

func NewService(composer *script.Composer, catalog *voice.Catalog, synthesizer Synthesizer, records store.Store, metrics *observability.Metrics) *Service {
	return &Service{
		composer:    composer,
		catalog:     catalog,
		synthesizer: synthesizer,
		records:     records,
		metrics:     metrics,
	}
}

// SetSessionNotifier attaches the playback-session bridge. Optional; without
// it the outcome is visible on the record only.
func (s *Service) SetSessionNotifier(n SessionNotifier) {
	s.notifier = n
}

// Compose builds the script for a record's spec without touching the
// provider. The playback path uses it for the on-device fallback.
func (s *Service) Compose(spec script.MeditationSpec) script.GeneratedScript {
	return s.composer.Compose(spec)
}

// Generate runs the full pipeline for the record id. The returned record
// reflects the stored outcome. A provider failure is not an error here: the
// record flips to failed but the composed script remains usable, so the
// caller still gets a playable session.
func (s *Service) Generate(ctx context.Context, id string) (store.Record, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return store.Record{}, err
	}

	rec.Status = store.StatusGenerating
	rec.FailureReason = ""
	if rec, err = s.records.Update(ctx, rec); err != nil {
		return store.Record{}, fmt.Errorf("mark generating: %w", err)
	}

	composed := s.composer.Compose(rec.Spec)
	text := script.SynthesisText(composed, rec.Spec.PauseSeconds)
	voiceID := s.catalog.Resolve(rec.Spec.VoiceStyle, rec.Spec.VoiceID)

	started := time.Now()
	result := s.synthesizer.Synthesize(ctx, text, voiceID, voice.DefaultSettings())
	s.metrics.ObserveSynthesisLatency(time.Since(started))

	if result.Failed {
		s.metrics.SynthesisOutcomes.WithLabelValues("failure", string(result.Kind)).Inc()
		rec.Status = store.StatusFailed
		rec.FailureReason = result.Reason
	} else {
		s.metrics.SynthesisOutcomes.WithLabelValues("success", "").Inc()
		rec.Status = store.StatusReady
		rec.AudioURL = result.AudioURL
		rec.AudioFilename = result.Filename
	}

	// The asset write and this record update are not atomic; a crash in
	// between leaves an orphaned asset or a dangling URL. Treated as
	// at-least-once, eventually consistent.
	if rec, err = s.records.Update(ctx, rec); err != nil {
		return store.Record{}, fmt.Errorf("store generation outcome: %w", err)
	}

	if s.notifier != nil {
		if result.Failed {
			retryable := result.Retryable && result.Kind.Recoverable()
			s.notifier.GenerationFailed(rec.ID, result.Reason, result.Kind, retryable)
		} else {
			s.notifier.GenerationSucceeded(rec.ID, result.AudioURL)
		}
	}
	return rec, nil
}
