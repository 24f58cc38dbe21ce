package generation

import (
	"context"
	"strings"
	"testing"

	"github.com/stillpoint-app/stillpoint/internal/observability"
	"github.com/stillpoint-app/stillpoint/internal/reliability"
	"github.com/stillpoint-app/stillpoint/internal/script"
	"github.com/stillpoint-app/stillpoint/internal/store"
	"github.com/stillpoint-app/stillpoint/internal/voice"
)

type stubSynthesizer struct {
	calls    int
	lastText string
	result   voice.SynthesisResult
}

func (s *stubSynthesizer) Synthesize(_ context.Context, text, _ string, _ voice.Settings) voice.SynthesisResult {
	s.calls++
	s.lastText = text
	return s.result
}

func newTestService(t *testing.T, synth *stubSynthesizer) (*Service, store.Store) {
	t.Helper()
	records := store.NewInMemoryStore()
	svc := NewService(
		script.NewComposerWithPick(func(int) int { return 0 }),
		voice.DefaultCatalog(),
		synth,
		records,
		observability.NewMetrics("test_generation_"+t.Name()),
	)
	return svc, records
}

func TestGenerateSuccessUpdatesRecord(t *testing.T) {
	ctx := context.Background()
	synth := &stubSynthesizer{result: voice.SynthesisResult{AudioURL: "http://host/v1/audio/a.mp3", Filename: "a.mp3"}}
	svc, records := newTestService(t, synth)

	rec, err := records.Create(ctx, store.Record{Spec: script.MeditationSpec{
		Purpose:      script.PurposeSleep,
		VoiceStyle:   "calm-female",
		Repetitions:  3,
		PauseSeconds: 2,
		Affirmations: []string{"I rest deeply"},
	}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	out, err := svc.Generate(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out.Status != store.StatusReady {
		t.Fatalf("status = %q, want ready", out.Status)
	}
	if out.AudioURL == "" || out.AudioFilename == "" {
		t.Fatalf("audio link missing: %+v", out)
	}
	if synth.calls != 1 {
		t.Fatalf("synthesizer calls = %d, want 1", synth.calls)
	}
	if !strings.Contains(synth.lastText, `<break time="2s" />`) {
		t.Fatalf("synthesis text missing pause markers: %q", synth.lastText)
	}
}

func TestGenerateProviderFailureMarksFailedButReturnsRecord(t *testing.T) {
	ctx := context.Background()
	synth := &stubSynthesizer{result: voice.SynthesisResult{Failed: true, Reason: "provider status 503", Kind: reliability.FailureProvider}}
	svc, records := newTestService(t, synth)

	rec, _ := records.Create(ctx, store.Record{Spec: script.MeditationSpec{Purpose: script.PurposeFocus, Repetitions: 1}})
	out, err := svc.Generate(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Generate() error = %v, provider failure should not surface as error", err)
	}
	if out.Status != store.StatusFailed {
		t.Fatalf("status = %q, want failed", out.Status)
	}
	if out.FailureReason == "" {
		t.Fatalf("failure reason missing")
	}
	if out.AudioURL != "" {
		t.Fatalf("failed generation should not carry an audio URL")
	}
}

func TestGenerateUnknownRecord(t *testing.T) {
	synth := &stubSynthesizer{}
	svc, _ := newTestService(t, synth)
	if _, err := svc.Generate(context.Background(), "missing"); err != store.ErrNotFound {
		t.Fatalf("Generate(missing) error = %v, want ErrNotFound", err)
	}
	if synth.calls != 0 {
		t.Fatalf("synthesizer called for a missing record")
	}
}

type recordingNotifier struct {
	succeeded []string
	failed    []string
	lastKind  reliability.FailureKind
	lastRetry bool
}

func (n *recordingNotifier) GenerationSucceeded(meditationID, _ string) {
	n.succeeded = append(n.succeeded, meditationID)
}

func (n *recordingNotifier) GenerationFailed(meditationID, _ string, kind reliability.FailureKind, retryable bool) {
	n.failed = append(n.failed, meditationID)
	n.lastKind = kind
	n.lastRetry = retryable
}

func TestGenerateNotifiesSessions(t *testing.T) {
	ctx := context.Background()
	synth := &stubSynthesizer{result: voice.SynthesisResult{AudioURL: "http://host/v1/audio/a.mp3", Filename: "a.mp3"}}
	svc, records := newTestService(t, synth)
	notifier := &recordingNotifier{}
	svc.SetSessionNotifier(notifier)

	rec, err := records.Create(ctx, store.Record{Spec: script.MeditationSpec{Repetitions: 1}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Generate(ctx, rec.ID); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(notifier.succeeded) != 1 || notifier.succeeded[0] != rec.ID {
		t.Fatalf("succeeded notifications = %v, want [%s]", notifier.succeeded, rec.ID)
	}
	if len(notifier.failed) != 0 {
		t.Fatalf("failed notifications = %v, want none", notifier.failed)
	}
}

func TestGenerateFailureNotifiesWithClassification(t *testing.T) {
	ctx := context.Background()
	synth := &stubSynthesizer{result: voice.SynthesisResult{
		Failed:    true,
		Reason:    "provider status 503",
		Kind:      reliability.FailureProvider,
		Retryable: true,
	}}
	svc, records := newTestService(t, synth)
	notifier := &recordingNotifier{}
	svc.SetSessionNotifier(notifier)

	rec, err := records.Create(ctx, store.Record{Spec: script.MeditationSpec{Repetitions: 1}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Generate(ctx, rec.ID); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(notifier.failed) != 1 {
		t.Fatalf("failed notifications = %d, want 1", len(notifier.failed))
	}
	if notifier.lastKind != reliability.FailureProvider {
		t.Fatalf("notified kind = %q, want provider", notifier.lastKind)
	}
	if !notifier.lastRetry {
		t.Fatalf("notified retryable = false, want true for a 503")
	}
}

func TestGenerateCredentialFailureNeverRetryable(t *testing.T) {
	ctx := context.Background()
	synth := &stubSynthesizer{result: voice.SynthesisResult{
		Failed:    true,
		Reason:    "missing provider API key",
		Kind:      reliability.FailureCredential,
		Retryable: true, // even a lying gateway flag must not survive the kind
	}}
	svc, records := newTestService(t, synth)
	notifier := &recordingNotifier{}
	svc.SetSessionNotifier(notifier)

	rec, err := records.Create(ctx, store.Record{Spec: script.MeditationSpec{Repetitions: 1}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Generate(ctx, rec.ID); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if notifier.lastRetry {
		t.Fatalf("notified retryable = true for a credential failure, want false")
	}
}
