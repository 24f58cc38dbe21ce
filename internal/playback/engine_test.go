package playback

import (
	"testing"
	"time"

	"github.com/stillpoint-app/stillpoint/internal/music"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	return NewEngine(music.NewResolver(), opts)
}

func drain(e *Engine) []Event {
	var out []Event
	for {
		select {
		case ev := <-e.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countEvents(events []Event, typ EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func readyEngine(t *testing.T, e *Engine, audioURL, script string) {
	t.Helper()
	if err := e.BeginGeneration(); err != nil {
		t.Fatalf("BeginGeneration() error = %v", err)
	}
	if err := e.Ready(audioURL, script, 40, 2, 3); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	completed := 0
	e := newTestEngine(t, Options{MusicID: "calm-waters", MusicVolume: 40, OnComplete: func() { completed++ }})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "script text")

	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if e.State() != StatePlaying {
		t.Fatalf("state = %q, want playing", e.State())
	}
	if e.ActiveSource() != SourcePremium {
		t.Fatalf("active source = %q, want premium", e.ActiveSource())
	}

	if err := e.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := e.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	e.SourceEnded()
	if e.State() != StateCompleted {
		t.Fatalf("state = %q, want completed", e.State())
	}
	if completed != 1 {
		t.Fatalf("completion callback fired %d times, want 1", completed)
	}

	events := drain(e)
	if countEvents(events, EventMusicStart) != 1 {
		t.Fatalf("music_start events = %d, want 1", countEvents(events, EventMusicStart))
	}
	fades := 0
	for _, ev := range events {
		if ev.Type == EventMusicFade {
			fades++
			if ev.FadeMS != musicFadeMS {
				t.Fatalf("fade interval = %d, want %d", ev.FadeMS, musicFadeMS)
			}
		}
	}
	if fades != 1 {
		t.Fatalf("music_fade events = %d, want 1", fades)
	}
}

func TestPremiumLoadErrorFallsToSyntheticNotFailed(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "a non-empty script")

	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	e.SourceError("network error")

	if e.State() != StatePlaying {
		t.Fatalf("state after premium load error = %q, want playing", e.State())
	}
	if e.ActiveSource() != SourceSynthetic {
		t.Fatalf("active source = %q, want synthetic", e.ActiveSource())
	}
}

func TestExactlyOneSourceLiveAcrossFallback(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "script")
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	e.SourceError("decode error")

	events := drain(e)
	live := 0
	for _, ev := range events {
		switch ev.Type {
		case EventSourceStart:
			live++
			if live > 1 {
				t.Fatalf("second source started before the first stopped")
			}
		case EventSourceStop:
			live--
		}
	}
	if live != 1 {
		t.Fatalf("live sources after fallback = %d, want 1", live)
	}
}

func TestChainExhaustionReachesFailed(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "script")
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	e.SourceError("premium failed") // → synthetic
	e.SourceError("speech failed")  // → silent
	if e.State() != StatePlaying {
		t.Fatalf("state = %q, want playing on silent placeholder", e.State())
	}
	if e.ActiveSource() != SourceSilent {
		t.Fatalf("active source = %q, want silent", e.ActiveSource())
	}
	e.SourceError("placeholder failed") // exhausted
	if e.State() != StateFailed {
		t.Fatalf("state = %q, want failed after chain exhaustion", e.State())
	}
}

func TestReadyWithoutAudioUsesSynthetic(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "", "only a script")
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if e.ActiveSource() != SourceSynthetic {
		t.Fatalf("active source = %q, want synthetic", e.ActiveSource())
	}
	events := drain(e)
	if countEvents(events, EventStatusHint) == 0 {
		t.Fatalf("no fallback status hint emitted")
	}
}

func TestReadyWithNothingPlayableFails(t *testing.T) {
	e := newTestEngine(t, Options{})
	if err := e.BeginGeneration(); err != nil {
		t.Fatalf("BeginGeneration() error = %v", err)
	}
	if err := e.Ready("", "", 0, 0, 0); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if e.State() != StateFailed {
		t.Fatalf("state = %q, want failed with no playable source", e.State())
	}
}

func TestMusicNoneCreatesNoHandle(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "script")
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	e.SourceEnded()

	events := drain(e)
	for _, ev := range events {
		switch ev.Type {
		case EventMusicStart, EventMusicPause, EventMusicResume, EventMusicFade:
			t.Fatalf("music event %q emitted for music id none", ev.Type)
		}
	}
}

func TestMusicLoadErrorSwitchesToSelfHostedTable(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "ocean-waves", MusicVolume: 50})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "script")
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	drain(e)

	e.MusicLoadError()
	events := drain(e)
	var started []Event
	for _, ev := range events {
		if ev.Type == EventMusicStart {
			started = append(started, ev)
		}
	}
	if len(started) != 1 {
		t.Fatalf("music_start after load error = %d, want 1", len(started))
	}
	if got := started[0].URL; got != "/static/music/ocean-waves-lo.mp3" {
		t.Fatalf("restarted music URL = %q, want self-hosted copy", got)
	}
}

func TestProgressUsesWordCountHeuristic(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	base := time.Unix(1000, 0)
	e.now = func() time.Time { return base }

	readyEngine(t, e, "", "script") // wordCount=40, pause=2s, reps=3 via helper
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	base = base.Add(8 * time.Second)
	elapsed, total, fraction := e.Progress()
	if elapsed != 8*time.Second {
		t.Fatalf("elapsed = %v, want 8s", elapsed)
	}
	// 40 words at 150 wpm = 16s, plus 2 pauses of 2s = 20s total.
	if total != 20*time.Second {
		t.Fatalf("total = %v, want 20s", total)
	}
	if fraction < 0.39 || fraction > 0.41 {
		t.Fatalf("fraction = %v, want ~0.4", fraction)
	}
}

func TestProgressPausedDoesNotAdvance(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	base := time.Unix(1000, 0)
	e.now = func() time.Time { return base }

	readyEngine(t, e, "", "script")
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	base = base.Add(5 * time.Second)
	if err := e.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	base = base.Add(30 * time.Second)
	elapsed, _, _ := e.Progress()
	if elapsed != 5*time.Second {
		t.Fatalf("elapsed while paused = %v, want 5s", elapsed)
	}
}

func TestCloseSuppressesLateCompletion(t *testing.T) {
	fired := 0
	e := newTestEngine(t, Options{MusicID: "calm-waters", OnComplete: func() { fired++ }})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "script")
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	e.Close()
	e.SourceEnded() // stale end event after teardown
	if fired != 0 {
		t.Fatalf("completion callback fired %d times after Close, want 0", fired)
	}
}

func TestPremiumPreloadErrorInReadyFallsToSynthetic(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "a non-empty script")

	// The client preloads the premium element before pressing play and the
	// load fails while the session still sits in ready.
	e.SourceError("premium preload failed")

	if e.State() != StateReady {
		t.Fatalf("state after preload error = %q, want ready", e.State())
	}
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if e.State() != StatePlaying {
		t.Fatalf("state = %q, want playing on the fallback voice", e.State())
	}
	if e.ActiveSource() != SourceSynthetic {
		t.Fatalf("active source = %q, want synthetic", e.ActiveSource())
	}

	events := drain(e)
	if countEvents(events, EventStatusHint) == 0 {
		t.Fatalf("no fallback status hint emitted after preload error")
	}
	for _, ev := range events {
		if ev.Type == EventError {
			if !ev.Retryable {
				t.Fatalf("preload error event retryable = false, want true")
			}
			break
		}
	}
	if countEvents(events, EventError) == 0 {
		t.Fatalf("no error event emitted for the preload failure")
	}
}

func TestSourceErrorEmitsErrorEvents(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "http://host/v1/audio/a.mp3", "script")
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	e.SourceError("premium failed")
	e.SourceError("speech failed")
	e.SourceError("placeholder failed")

	events := drain(e)
	var fallbacks, exhausted int
	for _, ev := range events {
		if ev.Type != EventError {
			continue
		}
		switch ev.Code {
		case "source_error":
			fallbacks++
			if !ev.Retryable {
				t.Fatalf("fallback error event retryable = false, want true")
			}
		case "source_exhausted":
			exhausted++
			if ev.Retryable {
				t.Fatalf("exhaustion error event retryable = true, want false")
			}
		}
	}
	if fallbacks != 2 {
		t.Fatalf("fallback error events = %d, want 2", fallbacks)
	}
	if exhausted != 1 {
		t.Fatalf("exhaustion error events = %d, want 1", exhausted)
	}
}

func TestFailGenerationFailsSession(t *testing.T) {
	e := newTestEngine(t, Options{})
	if err := e.BeginGeneration(); err != nil {
		t.Fatalf("BeginGeneration() error = %v", err)
	}
	e.FailGeneration("meditation no longer exists")
	if e.State() != StateFailed {
		t.Fatalf("state = %q, want failed", e.State())
	}
	events := drain(e)
	if countEvents(events, EventFailed) != 1 {
		t.Fatalf("failed events = %d, want 1", countEvents(events, EventFailed))
	}
}

func TestAttachAudioUpgradesFallbackSession(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "", "only a script")

	if !e.AttachAudio("http://host/v1/audio/late.mp3") {
		t.Fatalf("AttachAudio() = false on a ready fallback session, want true")
	}
	if e.AttachAudio("http://host/v1/audio/other.mp3") {
		t.Fatalf("AttachAudio() = true with audio already attached, want false")
	}
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if e.ActiveSource() != SourcePremium {
		t.Fatalf("active source = %q, want premium after late attach", e.ActiveSource())
	}
	if e.AttachAudio("http://host/v1/audio/too-late.mp3") {
		t.Fatalf("AttachAudio() = true while playing, want false")
	}
}

func TestGenerationErrorOnlyInforms(t *testing.T) {
	e := newTestEngine(t, Options{MusicID: "none"})
	readyEngine(t, e, "", "only a script")

	e.GenerationError("provider", "provider status 503", true)

	if e.State() != StateReady {
		t.Fatalf("state after generation error = %q, want ready", e.State())
	}
	events := drain(e)
	found := false
	for _, ev := range events {
		if ev.Type == EventError {
			found = true
			if ev.Code != "provider" || !ev.Retryable {
				t.Fatalf("error event = %+v, want code provider and retryable", ev)
			}
		}
	}
	if !found {
		t.Fatalf("no error event emitted")
	}
}
