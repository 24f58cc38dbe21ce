package playback

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stillpoint-app/stillpoint/internal/music"
)

// State is the playback session lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateGenerating State = "generating"
	StateReady      State = "ready"
	StatePlaying    State = "playing"
	StatePaused     State = "paused"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// SourceKind identifies the active voice source. At most one source is live
// at any time.
type SourceKind string

const (
	SourceNone      SourceKind = ""
	SourcePremium   SourceKind = "premium"
	SourceSynthetic SourceKind = "synthetic"
	SourceSilent    SourceKind = "silent"
)

// EventType identifies engine events pushed to the client.
type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventSourceStart  EventType = "source_start"
	EventSourceStop   EventType = "source_stop"
	EventMusicStart   EventType = "music_start"
	EventMusicPause   EventType = "music_pause"
	EventMusicResume  EventType = "music_resume"
	EventMusicFade    EventType = "music_fade"
	EventStatusHint   EventType = "status_hint"
	EventError        EventType = "error"
	EventCompleted    EventType = "completed"
	EventFailed       EventType = "failed"
)

// Event is one engine-side instruction or notification for the client host.
type Event struct {
	Type      EventType  `json:"type"`
	State     State      `json:"state,omitempty"`
	Source    SourceKind `json:"source,omitempty"`
	URL       string     `json:"url,omitempty"`
	Text      string     `json:"text,omitempty"`
	Volume    int        `json:"volume,omitempty"`
	FadeMS    int        `json:"fade_ms,omitempty"`
	Code      string     `json:"code,omitempty"`
	Retryable bool       `json:"retryable,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}

// musicFadeMS is the fixed fade-out interval applied on completion instead of
// an abrupt stop.
const musicFadeMS = 3000

// wordsPerMinute drives the duration heuristic when no media duration is
// known, which is always the case on the synthetic-speech path.
const wordsPerMinute = 150

// Engine is the per-session playback state machine. The actual audio elements
// live in the client host; the engine owns the state, the source fallback
// chain, and the music handle, and instructs the host through events.
type Engine struct {
	mu sync.Mutex

	state        State
	activeSource SourceKind
	audioURL     string
	scriptText   string
	wordCount    int
	pauseSeconds int
	repetitions  int

	musicID     string
	musicVolume int
	musicTable  music.TableKind
	musicLive   bool
	resolver    *music.Resolver

	startedAt       time.Time
	playedBefore    time.Duration
	mediaDurationMS int64

	completeFired bool
	onComplete    func()
	events        chan Event
	now           func() time.Time
}

// Options seeds an engine with the music selection for the session.
type Options struct {
	MusicID     string
	MusicVolume int
	OnComplete  func()
}

func NewEngine(resolver *music.Resolver, opts Options) *Engine {
	vol := opts.MusicVolume
	if vol < 0 {
		vol = 0
	}
	if vol > 100 {
		vol = 100
	}
	return &Engine{
		state:       StatePending,
		musicID:     opts.MusicID,
		musicVolume: vol,
		musicTable:  music.TableRemote,
		resolver:    resolver,
		onComplete:  opts.OnComplete,
		events:      make(chan Event, 64),
		now:         time.Now,
	}
}

// Events streams engine instructions for the client host. Sends never block;
// when the buffer is saturated the oldest consumer is already gone and events
// are dropped.
func (e *Engine) Events() <-chan Event { return e.events }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ActiveSource returns the currently live voice source.
func (e *Engine) ActiveSource() SourceKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeSource
}

// BeginGeneration moves pending → generating.
func (e *Engine) BeginGeneration() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePending {
		return fmt.Errorf("begin generation in state %q", e.state)
	}
	e.setState(StateGenerating)
	return nil
}

// Ready moves generating → ready. audioURL may be empty: a non-empty script
// alone is enough, because on-device speech can carry the session.
func (e *Engine) Ready(audioURL, scriptText string, wordCount, pauseSeconds, repetitions int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePending && e.state != StateGenerating {
		return fmt.Errorf("ready in state %q", e.state)
	}
	if strings.TrimSpace(audioURL) == "" && strings.TrimSpace(scriptText) == "" {
		e.failLocked("no playable source: neither audio nor script available")
		return nil
	}
	e.audioURL = strings.TrimSpace(audioURL)
	e.scriptText = scriptText
	e.wordCount = wordCount
	e.pauseSeconds = pauseSeconds
	e.repetitions = repetitions
	e.setState(StateReady)
	if e.audioURL == "" {
		e.emit(Event{Type: EventStatusHint, Detail: "using fallback voice"})
	}
	return nil
}

// FailGeneration reports a generation that left the session with nothing
// playable, e.g. the meditation was deleted while it waited.
func (e *Engine) FailGeneration(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateCompleted || e.state == StateFailed {
		return
	}
	e.failLocked(reason)
}

// AttachAudio hands a late premium audio URL to a session that became ready
// on the fallback voice. It reports whether the URL was taken; a session
// already carrying premium audio or already playing keeps what it has.
func (e *Engine) AttachAudio(audioURL string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	url := strings.TrimSpace(audioURL)
	if url == "" || e.audioURL != "" || e.state != StateReady {
		return false
	}
	e.audioURL = url
	e.emit(Event{Type: EventStatusHint, Detail: "premium audio ready"})
	return true
}

// GenerationError surfaces a failed synthesis to the attached client. The
// session itself keeps going on the fallback voice; this only informs.
func (e *Engine) GenerationError(code, detail string, retryable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateCompleted || e.state == StateFailed {
		return
	}
	e.emit(Event{Type: EventError, Code: code, Retryable: retryable, Detail: detail})
}

// Play moves ready → playing, activating the first source in the chain and
// starting the background music loop.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return fmt.Errorf("play in state %q", e.state)
	}
	e.startSourceLocked(e.firstSourceLocked())
	e.startMusicLocked()
	e.startedAt = e.now()
	e.playedBefore = 0
	e.setState(StatePlaying)
	return nil
}

// Pause moves playing → paused. Premium audio pauses natively; the synthetic
// utterance uses the host speech engine's pause, and the music loop pauses
// with it.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		return fmt.Errorf("pause in state %q", e.state)
	}
	e.playedBefore += e.now().Sub(e.startedAt)
	e.setState(StatePaused)
	if e.musicLive {
		e.emit(Event{Type: EventMusicPause})
	}
	return nil
}

// Resume moves paused → playing.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return fmt.Errorf("resume in state %q", e.state)
	}
	e.startedAt = e.now()
	e.setState(StatePlaying)
	if e.musicLive {
		e.emit(Event{Type: EventMusicResume})
	}
	return nil
}

// SourceError reports a load or decode error on the active source and falls
// to the next source in the chain. Only chain exhaustion reaches failed.
func (e *Engine) SourceError(detail string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying && e.state != StatePaused && e.state != StateReady {
		return
	}

	if e.activeSource == SourceNone {
		// Preload failure before any source is live: the premium element
		// errored while the session sits in ready. Invalidate the URL so the
		// chain head re-derives on play; the session never fails here while
		// the script can still carry it.
		e.audioURL = ""
		e.mediaDurationMS = 0
		e.emit(Event{Type: EventError, Code: "source_error", Source: SourcePremium, Retryable: true, Detail: detail})
		e.emit(Event{Type: EventStatusHint, Detail: "using fallback voice"})
		return
	}

	failed := e.activeSource
	next := e.nextSourceLocked()
	if next == SourceNone {
		e.stopSourceLocked()
		e.stopMusicLocked(0)
		e.emit(Event{Type: EventError, Code: "source_exhausted", Source: failed, Retryable: false, Detail: detail})
		e.failLocked("playback source chain exhausted: " + detail)
		return
	}
	e.emit(Event{Type: EventError, Code: "source_error", Source: failed, Retryable: true, Detail: detail})
	e.emit(Event{Type: EventStatusHint, Detail: "using fallback voice"})
	e.startSourceLocked(next)
}

// SourceEnded reports the natural end of the active source: playing →
// completed, with the music faded out rather than cut.
func (e *Engine) SourceEnded() {
	e.mu.Lock()
	fire := false
	if e.state == StatePlaying || e.state == StatePaused {
		e.stopSourceLocked()
		e.stopMusicLocked(musicFadeMS)
		e.setState(StateCompleted)
		if !e.completeFired {
			e.completeFired = true
			fire = true
		}
	}
	cb := e.onComplete
	e.mu.Unlock()

	if fire {
		e.emit(Event{Type: EventCompleted})
		if cb != nil {
			cb()
		}
	}
}

// ReportMediaDuration records the exact media duration once the client host
// has decoded the premium source.
func (e *Engine) ReportMediaDuration(ms int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ms > 0 {
		e.mediaDurationMS = ms
	}
}

// MusicLoadError switches the music handle to the self-hosted table and
// restarts the loop from there. Music stays decorative; a second failure just
// stops it.
func (e *Engine) MusicLoadError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.musicLive {
		return
	}
	if e.musicTable == music.TableSelfHosted {
		e.stopMusicLocked(0)
		return
	}
	e.musicTable = music.TableSelfHosted
	e.musicLive = false
	e.startMusicLocked()
}

// Progress estimates playback position against the estimated total duration.
// Wall-clock based: exact media duration when known, word-count heuristic
// otherwise.
func (e *Engine) Progress() (elapsed, total time.Duration, fraction float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed = e.playedBefore
	if e.state == StatePlaying {
		elapsed += e.now().Sub(e.startedAt)
	}
	total = e.estimatedTotalLocked()
	if total <= 0 {
		return elapsed, 0, 0
	}
	fraction = float64(elapsed) / float64(total)
	if fraction > 1 {
		fraction = 1
	}
	return elapsed, total, fraction
}

// Close tears the session down synchronously: the live source stops, the
// music stops without fade, and no further events fire. Idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateCompleted || e.state == StateFailed {
		return
	}
	e.stopSourceLocked()
	e.stopMusicLocked(0)
	e.completeFired = true // suppress any late completion
	e.setState(StateCompleted)
}

func (e *Engine) estimatedTotalLocked() time.Duration {
	if e.mediaDurationMS > 0 && e.activeSource == SourcePremium {
		return time.Duration(e.mediaDurationMS) * time.Millisecond
	}
	if e.wordCount <= 0 {
		return 0
	}
	speech := time.Duration(float64(e.wordCount) / wordsPerMinute * float64(time.Minute))
	pauses := time.Duration(e.pauseSeconds) * time.Second * time.Duration(max(e.repetitions-1, 0))
	return speech + pauses
}

// firstSourceLocked picks the head of the fallback chain.
func (e *Engine) firstSourceLocked() SourceKind {
	if e.audioURL != "" {
		return SourcePremium
	}
	if strings.TrimSpace(e.scriptText) != "" {
		return SourceSynthetic
	}
	return SourceSilent
}

// nextSourceLocked picks the source after the active one: premium →
// synthetic → silent → none.
func (e *Engine) nextSourceLocked() SourceKind {
	switch e.activeSource {
	case SourcePremium:
		if strings.TrimSpace(e.scriptText) != "" {
			return SourceSynthetic
		}
		return SourceSilent
	case SourceSynthetic:
		return SourceSilent
	default:
		return SourceNone
	}
}

// startSourceLocked activates a source, fully stopping the previous one
// first so two voices never overlap.
func (e *Engine) startSourceLocked(kind SourceKind) {
	e.stopSourceLocked()
	e.activeSource = kind
	ev := Event{Type: EventSourceStart, Source: kind}
	switch kind {
	case SourcePremium:
		ev.URL = e.audioURL
	case SourceSynthetic:
		ev.Text = e.scriptText
	}
	e.emit(ev)
}

func (e *Engine) stopSourceLocked() {
	if e.activeSource == SourceNone {
		return
	}
	e.emit(Event{Type: EventSourceStop, Source: e.activeSource})
	e.activeSource = SourceNone
}

func (e *Engine) startMusicLocked() {
	if e.musicLive {
		return
	}
	track, ok := e.resolver.Resolve(e.musicID, e.musicTable)
	if !ok {
		return
	}
	e.musicLive = true
	e.emit(Event{Type: EventMusicStart, URL: track.URL, Volume: e.musicVolume})
}

func (e *Engine) stopMusicLocked(fadeMS int) {
	if !e.musicLive {
		return
	}
	e.musicLive = false
	e.emit(Event{Type: EventMusicFade, FadeMS: fadeMS})
}

func (e *Engine) failLocked(reason string) {
	e.setState(StateFailed)
	e.emit(Event{Type: EventFailed, Detail: reason})
}

func (e *Engine) setState(s State) {
	e.state = s
	e.emit(Event{Type: EventStateChanged, State: s})
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
