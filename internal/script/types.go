package script

import "strings"

// Purpose selects the template family used for the framing segments.
type Purpose string

const (
	PurposeSleep      Purpose = "sleep"
	PurposeMorning    Purpose = "morning"
	PurposeFocus      Purpose = "focus"
	PurposeConfidence Purpose = "confidence"
	PurposeStress     Purpose = "stress"
	PurposeDefault    Purpose = "default"
)

// MeditationSpec is the immutable input to composition.
type MeditationSpec struct {
	Purpose         Purpose  `json:"purpose"`
	VoiceStyle      string   `json:"voice_style"`
	VoiceID         string   `json:"voice_id,omitempty"`
	Affirmations    []string `json:"affirmations"`
	BackgroundMusic string   `json:"background_music"`
	MusicVolume     int      `json:"music_volume"`
	PauseSeconds    int      `json:"pause_seconds"`
	Repetitions     int      `json:"repetitions"`
	IsNap           bool     `json:"is_nap"`
	WakeFadeIn      bool     `json:"wake_fade_in"`
}

// SegmentKind identifies a script segment's role.
type SegmentKind string

const (
	SegmentIntro         SegmentKind = "intro"
	SegmentBreathing     SegmentKind = "breathing"
	SegmentVisualization SegmentKind = "visualization"
	SegmentAffirmation   SegmentKind = "affirmation"
	SegmentPause         SegmentKind = "pause"
	SegmentEnding        SegmentKind = "ending"
)

type Segment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
}

// GeneratedScript is the ordered output of composition. The segment order is
// fixed: intro, breathing, visualization, repetitions of affirmation+pause,
// ending.
type GeneratedScript struct {
	Purpose          Purpose   `json:"purpose"`
	Segments         []Segment `json:"segments"`
	Repetitions      int       `json:"repetitions"`
	EstimatedMinutes int       `json:"estimated_minutes"`
}

// Flatten joins the segments in order into the single string used for
// synthesis and on-device speech.
func (g GeneratedScript) Flatten() string {
	parts := make([]string, 0, len(g.Segments))
	for _, seg := range g.Segments {
		t := strings.TrimSpace(seg.Text)
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

// WordCount counts whitespace-separated words in the flattened script. The
// playback engine uses it for its duration heuristic.
func (g GeneratedScript) WordCount() int {
	return len(strings.Fields(g.Flatten()))
}
