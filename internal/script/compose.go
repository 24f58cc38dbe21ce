package script

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Composer turns a MeditationSpec into a GeneratedScript. It performs no I/O;
// the only non-determinism is the transition phrasing picked per repetition.
type Composer struct {
	pick func(n int) int
}

func NewComposer() *Composer {
	return &Composer{pick: rand.Intn}
}

// NewComposerWithPick fixes the transition choice, for tests.
func NewComposerWithPick(pick func(n int) int) *Composer {
	return &Composer{pick: pick}
}

// Compose builds the ordered script. Breathing and visualization appear
// exactly once; the affirmation block repeats spec.Repetitions times with a
// pause narration between entries.
func (c *Composer) Compose(spec MeditationSpec) GeneratedScript {
	reps := spec.Repetitions
	if reps < 1 {
		reps = 1
	}
	fam := familyFor(spec.Purpose)

	segments := make([]Segment, 0, 4+2*reps)
	segments = append(segments,
		Segment{Kind: SegmentIntro, Text: fam.Intro},
		Segment{Kind: SegmentBreathing, Text: fam.Breathing},
		Segment{Kind: SegmentVisualization, Text: fam.Visualization},
	)

	affirmation := affirmationText(spec.Affirmations)
	pause := pauseNarration(spec.PauseSeconds)
	for i := 0; i < reps; i++ {
		segments = append(segments, Segment{Kind: SegmentAffirmation, Text: affirmation})
		if i < reps-1 {
			transition := fam.Transitions[c.pick(len(fam.Transitions))]
			segments = append(segments, Segment{Kind: SegmentPause, Text: transition + " " + pause})
		}
	}

	ending := fam.Ending
	if spec.IsNap && spec.WakeFadeIn {
		ending += " When it is time, you will wake gently, rested and clear."
	}
	segments = append(segments, Segment{Kind: SegmentEnding, Text: ending})

	return GeneratedScript{
		Purpose:          spec.Purpose,
		Segments:         segments,
		Repetitions:      reps,
		EstimatedMinutes: EstimatedMinutes(reps),
	}
}

// EstimatedMinutes is the design constant surfaced to the UI, not a measured
// duration.
func EstimatedMinutes(repetitions int) int {
	if repetitions < 1 {
		repetitions = 1
	}
	return int(math.Round(float64(repetitions)*1.5 + 2))
}

func affirmationText(affirmations []string) string {
	cleaned := make([]string, 0, len(affirmations))
	for _, a := range affirmations {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if !strings.ContainsAny(a[len(a)-1:], ".!?") {
			a += "."
		}
		cleaned = append(cleaned, a)
	}
	if len(cleaned) == 0 {
		return "I am calm. I am present."
	}
	return strings.Join(cleaned, " ")
}

func pauseNarration(seconds int) string {
	if seconds <= 0 {
		return "Take a moment of stillness."
	}
	if seconds == 1 {
		return "Rest in silence for one second."
	}
	return fmt.Sprintf("Rest in silence for %d seconds.", seconds)
}

// SynthesisText returns the flattened script with a provider break tag
// inserted after each sentence boundary, parameterized by the pause duration.
// Tags go once per sentence, not once per segment.
func SynthesisText(g GeneratedScript, pauseSeconds int) string {
	if pauseSeconds < 1 {
		pauseSeconds = 1
	}
	tag := fmt.Sprintf(`<break time="%ds" />`, pauseSeconds)

	flat := g.Flatten()
	var b strings.Builder
	b.Grow(len(flat) + len(flat)/32*len(tag))
	for i := 0; i < len(flat); i++ {
		ch := flat[i]
		b.WriteByte(ch)
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		// Only a boundary when followed by whitespace or end of text.
		if i+1 < len(flat) && flat[i+1] != ' ' && flat[i+1] != '\n' {
			continue
		}
		b.WriteString(" " + tag)
	}
	return b.String()
}
