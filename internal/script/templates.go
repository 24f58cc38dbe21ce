package script

// templateFamily holds the canned framing text for one purpose. Affirmation
// content never lives here; it always comes from the user's MeditationSpec.
type templateFamily struct {
	Intro         string
	Breathing     string
	Visualization string
	Ending        string
	// Transitions are spoken between affirmation repetitions. One is picked
	// at random per repetition when more than one exists.
	Transitions []string
}

var families = map[Purpose]templateFamily{
	PurposeSleep: {
		Intro:         "Welcome. Find a comfortable position and let your body sink into the surface beneath you. This is your time to rest.",
		Breathing:     "Take a slow breath in through your nose. Hold it gently. And release it softly through your mouth. Again, breathe in. And let it all go.",
		Visualization: "Picture yourself lying in a quiet room at dusk. The light is fading, the air is warm, and there is nothing left to do today.",
		Ending:        "Let these words settle as you drift. Sleep will come on its own. Goodnight.",
		Transitions: []string{
			"Let that thought rest with you.",
			"Breathe it in, slowly.",
			"Allow the words to soften you further.",
		},
	},
	PurposeMorning: {
		Intro:         "Good morning. Sit or stand comfortably, and let yourself arrive in this new day.",
		Breathing:     "Breathe in deeply, filling your lungs with fresh air. And breathe out anything left over from yesterday. Once more, in. And out.",
		Visualization: "Imagine the morning light spreading across the room, touching everything it reaches, including you.",
		Ending:        "Carry this energy with you. The day is yours. Begin when you are ready.",
		Transitions: []string{
			"Say it again with the morning light.",
			"Feel the truth of it as you wake.",
		},
	},
	PurposeFocus: {
		Intro:         "Welcome. Sit upright, settle your hands, and bring your attention to this single moment.",
		Breathing:     "Breathe in for four counts. Hold for four. And release for four. Let each breath sharpen your attention.",
		Visualization: "Picture your mind as a clear desk. One task sits in front of you. Everything else is put away.",
		Ending:        "Your attention is gathered. Return to your work with this clarity.",
		Transitions: []string{
			"Hold that intention steady.",
			"Let it anchor your focus.",
		},
	},
	PurposeConfidence: {
		Intro:         "Welcome. Stand or sit tall, shoulders open, and take up the space you deserve.",
		Breathing:     "Breathe in strength. Breathe out doubt. In again, steady and full. And out, releasing any hesitation.",
		Visualization: "See yourself walking into the room you have been thinking about, calm and certain, exactly as you intend to be.",
		Ending:        "These words are already true of you. Step forward and act like it.",
		Transitions: []string{
			"Say it like you mean it.",
			"Feel it settle into your posture.",
			"Own those words completely.",
		},
	},
	PurposeStress: {
		Intro:         "Welcome. Wherever you are, let your shoulders drop and unclench your jaw. Nothing here needs solving right now.",
		Breathing:     "Take a long, slow breath in. And an even longer breath out. Each exhale carries a little of the tension away.",
		Visualization: "Imagine the tension in your body as a tight knot slowly loosening, strand by strand, with every breath.",
		Ending:        "The weight is lighter now. You can return to your day a little softer than you left it.",
		Transitions: []string{
			"Let the words loosen the knot a little more.",
			"Exhale, and repeat it gently.",
		},
	},
	PurposeDefault: {
		Intro:         "Welcome. Find a comfortable position and allow yourself to be exactly where you are.",
		Breathing:     "Breathe in slowly. And breathe out completely. Let each breath bring you further into this moment.",
		Visualization: "Picture a calm, open space. It is yours alone, and nothing can disturb it.",
		Ending:        "Take one more breath, and when you are ready, gently return.",
		Transitions: []string{
			"Let that settle.",
			"Stay with those words a moment.",
		},
	},
}

// familyFor returns the template family for a purpose, falling back to the
// default family for anything unrecognized.
func familyFor(p Purpose) templateFamily {
	if f, ok := families[p]; ok {
		return f
	}
	return families[PurposeDefault]
}
