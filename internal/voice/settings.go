package voice

// Settings are the provider voice settings sent with a synthesis request.
type Settings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultSettings are tuned for slow, soft meditation narration.
func DefaultSettings() Settings {
	return Settings{
		Stability:       0.72,
		SimilarityBoost: 0.85,
		Style:           0.15,
		UseSpeakerBoost: true,
	}
}

// Normalize clamps settings into the provider's accepted ranges, filling
// zero values with the defaults.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.Stability <= 0 {
		s.Stability = def.Stability
	}
	if s.SimilarityBoost <= 0 {
		s.SimilarityBoost = def.SimilarityBoost
	}
	if s.Style < 0 {
		s.Style = 0
	}
	if s.Stability > 1 {
		s.Stability = 1
	}
	if s.SimilarityBoost > 1 {
		s.SimilarityBoost = 1
	}
	if s.Style > 1 {
		s.Style = 1
	}
	return s
}
