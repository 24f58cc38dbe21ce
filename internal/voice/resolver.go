package voice

import "strings"

// Catalog maps abstract voice styles to concrete provider voice ids. It is
// built once at startup and passed by reference; resolution order is fixed so
// explicit user choices always beat heuristics.
type Catalog struct {
	Styles    map[string]StyleEntry
	DefaultID string
}

// StyleEntry describes one curated voice style.
type StyleEntry struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
	Gender  string `json:"gender"`
	Tone    string `json:"tone"`
}

// DefaultCatalog returns the curated style table. Voice ids are ElevenLabs
// premade voices.
func DefaultCatalog() *Catalog {
	return &Catalog{
		DefaultID: "EXAVITQu4vr4xnSDxMaL", // Sarah
		Styles: map[string]StyleEntry{
			"calm-female":         {VoiceID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah (calm)", Gender: "female", Tone: "calm"},
			"whisper-female":      {VoiceID: "pFZP5JQG7iQjIQuC4Bku", Name: "Lily (whisper)", Gender: "female", Tone: "whisper"},
			"motivational-female": {VoiceID: "cgSgspJ2msm6clMCkdW9", Name: "Jessica (motivational)", Gender: "female", Tone: "motivational"},
			"calm-male":           {VoiceID: "JBFqnCBsd6RMkjVDRZzb", Name: "George (calm)", Gender: "male", Tone: "calm"},
			"whisper-male":        {VoiceID: "onwK4e9ZLuTAKqWW03F9", Name: "Daniel (whisper)", Gender: "male", Tone: "whisper"},
			"motivational-male":   {VoiceID: "pNInz6obpgDQGcFmaJgB", Name: "Adam (motivational)", Gender: "male", Tone: "motivational"},
		},
	}
}

// Allowed reports whether id is a known provider voice id, either the default
// or one of the style entries.
func (c *Catalog) Allowed(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if id == c.DefaultID {
		return true
	}
	for _, e := range c.Styles {
		if e.VoiceID == id {
			return true
		}
	}
	return false
}

// Resolve maps a voice style (and optional exact id override) to a provider
// voice id. Resolution order: exact id override if allow-listed, exact style
// table match, gender+tone substring heuristic, global default. It never
// fails.
func (c *Catalog) Resolve(style, exactID string) string {
	if c.Allowed(exactID) {
		return strings.TrimSpace(exactID)
	}

	key := strings.ToLower(strings.TrimSpace(style))
	if e, ok := c.Styles[key]; ok {
		return e.VoiceID
	}

	if id, ok := c.heuristic(key); ok {
		return id
	}
	return c.DefaultID
}

func (c *Catalog) heuristic(style string) (string, bool) {
	var gender string
	switch {
	case strings.Contains(style, "female"):
		gender = "female"
	case strings.Contains(style, "male"):
		gender = "male"
	default:
		return "", false
	}

	var tone string
	switch {
	case strings.Contains(style, "calm"):
		tone = "calm"
	case strings.Contains(style, "whisper"):
		tone = "whisper"
	case strings.Contains(style, "motivational"):
		tone = "motivational"
	default:
		return "", false
	}

	if e, ok := c.Styles[tone+"-"+gender]; ok {
		return e.VoiceID, true
	}
	return "", false
}
