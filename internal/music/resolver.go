package music

import "strings"

// Track describes one curated background track.
type Track struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// TableKind selects which catalog table a resolution reads. The playback
// engine, not the resolver, decides when to switch to the self-hosted table.
type TableKind string

const (
	TableRemote     TableKind = "remote"
	TableSelfHosted TableKind = "self_hosted"
)

const defaultTrackID = "calm-waters"

// Resolver maps abstract music ids to playable URLs. Background music is
// decorative: unknown ids fall back to a default track, and "none" resolves
// to silence rather than an error.
type Resolver struct {
	remote     map[string]Track
	selfHosted map[string]Track
}

func NewResolver() *Resolver {
	return &Resolver{
		remote: tableByID([]Track{
			{ID: "calm-waters", Title: "Calm Waters", URL: "https://cdn.stillpoint.app/music/calm-waters.mp3"},
			{ID: "forest-rain", Title: "Forest Rain", URL: "https://cdn.stillpoint.app/music/forest-rain.mp3"},
			{ID: "deep-space", Title: "Deep Space Drone", URL: "https://cdn.stillpoint.app/music/deep-space.mp3"},
			{ID: "432hz", Title: "432 Hz Resonance", URL: "https://cdn.stillpoint.app/music/432hz.mp3"},
			{ID: "528hz", Title: "528 Hz Resonance", URL: "https://cdn.stillpoint.app/music/528hz.mp3"},
			{ID: "tibetan-bowls", Title: "Tibetan Singing Bowls", URL: "https://cdn.stillpoint.app/music/tibetan-bowls.mp3"},
			{ID: "ocean-waves", Title: "Ocean Waves", URL: "https://cdn.stillpoint.app/music/ocean-waves.mp3"},
		}),
		// Lower-fidelity copies served from the app itself for environments
		// where the CDN is unreachable.
		selfHosted: tableByID([]Track{
			{ID: "calm-waters", Title: "Calm Waters (local)", URL: "/static/music/calm-waters-lo.mp3"},
			{ID: "forest-rain", Title: "Forest Rain (local)", URL: "/static/music/forest-rain-lo.mp3"},
			{ID: "432hz", Title: "432 Hz Resonance (local)", URL: "/static/music/432hz-lo.mp3"},
			{ID: "ocean-waves", Title: "Ocean Waves (local)", URL: "/static/music/ocean-waves-lo.mp3"},
		}),
	}
}

func tableByID(tracks []Track) map[string]Track {
	m := make(map[string]Track, len(tracks))
	for _, t := range tracks {
		m[t.ID] = t
	}
	return m
}

// Resolve returns the track for musicID from the requested table. An empty or
// "none" id yields ok=false and no URL; an unknown id yields the default
// calming track.
func (r *Resolver) Resolve(musicID string, table TableKind) (Track, bool) {
	id := strings.ToLower(strings.TrimSpace(musicID))
	if id == "" || id == "none" {
		return Track{}, false
	}

	tbl := r.remote
	if table == TableSelfHosted {
		tbl = r.selfHosted
	}
	if t, ok := tbl[id]; ok {
		return t, true
	}
	if t, ok := tbl[defaultTrackID]; ok {
		return t, true
	}
	// A self-hosted table could in principle miss the default; fall back to
	// the remote default rather than failing.
	return r.remote[defaultTrackID], true
}

// Tracks lists the remote catalog for the HTTP surface.
func (r *Resolver) Tracks() []Track {
	out := make([]Track, 0, len(r.remote))
	for _, t := range r.remote {
		out = append(out, t)
	}
	return out
}
