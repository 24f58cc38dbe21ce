package httpapi

import (
	"net/http"
	"sort"
)

type voiceStyleSummary struct {
	Style   string `json:"style"`
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
	Gender  string `json:"gender"`
	Tone    string `json:"tone"`
}

type listVoicesResponse struct {
	DefaultVoiceID string              `json:"default_voice_id"`
	Recommended    []voiceStyleSummary `json:"recommended"`
	Styles         []voiceStyleSummary `json:"styles"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	styles := make([]voiceStyleSummary, 0, len(s.voices.Styles))
	for style, entry := range s.voices.Styles {
		styles = append(styles, voiceStyleSummary{
			Style:   style,
			VoiceID: entry.VoiceID,
			Name:    entry.Name,
			Gender:  entry.Gender,
			Tone:    entry.Tone,
		})
	}
	sort.Slice(styles, func(i, j int) bool { return styles[i].Style < styles[j].Style })

	recommended := make([]voiceStyleSummary, 0, 2)
	for _, st := range styles {
		if st.Tone == "calm" {
			recommended = append(recommended, st)
		}
	}

	respondJSON(w, http.StatusOK, listVoicesResponse{
		DefaultVoiceID: s.voices.DefaultID,
		Recommended:    recommended,
		Styles:         styles,
	})
}

func (s *Server) handleListMusic(w http.ResponseWriter, _ *http.Request) {
	tracks := s.music.Tracks()
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID < tracks[j].ID })
	respondJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}
