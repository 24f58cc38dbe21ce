package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientControl MessageType = "client_control"
	TypeSourceEvent   MessageType = "source_event"
	TypeMusicEvent    MessageType = "music_event"
	TypeProgressEvent MessageType = "progress_event"
	TypeErrorEvent    MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientControl carries user playback actions from the host UI.
type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"` // play | pause | resume | end
}

// SourceEvent reports host audio/speech element callbacks for the active
// voice source.
type SourceEvent struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	Event      string      `json:"event"` // loaded | error | ended
	Source     string      `json:"source,omitempty"`
	Detail     string      `json:"detail,omitempty"`
	DurationMS int64       `json:"duration_ms,omitempty"`
}

// MusicEvent reports host callbacks for the background-music element.
type MusicEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Event     string      `json:"event"` // error
	Detail    string      `json:"detail,omitempty"`
}

// ProgressEvent is the server-side progress estimate pushed to the UI.
type ProgressEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	ElapsedMS int64       `json:"elapsed_ms"`
	TotalMS   int64       `json:"total_ms"`
	Fraction  float64     `json:"fraction"`
}

// ErrorEvent surfaces recoverable and terminal errors to the UI.
type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

var validControlActions = map[string]bool{
	"play":   true,
	"pause":  true,
	"resume": true,
	"end":    true,
}

var validSourceEvents = map[string]bool{
	"loaded": true,
	"error":  true,
	"ended":  true,
}

// ParseClientMessage validates and decodes an inbound websocket payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || !validControlActions[msg.Action] {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	case TypeSourceEvent:
		var msg SourceEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || !validSourceEvents[msg.Event] {
			return nil, errors.New("invalid source_event")
		}
		return msg, nil
	case TypeMusicEvent:
		var msg MusicEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Event != "error" {
			return nil, errors.New("invalid music_event")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
