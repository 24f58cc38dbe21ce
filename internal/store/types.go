package store

import (
	"context"
	"errors"
	"time"

	"github.com/stillpoint-app/stillpoint/internal/script"
)

var ErrNotFound = errors.New("meditation not found")

// GenerationStatus tracks the server-side synthesis lifecycle of a record.
type GenerationStatus string

const (
	StatusDraft      GenerationStatus = "draft"
	StatusGenerating GenerationStatus = "generating"
	StatusReady      GenerationStatus = "ready"
	StatusFailed     GenerationStatus = "failed"
)

// Record is one saved meditation. The audio link is at-least-once and
// eventually consistent with the asset store: a crash between asset write and
// record update can leave either side ahead of the other.
type Record struct {
	ID            string                `json:"id"`
	Spec          script.MeditationSpec `json:"spec"`
	Status        GenerationStatus      `json:"status"`
	AudioURL      string                `json:"audio_url,omitempty"`
	AudioFilename string                `json:"audio_filename,omitempty"`
	FailureReason string                `json:"failure_reason,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// Store persists meditation records.
type Store interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
