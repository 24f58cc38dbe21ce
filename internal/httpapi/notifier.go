package httpapi

import (
	"context"
	"log"

	"github.com/stillpoint-app/stillpoint/internal/generation"
	"github.com/stillpoint-app/stillpoint/internal/playback"
	"github.com/stillpoint-app/stillpoint/internal/reliability"
	"github.com/stillpoint-app/stillpoint/internal/store"
)

// sessionNotifier bridges generation outcomes to the playback sessions
// attached to the meditation. Sessions still waiting in generating get
// completed; sessions already ready on the fallback voice pick up the
// premium audio late.
type sessionNotifier struct {
	records   store.Store
	sessions  *playback.Manager
	generator *generation.Service
}

func (n *sessionNotifier) GenerationSucceeded(meditationID, audioURL string) {
	for _, sess := range n.sessions.ForMeditation(meditationID) {
		switch sess.Engine.State() {
		case playback.StatePending, playback.StateGenerating:
			n.completeWaiting(sess, meditationID, audioURL)
		default:
			sess.Engine.AttachAudio(audioURL)
		}
	}
}

func (n *sessionNotifier) GenerationFailed(meditationID, reason string, kind reliability.FailureKind, retryable bool) {
	code := string(kind)
	if code == "" {
		code = "generation_failed"
	}
	for _, sess := range n.sessions.ForMeditation(meditationID) {
		sess.Engine.GenerationError(code, reason, retryable)
		switch sess.Engine.State() {
		case playback.StatePending, playback.StateGenerating:
			// The composed script still carries the session.
			n.completeWaiting(sess, meditationID, "")
		}
	}
}

func (n *sessionNotifier) completeWaiting(sess *playback.Session, meditationID, audioURL string) {
	rec, err := n.records.Get(context.Background(), meditationID)
	if err != nil {
		sess.Engine.FailGeneration("meditation no longer exists: " + err.Error())
		return
	}
	composed := n.generator.Compose(rec.Spec)
	if err := sess.Engine.Ready(audioURL, composed.Flatten(), composed.WordCount(), rec.Spec.PauseSeconds, rec.Spec.Repetitions); err != nil {
		log.Printf("session %s could not leave generating: %v", sess.ID, err)
	}
}
