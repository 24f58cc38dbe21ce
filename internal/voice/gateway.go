package voice

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stillpoint-app/stillpoint/internal/policy"
	"github.com/stillpoint-app/stillpoint/internal/reliability"
)

// ErrMissingAPIKey is the one fatal precondition: no credential, no network
// call.
var ErrMissingAPIKey = errors.New("synthesis API key is not set")

// AssetSaver persists synthesized audio and sidecar request logs.
type AssetSaver interface {
	Save(filename string, data []byte) error
}

// GatewayConfig configures the synthesis gateway. Built once at startup.
type GatewayConfig struct {
	APIKey        string
	BaseURL       string
	ModelID       string
	Timeout       time.Duration
	PublicBaseURL string
}

// Gateway issues one bounded text-to-speech request per synthesis and
// persists the returned audio. It never retries; the caller falls back to
// on-device speech instead.
type Gateway struct {
	cfg    GatewayConfig
	client *http.Client
	assets AssetSaver
}

// SynthesisResult is success XOR failure, never both.
type SynthesisResult struct {
	AudioURL  string                  `json:"audio_url,omitempty"`
	Filename  string                  `json:"filename,omitempty"`
	Failed    bool                    `json:"failed,omitempty"`
	Reason    string                  `json:"reason,omitempty"`
	Kind      reliability.FailureKind `json:"-"`
	Retryable bool                    `json:"-"`
}

func NewGateway(cfg GatewayConfig, assets AssetSaver) *Gateway {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{},
		assets: assets,
	}
}

// SetHTTPClient overrides the transport, for tests.
func (g *Gateway) SetHTTPClient(c *http.Client) { g.client = c }

type synthesisBody struct {
	Text          string   `json:"text"`
	ModelID       string   `json:"model_id"`
	VoiceSettings Settings `json:"voice_settings"`
}

// Synthesize sends text to the provider for voiceID and persists the audio.
// The request runs under a context deadline; when the deadline wins the
// underlying HTTP request is cancelled, not just ignored.
func (g *Gateway) Synthesize(ctx context.Context, text, voiceID string, settings Settings) SynthesisResult {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return SynthesisResult{Failed: true, Reason: ErrMissingAPIKey.Error(), Kind: reliability.FailureCredential}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(synthesisBody{
		Text:          text,
		ModelID:       g.cfg.ModelID,
		VoiceSettings: settings.Normalize(),
	})
	if err != nil {
		return SynthesisResult{Failed: true, Reason: fmt.Sprintf("encode request: %v", err), Kind: reliability.FailureProvider}
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return SynthesisResult{Failed: true, Reason: fmt.Sprintf("build request: %v", err), Kind: reliability.FailureProvider}
	}
	req.Header.Set("xi-api-key", g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	started := time.Now()
	res, err := g.client.Do(req)
	if err != nil {
		kind := reliability.FailureProvider
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			kind = reliability.FailureTimeout
		}
		return SynthesisResult{Failed: true, Reason: policy.RedactCredentials(err.Error(), g.cfg.APIKey), Kind: kind, Retryable: true}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		reason := fmt.Sprintf("provider status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
		kind := reliability.FailureProvider
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			kind = reliability.FailureCredential
		}
		return SynthesisResult{
			Failed:    true,
			Reason:    policy.RedactCredentials(reason, g.cfg.APIKey),
			Kind:      kind,
			Retryable: reliability.IsRetryableHTTPStatus(res.StatusCode),
		}
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		kind := reliability.FailureProvider
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			kind = reliability.FailureTimeout
		}
		return SynthesisResult{Failed: true, Reason: fmt.Sprintf("read audio: %v", err), Kind: kind, Retryable: true}
	}

	filename := newAudioFilename()
	if err := g.assets.Save(filename, audio); err != nil {
		return SynthesisResult{Failed: true, Reason: fmt.Sprintf("persist audio: %v", err), Kind: reliability.FailureStorage, Retryable: true}
	}

	g.writeRequestLog(filename, text, voiceID, settings, time.Since(started))

	return SynthesisResult{
		AudioURL: strings.TrimRight(g.cfg.PublicBaseURL, "/") + "/v1/audio/" + filename,
		Filename: filename,
	}
}

// newAudioFilename is time-based plus a uuid fragment; filenames are never
// reused, so unlocked concurrent writes to distinct files stay safe.
func newAudioFilename() string {
	return fmt.Sprintf("meditation-%s-%s.mp3", time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

type requestLog struct {
	Filename    string    `json:"filename"`
	VoiceID     string    `json:"voice_id"`
	TextLength  int       `json:"text_length"`
	Fingerprint string    `json:"fingerprint"`
	ElapsedMS   int64     `json:"elapsed_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// writeRequestLog stores a sidecar log entry next to the audio file. Purely
// best-effort observability; failures are logged and swallowed.
func (g *Gateway) writeRequestLog(filename, text, voiceID string, settings Settings, elapsed time.Duration) {
	entry := requestLog{
		Filename:    filename,
		VoiceID:     voiceID,
		TextLength:  len(text),
		Fingerprint: Fingerprint(text, voiceID, settings),
		ElapsedMS:   elapsed.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := g.assets.Save(filename+".log.json", data); err != nil {
		log.Printf("synthesis request log write failed: %v", err)
	}
}

// Fingerprint keys a (text, voice, settings) tuple. Nothing looks it up yet;
// it is recorded so a result cache can be layered on later.
func Fingerprint(text, voiceID string, settings Settings) string {
	h := sha256.New()
	io.WriteString(h, text)
	io.WriteString(h, "\x00")
	io.WriteString(h, voiceID)
	io.WriteString(h, "\x00")
	fmt.Fprintf(h, "%.3f|%.3f|%.3f|%t", settings.Stability, settings.SimilarityBoost, settings.Style, settings.UseSpeakerBoost)
	return hex.EncodeToString(h.Sum(nil))
}
