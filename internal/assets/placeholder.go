package assets

import "github.com/stillpoint-app/stillpoint/internal/audio"

// Placeholder returns the fixed silent clip served when an asset cannot be
// located. Callers receive a tiny valid audio payload instead of an HTTP
// error so playback never hard-fails on a missing file.
func Placeholder() []byte {
	clip, err := audio.SilentWAV(250, 16000)
	if err != nil {
		// The encoder writes to an in-memory buffer and cannot fail there.
		return nil
	}
	return clip
}
