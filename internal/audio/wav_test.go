package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestSilentWAVHeaderAndSize(t *testing.T) {
	clip, err := SilentWAV(250, 16000)
	if err != nil {
		t.Fatalf("SilentWAV() error = %v", err)
	}
	if !bytes.HasPrefix(clip, []byte("RIFF")) {
		t.Fatalf("clip does not start with RIFF header")
	}
	if !bytes.Contains(clip[:12], []byte("WAVE")) {
		t.Fatalf("clip missing WAVE marker")
	}
	// 250ms at 16kHz mono PCM16 = 4000 samples = 8000 data bytes + 44 header.
	if len(clip) != 8044 {
		t.Fatalf("clip length = %d, want 8044", len(clip))
	}
}

func TestSilentWAVDefaults(t *testing.T) {
	a, err := SilentWAV(0, 0)
	if err != nil {
		t.Fatalf("SilentWAV() error = %v", err)
	}
	b, err := SilentWAV(250, 16000)
	if err != nil {
		t.Fatalf("SilentWAV() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("zero arguments should fall back to the 250ms/16kHz defaults")
	}
}

func TestEncodeWAVDataSizeField(t *testing.T) {
	pcm := make([]byte, 320)
	out, err := EncodeWAVPCM16LE(pcm, 8000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	got := binary.LittleEndian.Uint32(out[40:44])
	if got != uint32(len(pcm)) {
		t.Fatalf("data chunk size = %d, want %d", got, len(pcm))
	}
}
