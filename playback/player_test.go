package playback

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSpeaker_PlayMissingFile(t *testing.T) {
	s := NewSpeaker()
	if _, err := s.Play(filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Fatal("Play() on missing file: expected error")
	}
}

func TestSpeaker_PlayUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.ogg")
	if err := os.WriteFile(path, []byte("not audio"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSpeaker()
	if _, err := s.Play(path); err == nil {
		t.Fatal("Play() on unsupported format: expected error")
	}
}
