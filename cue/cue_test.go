package cue

import (
	"os"
	"path/filepath"
	"testing"
)

func testCues() []Cue {
	return []Cue{
		{ID: 10, MatchText: "Hello there", AudioRef: "hello.wav", FirstTokens: []string{"hello", "there"}},
		{ID: 11, MatchText: "Good morning", AudioRef: "morning.wav", FirstTokens: []string{"good"}},
		{ID: 12, MatchText: "See you soon", AudioRef: "soon.wav"},
	}
}

func TestNew_PreservesOrder(t *testing.T) {
	c, err := New(testCues())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	for i, wantID := range []int{10, 11, 12} {
		if got := c.At(i).ID; got != wantID {
			t.Errorf("At(%d).ID = %d, want %d", i, got, wantID)
		}
	}
}

func TestNew_DuplicateID(t *testing.T) {
	cues := testCues()
	cues[2].ID = 10

	if _, err := New(cues); err == nil {
		t.Fatal("New() with duplicate ids: expected error, got nil")
	}
}

func TestCatalog_ByID(t *testing.T) {
	c, err := New(testCues())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cue, ok := c.ByID(11)
	if !ok || cue.AudioRef != "morning.wav" {
		t.Errorf("ByID(11) = %+v, %v", cue, ok)
	}
	if _, ok := c.ByID(99); ok {
		t.Error("ByID(99) = ok, want not found")
	}
	if got := c.IndexOf(12); got != 2 {
		t.Errorf("IndexOf(12) = %d, want 2", got)
	}
	if got := c.IndexOf(99); got != -1 {
		t.Errorf("IndexOf(99) = %d, want -1", got)
	}
}

func TestCatalog_MatchTextsNormalized(t *testing.T) {
	c, err := New(testCues())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	texts := c.MatchTexts()
	want := []string{"hello there", "good morning", "see you soon"}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("MatchTexts()[%d] = %q, want %q", i, texts[i], want[i])
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script_cues.json")

	data := `[
		{"id": 1, "match_text": "First line", "audio_ref": "one.wav"},
		{"id": 2, "match_text": "Second line", "audio_ref": "two.wav"}
	]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Load() on missing file: expected error")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() on malformed file: expected error")
	}
}
