package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.SampleRate)
	}
	if cfg.MatchingPolicy != PolicyFuzzy {
		t.Errorf("MatchingPolicy = %q, want %q", cfg.MatchingPolicy, PolicyFuzzy)
	}
	if cfg.MatchCooldown.Std() != 5*time.Second {
		t.Errorf("MatchCooldown = %v, want 5s", cfg.MatchCooldown.Std())
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"sample_rate": 16000,
		"frame_size": 512,
		"silence_threshold": 0.005,
		"silence_duration": "500ms",
		"match_cooldown": 5,
		"match_threshold": 70,
		"matching_policy": "exact-prefix",
		"language": "hi"
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.FrameSize != 512 {
		t.Errorf("FrameSize = %d, want 512", cfg.FrameSize)
	}
	if cfg.SilenceDuration.Std() != 500*time.Millisecond {
		t.Errorf("SilenceDuration = %v, want 500ms", cfg.SilenceDuration.Std())
	}
	if cfg.MatchCooldown.Std() != 5*time.Second {
		t.Errorf("MatchCooldown = %v, want 5s (numeric seconds)", cfg.MatchCooldown.Std())
	}
	if cfg.MatchingPolicy != PolicyExactPrefix {
		t.Errorf("MatchingPolicy = %q, want exact-prefix", cfg.MatchingPolicy)
	}
	if cfg.Language != "hi" {
		t.Errorf("Language = %q, want hi", cfg.Language)
	}
}

func TestLoad_InvalidPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"matching_policy": "psychic"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() with invalid policy: expected error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.MatchThreshold = 75
	cfg.SilenceDuration = Duration(750 * time.Millisecond)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.MatchThreshold != 75 {
		t.Errorf("MatchThreshold = %d, want 75", got.MatchThreshold)
	}
	if got.SilenceDuration.Std() != 750*time.Millisecond {
		t.Errorf("SilenceDuration = %v, want 750ms", got.SilenceDuration.Std())
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Default()
	cfg.CORSOrigins = "https://a.example, https://b.example,"

	got := cfg.AllowedOrigins()
	want := []string{"https://a.example", "https://b.example"}
	if len(got) != len(want) {
		t.Fatalf("AllowedOrigins() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedOrigins()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
