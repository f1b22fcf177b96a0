// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Matching policies.
const (
	PolicyFuzzy       = "fuzzy"
	PolicyExactPrefix = "exact-prefix"
)

// Config represents the application configuration. All pipeline tuning knobs
// are plain scalars; secrets come from the environment, not the file.
type Config struct {
	// Audio capture
	SampleRate int `json:"sample_rate"` // Hz, Whisper expects 16000
	FrameSize  int `json:"frame_size"`  // samples per capture frame

	// Utterance segmentation
	SilenceThreshold float64  `json:"silence_threshold"` // RMS energy floor for speech
	SilenceDuration  Duration `json:"silence_duration"`  // silence span that ends an utterance

	// Matching
	MatchCooldown  Duration `json:"match_cooldown"`  // suppress automatic matches after a trigger
	MatchThreshold int      `json:"match_threshold"` // fuzzy score threshold, 0-100
	MatchingPolicy string   `json:"matching_policy"` // "fuzzy" or "exact-prefix"

	// Transcription
	Language    string `json:"language"`     // language tag passed to the engine
	STTProvider string `json:"stt_provider"` // provider name, e.g. "whisper-local"
	ModelSize   string `json:"model_size"`   // whisper model size for local provider
	APIKey      string `json:"-"`            // from env, never persisted

	// Resources
	AudioDir string `json:"audio_dir"`
	CuesFile string `json:"cues_file"`

	// Remote API
	BindHost    string `json:"bind_host"`
	BindPort    int    `json:"bind_port"`
	APIToken    string `json:"-"` // from env, never persisted
	CORSOrigins string `json:"cors_origins"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		SampleRate:       16000,
		FrameSize:        1024,
		SilenceThreshold: 0.01,
		SilenceDuration:  Duration(time.Second),
		MatchCooldown:    Duration(5 * time.Second),
		MatchThreshold:   60,
		MatchingPolicy:   PolicyFuzzy,
		Language:         "en",
		STTProvider:      "whisper-local",
		ModelSize:        "base",
		AudioDir:         "audio",
		CuesFile:         "script_cues.json",
		BindHost:         "0.0.0.0",
		BindPort:         8001,
		CORSOrigins:      "*",
	}
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist. Environment variables override secrets either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save persists the configuration to path.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.MatchingPolicy {
	case PolicyFuzzy, PolicyExactPrefix:
	default:
		return fmt.Errorf("invalid matching_policy: %q", c.MatchingPolicy)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample_rate: %d", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("invalid frame_size: %d", c.FrameSize)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("invalid match_threshold: %d", c.MatchThreshold)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("BIND_HOST"); v != "" {
		c.BindHost = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = v
	}
}

// AllowedOrigins splits the configured CORS origins list.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Duration wraps time.Duration so config files can say "1s" or "500ms".
type Duration time.Duration

// MarshalJSON encodes the duration in time.Duration string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(dur)
		return nil
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number: %s", data)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
