// Package stt provides the speech-to-text engine interface and
// implementations.
package stt

import "time"

// TranscribeResult represents the result of a transcription.
type TranscribeResult struct {
	Text     string    `json:"text"`     // Full transcribed text
	Language string    `json:"language"` // Detected or requested language code
	Segments []Segment `json:"segments"` // Time-stamped segments, in order
}

// Segment represents a time-stamped span of transcribed audio.
type Segment struct {
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Provider defines the interface for speech-to-text engines. Implementations
// must be safe to call repeatedly; calls may block for several seconds.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// IsReady returns true if the provider can transcribe.
	IsReady() bool

	// Transcribe converts audio samples to text.
	// audio: PCM float32 samples in [-1,1] at 16000 Hz
	// language: source language code (empty for auto-detect)
	Transcribe(audio []float32, language string) (*TranscribeResult, error)

	// Close releases resources held by the provider.
	Close() error
}

// Registry holds registered STT providers keyed by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil.
func (r *Registry) Get(name string) Provider {
	return r.providers[name]
}

// List returns all registered providers.
func (r *Registry) List() []Provider {
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	return result
}

// Close releases all providers.
func (r *Registry) Close() error {
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			return err
		}
	}
	return nil
}
