package stt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI implements Provider through the official OpenAI SDK. Unlike
// WhisperAPI it does not request per-segment timestamps; the full text comes
// back as a single segment.
type OpenAI struct {
	client openai.Client
	model  openai.AudioModel
	ready  bool
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey string
	Model  string // Optional, defaults to whisper-1
}

// NewOpenAI creates a new OpenAI transcription provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	model := openai.AudioModelWhisper1
	if cfg.Model != "" {
		model = openai.AudioModel(cfg.Model)
	}
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
		ready:  cfg.APIKey != "",
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) IsReady() bool { return o.ready }

// Transcribe sends audio to the OpenAI transcription endpoint.
func (o *OpenAI) Transcribe(audio []float32, language string) (*TranscribeResult, error) {
	if !o.ready {
		return nil, fmt.Errorf("OpenAI provider is not ready: API key required")
	}

	wavData := float32ToWAV(audio, 16000)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wavData), "audio.wav", "audio/wav"),
		Model: o.model,
	}
	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	return &TranscribeResult{
		Text:     resp.Text,
		Language: language,
		Segments: []Segment{{Text: resp.Text}},
	}, nil
}

func (o *OpenAI) Close() error { return nil }
