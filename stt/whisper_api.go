package stt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

const defaultWhisperAPIURL = "https://api.openai.com/v1/audio/transcriptions"

// WhisperAPI implements Provider against a Whisper-compatible transcription
// HTTP endpoint using multipart upload.
type WhisperAPI struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client

	mu    sync.RWMutex
	ready bool
}

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey  string
	BaseURL string // Optional, defaults to OpenAI's API
	Model   string // Optional, defaults to "whisper-1"
}

// NewWhisperAPI creates a new WhisperAPI provider.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultWhisperAPIURL
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	return &WhisperAPI{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
		ready:   cfg.APIKey != "",
	}
}

func (w *WhisperAPI) Name() string { return "whisper-api" }

func (w *WhisperAPI) IsReady() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ready
}

// Transcribe sends audio to the Whisper API for transcription.
func (w *WhisperAPI) Transcribe(audio []float32, language string) (*TranscribeResult, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("WhisperAPI is not ready: API key required")
	}

	wavData := float32ToWAV(audio, 16000)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	if err := writer.WriteField("model", w.model); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}

	// OpenAI API does not accept 'auto'; empty means auto-detect
	if language != "" && language != "auto" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}

	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("write response_format field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.baseURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var apiResp whisperAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := &TranscribeResult{
		Text:     apiResp.Text,
		Language: apiResp.Language,
		Segments: make([]Segment, len(apiResp.Segments)),
	}
	for i, seg := range apiResp.Segments {
		result.Segments[i] = Segment{
			Text:  seg.Text,
			Start: time.Duration(seg.Start * float64(time.Second)),
			End:   time.Duration(seg.End * float64(time.Second)),
		}
	}

	return result, nil
}

func (w *WhisperAPI) Close() error { return nil }

// whisperAPIResponse represents the Whisper API verbose_json response.
type whisperAPIResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}
