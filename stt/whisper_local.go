package stt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// WhisperLocal implements Provider using a local whisper.cpp CLI binary.
type WhisperLocal struct {
	modelPath string
	binPath   string

	mu    sync.RWMutex
	ready bool
}

// WhisperLocalConfig holds configuration for WhisperLocal.
type WhisperLocalConfig struct {
	ModelSize string // "tiny", "base", "small", "medium", "large"
	ModelDir  string // Directory holding ggml models
	BinPath   string // Path to whisper-cpp binary (optional, discovered if unset)
}

// NewWhisperLocal creates a new WhisperLocal provider. The provider is ready
// only when both the binary and the model file are present.
func NewWhisperLocal(cfg WhisperLocalConfig) (*WhisperLocal, error) {
	if cfg.ModelSize == "" {
		cfg.ModelSize = "base"
	}
	if cfg.ModelDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		cfg.ModelDir = filepath.Join(homeDir, ".stagecue", "models")
	}

	w := &WhisperLocal{
		modelPath: filepath.Join(cfg.ModelDir, fmt.Sprintf("ggml-%s.bin", cfg.ModelSize)),
		binPath:   cfg.BinPath,
	}

	if w.binPath == "" {
		w.binPath = findWhisperBinary()
	}

	if _, err := os.Stat(w.modelPath); err == nil && w.binPath != "" {
		w.ready = true
	}

	return w, nil
}

func (w *WhisperLocal) Name() string { return "whisper-local" }

func (w *WhisperLocal) IsReady() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ready
}

// Transcribe converts audio samples to text using local whisper.cpp.
func (w *WhisperLocal) Transcribe(audio []float32, language string) (*TranscribeResult, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("WhisperLocal is not ready: binary or model missing")
	}

	wavData := float32ToWAV(audio, 16000)

	audioPath := filepath.Join(os.TempDir(), fmt.Sprintf("stagecue_utt_%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(audioPath, wavData, 0644); err != nil {
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(audioPath)

	args := []string{
		"-m", w.modelPath,
		"-f", audioPath,
		"-oj", // JSON output
		"--no-prints",
	}
	if language != "" {
		args = append(args, "-l", language)
	}

	cmd := exec.Command(w.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper-cpp failed: %w, stderr: %s", err, stderr.String())
	}

	var out whisperCppOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		// Fall back to plain-text output from older builds.
		return &TranscribeResult{Text: stdout.String(), Language: language}, nil
	}

	result := &TranscribeResult{
		Language: out.Result.Language,
		Segments: make([]Segment, 0, len(out.Transcription)),
	}
	for _, seg := range out.Transcription {
		result.Text += seg.Text
		result.Segments = append(result.Segments, Segment{
			Text:  seg.Text,
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
		})
	}

	return result, nil
}

func (w *WhisperLocal) Close() error { return nil }

// whisperCppOutput represents whisper.cpp's -oj JSON output.
type whisperCppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text    string `json:"text"`
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
	} `json:"transcription"`
}

// findWhisperBinary looks for a whisper.cpp CLI on PATH.
// whisper-cli is the Homebrew name.
func findWhisperBinary() string {
	for _, name := range []string{"whisper-cli", "whisper-cpp", "whisper"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
