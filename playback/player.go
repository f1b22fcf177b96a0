// Package playback renders cue audio clips to the output device.
package playback

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
)

// Handle refers to one in-progress render. Stop halts it immediately; Done
// closes when the render finishes or is stopped.
type Handle interface {
	Stop()
	Done() <-chan struct{}
}

// Player starts clip renders. Starting a new clip while another is active is
// the caller's concern; the speaker backend renders whatever it is given.
type Player interface {
	Play(path string) (Handle, error)
}

// Speaker is the beep-backed Player.
type Speaker struct {
	mu       sync.Mutex
	initRate beep.SampleRate
}

// NewSpeaker creates a Player backed by the default output device.
func NewSpeaker() *Speaker {
	return &Speaker{}
}

// Play decodes the clip at path and starts rendering it. Supported formats
// are WAV and MP3, chosen by file extension.
func (s *Speaker) Play(path string) (Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported clip format: %s", path)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode clip %s: %w", path, err)
	}

	s.mu.Lock()
	if format.SampleRate != s.initRate {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			s.mu.Unlock()
			streamer.Close()
			return nil, fmt.Errorf("init speaker: %w", err)
		}
		s.initRate = format.SampleRate
	}
	s.mu.Unlock()

	h := &handle{done: make(chan struct{}), streamer: streamer}
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		// Runs on the speaker goroutine; must not call speaker.Clear here.
		h.finish(false)
	})))
	return h, nil
}

type handle struct {
	once     sync.Once
	done     chan struct{}
	streamer beep.StreamSeekCloser
}

func (h *handle) Stop() {
	h.finish(true)
}

func (h *handle) Done() <-chan struct{} {
	return h.done
}

func (h *handle) finish(clear bool) {
	h.once.Do(func() {
		if clear {
			speaker.Clear()
		}
		h.streamer.Close()
		close(h.done)
	})
}
