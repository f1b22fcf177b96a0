// Package audiocapture provides microphone capture using PortAudio.
package audiocapture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// ErrRunning is returned when trying to start capture while already running.
var ErrRunning = errors.New("audiocapture: already capturing")

// AudioHandler receives one frame of float32 samples in the range [-1, 1].
type AudioHandler func(samples []float32)

// Capturer produces fixed-size audio frames from an input device. Pause and
// Resume suspend device reads without tearing down the stream, so the
// pipeline can stop listening while a clip is playing.
type Capturer interface {
	Start(handler AudioHandler) error
	Pause()
	Resume()
	Stop() error
}

var initOnce sync.Once

// Initialize prepares the PortAudio runtime. Call once at startup.
func Initialize() error {
	var err error
	initOnce.Do(func() {
		err = portaudio.Initialize()
	})
	return err
}

// Terminate releases the PortAudio runtime. Call at shutdown.
func Terminate() error {
	return portaudio.Terminate()
}

// New opens the default mono input device at the given sample rate and frame
// size. The caller must have called Initialize first.
func New(sampleRate, frameSize int) (Capturer, error) {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if frameSize <= 0 {
		frameSize = 1024
	}

	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	return &capture{
		stream: stream,
		buf:    buf,
		resume: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}, nil
}

type capture struct {
	stream *portaudio.Stream
	buf    []float32

	mu      sync.Mutex
	running bool
	paused  bool
	resume  chan struct{}
	done    chan struct{}
}

func (c *capture) Start(handler AudioHandler) error {
	if handler == nil {
		return errors.New("audiocapture: nil handler")
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.mu.Unlock()

	if err := c.stream.Start(); err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return fmt.Errorf("start input stream: %w", err)
	}

	go c.loop(handler)
	return nil
}

func (c *capture) loop(handler AudioHandler) {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.mu.Lock()
		paused := c.paused
		c.mu.Unlock()

		if paused {
			select {
			case <-c.resume:
			case <-c.done:
				return
			}
			continue
		}

		if err := c.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				// Device buffer overflowed; the frame is still usable.
				slog.Warn("audio input buffer overflowed")
			} else {
				c.mu.Lock()
				paused := c.paused
				c.mu.Unlock()
				if paused {
					continue // read aborted by Pause
				}
				slog.Error("audio read failed", "error", err)
				return
			}
		}

		frame := make([]float32, len(c.buf))
		copy(frame, c.buf)
		handler(frame)
	}
}

// Pause stops device reads. The stream keeps its device claim.
func (c *capture) Pause() {
	c.mu.Lock()
	if c.paused || !c.running {
		c.mu.Unlock()
		return
	}
	c.paused = true
	c.mu.Unlock()

	if err := c.stream.Stop(); err != nil {
		slog.Warn("pause input stream", "error", err)
	}
}

// Resume restarts device reads after a Pause.
func (c *capture) Resume() {
	c.mu.Lock()
	if !c.paused || !c.running {
		c.mu.Unlock()
		return
	}
	c.paused = false
	c.mu.Unlock()

	if err := c.stream.Start(); err != nil {
		slog.Warn("resume input stream", "error", err)
	}
	select {
	case c.resume <- struct{}{}:
	default:
	}
}

func (c *capture) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	close(c.done)
	if err := c.stream.Stop(); err != nil && !errors.Is(err, portaudio.StreamIsStopped) {
		slog.Warn("stop input stream", "error", err)
	}
	return c.stream.Close()
}

// Nop is a degraded capturer used when no input device is available. It
// produces no frames so downstream stages idle instead of crashing.
type Nop struct{}

func (Nop) Start(handler AudioHandler) error { return nil }
func (Nop) Pause()                           {}
func (Nop) Resume()                          {}
func (Nop) Stop() error                      { return nil }
