package pipeline

import (
	"math"
	"time"
)

// Segmenter accumulates capture frames into utterances using an energy
// threshold. Every frame is appended to the buffer; a frame whose RMS exceeds
// the threshold refreshes the last-speech time, and once silence has lasted
// longer than the configured duration the buffered audio is emitted as one
// utterance.
type Segmenter struct {
	threshold  float64       // RMS threshold for speech
	silenceDur time.Duration // silence needed to close an utterance

	buf        []float32
	lastSpeech time.Time
}

// NewSegmenter creates a segmenter with the given energy threshold and
// trailing-silence duration.
func NewSegmenter(threshold float64, silence time.Duration) *Segmenter {
	return &Segmenter{
		threshold:  threshold,
		silenceDur: silence,
		lastSpeech: time.Now(),
	}
}

// Push adds one frame. When the frame closes an utterance, the buffered
// samples are returned and the buffer is reset.
func (s *Segmenter) Push(frame []float32) ([]float32, bool) {
	now := time.Now()
	s.buf = append(s.buf, frame...)
	if calculateRMS(frame) > s.threshold {
		s.lastSpeech = now
	}
	return s.flushIfStale(now)
}

// FlushStale closes the pending utterance when no frame has arrived and the
// silence window has elapsed anyway. The capture callback can stall when the
// device is paused, so the caller polls this on a timer.
func (s *Segmenter) FlushStale() ([]float32, bool) {
	return s.flushIfStale(time.Now())
}

// Pending returns the number of buffered samples.
func (s *Segmenter) Pending() int {
	return len(s.buf)
}

func (s *Segmenter) flushIfStale(now time.Time) ([]float32, bool) {
	if now.Sub(s.lastSpeech) <= s.silenceDur || len(s.buf) == 0 {
		return nil, false
	}
	utterance := s.buf
	s.buf = nil
	s.lastSpeech = now
	return utterance, true
}

// calculateRMS computes the root mean square amplitude of samples.
func calculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
