// Package pipeline implements the live cueing pipeline: capture, utterance
// segmentation, transcription hand-off, cue matching, and playback
// arbitration.
package pipeline

import (
	"sync"
	"time"
)

// MatchInfo describes the most recent transcript the matcher saw.
type MatchInfo struct {
	ID         *int    `json:"id"`
	Score      float64 `json:"score"`
	SpokenText string  `json:"spoken_text"`
}

// State is the process-wide playback state. Playback fields are written only
// by the Arbiter; other stages and status reporters read them.
type State struct {
	mu           sync.RWMutex
	isPlaying    bool
	currentIndex int // -1 = none
	lastPlayedID int
	hasLastPlay  bool
	lastTrigger  time.Time
	lastMatch    MatchInfo
	listening    bool
	remoteMode   bool
	startedAt    time.Time
}

// NewState creates the startup state: not playing, no current cue.
func NewState() *State {
	return &State{
		currentIndex: -1,
		listening:    true,
		startedAt:    time.Now(),
	}
}

// IsPlaying reports whether a clip is currently being rendered.
func (s *State) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isPlaying
}

// BeginPlayback marks a render as active and commits the navigation position.
// Called only by the Arbiter; when a render is interrupted by a new one,
// BeginPlayback is called again without an intervening EndPlayback so
// IsPlaying never reads false during the hand-over.
func (s *State) BeginPlayback(index, cueID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPlaying = true
	s.currentIndex = index
	s.lastPlayedID = cueID
	s.hasLastPlay = true
}

// EndPlayback marks the render as finished.
func (s *State) EndPlayback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPlaying = false
}

// CurrentIndex returns the current cue index, -1 when none.
func (s *State) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// LastPlayed returns the id of the last played cue.
func (s *State) LastPlayed() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPlayedID, s.hasLastPlay
}

// TouchTrigger restarts the automatic-match cooldown window.
func (s *State) TouchTrigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTrigger = time.Now()
}

// SinceTrigger returns the time elapsed since the last accepted trigger.
func (s *State) SinceTrigger() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastTrigger.IsZero() {
		return time.Duration(1<<62 - 1)
	}
	return time.Since(s.lastTrigger)
}

// RecordSpoken stores the latest transcript text for status reporting.
func (s *State) RecordSpoken(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMatch.SpokenText = text
}

// RecordScore stores the latest fuzzy score for status reporting.
func (s *State) RecordScore(score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMatch.Score = score
}

// RecordMatch stores an accepted match for status reporting.
func (s *State) RecordMatch(cueID int, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := cueID
	s.lastMatch.ID = &id
	s.lastMatch.Score = score
}

// LastMatch returns a copy of the latest match info.
func (s *State) LastMatch() MatchInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := s.lastMatch
	if s.lastMatch.ID != nil {
		id := *s.lastMatch.ID
		info.ID = &id
	}
	return info
}

// SetListening records the operator-facing listening flag.
func (s *State) SetListening(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = on
}

// Listening reports whether automatic listening is enabled.
func (s *State) Listening() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listening
}

// SetRemoteMode records whether frames come from the remote API instead of
// the local microphone.
func (s *State) SetRemoteMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteMode = on
}

// RemoteMode reports whether remote frame ingest is active.
func (s *State) RemoteMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteMode
}

// Uptime returns the time since the state was created.
func (s *State) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startedAt)
}
