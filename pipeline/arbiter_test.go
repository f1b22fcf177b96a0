package pipeline

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stagecue/stagecue/audiocapture"
	"github.com/stagecue/stagecue/playback"
)

type fakeHandle struct {
	once    sync.Once
	done    chan struct{}
	stopped bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan struct{})}
}

func (h *fakeHandle) Stop() {
	h.once.Do(func() {
		h.stopped = true
		close(h.done)
	})
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

// finish simulates the clip reaching its natural end.
func (h *fakeHandle) finish() {
	h.once.Do(func() { close(h.done) })
}

type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	handles []*fakeHandle
	failAll bool
}

func (p *fakePlayer) Play(path string) (playback.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return nil, errors.New("decode failed")
	}
	h := newFakeHandle()
	p.played = append(p.played, filepath.Base(path))
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakePlayer) playedFiles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

func newTestArbiter(t *testing.T, player *fakePlayer) (*Arbiter, *State, *Gate) {
	t.Helper()
	state := NewState()
	gate := NewGate()
	listen := NewListenControl(gate, audiocapture.Nop{})
	return NewArbiter(testCatalog(t), player, state, listen, "/tmp/clips"), state, gate
}

func TestArbiterManualNavigation(t *testing.T) {
	player := &fakePlayer{}
	a, state, gate := newTestArbiter(t, player)

	// Next from the startup position plays the first cue.
	a.handle(Request{Action: ActionNext, Source: SourceManual})
	if got := player.playedFiles(); len(got) != 1 || got[0] != "one.wav" {
		t.Fatalf("played %v, want [one.wav]", got)
	}
	if !state.IsPlaying() || state.CurrentIndex() != 0 {
		t.Fatalf("state after first play: playing=%v index=%d", state.IsPlaying(), state.CurrentIndex())
	}
	if gate.Open() {
		t.Fatal("listening not suspended during playback")
	}

	// A second Next interrupts the running clip and advances.
	a.handle(Request{Action: ActionNext, Source: SourceManual})
	if !player.handles[0].stopped {
		t.Error("previous clip was not stopped on interrupt")
	}
	if !state.IsPlaying() {
		t.Error("playing flag dropped during interrupt hand-over")
	}
	if state.CurrentIndex() != 1 {
		t.Errorf("current index = %d, want 1", state.CurrentIndex())
	}
	if gate.Open() {
		t.Error("listening resumed during interrupt hand-over")
	}

	a.finishPlayback()
	if state.IsPlaying() {
		t.Error("playing flag still set after the clip ended")
	}
	if !gate.Open() {
		t.Error("listening not resumed after playback ended")
	}
}

func TestArbiterBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		setup func(a *Arbiter, state *State)
		req   Request
	}{
		{
			name:  "previous at startup",
			setup: func(a *Arbiter, state *State) {},
			req:   Request{Action: ActionPrevious, Source: SourceManual},
		},
		{
			name: "next past the last cue",
			setup: func(a *Arbiter, state *State) {
				a.handle(Request{Action: ActionPlayIndex, Source: SourceManual, Index: 2})
				a.finishPlayback()
			},
			req: Request{Action: ActionNext, Source: SourceManual},
		},
		{
			name:  "repeat before anything played",
			setup: func(a *Arbiter, state *State) {},
			req:   Request{Action: ActionRepeat, Source: SourceManual},
		},
		{
			name:  "unknown cue id",
			setup: func(a *Arbiter, state *State) {},
			req:   Request{Action: ActionPlayID, Source: SourceManual, CueID: 99},
		},
		{
			name:  "index out of range",
			setup: func(a *Arbiter, state *State) {},
			req:   Request{Action: ActionPlayIndex, Source: SourceAuto, Index: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{}
			a, state, _ := newTestArbiter(t, player)
			tt.setup(a, state)
			before := len(player.playedFiles())
			beforeIndex := state.CurrentIndex()

			a.handle(tt.req)

			if got := len(player.playedFiles()); got != before {
				t.Errorf("dropped request started a clip, %d plays", got-before)
			}
			if state.CurrentIndex() != beforeIndex {
				t.Errorf("dropped request moved the index to %d", state.CurrentIndex())
			}
		})
	}
}

func TestArbiterRepeat(t *testing.T) {
	player := &fakePlayer{}
	a, state, _ := newTestArbiter(t, player)

	a.handle(Request{Action: ActionPlayID, Source: SourceManual, CueID: 2})
	a.finishPlayback()
	a.handle(Request{Action: ActionRepeat, Source: SourceManual})

	if got := player.playedFiles(); len(got) != 2 || got[1] != "two.wav" {
		t.Fatalf("played %v, want second entry two.wav", got)
	}
	if state.CurrentIndex() != 1 {
		t.Errorf("repeat moved the index to %d, want 1", state.CurrentIndex())
	}
}

func TestArbiterPlayFailure(t *testing.T) {
	player := &fakePlayer{failAll: true}
	a, state, gate := newTestArbiter(t, player)

	a.handle(Request{Action: ActionPlayIndex, Source: SourceAuto, Index: 0})

	if state.IsPlaying() {
		t.Error("playing flag set after a failed start")
	}
	if state.CurrentIndex() != -1 {
		t.Errorf("failed start moved the index to %d", state.CurrentIndex())
	}
	if !gate.Open() {
		t.Error("listening suspended with nothing playing")
	}
}

func TestArbiterFailedInterruptReleasesPlayback(t *testing.T) {
	player := &fakePlayer{}
	a, state, gate := newTestArbiter(t, player)

	a.handle(Request{Action: ActionPlayIndex, Source: SourceManual, Index: 0})
	player.failAll = true
	a.handle(Request{Action: ActionNext, Source: SourceManual})

	if !player.handles[0].stopped {
		t.Error("running clip not stopped before the failed start")
	}
	if state.IsPlaying() {
		t.Error("playing flag still set with nothing rendering")
	}
	if !gate.Open() {
		t.Error("listening still suspended with nothing playing")
	}
}

func TestArbiterManualRefreshesCooldown(t *testing.T) {
	player := &fakePlayer{}
	a, state, _ := newTestArbiter(t, player)

	a.handle(Request{Action: ActionNext, Source: SourceManual})

	if state.SinceTrigger() > 500*time.Millisecond {
		t.Error("manual command did not restart the cooldown window")
	}
}

func TestArbiterManualLeavesLastMatchAlone(t *testing.T) {
	player := &fakePlayer{}
	a, state, _ := newTestArbiter(t, player)

	// Seed the match info as the matcher would.
	state.RecordSpoken("hello there everyone")
	state.RecordMatch(1, 87)

	a.handle(Request{Action: ActionPlayID, Source: SourceManual, CueID: 7})

	// Manual play updates navigation, not the matcher's report.
	info := state.LastMatch()
	if info.ID == nil || *info.ID != 1 {
		t.Errorf("manual play rewrote the last match id, got %+v", info)
	}
	if info.Score != 87 || info.SpokenText != "hello there everyone" {
		t.Errorf("manual play rewrote the last match, got %+v", info)
	}
	if id, ok := state.LastPlayed(); !ok || id != 7 {
		t.Errorf("last played = %d (%v), want 7", id, ok)
	}
}
