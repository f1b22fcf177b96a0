package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/stagecue/stagecue/cue"
	"github.com/stagecue/stagecue/playback"
)

// Source identifies who asked for a cue to be played.
type Source int

const (
	// SourceAuto marks requests produced by the matcher.
	SourceAuto Source = iota
	// SourceManual marks operator commands (hotkeys or the remote API).
	SourceManual
)

// Action is a playback request verb.
type Action int

const (
	// ActionPlayIndex plays the cue at Request.Index.
	ActionPlayIndex Action = iota
	// ActionPlayID plays the cue with Request.CueID.
	ActionPlayID
	// ActionNext advances to the cue after the current one.
	ActionNext
	// ActionPrevious steps back to the cue before the current one.
	ActionPrevious
	// ActionRepeat replays the last played cue.
	ActionRepeat
)

// Request asks the arbiter to start a cue. All navigation flows through the
// arbiter's queue so the current index has a single writer.
type Request struct {
	Action Action
	Source Source
	Index  int // ActionPlayIndex
	CueID  int // ActionPlayID
}

// Arbiter serializes play requests, owns the navigation position, and
// interrupts the running clip when a new request wins.
type Arbiter struct {
	catalog  *cue.Catalog
	player   playback.Player
	state    *State
	listen   *ListenControl
	audioDir string
	logger   *slog.Logger

	current     playback.Handle
	currentDone <-chan struct{}
}

// NewArbiter creates the arbiter. Run must be called on exactly one
// goroutine.
func NewArbiter(catalog *cue.Catalog, player playback.Player, state *State, listen *ListenControl, audioDir string) *Arbiter {
	return &Arbiter{
		catalog:  catalog,
		player:   player,
		state:    state,
		listen:   listen,
		audioDir: audioDir,
		logger:   slog.With("component", "arbiter"),
	}
}

// Run processes requests until the context is cancelled. The running clip, if
// any, is stopped on the way out.
func (a *Arbiter) Run(ctx context.Context, requests <-chan Request) {
	for {
		select {
		case <-ctx.Done():
			if a.current != nil {
				a.current.Stop()
				a.finishPlayback()
			}
			return
		case req := <-requests:
			a.handle(req)
		case <-a.currentDone:
			a.finishPlayback()
		}
	}
}

func (a *Arbiter) handle(req Request) {
	index, ok := a.resolve(req)
	if !ok {
		return
	}
	if req.Source == SourceManual {
		// Manual commands also restart the cooldown so a clip the
		// microphone half-hears cannot immediately re-trigger. The last
		// match info stays untouched: it reports transcription matches
		// only.
		a.state.TouchTrigger()
	}
	a.play(index)
}

// resolve maps a request to a catalog index. Boundary navigation and unknown
// ids are logged and dropped without touching state.
func (a *Arbiter) resolve(req Request) (int, bool) {
	switch req.Action {
	case ActionPlayIndex:
		if req.Index < 0 || req.Index >= a.catalog.Len() {
			a.logger.Warn("play request index out of range", "index", req.Index)
			return 0, false
		}
		return req.Index, true
	case ActionPlayID:
		index := a.catalog.IndexOf(req.CueID)
		if index < 0 {
			a.logger.Warn("play request for unknown cue id", "cue_id", req.CueID)
			return 0, false
		}
		return index, true
	case ActionNext:
		next := a.state.CurrentIndex() + 1
		if next >= a.catalog.Len() {
			a.logger.Info("already at the last cue")
			return 0, false
		}
		return next, true
	case ActionPrevious:
		prev := a.state.CurrentIndex() - 1
		if prev < 0 {
			a.logger.Info("already at the first cue")
			return 0, false
		}
		return prev, true
	case ActionRepeat:
		id, ok := a.state.LastPlayed()
		if !ok {
			a.logger.Info("nothing played yet, repeat ignored")
			return 0, false
		}
		index := a.catalog.IndexOf(id)
		if index < 0 {
			a.logger.Warn("last played cue no longer in catalog", "cue_id", id)
			return 0, false
		}
		return index, true
	default:
		a.logger.Warn("unknown play action", "action", int(req.Action))
		return 0, false
	}
}

// play starts the cue at index, interrupting the current clip. During an
// interruption the playing flag stays true across the hand-over; it only
// drops to false when a failed start leaves nothing rendering.
func (a *Arbiter) play(index int) {
	target := a.catalog.At(index)
	path := filepath.Join(a.audioDir, filepath.Base(target.AudioRef))

	interrupted := a.current != nil
	if interrupted {
		a.current.Stop()
		a.current = nil
		a.currentDone = nil
	}

	handle, err := a.player.Play(path)
	if err != nil {
		a.logger.Error("cannot play cue audio",
			"cue_id", target.ID,
			"path", path,
			"error", err)
		if interrupted {
			a.finishPlayback()
		}
		return
	}

	if !interrupted {
		a.listen.Hold()
	}
	a.state.BeginPlayback(index, target.ID)
	a.current = handle
	a.currentDone = handle.Done()
	a.logger.Info("playing cue",
		"cue_id", target.ID,
		"index", index,
		"audio", filepath.Base(path),
		"interrupted_previous", interrupted)
}

func (a *Arbiter) finishPlayback() {
	a.current = nil
	a.currentDone = nil
	a.state.EndPlayback()
	a.listen.Release()
}
