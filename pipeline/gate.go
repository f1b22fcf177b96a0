package pipeline

import (
	"context"
	"sync"

	"github.com/stagecue/stagecue/audiocapture"
)

// Gate blocks the segmentation stage while listening is suspended. It counts
// holds so overlapping suspensions (playback plus an operator pause) compose:
// the gate reopens only when every hold has been released.
type Gate struct {
	mu    sync.Mutex
	holds int
	ready chan struct{} // closed while the gate is open
}

// NewGate returns an open gate.
func NewGate() *Gate {
	ready := make(chan struct{})
	close(ready)
	return &Gate{ready: ready}
}

// Hold closes the gate. It reports whether this hold transitioned the gate
// from open to closed.
func (g *Gate) Hold() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holds++
	if g.holds == 1 {
		g.ready = make(chan struct{})
		return true
	}
	return false
}

// Release drops one hold. It reports whether the gate transitioned back to
// open. Releasing an open gate is a no-op.
func (g *Gate) Release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holds == 0 {
		return false
	}
	g.holds--
	if g.holds == 0 {
		close(g.ready)
		return true
	}
	return false
}

// Open reports whether the gate currently has no holds.
func (g *Gate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds == 0
}

// Wait blocks until the gate is open or the context is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		ready := g.ready
		g.mu.Unlock()
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ListenControl suspends and resumes everything that listens: the capture
// device is paused so the microphone does not pick up clip audio, and the
// gate parks the segmenter so buffered frames are not flushed mid-pause.
// The device state is always derived from the full picture (gate holds plus
// remote mode) so no single release can turn the microphone back on while
// another reason to keep it off remains.
type ListenControl struct {
	gate     *Gate
	capturer audiocapture.Capturer

	mu     sync.Mutex
	remote bool
}

// NewListenControl wires a gate to a capture device.
func NewListenControl(gate *Gate, capturer audiocapture.Capturer) *ListenControl {
	return &ListenControl{gate: gate, capturer: capturer}
}

// Hold suspends listening.
func (l *ListenControl) Hold() {
	l.gate.Hold()
	l.applyDeviceState()
}

// Release drops one listening hold.
func (l *ListenControl) Release() {
	l.gate.Release()
	l.applyDeviceState()
}

// SetRemote switches the frame source. In remote mode the local device stays
// paused regardless of gate holds; the gate itself stays open so remote
// frames still flow through the segmenter.
func (l *ListenControl) SetRemote(on bool) {
	l.mu.Lock()
	l.remote = on
	l.mu.Unlock()
	l.applyDeviceState()
}

// applyDeviceState reconciles the capture device with the current suspension
// reasons. Pause and Resume are idempotent, so re-applying is safe.
func (l *ListenControl) applyDeviceState() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remote || !l.gate.Open() {
		l.capturer.Pause()
	} else {
		l.capturer.Resume()
	}
}
