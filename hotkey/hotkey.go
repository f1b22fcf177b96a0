// Package hotkey provides global keyboard control for the operator: cue
// navigation works even when the terminal is not focused.
package hotkey

import (
	"errors"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// HotkeyManager listens for the show-control keys. N plays the next cue, P
// the previous one, R repeats the last cue, and Escape requests shutdown.
type HotkeyManager struct {
	onNext     func()
	onPrevious func()
	onRepeat   func()
	onQuit     func()

	mu      sync.Mutex
	running bool
	events  chan hook.Event
}

// NewHotkeyManager wires the key callbacks. Callbacks run on the hook
// goroutine; anything slow should be dispatched by the caller.
func NewHotkeyManager(onNext, onPrevious, onRepeat, onQuit func()) *HotkeyManager {
	return &HotkeyManager{
		onNext:     onNext,
		onPrevious: onPrevious,
		onRepeat:   onRepeat,
		onQuit:     onQuit,
	}
}

// Start registers the global key hooks and begins processing events.
func (m *HotkeyManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("hotkey: already started")
	}

	m.register("n", m.onNext)
	m.register("p", m.onPrevious)
	m.register("r", m.onRepeat)
	m.register("esc", m.onQuit)

	m.events = hook.Start()
	go func(events chan hook.Event) {
		<-hook.Process(events)
	}(m.events)

	m.running = true
	slog.Info("hotkeys active", "keys", "n/p/r/esc")
	return nil
}

func (m *HotkeyManager) register(key string, callback func()) {
	if callback == nil {
		return
	}
	hook.Register(hook.KeyDown, []string{key}, func(e hook.Event) {
		callback()
	})
}

// Stop tears the hooks down.
func (m *HotkeyManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	hook.End()
	m.running = false
}
