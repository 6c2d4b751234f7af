package input

import (
	"sync"

	"github.com/example/vjdeck/internal/document"
	"github.com/example/vjdeck/internal/mapping"
)

// FakeSource is an in-process source for tests and headless runs: feed
// it events by hand. Closed sources drop everything, matching the
// teardown contract of the real adapters.
type FakeSource struct {
	mu     sync.Mutex
	hooks  Hooks
	cfg    document.InputConfig
	closed bool
}

// NewFakeFactory returns a factory that records the last source built,
// so tests can drive it.
func NewFakeFactory(last **FakeSource) Factory {
	return func(cfg document.InputConfig, hooks Hooks) (Source, error) {
		f := &FakeSource{hooks: hooks, cfg: cfg}
		if last != nil {
			*last = f
		}
		return f, nil
	}
}

// EmitNote simulates a note-on on a MIDI channel (1-based).
func (f *FakeSource) EmitNote(channel, note, velocity int) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	hooks, cfg := f.hooks, f.cfg
	f.mu.Unlock()

	ev := Event{Source: mapping.InputMIDI, Note: note, Velocity: velocity}
	if !cfg.VelocitySensitive {
		ev.Velocity = 127
	}
	switch channel {
	case cfg.TrackSelectionChannel:
		ev.Kind = KindTrackSelect
	case cfg.MethodTriggerChannel:
		ev.Kind = KindMethodTrigger
	default:
		return
	}
	if hooks.OnEvent != nil {
		hooks.OnEvent(ev)
	}
}

// Closed reports whether the source was torn down.
func (f *FakeSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
