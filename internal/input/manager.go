package input

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/example/vjdeck/internal/document"
	"github.com/example/vjdeck/internal/mapping"
)

// Factory builds a running source for one input type.
type Factory func(cfg document.InputConfig, hooks Hooks) (Source, error)

// Manager holds the single active source and swaps it on reconfigure.
// The previous source is fully torn down before the next one starts,
// so a device change can never leave a dangling listener feeding stale
// events into the pipeline.
type Manager struct {
	mu        sync.Mutex
	hooks     Hooks
	factories map[mapping.InputType]Factory
	source    Source
	cfg       document.InputConfig
}

// NewManager builds a manager with the real MIDI and OSC factories.
func NewManager(hooks Hooks) *Manager {
	return &Manager{
		hooks: hooks,
		factories: map[mapping.InputType]Factory{
			mapping.InputMIDI: NewMIDISource,
			mapping.InputOSC:  NewOSCSource,
		},
	}
}

// NewManagerWith builds a manager with custom factories, for tests and
// headless runs.
func NewManagerWith(hooks Hooks, factories map[mapping.InputType]Factory) *Manager {
	return &Manager{hooks: hooks, factories: factories}
}

// Config returns the last applied configuration.
func (m *Manager) Config() document.InputConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Configure tears down the current source and starts one for cfg.
func (m *Manager) Configure(cfg document.InputConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source != nil {
		if err := m.source.Close(); err != nil {
			log.Debug().Err(err).Msg("input teardown")
		}
		m.source = nil
		m.status(Status{State: StateDisconnected})
	}
	m.cfg = cfg

	factory, ok := m.factories[cfg.Type]
	if !ok {
		err := fmt.Errorf("no input source for type %q", cfg.Type)
		m.status(Status{State: StateError, Message: err.Error()})
		return err
	}
	m.status(Status{State: StateConnecting})
	src, err := factory(cfg, m.hooks)
	if err != nil {
		m.status(Status{State: StateError, Message: err.Error()})
		return err
	}
	m.source = src
	m.status(Status{State: StateConnected, Message: sourceLabel(cfg)})
	return nil
}

// Close tears down the active source.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.source == nil {
		return nil
	}
	err := m.source.Close()
	m.source = nil
	m.status(Status{State: StateDisconnected})
	return err
}

func (m *Manager) status(st Status) {
	if m.hooks.OnStatus != nil {
		m.hooks.OnStatus(st)
	}
}

func sourceLabel(cfg document.InputConfig) string {
	if cfg.Type == mapping.InputOSC {
		return fmt.Sprintf("osc:%d", cfg.Port)
	}
	return cfg.DeviceName
}
