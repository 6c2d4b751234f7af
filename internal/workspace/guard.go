// Package workspace guards the user's module directory: confirming it
// exists, scanning it for visual module files, and watching it for
// changes. Every other component that touches modules gates on this
// package's state.
package workspace

import (
	"os"
	"path/filepath"
	"sync"
)

// State is the lifecycle state of the workspace directory.
type State string

const (
	// StateNone means no workspace has ever been selected.
	StateNone State = "none"
	// StateAvailable means the directory was confirmed reachable.
	StateAvailable State = "available"
	// StateLostSync means a previously available directory stopped
	// responding; scans and drains stay gated until re-confirmation.
	StateLostSync State = "lostSync"
)

// Guard tracks workspace availability. Transitions to lostSync are
// pushed from directory checks; recovery requires an explicit
// re-confirmation by the user.
type Guard struct {
	mu    sync.RWMutex
	path  string
	state State

	onLostSync func(path string)
}

// NewGuard starts with no workspace selected.
func NewGuard(onLostSync func(path string)) *Guard {
	return &Guard{state: StateNone, onLostSync: onLostSync}
}

// State returns the current lifecycle state.
func (g *Guard) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Path returns the selected workspace path, or "".
func (g *Guard) Path() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.path
}

// Ready reports whether module scans and drains may proceed.
func (g *Guard) Ready() bool {
	return g.State() == StateAvailable
}

// Select confirms a workspace directory. The directory must exist; the
// caller scaffolds it first if needed.
func (g *Guard) Select(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	g.mu.Lock()
	g.path = path
	g.state = StateAvailable
	g.mu.Unlock()
	return nil
}

// Check probes the current directory and flips to lostSync if it has
// become unreachable. Reports whether the workspace is still good.
func (g *Guard) Check() bool {
	g.mu.Lock()
	if g.state != StateAvailable {
		g.mu.Unlock()
		return false
	}
	path := g.path
	if _, err := os.Stat(path); err == nil {
		g.mu.Unlock()
		return true
	}
	g.state = StateLostSync
	cb := g.onLostSync
	g.mu.Unlock()
	if cb != nil {
		cb(path)
	}
	return false
}

// ModulesDir returns the modules subdirectory of the workspace.
func (g *Guard) ModulesDir() string {
	p := g.Path()
	if p == "" {
		return ""
	}
	return filepath.Join(p, "modules")
}
