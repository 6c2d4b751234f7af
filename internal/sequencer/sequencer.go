// Package sequencer drives channel triggers from an internal clock so a
// performance can run without a player at the controller. Triggers are
// emitted through hooks in the exact shape live input uses; downstream
// consumers cannot tell the two apart.
package sequencer

import (
	"sort"
	"sync"
	"time"
)

// State is the transport state.
type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// DefaultSteps is the pattern length used when none is configured.
const DefaultSteps = 16

// Pattern holds per-channel step rows. Rows is keyed by channel number;
// a row shorter than Steps is treated as off past its end.
type Pattern struct {
	Steps int
	Rows  map[int][]bool
}

// On reports whether a channel fires at a step index.
func (p Pattern) On(channel, step int) bool {
	row := p.Rows[channel]
	return step < len(row) && row[step]
}

// Hooks are the injected effect callbacks. Nil hooks are skipped.
type Hooks struct {
	// TriggerChannel fires a channel exactly as live input would.
	TriggerChannel func(channel int)
	// StepChanged reports the new step after each advance.
	StepChanged func(step int)
}

// Engine is the transport state machine. Ticks are scheduled with
// time.AfterFunc; every scheduled callback carries the run id of the
// play session that created it and is discarded when stale, so a
// stopped-and-restarted session can never receive a leftover tick.
type Engine struct {
	mu      sync.Mutex
	state   State
	bpm     float64
	step    int
	pattern Pattern
	hooks   Hooks
	runID   uint64
	timer   *time.Timer
}

// New constructs a stopped engine.
func New(bpm float64, hooks Hooks) *Engine {
	if bpm <= 0 {
		bpm = 120
	}
	return &Engine{
		state:   Stopped,
		bpm:     bpm,
		hooks:   hooks,
		pattern: Pattern{Steps: DefaultSteps, Rows: map[int][]bool{}},
	}
}

// Sixteenth-note steps.
func stepInterval(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / bpm / 4)
}

// State returns the transport state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentStep returns the step index last advanced to.
func (e *Engine) CurrentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Toggle flips between playing and stopped and returns the new state.
func (e *Engine) Toggle() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Playing {
		e.stopLocked()
	} else {
		e.state = Playing
		e.step = 0
		e.scheduleLocked()
	}
	return e.state
}

// Stop halts playback. The current step is kept so a resume can
// continue visually where it left off.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// ForceStop halts playback and resets the step to 0. Used when the
// sequencer mode itself is switched off.
func (e *Engine) ForceStop() {
	e.mu.Lock()
	e.stopLocked()
	e.step = 0
	cb := e.hooks.StepChanged
	e.mu.Unlock()
	if cb != nil {
		cb(0)
	}
}

func (e *Engine) stopLocked() {
	e.state = Stopped
	e.runID++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// SetBPM changes the tempo. While playing the next tick is rescheduled
// at the new interval without resetting the step.
func (e *Engine) SetBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bpm = bpm
	if e.state == Playing {
		e.runID++
		if e.timer != nil {
			e.timer.Stop()
		}
		e.scheduleLocked()
	}
}

// Pattern returns the current pattern.
func (e *Engine) Pattern() Pattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pattern
}

// SetPattern swaps the pattern. Takes effect on the next tick.
func (e *Engine) SetPattern(p Pattern) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p.Steps <= 0 {
		p.Steps = DefaultSteps
	}
	e.pattern = p
}

func (e *Engine) scheduleLocked() {
	id := e.runID
	e.timer = time.AfterFunc(stepInterval(e.bpm), func() { e.tick(id) })
}

func (e *Engine) tick(id uint64) {
	e.mu.Lock()
	if id != e.runID || e.state != Playing {
		e.mu.Unlock()
		return
	}
	e.step = (e.step + 1) % e.pattern.Steps
	step := e.step
	var fire []int
	for ch, row := range e.pattern.Rows {
		if step < len(row) && row[step] {
			fire = append(fire, ch)
		}
	}
	sort.Ints(fire)
	trigger := e.hooks.TriggerChannel
	changed := e.hooks.StepChanged
	e.scheduleLocked()
	e.mu.Unlock()

	if changed != nil {
		changed(step)
	}
	if trigger != nil {
		for _, ch := range fire {
			trigger(ch)
		}
	}
}
