package sequencer

import (
	"reflect"
	"sync"
	"testing"
)

// slowBPM keeps the real timer far enough out that tests can drive
// ticks by hand without a scheduled one racing in.
const slowBPM = 1

func (e *Engine) idForTest() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

func TestToggle(t *testing.T) {
	e := New(slowBPM, Hooks{})
	defer e.Stop()
	if e.State() != Stopped {
		t.Fatal("new engine should be stopped")
	}
	if e.Toggle() != Playing {
		t.Fatal("toggle should start playback")
	}
	if e.Toggle() != Stopped {
		t.Fatal("toggle should stop playback")
	}
}

func TestTickFiresConfiguredChannels(t *testing.T) {
	var mu sync.Mutex
	var fired []int
	e := New(slowBPM, Hooks{TriggerChannel: func(ch int) {
		mu.Lock()
		fired = append(fired, ch)
		mu.Unlock()
	}})
	defer e.Stop()
	e.SetPattern(Pattern{Steps: 4, Rows: map[int][]bool{
		3: {false, true, false, false},
		1: {false, true, false, false},
		5: {false, false, true, false},
	}})
	e.Toggle()

	e.tick(e.idForTest())
	if e.CurrentStep() != 1 {
		t.Fatalf("step = %d, want 1", e.CurrentStep())
	}
	mu.Lock()
	got := append([]int(nil), fired...)
	mu.Unlock()
	if !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("fired = %v, want [1 3]", got)
	}
}

func TestStepWrapsAtPatternLength(t *testing.T) {
	e := New(slowBPM, Hooks{})
	defer e.Stop()
	e.SetPattern(Pattern{Steps: 3, Rows: map[int][]bool{}})
	e.Toggle()
	for i := 0; i < 3; i++ {
		e.tick(e.idForTest())
	}
	if e.CurrentStep() != 0 {
		t.Fatalf("step = %d, want wrap to 0", e.CurrentStep())
	}
}

func TestSetBPMKeepsStep(t *testing.T) {
	e := New(slowBPM, Hooks{})
	defer e.Stop()
	e.SetPattern(Pattern{Steps: 8, Rows: map[int][]bool{}})
	e.Toggle()
	e.tick(e.idForTest())
	e.tick(e.idForTest())
	if e.CurrentStep() != 2 {
		t.Fatalf("step = %d, want 2", e.CurrentStep())
	}
	e.SetBPM(2)
	if e.State() != Playing {
		t.Fatal("bpm change stopped playback")
	}
	if e.CurrentStep() != 2 {
		t.Fatalf("step after bpm change = %d, want 2", e.CurrentStep())
	}
	e.tick(e.idForTest())
	if e.CurrentStep() != 3 {
		t.Fatalf("step = %d, want 3", e.CurrentStep())
	}
}

func TestStaleTickDiscarded(t *testing.T) {
	var fired int
	e := New(slowBPM, Hooks{TriggerChannel: func(int) { fired++ }})
	defer e.Stop()
	e.SetPattern(Pattern{Steps: 4, Rows: map[int][]bool{1: {true, true, true, true}}})
	e.Toggle()
	stale := e.idForTest()
	e.Toggle() // stop bumps the run id
	e.Toggle() // restart
	e.tick(stale)
	if fired != 0 {
		t.Fatalf("stale tick fired %d triggers", fired)
	}
	if e.CurrentStep() != 0 {
		t.Fatalf("stale tick advanced step to %d", e.CurrentStep())
	}
}

func TestForceStopResetsStep(t *testing.T) {
	var steps []int
	e := New(slowBPM, Hooks{StepChanged: func(s int) { steps = append(steps, s) }})
	e.SetPattern(Pattern{Steps: 8, Rows: map[int][]bool{}})
	e.Toggle()
	e.tick(e.idForTest())
	e.tick(e.idForTest())
	e.ForceStop()
	if e.State() != Stopped {
		t.Fatal("force stop did not stop playback")
	}
	if e.CurrentStep() != 0 {
		t.Fatalf("step = %d, want 0", e.CurrentStep())
	}
	if len(steps) == 0 || steps[len(steps)-1] != 0 {
		t.Fatalf("steps = %v, want trailing 0", steps)
	}
}

func TestPatternOn(t *testing.T) {
	p := Pattern{Steps: 4, Rows: map[int][]bool{2: {true, false}}}
	if !p.On(2, 0) || p.On(2, 1) {
		t.Fatal("row lookup wrong")
	}
	if p.On(2, 3) {
		t.Fatal("past-end step should be off")
	}
	if p.On(9, 0) {
		t.Fatal("unknown channel should be off")
	}
}
