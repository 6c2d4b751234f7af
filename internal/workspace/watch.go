package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const (
	debounceDelay  = 350 * time.Millisecond
	settleAttempts = 6
	settleInterval = 120 * time.Millisecond
)

// Watcher watches the modules directory and emits a changed-filename
// notification once the directory has settled. Editors and module
// bundlers write in bursts, so raw fsnotify events are debounced and
// then the directory is polled until two consecutive size/mtime
// signatures match.
type Watcher struct {
	dir      string
	onChange func(filename string)

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	debounce *time.Timer
	pending  map[string]bool
	runID    uint64
	closed   bool
}

// NewWatcher starts watching dir. onChange receives the changed .js
// filename, or "" when several files changed in one burst.
func NewWatcher(dir string, onChange func(filename string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{dir: dir, onChange: onChange, fsw: fsw, pending: map[string]bool{}}
	go w.loop()
	return w, nil
}

// Close stops the watcher and invalidates any in-flight settle poll.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.runID++
	if w.debounce != nil {
		w.debounce.Stop()
	}
	fsw := w.fsw
	w.mu.Unlock()
	return fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.note(filepath.Base(ev.Name))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Debug().Err(err).Str("dir", w.dir).Msg("watch error")
		}
	}
}

func (w *Watcher) note(filename string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[filename] = true
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.runID++
	id := w.runID
	w.debounce = time.AfterFunc(debounceDelay, func() { w.settle(id, 0) })
}

// settle re-polls the directory signature until it stops moving, then
// fires the change notification. A new burst bumps the run id and
// orphans this poll chain.
func (w *Watcher) settle(id uint64, attempt int) {
	w.mu.Lock()
	if w.closed || id != w.runID {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	before := dirSignature(w.dir)
	time.AfterFunc(settleInterval, func() {
		w.mu.Lock()
		if w.closed || id != w.runID {
			w.mu.Unlock()
			return
		}
		after := dirSignature(w.dir)
		if before != after && attempt+1 < settleAttempts {
			w.mu.Unlock()
			w.settle(id, attempt+1)
			return
		}
		var changed string
		if len(w.pending) == 1 {
			for f := range w.pending {
				changed = f
			}
		}
		w.pending = map[string]bool{}
		cb := w.onChange
		w.mu.Unlock()
		if cb != nil {
			cb(changed)
		}
	})
}

// dirSignature folds every entry's size and mtime into one comparable
// string.
func dirSignature(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "err:" + err.Error()
	}
	sig := ""
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		sig += fmt.Sprintf("%s:%d:%d;", e.Name(), info.Size(), info.ModTime().UnixNano())
	}
	return sig
}
