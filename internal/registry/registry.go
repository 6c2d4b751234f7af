// Package registry tracks which visual modules exist in the workspace
// and what methods they expose. Metadata beyond the filename comes from
// the projector introspecting a live instance, so entries start out
// uninspected and fill in as responses arrive.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/example/vjdeck/internal/document"
	"github.com/example/vjdeck/internal/workspace"
)

const (
	drainBatchSize  = 25
	drainBatchDelay = 60 * time.Millisecond
)

// Status is the introspection lifecycle of one entry.
type Status string

const (
	StatusUninspected Status = "uninspected"
	StatusReady       Status = "ready"
	StatusFailed      Status = "failed"
)

// Entry is one known module definition. Entries are rebuilt wholesale
// on every workspace scan; only Status and Methods survive a rescan
// when the id still exists.
type Entry struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Category string               `json:"category,omitempty"`
	Methods  []document.MethodDef `json:"methods,omitempty"`
	Status   Status               `json:"status"`
}

// Hooks are the registry's outbound effects. Nil hooks are skipped.
type Hooks struct {
	// Introspect asks the projector for one module's metadata.
	Introspect func(moduleID string)
	// Gate reports whether drains may run (workspace available and
	// projector connected). A gated drain is skipped but the queue
	// survives and flushes on the next schedule.
	Gate func() bool
	// Changed fires after any entry changes, for dashboard refresh.
	Changed func()
}

// Registry owns the entry table and the introspection drain queue.
type Registry struct {
	mu    sync.Mutex
	hooks Hooks

	entries map[string]*Entry
	files   []string // every valid module id seen by the last scan

	pending     map[string]bool
	pendingFull bool
	drainID     uint64

	migrated bool
}

// New constructs an empty registry.
func New(hooks Hooks) *Registry {
	return &Registry{
		hooks:   hooks,
		entries: map[string]*Entry{},
		pending: map[string]bool{},
	}
}

// Entries returns the current table sorted by id.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entry returns one entry by id.
func (r *Registry) Entry(id string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// ApplyScan rebuilds the table from a workspace scan. Files without
// metadata are remembered (they count for migration gating) but do not
// become visible entries. A full drain is queued for whatever survived.
func (r *Registry) ApplyScan(res workspace.ScanResult) {
	r.mu.Lock()
	next := map[string]*Entry{}
	files := make([]string, 0, len(res.Summaries))
	for _, sum := range res.Summaries {
		files = append(files, sum.ID)
		if !sum.HasMetadata {
			continue
		}
		e := &Entry{ID: sum.ID, Name: sum.Name, Category: sum.Category, Status: StatusUninspected}
		if prev, ok := r.entries[sum.ID]; ok && prev.Status == StatusReady {
			e.Methods = prev.Methods
			e.Status = StatusReady
		}
		next[sum.ID] = e
	}
	r.entries = next
	r.files = files
	r.pendingFull = true
	r.mu.Unlock()

	r.notifyChanged()
	r.scheduleDrain()
}

// NotifyModulesChanged queues introspection for a changed file. An
// empty or non-module filename widens the queue to everything.
func (r *Registry) NotifyModulesChanged(filename string) {
	r.mu.Lock()
	id := moduleIDFromFilename(filename)
	if id == "" {
		r.pendingFull = true
	} else {
		r.pending[id] = true
	}
	r.mu.Unlock()
	r.scheduleDrain()
}

func moduleIDFromFilename(filename string) string {
	if len(filename) <= 3 || filename[len(filename)-3:] != ".js" {
		return ""
	}
	id := filename[:len(filename)-3]
	if !workspace.ValidModuleID(id) {
		return ""
	}
	return id
}

// scheduleDrain coalesces bursts: the queue settles for one timer turn
// before draining, and starting a new drain orphans any prior one via
// the run id.
func (r *Registry) scheduleDrain() {
	r.mu.Lock()
	r.drainID++
	id := r.drainID
	r.mu.Unlock()
	time.AfterFunc(0, func() { r.drain(id) })
}

func (r *Registry) drain(id uint64) {
	if r.hooks.Gate != nil && !r.hooks.Gate() {
		return
	}
	r.mu.Lock()
	if id != r.drainID {
		r.mu.Unlock()
		return
	}
	var ids []string
	if r.pendingFull {
		for eid := range r.entries {
			ids = append(ids, eid)
		}
	} else {
		for eid := range r.pending {
			if _, ok := r.entries[eid]; ok {
				ids = append(ids, eid)
			}
		}
	}
	r.pending = map[string]bool{}
	r.pendingFull = false
	introspect := r.hooks.Introspect
	r.mu.Unlock()

	if len(ids) == 0 || introspect == nil {
		return
	}
	sort.Strings(ids)
	for start := 0; start < len(ids); start += drainBatchSize {
		if start > 0 {
			time.Sleep(drainBatchDelay)
		}
		r.mu.Lock()
		stale := id != r.drainID
		r.mu.Unlock()
		if stale {
			return
		}
		end := start + drainBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, mid := range ids[start:end] {
			introspect(mid)
		}
	}
}

// ApplyIntrospection records a successful metadata response.
func (r *Registry) ApplyIntrospection(id, name, category string, methods []document.MethodDef) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if name != "" {
		e.Name = name
	}
	if category != "" {
		e.Category = category
	}
	e.Methods = methods
	e.Status = StatusReady
	r.mu.Unlock()
	r.notifyChanged()
}

// ReportLoadFailure marks an entry as failed to load on the projector.
func (r *Registry) ReportLoadFailure(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.Status = StatusFailed
	e.Methods = nil
	r.mu.Unlock()
	r.notifyChanged()
}

func (r *Registry) notifyChanged() {
	if r.hooks.Changed != nil {
		r.hooks.Changed()
	}
}
