package registry

import "github.com/example/vjdeck/internal/document"

// MigrateTypes rewrites stale ModuleInstance.Type values holding a
// module's display name instead of its id. Older documents stored the
// name; after a rename the name and id can drift, so the rewrite only
// trusts unambiguous names. It runs at most once per workspace session
// and only when both the file list and the entry table are populated,
// otherwise a half-finished scan would look like mass deletion.
// Reports whether the document was modified.
func (r *Registry) MigrateTypes(store *document.Store) bool {
	r.mu.Lock()
	if r.migrated || len(r.files) == 0 || len(r.entries) == 0 {
		r.mu.Unlock()
		return false
	}
	knownIDs := make(map[string]bool, len(r.entries))
	byName := map[string]string{}
	dupes := map[string]bool{}
	for id, e := range r.entries {
		knownIDs[id] = true
		if e.Name == "" {
			continue
		}
		if _, seen := byName[e.Name]; seen {
			dupes[e.Name] = true
			continue
		}
		byName[e.Name] = id
	}
	r.migrated = true
	r.mu.Unlock()

	rewrite := func(typ string) (string, bool) {
		if knownIDs[typ] {
			return "", false
		}
		id, ok := byName[typ]
		if !ok || dupes[typ] {
			return "", false
		}
		return id, true
	}

	// Check the snapshot first so a clean document skips the clone.
	dirty := false
	for _, set := range store.Snapshot().Sets {
		for _, t := range set.Tracks {
			for _, m := range t.Modules {
				if _, ok := rewrite(m.Type); ok {
					dirty = true
				}
			}
		}
	}
	if !dirty {
		return false
	}
	store.Update(func(d *document.Document) {
		for _, set := range d.Sets {
			for _, t := range set.Tracks {
				for i := range t.Modules {
					if id, ok := rewrite(t.Modules[i].Type); ok {
						t.Modules[i].Type = id
					}
				}
			}
		}
	})
	return true
}
