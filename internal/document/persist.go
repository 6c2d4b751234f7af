package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/example/vjdeck/internal/mapping"
)

// BackupSuffix is appended to the document path for the rolling backup.
const BackupSuffix = ".backup"

// LoadResult describes where a loaded document came from.
type LoadResult struct {
	FromBackup bool
	IsDefault  bool
}

// Load reads the document at path, falling back to the rolling backup
// and finally to the built-in default. It never fails: the worst case
// is a default document flagged so it cannot overwrite the user's file.
func Load(path string) (*Document, LoadResult) {
	doc, err := readDocument(path)
	if err == nil {
		return doc, LoadResult{}
	}
	if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("document unreadable, trying backup")
	}
	doc, berr := readDocument(path + BackupSuffix)
	if berr == nil {
		log.Warn().Str("path", path).Msg("document restored from backup")
		return doc, LoadResult{FromBackup: true}
	}
	if !os.IsNotExist(err) || !os.IsNotExist(berr) {
		log.Warn().Err(berr).Str("path", path).Msg("backup unreadable, using defaults")
	}
	return Default(), LoadResult{IsDefault: true}
}

func readDocument(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	Migrate(&doc)
	// A document that parses but has no sets is as unusable as one
	// that does not parse. Treat it as corrupt so the backup chain
	// takes over.
	if len(doc.Sets) == 0 {
		return nil, fmt.Errorf("parse %s: document has no sets", path)
	}
	return &doc, nil
}

// Migrate upgrades legacy shapes and repairs missing pieces in place.
// It is idempotent and runs on every load.
func Migrate(d *Document) {
	// Pre-sets documents stored tracks at the top level.
	if len(d.Sets) == 0 && len(d.Tracks) > 0 {
		d.Sets = []*Set{{ID: "set_1", Name: "Set 1", Tracks: d.Tracks}}
		d.Config.ActiveSetID = "set_1"
	}
	d.Tracks = nil

	if d.ActiveSet() == nil && len(d.Sets) > 0 {
		d.Config.ActiveSetID = d.Sets[0].ID
	}

	repairTable(&d.Config.TrackMappings, mapping.DefaultTrackTable())
	repairTable(&d.Config.ChannelMappings, mapping.DefaultChannelTable())

	in := &d.Config.Input
	if in.Type != mapping.InputOSC {
		in.Type = mapping.InputMIDI
	}
	if in.NoteMatchMode != mapping.MatchExactNote {
		in.NoteMatchMode = mapping.MatchPitchClass
	}
	if in.TrackSelectionChannel == 0 {
		in.TrackSelectionChannel = 1
	}
	if in.MethodTriggerChannel == 0 {
		in.MethodTriggerChannel = 2
	}
	if in.Port == 0 {
		in.Port = 8000
	}
	if d.Config.SequencerBPM <= 0 {
		d.Config.SequencerBPM = 120
	}
	d.Config.UserColors = NormalizeUserColors(d.Config.UserColors)

	for _, set := range d.Sets {
		if set.Tracks == nil {
			set.Tracks = []*Track{}
		}
		for _, t := range set.Tracks {
			if t.ChannelMappings == nil {
				t.ChannelMappings = map[string]int{}
			}
			if t.Modules == nil {
				t.Modules = []ModuleInstance{}
			}
			if t.ModulesData == nil {
				t.ModulesData = map[string]*InstanceData{}
			}
		}
	}
}

func repairTable(tbl *mapping.Table, defaults mapping.Table) {
	if len(tbl.MIDI.PitchClass) == 0 {
		tbl.MIDI.PitchClass = defaults.MIDI.PitchClass
	}
	tbl.MIDI.ExactNote = mapping.NormalizeExactNotes(tbl.MIDI.ExactNote, defaults.MIDI.ExactNote)
	if len(tbl.OSC) == 0 {
		tbl.OSC = defaults.OSC
	}
}

// Save writes the document atomically and refreshes the rolling backup
// from the previous good copy. A default or empty-sets document is
// silently skipped so a failed load can never destroy user data.
func Save(path string, d *Document, isDefault bool) error {
	if isDefault {
		log.Debug().Str("path", path).Msg("skipping save of default document")
		return nil
	}
	if len(d.Sets) == 0 {
		log.Warn().Str("path", path).Msg("refusing to save document with no sets")
		return nil
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	// Preserve the last good copy before it is replaced.
	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+BackupSuffix, prev, 0o644); err != nil {
			log.Warn().Err(err).Msg("backup refresh failed")
		}
	}
	return os.Rename(tmp, path)
}

// Save persists the store's current snapshot to path.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	doc, isDefault := s.doc, s.isDefault
	s.mu.RUnlock()
	return Save(path, doc, isDefault)
}
