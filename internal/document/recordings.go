package document

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RecordingDocument is the separate store of performance recordings,
// keyed by track id. It lives beside the session document so deleting
// a track can cascade into its recordings without the two files
// sharing a writer.
type RecordingDocument struct {
	Recordings map[string][]Recording `json:"recordings"`
}

// Recording is one captured trigger sequence.
type Recording struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BPM       float64 `json:"bpm,omitempty"`
	CreatedAt int64   `json:"createdAt"`
	Steps     []struct {
		Channel int `json:"channel"`
		AtMs    int `json:"atMs"`
	} `json:"steps,omitempty"`
}

// NewRecording starts an empty named recording.
func NewRecording(name string, bpm float64) Recording {
	return Recording{
		ID:        uuid.NewString(),
		Name:      name,
		BPM:       bpm,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// LoadRecordings reads the recordings sidecar; a missing or corrupt
// file yields an empty store.
func LoadRecordings(path string) RecordingDocument {
	rec := RecordingDocument{Recordings: map[string][]Recording{}}
	b, err := os.ReadFile(path)
	if err != nil {
		return rec
	}
	_ = json.Unmarshal(b, &rec)
	if rec.Recordings == nil {
		rec.Recordings = map[string][]Recording{}
	}
	return rec
}

// SaveRecordings writes the recordings sidecar.
func SaveRecordings(path string, rec RecordingDocument) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// DeleteRecordingsForTracks returns a copy of rec without the entries
// of the given tracks. The input is never mutated, matching the
// copy-on-write contract of the session document.
func DeleteRecordingsForTracks(rec RecordingDocument, trackIDs []string) RecordingDocument {
	drop := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		drop[id] = true
	}
	out := RecordingDocument{Recordings: make(map[string][]Recording, len(rec.Recordings))}
	for id, items := range rec.Recordings {
		if drop[id] {
			continue
		}
		out.Recordings[id] = append([]Recording(nil), items...)
	}
	return out
}
