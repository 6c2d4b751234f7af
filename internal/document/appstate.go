package document

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// AppState is the transient session sidecar: which track and set were
// live, whether the sequencer was muted. It is best-effort state kept
// out of the document so churn here never risks the user's data file.
type AppState struct {
	ActiveSetID    string `json:"activeSetId,omitempty"`
	ActiveTrackID  string `json:"activeTrackId,omitempty"`
	SequencerMuted bool   `json:"sequencerMuted,omitempty"`
	WorkspacePath  string `json:"workspacePath,omitempty"`
}

// LoadAppState reads the sidecar; a missing or corrupt file yields the
// zero state.
func LoadAppState(path string) AppState {
	var st AppState
	b, err := os.ReadFile(path)
	if err != nil {
		return st
	}
	_ = json.Unmarshal(b, &st)
	return st
}

// SaveAppState writes the sidecar. Errors are returned but callers
// usually only log them.
func SaveAppState(path string, st AppState) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
