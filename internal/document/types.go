// Package document holds the session document: the tree of sets, tracks,
// channel mappings and module configuration that the dashboard owns and
// the projector only ever sees as message-carried snapshots.
package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/example/vjdeck/internal/mapping"
)

// MaxChannels caps concurrent channels per track.
const MaxChannels = 12

// Document is the persisted root. Sets is never empty after a
// successful load; an empty-sets document is treated as corrupt and is
// never written over a good prior copy.
type Document struct {
	Config GlobalConfig `json:"config"`
	Sets   []*Set       `json:"sets"`

	// Tracks carries the legacy pre-sets shape during load only; it is
	// folded into Sets by migrateToSets and never written back.
	Tracks []*Track `json:"tracks,omitempty"`
}

// GlobalConfig holds document-wide settings and the two mapping tables.
type GlobalConfig struct {
	ActiveSetID     string        `json:"activeSetId,omitempty"`
	TrackMappings   mapping.Table `json:"trackMappings"`
	ChannelMappings mapping.Table `json:"channelMappings"`
	Input           InputConfig   `json:"input"`
	SequencerMode   bool          `json:"sequencerMode,omitempty"`
	SequencerBPM    float64       `json:"sequencerBpm,omitempty"`
	UserColors      []string      `json:"userColors,omitempty"`
	AspectRatio     string        `json:"aspectRatio,omitempty"`
	BGColor         string        `json:"bgColor,omitempty"`
}

// InputConfig describes the active input source.
type InputConfig struct {
	Type                  mapping.InputType `json:"type"`
	DeviceID              string            `json:"deviceId,omitempty"`
	DeviceName            string            `json:"deviceName,omitempty"`
	TrackSelectionChannel int               `json:"trackSelectionChannel"`
	MethodTriggerChannel  int               `json:"methodTriggerChannel"`
	VelocitySensitive     bool              `json:"velocitySensitive"`
	Port                  int               `json:"port"`
	NoteMatchMode         mapping.MatchMode `json:"noteMatchMode,omitempty"`
}

// DefaultInputConfig mirrors the seed configuration of a fresh document.
func DefaultInputConfig() InputConfig {
	return InputConfig{
		Type:                  mapping.InputMIDI,
		DeviceName:            "IAC Driver Bus 1",
		TrackSelectionChannel: 1,
		MethodTriggerChannel:  2,
		VelocitySensitive:     false,
		Port:                  8000,
		NoteMatchMode:         mapping.MatchPitchClass,
	}
}

// Set groups tracks for one performance.
type Set struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Tracks []*Track `json:"tracks"`
}

// Track is a performer-facing unit bound to one track-select slot.
type Track struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	TrackSlot int     `json:"trackSlot"`
	BPM       float64 `json:"bpm,omitempty"`

	// ChannelMappings maps channel number (string-encoded) to the
	// channel-trigger slot it fires on.
	ChannelMappings map[string]int `json:"channelMappings"`

	Modules     []ModuleInstance         `json:"modules"`
	ModulesData map[string]*InstanceData `json:"modulesData"`
}

// ModuleInstance references a visual module definition by type id. The
// type may be a stale display name that the registry migrates to the
// current id.
type ModuleInstance struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// InstanceData holds the method configuration of one module instance.
// Constructor methods run once at module initialization; Methods is
// keyed by channel number (string) or the literal "constructor".
type InstanceData struct {
	Constructor []MethodConfig            `json:"constructor,omitempty"`
	Methods     map[string][]MethodConfig `json:"methods,omitempty"`
}

// MethodConfig is one configured method invocation.
type MethodConfig struct {
	Name    string         `json:"name"`
	Options []MethodOption `json:"options,omitempty"`
}

// MethodOption is one configured option value. RandomRange and
// RandomValues are mutually exclusive.
type MethodOption struct {
	Name                    string     `json:"name"`
	Value                   any        `json:"value,omitempty"`
	DefaultVal              any        `json:"defaultVal,omitempty"`
	RandomRange             []float64  `json:"randomRange,omitempty"`
	RandomValues            []string   `json:"randomValues,omitempty"`
	RandomizeFromUserColors bool       `json:"randomizeFromUserColors,omitempty"`
}

// MethodDef is a method declaration reported by module introspection.
type MethodDef struct {
	Name          string         `json:"name"`
	ExecuteOnLoad bool           `json:"executeOnLoad,omitempty"`
	Options       []OptionSchema `json:"options,omitempty"`
}

// OptionSchema is the declared shape of one method option.
type OptionSchema struct {
	Name       string   `json:"name"`
	Type       string   `json:"type,omitempty"`
	DefaultVal any      `json:"defaultVal,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Values     []any    `json:"values,omitempty"`
}

// NewSetID generates a set id in the persisted format.
func NewSetID() string {
	return fmt.Sprintf("set_%d", time.Now().UnixMilli())
}

// NewTrackID generates a track id in the persisted format.
func NewTrackID() string {
	return fmt.Sprintf("track_%d", time.Now().UnixMilli())
}

// Default returns the seed document used when nothing can be loaded.
func Default() *Document {
	return &Document{
		Config: GlobalConfig{
			ActiveSetID:     "set_1",
			TrackMappings:   mapping.DefaultTrackTable(),
			ChannelMappings: mapping.DefaultChannelTable(),
			Input:           DefaultInputConfig(),
			SequencerBPM:    120,
		},
		Sets: []*Set{{ID: "set_1", Name: "Set 1", Tracks: []*Track{}}},
	}
}

// Clone returns a deep copy via a JSON round trip. Option values typed
// `any` come back in their JSON-decoded form (float64, string, bool),
// which is the same domain they are loaded in.
func (d *Document) Clone() *Document {
	b, err := json.Marshal(d)
	if err != nil {
		// The document is built from JSON-compatible types only.
		panic(fmt.Sprintf("document clone: %v", err))
	}
	var out Document
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("document clone: %v", err))
	}
	return &out
}

// ActiveSet resolves Config.ActiveSetID, or nil when it matches nothing.
func (d *Document) ActiveSet() *Set {
	for _, s := range d.Sets {
		if s.ID == d.Config.ActiveSetID {
			return s
		}
	}
	return nil
}

// SetByID returns the set with the given id, or nil.
func (d *Document) SetByID(id string) *Set {
	for _, s := range d.Sets {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// TrackByID returns the track with the given id, or nil.
func (s *Set) TrackByID(id string) *Track {
	for _, t := range s.Tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TrackBySlot returns the track occupying a track-select slot, or nil.
func (s *Set) TrackBySlot(slot int) *Track {
	for _, t := range s.Tracks {
		if t.TrackSlot == slot {
			return t
		}
	}
	return nil
}

// ChannelNumbers returns the track's channel numbers in ascending order.
func (t *Track) ChannelNumbers() []int {
	out := make([]int, 0, len(t.ChannelMappings))
	for k := range t.ChannelMappings {
		if n, err := strconv.Atoi(k); err == nil {
			out = append(out, n)
		}
	}
	sortInts(out)
	return out
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}
