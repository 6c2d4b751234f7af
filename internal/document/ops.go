package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/vjdeck/internal/mapping"
)

var (
	// ErrNameTaken reports a duplicate sibling name.
	ErrNameTaken = errors.New("name already in use")
	// ErrNameEmpty reports a blank name after trimming.
	ErrNameEmpty = errors.New("name is empty")
	// ErrNoSlots reports that every track-select slot is occupied.
	ErrNoSlots = errors.New("no free track slots")
)

// ValidateName checks a trimmed candidate name against its siblings.
// Comparison is case-insensitive; self is excluded so renaming a thing
// to its own name succeeds.
func ValidateName(name, selfID string, siblings []string, ids []string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrNameEmpty
	}
	for i, sib := range siblings {
		if i < len(ids) && ids[i] == selfID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(sib), trimmed) {
			return ErrNameTaken
		}
	}
	return nil
}

// ValidateSetName checks a candidate set name against the document.
func (d *Document) ValidateSetName(name, selfID string) error {
	names := make([]string, len(d.Sets))
	ids := make([]string, len(d.Sets))
	for i, s := range d.Sets {
		names[i], ids[i] = s.Name, s.ID
	}
	return ValidateName(name, selfID, names, ids)
}

// ValidateTrackName checks a candidate track name within one set.
func (s *Set) ValidateTrackName(name, selfID string) error {
	names := make([]string, len(s.Tracks))
	ids := make([]string, len(s.Tracks))
	for i, t := range s.Tracks {
		names[i], ids[i] = t.Name, t.ID
	}
	return ValidateName(name, selfID, names, ids)
}

// AddSet appends a named empty set.
func (d *Document) AddSet(name string) (*Set, error) {
	if err := d.ValidateSetName(name, ""); err != nil {
		return nil, err
	}
	s := &Set{ID: NewSetID(), Name: strings.TrimSpace(name), Tracks: []*Track{}}
	d.Sets = append(d.Sets, s)
	return s, nil
}

// DeleteSet removes a set by id and reports whether it existed. The
// last set cannot be deleted; a document always keeps at least one.
// Deleting the active set activates the first remaining one.
func (d *Document) DeleteSet(setID string) bool {
	if len(d.Sets) <= 1 {
		return false
	}
	for i, s := range d.Sets {
		if s.ID == setID {
			d.Sets = append(d.Sets[:i], d.Sets[i+1:]...)
			if d.Config.ActiveSetID == setID {
				d.Config.ActiveSetID = d.Sets[0].ID
			}
			return true
		}
	}
	return false
}

// ActivateSet switches the active set and reports whether it exists.
func (d *Document) ActivateSet(setID string) bool {
	if d.SetByID(setID) == nil {
		return false
	}
	d.Config.ActiveSetID = setID
	return true
}

// AvailableTrackSlots returns the free track-select slots of a set in
// ascending order, bounded by the capacity of the given input type.
func (s *Set) AvailableTrackSlots(inputType mapping.InputType) []int {
	capacity := mapping.TrackSlotCapacity(inputType)
	taken := make(map[int]bool, len(s.Tracks))
	for _, t := range s.Tracks {
		taken[t.TrackSlot] = true
	}
	free := make([]int, 0, capacity)
	for slot := 1; slot <= capacity; slot++ {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free
}

// AddTrack appends a named track on the lowest free slot.
func (s *Set) AddTrack(name string, inputType mapping.InputType) (*Track, error) {
	if err := s.ValidateTrackName(name, ""); err != nil {
		return nil, err
	}
	free := s.AvailableTrackSlots(inputType)
	if len(free) == 0 {
		return nil, ErrNoSlots
	}
	t := &Track{
		ID:              NewTrackID(),
		Name:            strings.TrimSpace(name),
		TrackSlot:       free[0],
		ChannelMappings: map[string]int{},
		Modules:         []ModuleInstance{},
		ModulesData:     map[string]*InstanceData{},
	}
	s.Tracks = append(s.Tracks, t)
	return t, nil
}

// RemoveTrack deletes a track by id and reports whether it existed.
// Recording cleanup for the removed track is the caller's concern.
func (s *Set) RemoveTrack(trackID string) bool {
	for i, t := range s.Tracks {
		if t.ID == trackID {
			s.Tracks = append(s.Tracks[:i], s.Tracks[i+1:]...)
			return true
		}
	}
	return false
}

// AddChannel binds the lowest free channel number of a track to a
// trigger slot. Channel numbers and slots both start at 1.
func (t *Track) AddChannel() (int, error) {
	if t.ChannelMappings == nil {
		t.ChannelMappings = map[string]int{}
	}
	if len(t.ChannelMappings) >= MaxChannels {
		return 0, fmt.Errorf("track %s already has %d channels", t.ID, MaxChannels)
	}
	for ch := 1; ch <= MaxChannels; ch++ {
		key := strconv.Itoa(ch)
		if _, ok := t.ChannelMappings[key]; !ok {
			t.ChannelMappings[key] = ch
			return ch, nil
		}
	}
	return 0, fmt.Errorf("track %s already has %d channels", t.ID, MaxChannels)
}

// DeleteChannel removes a channel and cascades into every module
// instance's per-channel method lists, so no instance keeps
// configuration for a channel that no longer exists.
func (t *Track) DeleteChannel(channel int) {
	key := strconv.Itoa(channel)
	delete(t.ChannelMappings, key)
	for _, data := range t.ModulesData {
		if data != nil && data.Methods != nil {
			delete(data.Methods, key)
		}
	}
}

// SetChannelSlot rebinds a channel to a different trigger slot.
func (t *Track) SetChannelSlot(channel, slot int) {
	if t.ChannelMappings == nil {
		t.ChannelMappings = map[string]int{}
	}
	t.ChannelMappings[strconv.Itoa(channel)] = slot
}

// AddModule appends a module instance of the given type with empty
// instance data.
func (t *Track) AddModule(typeID string) *ModuleInstance {
	inst := ModuleInstance{
		ID:   fmt.Sprintf("%s_%d", typeID, len(t.Modules)+1),
		Type: typeID,
	}
	t.Modules = append(t.Modules, inst)
	if t.ModulesData == nil {
		t.ModulesData = map[string]*InstanceData{}
	}
	t.ModulesData[inst.ID] = &InstanceData{Methods: map[string][]MethodConfig{}}
	return &t.Modules[len(t.Modules)-1]
}

// DeleteModule removes a module instance and its configuration.
func (t *Track) DeleteModule(instanceID string) bool {
	found := false
	for i, m := range t.Modules {
		if m.ID == instanceID {
			t.Modules = append(t.Modules[:i], t.Modules[i+1:]...)
			found = true
			break
		}
	}
	delete(t.ModulesData, instanceID)
	return found
}

// MethodsForChannel returns the configured methods every module
// instance fires on one channel, keyed by instance id. Instances with
// nothing bound to the channel are omitted.
func (t *Track) MethodsForChannel(channel int) map[string][]MethodConfig {
	key := strconv.Itoa(channel)
	out := map[string][]MethodConfig{}
	for id, data := range t.ModulesData {
		if data == nil || data.Methods == nil {
			continue
		}
		if methods, ok := data.Methods[key]; ok && len(methods) > 0 {
			out[id] = methods
		}
	}
	return out
}
