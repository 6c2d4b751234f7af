// Package mapping translates between slot numbers and the concrete input
// triggers bound to them: MIDI pitch classes, exact MIDI notes, or OSC
// addresses. All functions are pure; an unresolvable entry reports
// ok=false ("not configured") instead of an error.
package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// InputType selects which half of a Table a lookup consults.
type InputType string

// MatchMode selects how MIDI notes are compared against slot triggers.
type MatchMode string

const (
	InputMIDI InputType = "midi"
	InputOSC  InputType = "osc"

	MatchPitchClass MatchMode = "pitchClass"
	MatchExactNote  MatchMode = "exactNote"
)

// ChannelSlotCount is the number of channel-trigger slots per track.
const ChannelSlotCount = 12

// TrackSlotCapacity returns how many track-select slots an input type offers.
func TrackSlotCapacity(t InputType) int {
	if t == InputOSC {
		return 10
	}
	return 12
}

// MIDITable holds per-slot MIDI trigger values, keyed by string-encoded
// slot number to match the persisted document shape.
type MIDITable struct {
	PitchClass map[string]int `json:"pitchClass"`
	ExactNote  map[string]int `json:"exactNote"`
}

// Table is one mapping table (track-select or channel-trigger).
type Table struct {
	MIDI MIDITable         `json:"midi"`
	OSC  map[string]string `json:"osc,omitempty"`
}

// Trigger is a resolved slot trigger.
type Trigger struct {
	Mode       MatchMode // MatchPitchClass or MatchExactNote for MIDI; empty for OSC
	PitchClass int
	Note       int
	Address    string
}

// Display renders a trigger the way the dashboard shows it.
func (t Trigger) Display() string {
	switch t.Mode {
	case MatchPitchClass:
		if name, ok := PitchClassName(t.PitchClass); ok {
			return name
		}
		return strconv.Itoa(t.PitchClass)
	case MatchExactNote:
		return NoteName(t.Note)
	}
	return t.Address
}

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchClassName returns the canonical sharp name for a pitch class 0-11.
func PitchClassName(pc int) (string, bool) {
	if pc < 0 || pc > 11 {
		return "", false
	}
	return pitchNames[pc], true
}

// NoteName renders a raw MIDI note number as a note-name string, e.g.
// 61 -> "C#4" (octave convention: C-1 = 0).
func NoteName(note int) string {
	pc := ((note % 12) + 12) % 12
	octave := note/12 - 1
	return fmt.Sprintf("%s%d", pitchNames[pc], octave)
}

// ParsePitchClass normalizes a mapping entry to the 0-11 pitch-class
// domain. It accepts a raw integer (or float, as decoded from JSON), a
// numeric string, or a note-name string with optional octave ("C#",
// "Db4"). Malformed input reports ok=false.
func ParsePitchClass(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		if x >= 0 && x <= 11 {
			return x, true
		}
		return 0, false
	case float64:
		n := int(x)
		if float64(n) == x && n >= 0 && n <= 11 {
			return n, true
		}
		return 0, false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			if n >= 0 && n <= 11 {
				return n, true
			}
			return 0, false
		}
		return parseNoteNamePitchClass(s)
	}
	return 0, false
}

func parseNoteNamePitchClass(s string) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	base := strings.ToUpper(s[:1])
	pc := -1
	for i, name := range pitchNames {
		if name == base {
			pc = i
			break
		}
	}
	if pc < 0 {
		return 0, false
	}
	rest := s[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case '#':
			pc = (pc + 1) % 12
			rest = rest[1:]
			continue
		case 'b':
			pc = (pc + 11) % 12
			rest = rest[1:]
			continue
		}
		break
	}
	// Whatever remains must be an octave number; its value does not
	// affect the pitch class but garbage invalidates the name.
	if rest != "" {
		if _, err := strconv.Atoi(rest); err != nil {
			return 0, false
		}
	}
	return pc, true
}

// ValidNote reports whether n is a MIDI note number.
func ValidNote(n int) bool { return n >= 0 && n <= 127 }

// ResolveTrigger looks up the configured trigger for a slot. ok=false
// means the slot is not configured; callers surface that state rather
// than treating it as an error.
func ResolveTrigger(slot int, inputType InputType, mode MatchMode, tbl Table) (Trigger, bool) {
	key := strconv.Itoa(slot)
	if inputType == InputOSC {
		addr, ok := tbl.OSC[key]
		if !ok || strings.TrimSpace(addr) == "" {
			return Trigger{}, false
		}
		return Trigger{Address: NormalizeAddress(addr)}, true
	}
	switch mode {
	case MatchExactNote:
		n, ok := tbl.MIDI.ExactNote[key]
		if !ok || !ValidNote(n) {
			return Trigger{}, false
		}
		return Trigger{Mode: MatchExactNote, Note: n}, true
	default:
		pc, ok := tbl.MIDI.PitchClass[key]
		if !ok || pc < 0 || pc > 11 {
			return Trigger{}, false
		}
		return Trigger{Mode: MatchPitchClass, PitchClass: pc}, true
	}
}

// SlotForNote is the inverse lookup: which slot, if any, does a raw MIDI
// note number fire under the given match mode. Slots are scanned in
// ascending order so a malformed table with duplicates resolves
// deterministically.
func SlotForNote(note int, mode MatchMode, tbl Table, slotCount int) (int, bool) {
	for slot := 1; slot <= slotCount; slot++ {
		trig, ok := ResolveTrigger(slot, InputMIDI, mode, tbl)
		if !ok {
			continue
		}
		switch mode {
		case MatchExactNote:
			if trig.Note == note {
				return slot, true
			}
		default:
			if trig.PitchClass == ((note%12)+12)%12 {
				return slot, true
			}
		}
	}
	return 0, false
}

// SlotForAddress maps a normalized OSC address to its slot.
func SlotForAddress(addr string, tbl Table, slotCount int) (int, bool) {
	addr = NormalizeAddress(addr)
	for slot := 1; slot <= slotCount; slot++ {
		trig, ok := ResolveTrigger(slot, InputOSC, "", tbl)
		if !ok {
			continue
		}
		if trig.Address == addr {
			return slot, true
		}
	}
	return 0, false
}

// NormalizeExactNotes repairs an exact-note mapping so that all 12 slots
// hold pairwise-distinct valid notes. Invalid or duplicate entries are
// cleared, then each empty slot is refilled from a candidate list:
// the table's declared defaults in slot order first, then an exhaustive
// 0-127 scan. When two slots' defaults collide the resulting assignment
// follows candidate order and is not a guaranteed tie-break contract.
func NormalizeExactNotes(m map[string]int, defaults map[string]int) map[string]int {
	candidates := make([]int, 0, 12+128)
	for slot := 1; slot <= 12; slot++ {
		if n, ok := defaults[strconv.Itoa(slot)]; ok && ValidNote(n) {
			candidates = append(candidates, n)
		}
	}
	for n := 0; n <= 127; n++ {
		candidates = append(candidates, n)
	}

	next := make(map[string]int, 12)
	used := make(map[int]bool, 12)
	for slot := 1; slot <= 12; slot++ {
		key := strconv.Itoa(slot)
		n, ok := m[key]
		if ok && ValidNote(n) && !used[n] {
			next[key] = n
			used[n] = true
		}
	}
	for slot := 1; slot <= 12; slot++ {
		key := strconv.Itoa(slot)
		if _, ok := next[key]; ok {
			continue
		}
		for _, n := range candidates {
			if !used[n] {
				next[key] = n
				used[n] = true
				break
			}
		}
	}
	return next
}

// NormalizeAddress strips all whitespace from an OSC address.
func NormalizeAddress(addr string) string {
	return strings.Join(strings.Fields(addr), "")
}

// IsTrackAddress reports whether an OSC address selects a track.
// Track and channel prefixes are mutually exclusive.
func IsTrackAddress(addr string) bool {
	addr = NormalizeAddress(addr)
	return strings.HasPrefix(addr, "/track/") && len(addr) > len("/track/")
}

// IsChannelAddress reports whether an OSC address triggers a channel.
func IsChannelAddress(addr string) bool {
	addr = NormalizeAddress(addr)
	if strings.HasPrefix(addr, "/ch/") && len(addr) > len("/ch/") {
		return true
	}
	return strings.HasPrefix(addr, "/channel/") && len(addr) > len("/channel/")
}
