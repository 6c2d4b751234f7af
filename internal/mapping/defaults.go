package mapping

import "strconv"

// Default trigger assignments seeded into new documents. Channel
// triggers descend from G8 and track selects continue below them so the
// two ranges never overlap on a keyboard.
const (
	defaultChannelTopNote = 115 // G8
	defaultTrackTopNote   = 103 // G7
)

// DefaultTrackTable returns the seed track-select mapping table.
func DefaultTrackTable() Table {
	return Table{
		MIDI: MIDITable{
			PitchClass: defaultPitchClasses(12),
			ExactNote:  descendingNotes(defaultTrackTopNote, 12),
		},
		OSC: defaultAddresses("/track/", 10),
	}
}

// DefaultChannelTable returns the seed channel-trigger mapping table.
func DefaultChannelTable() Table {
	return Table{
		MIDI: MIDITable{
			PitchClass: defaultPitchClasses(12),
			ExactNote:  descendingNotes(defaultChannelTopNote, 12),
		},
		OSC: defaultAddresses("/ch/", 12),
	}
}

func defaultPitchClasses(n int) map[string]int {
	m := make(map[string]int, n)
	for slot := 1; slot <= n; slot++ {
		m[strconv.Itoa(slot)] = (slot - 1) % 12
	}
	return m
}

func descendingNotes(top, n int) map[string]int {
	m := make(map[string]int, n)
	for slot := 1; slot <= n; slot++ {
		m[strconv.Itoa(slot)] = top - (slot - 1)
	}
	return m
}

func defaultAddresses(prefix string, n int) map[string]string {
	m := make(map[string]string, n)
	for slot := 1; slot <= n; slot++ {
		m[strconv.Itoa(slot)] = prefix + strconv.Itoa(slot)
	}
	return m
}
