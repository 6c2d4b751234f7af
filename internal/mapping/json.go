package mapping

import "encoding/json"

// UnmarshalJSON accepts both the current nested shape
// {"pitchClass":{...},"exactNote":{...}} and the legacy flat shape
// {"1":0,"2":1,...}, which predates exact-note matching and holds
// pitch classes directly.
func (m *MIDITable) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	_, hasPC := raw["pitchClass"]
	_, hasEN := raw["exactNote"]
	if hasPC || hasEN {
		type plain MIDITable
		var p plain
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*m = MIDITable(p)
		return nil
	}
	var flat map[string]int
	if err := json.Unmarshal(b, &flat); err != nil {
		// Not a mapping object at all; leave the table empty so load
		// can reseed defaults.
		*m = MIDITable{}
		return nil
	}
	*m = MIDITable{PitchClass: flat}
	return nil
}
