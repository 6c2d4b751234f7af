// Package bus carries the fire-and-forget messages between the
// dashboard process and the projector process. Delivery is best-effort:
// sending to a peer that is gone is a silent no-op, never an error the
// caller has to handle.
package bus

import "encoding/json"

// Message is the wire shape: {"type": "...", ...props} flattened into
// one JSON object.
type Message struct {
	Type  string
	Props map[string]any
}

// Message types understood by both processes.
const (
	TypeChannelTrigger     = "channel-trigger"
	TypeTrackActivate      = "track-activate"
	TypeModuleIntrospect   = "module-introspect"
	TypeModuleIntrospected = "module-introspected"
	TypeRefreshProjector   = "refresh-projector"
	TypeToggleAspectRatio  = "toggleAspectRatioStyle"
	TypeSetBg              = "setBg"
	TypeProjectorReady     = "projector-ready"
	TypeModulesChanged     = "workspace:modulesChanged"
	TypeLostSync           = "workspace:lostSync"
	TypeInputConfigure     = "input:configure"
	TypeDebugLog           = "debug-log"
	TypeSequencerStep      = "sequencer-step"
)

// New builds a message; props may be nil.
func New(typ string, props map[string]any) Message {
	return Message{Type: typ, Props: props}
}

// Str returns a string prop, or "" when absent or not a string.
func (m Message) Str(key string) string {
	s, _ := m.Props[key].(string)
	return s
}

func (m Message) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.Props)+1)
	for k, v := range m.Props {
		flat[k] = v
	}
	flat["type"] = m.Type
	return json.Marshal(flat)
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	m.Type, _ = flat["type"].(string)
	delete(flat, "type")
	m.Props = flat
	return nil
}
